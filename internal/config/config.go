package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`
	GitHub GitHubConfig `mapstructure:"github"`
	Jira   JiraConfig   `mapstructure:"jira"`
	Lock   LockConfig   `mapstructure:"lock"`
	Auth   AuthConfig   `mapstructure:"auth"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Sync       string `mapstructure:"sync"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// Window bounds how far back a family resyncs. SyncFrom only widens the
// stored watermark; ForceResyncFrom replaces it.
type Window struct {
	SyncFromRaw        string `mapstructure:"sync_from"`
	ForceResyncFromRaw string `mapstructure:"force_resync_from"`

	SyncFrom        *time.Time `mapstructure:"-"`
	ForceResyncFrom *time.Time `mapstructure:"-"`
}

type GitHubConfig struct {
	Window       `mapstructure:",squash"`
	Tokens       []string      `mapstructure:"tokens"`
	Repositories []string      `mapstructure:"repositories"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ChunkSize    int           `mapstructure:"chunk_size"`
	Concurrency  int           `mapstructure:"concurrency"`
}

type JiraConfig struct {
	Window           `mapstructure:",squash"`
	SiteURL          string        `mapstructure:"site_url"`
	Username         string        `mapstructure:"username"`
	APIToken         string        `mapstructure:"api_token"`
	Projects         []string      `mapstructure:"projects"`
	Timeout          time.Duration `mapstructure:"timeout"`
	PageSize         int           `mapstructure:"page_size"`
	ChunkSize        int           `mapstructure:"chunk_size"`
	SprintField      string        `mapstructure:"sprint_field"`
	StoryPointsField string        `mapstructure:"story_points_field"`
}

func (c JiraConfig) Configured() bool {
	return strings.TrimSpace(c.SiteURL) != "" && strings.TrimSpace(c.APIToken) != ""
}

type LockConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	Disabled  bool   `mapstructure:"disabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SYNCER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.sync", "@every 10m")
	v.SetDefault("cron.run_on_start", true)
	v.SetDefault("github.tokens", []string{})
	v.SetDefault("github.repositories", []string{})
	v.SetDefault("github.sync_from", "")
	v.SetDefault("github.force_resync_from", "")
	v.SetDefault("github.base_url", "")
	v.SetDefault("github.timeout", "30s")
	v.SetDefault("github.chunk_size", 50)
	v.SetDefault("github.concurrency", 5)
	v.SetDefault("jira.site_url", "")
	v.SetDefault("jira.username", "")
	v.SetDefault("jira.api_token", "")
	v.SetDefault("jira.projects", []string{})
	v.SetDefault("jira.sync_from", "")
	v.SetDefault("jira.force_resync_from", "")
	v.SetDefault("jira.timeout", "30s")
	v.SetDefault("jira.page_size", 50)
	v.SetDefault("jira.chunk_size", 50)
	v.SetDefault("jira.sprint_field", "customfield_10020")
	v.SetDefault("jira.story_points_field", "customfield_10016")
	v.SetDefault("lock.backend", "memory")
	v.SetDefault("lock.ttl", "30m")
	v.SetDefault("lock.redis.addr", "localhost:6379")
	v.SetDefault("lock.redis.password", "")
	v.SetDefault("lock.redis.db", 0)
	v.SetDefault("auth.disabled", false)
	v.SetDefault("auth.jwt_secret", "")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// finalize parses dates and validates partition keys. Errors here are
// configuration mistakes and fatal at startup.
func (c *Config) finalize() error {
	var errs []error
	c.GitHub.Tokens = cleanList(c.GitHub.Tokens)
	c.GitHub.Repositories = cleanList(c.GitHub.Repositories)
	for i, key := range c.Jira.Projects {
		c.Jira.Projects[i] = strings.ToUpper(key)
	}
	c.Jira.Projects = cleanList(c.Jira.Projects)

	for _, repo := range c.GitHub.Repositories {
		if err := ValidateRepository(repo); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.GitHub.Window.parse("github"); err != nil {
		errs = append(errs, err)
	}
	if err := c.Jira.Window.parse("jira"); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Lock.Backend)) {
	case "", "memory":
		c.Lock.Backend = "memory"
	case "redis":
		c.Lock.Backend = "redis"
	default:
		errs = append(errs, fmt.Errorf("lock.backend: unsupported backend %q", c.Lock.Backend))
	}
	if !c.Auth.Disabled && strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required unless auth.disabled is set"))
	}
	return errors.Join(errs...)
}

func (w *Window) parse(family string) error {
	var errs []error
	from, err := ParseDate(w.SyncFromRaw)
	if err != nil {
		errs = append(errs, fmt.Errorf("%s.sync_from: %w", family, err))
	}
	force, err := ParseDate(w.ForceResyncFromRaw)
	if err != nil {
		errs = append(errs, fmt.Errorf("%s.force_resync_from: %w", family, err))
	}
	w.SyncFrom = from
	w.ForceResyncFrom = force
	return errors.Join(errs...)
}

// ParseDate accepts 2006-01-02 or RFC3339. An empty value means unset.
func ParseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC3339", raw)
}

// ValidateRepository checks the owner/name form of a GitHub repository.
func ValidateRepository(full string) error {
	owner, name, ok := strings.Cut(full, "/")
	if !ok || strings.TrimSpace(owner) == "" || strings.TrimSpace(name) == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid github repository %q, expected owner/name", full)
	}
	return nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}
