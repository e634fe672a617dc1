package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaultsAndParsesWindows(t *testing.T) {
	path := writeConfig(t, `
db:
  dsn: postgres://localhost/syncer
github:
  tokens: ["t1", " ", "t2"]
  repositories: ["acme/api", "acme/web", "acme/api"]
  sync_from: "2024-01-15"
jira:
  site_url: https://acme.atlassian.net
  api_token: secret
  projects: ["core", "CORE", "ops"]
  force_resync_from: "2024-02-01T10:00:00+02:00"
auth:
  jwt_secret: s3cret
`)
	cfg, err := Load(path, false)
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.HTTPAddr)
	require.Equal(t, "@every 10m", cfg.Cron.Sync)
	require.True(t, cfg.Cron.RunOnStart)
	require.Equal(t, 50, cfg.GitHub.ChunkSize)
	require.Equal(t, 5, cfg.GitHub.Concurrency)
	require.Equal(t, 30*time.Second, cfg.GitHub.Timeout)
	require.Equal(t, []string{"t1", "t2"}, cfg.GitHub.Tokens)
	require.Equal(t, []string{"acme/api", "acme/web"}, cfg.GitHub.Repositories)
	require.Equal(t, "memory", cfg.Lock.Backend)
	require.Equal(t, []string{"CORE", "OPS"}, cfg.Jira.Projects)
	require.Equal(t, "customfield_10020", cfg.Jira.SprintField)
	require.True(t, cfg.Jira.Configured())

	require.NotNil(t, cfg.GitHub.SyncFrom)
	require.True(t, cfg.GitHub.SyncFrom.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	require.Nil(t, cfg.GitHub.ForceResyncFrom)
	require.NotNil(t, cfg.Jira.ForceResyncFrom)
	require.True(t, cfg.Jira.ForceResyncFrom.Equal(time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)))
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
github:
  repositories: ["acme"]
  sync_from: "yesterday"
lock:
  backend: etcd
`)
	_, err := Load(path, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), `invalid github repository "acme"`)
	require.Contains(t, err.Error(), "github.sync_from")
	require.Contains(t, err.Error(), "lock.backend")
	require.Contains(t, err.Error(), "auth.jwt_secret")
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("SYNCER_AUTH_DISABLED", "true")
	t.Setenv("SYNCER_CRON_SYNC", "@every 1m")
	t.Setenv("SYNCER_JIRA_SYNC_FROM", "2023-06-01")

	cfg, err := Load("", true)
	require.NoError(t, err)
	require.True(t, cfg.Auth.Disabled)
	require.Equal(t, "@every 1m", cfg.Cron.Sync)
	require.NotNil(t, cfg.Jira.SyncFrom)
	require.False(t, cfg.Jira.Configured())
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("")
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = ParseDate("2024-03-01")
	require.NoError(t, err)
	require.Equal(t, "2024-03-01T00:00:00Z", got.Format(time.RFC3339))

	_, err = ParseDate("03/01/2024")
	require.Error(t, err)
}
