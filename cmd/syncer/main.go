package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/ilaif/athena-cycle/internal/auth"
	githubclient "github.com/ilaif/athena-cycle/internal/client/github"
	"github.com/ilaif/athena-cycle/internal/client/jira"
	"github.com/ilaif/athena-cycle/internal/config"
	cronrunner "github.com/ilaif/athena-cycle/internal/cron"
	"github.com/ilaif/athena-cycle/internal/db"
	"github.com/ilaif/athena-cycle/internal/handler"
	"github.com/ilaif/athena-cycle/internal/logger"
	"github.com/ilaif/athena-cycle/internal/passlock"
	gormrepository "github.com/ilaif/athena-cycle/internal/repository/gorm"
	"github.com/ilaif/athena-cycle/internal/service"
	"github.com/ilaif/athena-cycle/internal/syncengine"

	_ "github.com/ilaif/athena-cycle/docs"
)

func main() {
	cfgPath := os.Getenv("SYNCER_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SYNCER_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log, cfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)
	db.Configure(dbConn, cfg.DB)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}
	store := gormrepository.New(dbConn.Gorm)

	locker := newLocker(cfg.Lock, logger)
	if closer, ok := locker.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	hub := handler.NewStreamHub()

	githubSync := &service.GitHubSync{
		Store:           store,
		Locker:          locker,
		Repositories:    cfg.GitHub.Repositories,
		SyncFrom:        cfg.GitHub.SyncFrom,
		ForceResyncFrom: cfg.GitHub.ForceResyncFrom,
		ChunkSize:       cfg.GitHub.ChunkSize,
		Concurrency:     cfg.GitHub.Concurrency,
		Observer:        hub.Publish,
		Logger:          logger,
	}
	if len(cfg.GitHub.Tokens) > 0 {
		ghClient, err := githubclient.NewClient(githubclient.Options{
			Tokens:  cfg.GitHub.Tokens,
			BaseURL: cfg.GitHub.BaseURL,
			Timeout: cfg.GitHub.Timeout,
			Logger:  logger,
		})
		if err != nil {
			logger.Fatal("github client init failed", zap.Error(err))
		}
		githubSync.Client = ghClient
	}

	jiraSync := &service.JiraSync{
		Store:           store,
		Locker:          locker,
		Projects:        cfg.Jira.Projects,
		SyncFrom:        cfg.Jira.SyncFrom,
		ForceResyncFrom: cfg.Jira.ForceResyncFrom,
		PageSize:        cfg.Jira.PageSize,
		ChunkSize:       cfg.Jira.ChunkSize,
		Fields: service.IssueFieldIDs{
			Sprint:      cfg.Jira.SprintField,
			StoryPoints: cfg.Jira.StoryPointsField,
		},
		Observer: hub.Publish,
		Logger:   logger,
	}
	if cfg.Jira.Configured() {
		jiraHTTP := &http.Client{Timeout: cfg.Jira.Timeout}
		jiraSync.Client = jira.NewClient(jiraHTTP, cfg.Jira.SiteURL, cfg.Jira.Username, cfg.Jira.APIToken)
	}

	runner := service.NewRunner(logger, githubSync, jiraSync)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	var verifier *auth.JWT
	if !cfg.Auth.Disabled {
		verifier = &auth.JWT{Secret: []byte(cfg.Auth.JWTSecret)}
	} else {
		logger.Warn("api auth disabled")
	}
	engine.Use(handler.RequireBearer(verifier))

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(engine)
	syncHandler := &handler.SyncHandler{Runner: runner, Store: store, Logger: logger}
	syncHandler.Register(engine)
	queryHandler := &handler.QueryHandler{Store: store, Logger: logger}
	queryHandler.Register(engine)
	streamHandler := &handler.StreamHandler{Hub: hub, Logger: logger}
	streamHandler.Register(engine)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncJob := func(jobCtx context.Context) {
		if _, err := runner.SyncAll(jobCtx); err != nil {
			if errors.Is(err, syncengine.ErrPassInProgress) {
				logger.Warn("scheduled sync skipped", zap.Error(err))
				return
			}
			logger.Error("scheduled sync failed", zap.Error(err))
		}
	}

	cron := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cron.Add("sync", cfg.Cron.Sync, syncJob); err != nil {
			logger.Fatal("cron schedule invalid", zap.String("spec", cfg.Cron.Sync), zap.Error(err))
		}
		cron.Start()
		defer cron.Stop()
	}
	if cfg.Cron.RunOnStart {
		go syncJob(ctx)
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func newLocker(cfg config.LockConfig, logger *zap.Logger) passlock.Locker {
	if cfg.Backend != "redis" {
		return passlock.NewMemoryLocker()
	}
	logger.Info("using redis pass lock", zap.String("addr", cfg.Redis.Addr))
	return passlock.NewRedisLocker(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.TTL, logger)
}
