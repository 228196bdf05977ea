package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/crypto/bcrypt"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/app"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/audit"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/creditors"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/notify"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/observability"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/platform/cache"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/platform/db"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/register"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/security"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, db.Config{
		DSN:             cfg.PGDSN,
		MaxConns:        cfg.PGMaxConns,
		MinConns:        cfg.PGMinConns,
		ConnMaxLifetime: cfg.PGConnMaxLifetime,
		ConnMaxIdleTime: cfg.PGConnMaxIdleTime,
	})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Config{
		Addr:         cfg.RedisAddr,
		DB:           cfg.RedisDB,
		DialTimeout:  cfg.RedisDialTimeout,
		ReadTimeout:  cfg.RedisReadTimeout,
		WriteTimeout: cfg.RedisWriteTimeout,
	})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()
	dispatcher := notify.NewAsynqDispatcher(asynqClient, logger)

	metrics := observability.NewMetrics()
	auditService := audit.NewService(audit.NewRepository(pool), logger).
		WithCounter(metrics.CountPinVerification)

	settingsCache := security.NewSettingsCache(redisClient, cfg.SettingsCacheTTL)
	securityService := security.NewService(
		security.NewPINRepository(pool),
		security.NewSettingsRepository(pool),
		settingsCache,
		auditService,
		security.Config{
			MaxAttempts:   cfg.PinMaxAttempts,
			LockoutWindow: cfg.PinLockoutWindow,
			BcryptCost:    bcrypt.DefaultCost,
		},
		logger,
	)
	securityHandler := security.NewHandler(logger, securityService, auditService)

	registerService := register.NewService(register.NewRepository(pool), securityService, dispatcher, logger)
	registerHandler := register.NewHandler(logger, registerService)

	creditorsService := creditors.NewService(creditors.NewRepository(pool), securityService, logger)
	creditorsHandler := creditors.NewHandler(logger, creditorsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		RegisterHandler:  registerHandler,
		SecurityHandler:  securityHandler,
		CreditorsHandler: creditorsHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
