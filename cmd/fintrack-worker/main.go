package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting fintrack-worker", log.FieldOperation, log.OpStartup)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker",
			log.NewFields().WithErrorType(log.ErrorTypeConfiguration).ToSlice()...)
		os.Exit(1)
	}
	// The API process owns migrations.
	cfg.AutoMigrate = false

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Minute)
	result := cli.InitBackend(startupCtx, logger, cfg)
	cancelStartup()

	if result.AMQP == nil {
		logger.Error("Change feed unavailable, nothing to consume")
		_ = result.Cleanup()
		os.Exit(1)
	}
	if result.Cache == nil {
		logger.Warn("Cache disabled, the worker will only drain the change feed")
	}

	analytics := services.NewAnalyticsService(result.Store, result.Cache, services.AnalyticsConfig{
		DashboardTTL: cfg.DashboardTTL,
		AnalyticsTTL: cfg.AnalyticsTTL,
		Location:     cfg.Location(),
	}, logger)
	warmer := worker.NewCacheWarmer(result.Cache, result.Locker, analytics, nil, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := result.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	})

	err := result.AMQP.ConsumeTransactionChanged(ctx, warmer.HandleTransactionChanged)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed",
			log.NewFields().
				WithOperation(log.OpConsume).
				WithError(err).
				ToSlice()...)
		_ = result.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
