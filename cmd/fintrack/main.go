package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	seedUser := flag.Int64("seed-demo", 0, "seed demo categories and transactions for this user id and exit")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	gin.SetMode(cfg.GinMode)

	logger := cli.SetupLogger(cfg, log.ComponentApp)
	logger.Info("Starting fintrack",
		log.FieldOperation, log.OpStartup,
		"data_backend", cfg.DataBackend,
		"cache_backend", cfg.CacheBackend)

	if *migrateOnly {
		cfg.AutoMigrate = true
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 2*time.Minute)
	result := cli.InitBackend(startupCtx, logger, cfg)
	cancelStartup()

	if *migrateOnly || *seedUser > 0 {
		code := 0
		if *seedUser > 0 {
			n, err := services.SeedDemo(context.Background(), result.Store, *seedUser, time.Now().In(cfg.Location()))
			if err != nil {
				logger.Error("Demo seed failed", log.FieldUserID, *seedUser, log.FieldError, err)
				code = 1
			} else {
				logger.Info("Demo data seeded", log.FieldUserID, *seedUser, "transactions", n)
			}
		} else {
			logger.Info("Migrations applied", log.FieldOperation, log.OpMigrate)
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Cleanup failed", log.FieldError, err)
		}
		os.Exit(code)
	}

	analytics := services.NewAnalyticsService(result.Store, result.Cache, services.AnalyticsConfig{
		DashboardTTL: cfg.DashboardTTL,
		AnalyticsTTL: cfg.AnalyticsTTL,
		Location:     cfg.Location(),
	}, logger)
	transactions := services.NewTransactionService(result.Store, result.Cache, result.Publisher(), cfg.TransactionsTTL, logger)
	categories := services.NewCategoryService(result.Store, logger)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:                  ":" + cfg.Port,
		Analytics:             analytics,
		Transactions:          transactions,
		Categories:            categories,
		Store:                 result.Store,
		Cache:                 result.Cache,
		AllowedOrigins:        cfg.AllowedOrigins,
		RateLimitAnalytics:    cfg.RateLimitAnalytics,
		RateLimitTransactions: cfg.RateLimitTransactions,
		Location:              cfg.Location(),
		Logger:                logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	})

	logger.Info("Listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
