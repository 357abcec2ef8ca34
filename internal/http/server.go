package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/services"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the services and middleware settings into a Server
type Options struct {
	Addr string

	Analytics    *services.AnalyticsService
	Transactions *services.TransactionService
	Categories   *services.CategoryService

	Store Pinger
	Cache *cache.Cache

	AllowedOrigins        []string
	RateLimitAnalytics    int
	RateLimitTransactions int
	Location              *time.Location
	Logger                *log.Logger
}

type Server struct {
	http.Server
	engine *gin.Engine

	analytics    *services.AnalyticsService
	transactions *services.TransactionService
	categories   *services.CategoryService
	store        Pinger
	cache        *cache.Cache
	location     *time.Location
	logger       *log.Logger

	detector         *security.Detector
	analyticsLimiter *ratelimit.Limiter
	ledgerLimiter    *ratelimit.Limiter
	shutdownOnce     sync.Once
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	useJSONFieldNames()

	s := &Server{
		engine:       gin.New(),
		analytics:    opts.Analytics,
		transactions: opts.Transactions,
		categories:   opts.Categories,
		store:        opts.Store,
		cache:        opts.Cache,
		location:     opts.Location,
		logger:       opts.Logger.WithComponent(log.ComponentHTTP),
		detector:     security.NewDetector(),
		analyticsLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitAnalytics,
		}),
		ledgerLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitTransactions,
		}),
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := s.engine.SetTrustedProxies(security.TrustedProxies); err != nil {
		s.logger.Warn("Invalid trusted proxy list", log.FieldError, err)
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(log.Middleware(opts.Logger))
	s.engine.Use(security.Headers(security.DefaultHeadersConfig()))
	s.engine.Use(s.detector.Middleware())
	if len(opts.AllowedOrigins) > 0 {
		s.engine.Use(cors.New(cors.Config{
			AllowOrigins:  opts.AllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", HeaderUserID, HeaderUserRole, HeaderUserEmail, log.RequestIDHeader},
			ExposeHeaders: []string{log.RequestIDHeader, "Retry-After"},
			MaxAge:        12 * time.Hour,
		}))
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", handleLiveness)
	s.engine.GET("/health", s.handleHealth)

	api := s.engine.Group("/api", RequireIdentity())

	analytics := api.Group("/analytics", s.analyticsLimiter.Middleware(rateLimitKey))
	analytics.GET("/dashboard", s.handleDashboard)
	analytics.GET("/categories", s.handleCategoryAnalytics)
	analytics.GET("/trends", s.handleSpendingTrends)
	analytics.GET("/monthly", s.handleMonthlyOverview)
	analytics.GET("/category", s.handleCategoryExpenses)

	ledger := api.Group("", s.ledgerLimiter.Middleware(rateLimitKey))

	transactions := ledger.Group("/transactions")
	transactions.GET("", s.handleListTransactions)
	transactions.POST("", s.handleCreateTransaction)
	transactions.GET("/:id", s.handleGetTransaction)
	transactions.PUT("/:id", s.handleUpdateTransaction)
	transactions.DELETE("/:id", s.handleDeleteTransaction)

	categories := ledger.Group("/categories")
	categories.GET("", s.handleListCategories)
	categories.POST("", s.handleCreateCategory)
	categories.PUT("/:id", s.handleUpdateCategory)
	categories.DELETE("/:id", s.handleDeleteCategory)
}

// Router exposes the gin engine, mainly for tests
func (s *Server) Router() http.Handler {
	return s.engine
}

// Shutdown stops the limiter goroutines and drains the HTTP server once
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.analyticsLimiter.Stop()
		s.ledgerLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
