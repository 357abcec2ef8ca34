package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port           string
	AllowedOrigins []string
	GinMode        string

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	DataBackend  string
	DatabaseURL  string
	SQLiteDBPath string
	AutoMigrate  bool

	// Cache
	CacheBackend          string
	RedisURL              string
	CacheOpTimeout        time.Duration
	CacheFailureThreshold int
	CacheCooldown         time.Duration
	CacheMemoryMaxEntries int
	CacheCleanupInterval  time.Duration

	// Cache TTLs
	DashboardTTL    time.Duration
	AnalyticsTTL    time.Duration
	TransactionsTTL time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Rate limiting (requests per minute per client)
	RateLimitAnalytics    int
	RateLimitTransactions int

	// Analytics
	Timezone string
}

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"

	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheNone   = "none"
)

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		GinMode:        getEnv("GIN_MODE", "release"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		DataBackend:  getEnv("DATA_BACKEND", BackendPostgres),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),
		AutoMigrate:  getEnvBool("AUTO_MIGRATE", true),

		CacheBackend:          getEnv("CACHE_BACKEND", CacheRedis),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CacheOpTimeout:        getEnvDuration("CACHE_OP_TIMEOUT", 150*time.Millisecond),
		CacheFailureThreshold: getEnvInt("CACHE_FAILURE_THRESHOLD", 3),
		CacheCooldown:         getEnvDuration("CACHE_COOLDOWN", 30*time.Second),
		CacheMemoryMaxEntries: getEnvInt("CACHE_MEMORY_MAX_ENTRIES", 10000),
		CacheCleanupInterval:  getEnvDuration("CACHE_CLEANUP_INTERVAL", time.Minute),

		DashboardTTL:    getEnvDuration("DASHBOARD_TTL", 600*time.Second),
		AnalyticsTTL:    getEnvDuration("ANALYTICS_TTL", 900*time.Second),
		TransactionsTTL: getEnvDuration("TRANSACTIONS_TTL", 300*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "fintrack.cache"),

		RateLimitAnalytics:    getEnvInt("RATE_LIMIT_ANALYTICS", 60),
		RateLimitTransactions: getEnvInt("RATE_LIMIT_TRANSACTIONS", 120),

		Timezone: getEnv("TIMEZONE", "UTC"),
	}
}

// Location resolves the configured analytics timezone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CacheEnabled reports whether a cache backend is configured
func (c *Config) CacheEnabled() bool {
	return c.CacheBackend != CacheNone && c.CacheBackend != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validLevels := []string{"debug", "info", "warn", "warning", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'json' or 'text'", c.LogFormat))
	}
	if c.GinMode != "" && !slices.Contains([]string{"debug", "release", "test"}, c.GinMode) {
		errors = append(errors, fmt.Sprintf("invalid GIN_MODE '%s': must be debug, release or test", c.GinMode))
	}

	// Validate data backend
	validBackends := []string{BackendPostgres, BackendSQLite, BackendMemory}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendPostgres {
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if parsedURL, err := url.Parse(c.DatabaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if parsedURL.Scheme != "postgres" && parsedURL.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", parsedURL.Scheme))
		}
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if c.SQLiteDBPath != ":memory:" {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate cache
	validCaches := []string{CacheRedis, CacheMemory, CacheNone}
	if !slices.Contains(validCaches, c.CacheBackend) {
		errors = append(errors, fmt.Sprintf("invalid cache backend '%s': must be one of %v", c.CacheBackend, validCaches))
	}
	if c.CacheBackend == CacheRedis {
		if parsedURL, err := url.Parse(c.RedisURL); err != nil || c.RedisURL == "" {
			errors = append(errors, fmt.Sprintf("invalid REDIS_URL '%s'", c.RedisURL))
		} else if parsedURL.Scheme != "redis" && parsedURL.Scheme != "rediss" {
			errors = append(errors, fmt.Sprintf("invalid REDIS_URL scheme '%s': must be 'redis' or 'rediss'", parsedURL.Scheme))
		}
	}
	if c.CacheBackend == CacheMemory && c.CacheMemoryMaxEntries < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache max entries %d: must be at least 1", c.CacheMemoryMaxEntries))
	}
	if c.CacheEnabled() {
		if c.CacheOpTimeout <= 0 || c.CacheOpTimeout > 5*time.Second {
			errors = append(errors, fmt.Sprintf("invalid cache op timeout %v: must be between 0 and 5 seconds", c.CacheOpTimeout))
		}
		if c.CacheFailureThreshold < 1 {
			errors = append(errors, fmt.Sprintf("invalid cache failure threshold %d: must be at least 1", c.CacheFailureThreshold))
		}
		if c.CacheCooldown < time.Second {
			errors = append(errors, fmt.Sprintf("invalid cache cooldown %v: must be at least 1 second", c.CacheCooldown))
		}
		for name, ttl := range map[string]time.Duration{
			"DASHBOARD_TTL":    c.DashboardTTL,
			"ANALYTICS_TTL":    c.AnalyticsTTL,
			"TRANSACTIONS_TTL": c.TransactionsTTL,
		} {
			if ttl < time.Second {
				errors = append(errors, fmt.Sprintf("invalid %s %v: must be at least 1 second", name, ttl))
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RateLimitAnalytics < 1 || c.RateLimitTransactions < 1 {
		errors = append(errors, "rate limits must be at least 1 request per minute")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	// Return combined errors
	if len(errors) > 0 {
		slices.Sort(errors)
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
