package backend

import (
	"fmt"
	"strings"

	"fintrack/internal/cache"
	"fintrack/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Type:         BackendType(appConfig.DataBackend),
		DatabaseURL:  appConfig.DatabaseURL,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AutoMigrate:  appConfig.AutoMigrate,
		Cache: CacheConfig{
			Type:     CacheType(appConfig.CacheBackend),
			RedisURL: appConfig.RedisURL,
			Options: cache.Options{
				OpTimeout:        appConfig.CacheOpTimeout,
				FailureThreshold: appConfig.CacheFailureThreshold,
				Cooldown:         appConfig.CacheCooldown,
			},
			MemoryMaxEntries: appConfig.CacheMemoryMaxEntries,
			CleanupInterval:  appConfig.CacheCleanupInterval,
		},
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s (valid: %s)", c.Type, strings.Join(GetBackendTypeStrings(), ", "))
	}

	switch c.Type {
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		// nothing to check
	}

	if !c.Cache.Type.IsValid() {
		return fmt.Errorf("invalid cache type: %s", c.Cache.Type)
	}
	if c.Cache.Type == RedisCache && c.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required for redis cache")
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP is enabled")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{PostgresBackend, SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
