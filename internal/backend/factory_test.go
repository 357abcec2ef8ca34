package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/config"
	"fintrack/internal/core"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		errorString string
	}{
		{
			name:   "memory without cache",
			config: Config{Type: MemoryBackend, Cache: CacheConfig{Type: NoCache}},
		},
		{
			name:        "unknown backend",
			config:      Config{Type: "sheets", Cache: CacheConfig{Type: NoCache}},
			errorString: "valid: postgres, sqlite, memory",
		},
		{
			name:        "postgres without url",
			config:      Config{Type: PostgresBackend, Cache: CacheConfig{Type: NoCache}},
			errorString: "database URL is required",
		},
		{
			name:        "sqlite without path",
			config:      Config{Type: SQLiteBackend, Cache: CacheConfig{Type: NoCache}},
			errorString: "SQLite database path is required",
		},
		{
			name:        "redis without url",
			config:      Config{Type: MemoryBackend, Cache: CacheConfig{Type: RedisCache}},
			errorString: "redis URL is required",
		},
		{
			name:        "unknown cache",
			config:      Config{Type: MemoryBackend, Cache: CacheConfig{Type: "memcached"}},
			errorString: "invalid cache type",
		},
		{
			name: "amqp without queue",
			config: Config{
				Type:         MemoryBackend,
				Cache:        CacheConfig{Type: NoCache},
				AMQPURL:      "amqp://localhost:5672/",
				AMQPExchange: "fintrack",
			},
			errorString: "AMQP exchange and queue are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errorString == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.errorString)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) should fail")
	}

	app := &config.Config{
		DataBackend:           config.BackendSQLite,
		SQLiteDBPath:          "/tmp/fintrack.db",
		AutoMigrate:           true,
		CacheBackend:          config.CacheMemory,
		CacheOpTimeout:        75 * time.Millisecond,
		CacheFailureThreshold: 4,
		CacheCooldown:         time.Minute,
		CacheMemoryMaxEntries: 500,
		CacheCleanupInterval:  time.Minute,
	}

	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != app.SQLiteDBPath || !cfg.AutoMigrate {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}
	want := cache.Options{OpTimeout: 75 * time.Millisecond, FailureThreshold: 4, Cooldown: time.Minute}
	if cfg.Cache.Type != MemoryCache || cfg.Cache.Options != want || cfg.Cache.MemoryMaxEntries != 500 {
		t.Errorf("FromAppConfig() Cache = %+v", cfg.Cache)
	}
}

func TestFactory_CreateBackend(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantCache bool
	}{
		{
			name:   "memory store without cache",
			config: Config{Type: MemoryBackend, Cache: CacheConfig{Type: NoCache}},
		},
		{
			name: "memory store with memory cache",
			config: Config{
				Type:  MemoryBackend,
				Cache: CacheConfig{Type: MemoryCache, MemoryMaxEntries: 10, CleanupInterval: time.Minute},
			},
			wantCache: true,
		},
		{
			name: "migrated sqlite",
			config: Config{
				Type:         SQLiteBackend,
				SQLiteDBPath: filepath.Join(t.TempDir(), "fintrack.db"),
				AutoMigrate:  true,
				Cache:        CacheConfig{Type: MemoryCache, MemoryMaxEntries: 10},
			},
			wantCache: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			result, err := NewFactory(nil).CreateBackend(ctx, tt.config)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer func() {
				if err := result.Cleanup(); err != nil {
					t.Errorf("Cleanup() error = %v", err)
				}
			}()

			if (result.Cache != nil) != tt.wantCache {
				t.Errorf("Cache = %v, wantCache %v", result.Cache, tt.wantCache)
			}
			if result.Locker != nil {
				t.Error("Locker should only exist with redis")
			}
			if result.Publisher() != nil {
				t.Error("Publisher() should be nil without AMQP")
			}

			if err := result.Store.Ping(ctx); err != nil {
				t.Fatalf("Ping() error = %v", err)
			}
			created, err := result.Store.CreateCategory(ctx, core.Category{Name: "Food"})
			if err != nil {
				t.Fatalf("CreateCategory() error = %v", err)
			}
			if created.ID == 0 {
				t.Error("CreateCategory() should assign an id")
			}
		})
	}
}

func TestMigrateWithLock_NoLocker(t *testing.T) {
	ran := false
	err := MigrateWithLock(context.Background(), nil, func(context.Context) error {
		ran = true
		return nil
	})
	if err != nil || !ran {
		t.Errorf("MigrateWithLock() = %v, ran %v", err, ran)
	}
}
