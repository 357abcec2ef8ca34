package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
	"fintrack/internal/storage/postgres"
	"fintrack/internal/storage/sqlite"
	"fintrack/internal/storage/sqlstore"
)

const (
	migrationLockKey  = "migrations"
	migrationLockTTL  = 2 * time.Minute
	migrationLockWait = time.Minute
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentStorage),
	}
}

// CreateBackend builds the cache first so that migrations can run under the
// distributed lock, then the store, then the optional change feed client.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var cleanups []CleanupFunc
	cleanup := func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	result := &BackendResult{Cleanup: cleanup}

	c, locker, cacheCleanup, err := f.createCache(ctx, config.Cache)
	if err != nil {
		return nil, err
	}
	if cacheCleanup != nil {
		cleanups = append(cleanups, cacheCleanup)
	}
	result.Cache = c
	result.Locker = locker

	store, err := f.createStore(ctx, config, locker)
	if err != nil {
		_ = cleanup()
		return nil, err
	}
	cleanups = append(cleanups, store.Close)
	result.Store = store

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change feed",
				log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			cleanups = append(cleanups, client.Close)
			result.AMQP = client
		}
	}

	return result, nil
}

func (f *DefaultFactory) createStore(ctx context.Context, config Config, locker *cache.Locker) (storage.Store, error) {
	switch config.Type {
	case PostgresBackend:
		store, err := postgres.Open(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		if err := f.migrate(ctx, config, locker, store, postgres.Migrate); err != nil {
			store.Close()
			return nil, err
		}
		f.logger.Info("Initialized postgres backend", "auto_migrate", config.AutoMigrate)
		return store, nil

	case SQLiteBackend:
		store, err := sqlite.Open(ctx, config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		if err := f.migrate(ctx, config, locker, store, sqlite.Migrate); err != nil {
			store.Close()
			return nil, err
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return store, nil

	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// migrate applies schema migrations when enabled. With a locker, only one
// process migrates at a time; the others wait and then find nothing to do.
func (f *DefaultFactory) migrate(ctx context.Context, config Config, locker *cache.Locker, store *sqlstore.Store, run func(db *sql.DB) error) error {
	if !config.AutoMigrate {
		return nil
	}
	return MigrateWithLock(ctx, locker, func(context.Context) error {
		return run(store.DB())
	})
}

// MigrateWithLock runs fn under the cluster-wide migration lock
func MigrateWithLock(ctx context.Context, locker *cache.Locker, fn func(ctx context.Context) error) error {
	if err := locker.WithLock(ctx, migrationLockKey, migrationLockTTL, migrationLockWait, fn); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (f *DefaultFactory) createCache(ctx context.Context, config CacheConfig) (*cache.Cache, *cache.Locker, CleanupFunc, error) {
	switch config.Type {
	case RedisCache:
		client, err := cache.NewRedisClient(config.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to initialize redis client: %w", err)
		}
		store := cache.NewRedisStore(client)
		c := cache.New(store, config.Options, f.logger)
		if err := c.Ping(ctx); err != nil {
			f.logger.Warn("Redis unreachable at startup, analytics will be computed uncached until it recovers",
				log.FieldError, err)
		} else {
			f.logger.Info("Initialized redis cache")
		}
		return c, cache.NewLocker(store.Client()), store.Close, nil

	case MemoryCache:
		store := cache.NewMemoryStore(config.MemoryMaxEntries)
		manager := cache.NewManager(f.logger)
		manager.Register(store)
		if config.CleanupInterval > 0 {
			manager.StartCleanup(config.CleanupInterval)
		}
		f.logger.Info("Initialized memory cache", "max_entries", config.MemoryMaxEntries)
		return cache.New(store, config.Options, f.logger), nil, func() error {
			manager.Stop()
			return nil
		}, nil

	case NoCache:
		f.logger.Info("Analytics cache disabled")
		return nil, nil, nil, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
}
