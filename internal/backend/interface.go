package backend

import (
	"context"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// CleanupFunc releases resources acquired by the factory
type CleanupFunc func() error

// BackendResult holds everything a process needs to serve requests
type BackendResult struct {
	Store  storage.Store
	Cache  *cache.Cache
	Locker *cache.Locker
	AMQP   *amqp.Client

	Cleanup CleanupFunc
}

// Publisher returns the change feed publisher, or nil when AMQP is not configured
func (r *BackendResult) Publisher() services.EventPublisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Relational stores
	DatabaseURL  string
	SQLiteDBPath string
	AutoMigrate  bool

	Cache CacheConfig

	// Change feed, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type CacheConfig struct {
	Type             CacheType
	RedisURL         string
	Options          cache.Options
	MemoryMaxEntries int
	CleanupInterval  time.Duration
}

// BackendType represents the type of data backend
type BackendType string

const (
	PostgresBackend BackendType = "postgres"
	SQLiteBackend   BackendType = "sqlite"
	MemoryBackend   BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case PostgresBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// CacheType represents the cache store backing the analytics cache
type CacheType string

const (
	RedisCache  CacheType = "redis"
	MemoryCache CacheType = "memory"
	NoCache     CacheType = "none"
)

func (ct CacheType) IsValid() bool {
	switch ct {
	case RedisCache, MemoryCache, NoCache:
		return true
	default:
		return false
	}
}
