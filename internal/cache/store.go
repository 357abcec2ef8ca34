package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned by a Store when the key is absent or expired
	ErrMiss = errors.New("cache miss")

	// ErrUnavailable is returned while the circuit breaker is open
	ErrUnavailable = errors.New("cache unavailable")
)

// Store is the backing key/value store behind a Cache.
// Values are opaque bytes; index sets hold cache keys per owner.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	AddToIndex(ctx context.Context, index, member string, ttl time.Duration) error
	IndexMembers(ctx context.Context, index string) ([]string, error)
	RemoveFromIndex(ctx context.Context, index string, members ...string) error

	Ping(ctx context.Context) error
}
