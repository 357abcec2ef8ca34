package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another process holds the lock
var ErrLockHeld = errors.New("lock held by another process")

// Locker provides distributed mutual exclusion over Redis.
// A nil Locker runs the function without locking.
type Locker struct {
	client *redislock.Client
}

func NewLocker(client redis.UniversalClient) *Locker {
	return &Locker{client: redislock.New(client)}
}

// WithLock runs fn while holding key. When wait is positive the lock is
// retried linearly until wait elapses; otherwise a held lock fails fast
// with ErrLockHeld.
func (l *Locker) WithLock(ctx context.Context, key string, ttl, wait time.Duration, fn func(ctx context.Context) error) error {
	if l == nil {
		return fn(ctx)
	}

	opts := &redislock.Options{}
	if wait > 0 {
		retries := int(wait / (100 * time.Millisecond))
		opts.RetryStrategy = redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), retries)
	}

	lock, err := l.client.Obtain(ctx, "lock:"+key, ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return fmt.Errorf("%s: %w", key, ErrLockHeld)
	}
	if err != nil {
		return fmt.Errorf("obtain lock %s: %w", key, err)
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()

	return fn(ctx)
}
