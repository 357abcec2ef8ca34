// Package cache provides the read-through result cache used by the
// analytics and transaction services.
//
// A Cache wraps a Store with a per-operation timeout and a circuit breaker.
// Cache failures never reach callers: GetOrCompute falls back to computing
// the value, and invalidation is best-effort. A nil *Cache always computes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"fintrack/internal/log"
)

// Options tune a Cache
type Options struct {
	OpTimeout        time.Duration
	FailureThreshold int
	Cooldown         time.Duration
	// IndexTTL bounds the lifetime of owner index sets. It must exceed
	// the longest entry TTL.
	IndexTTL time.Duration
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		OpTimeout:        150 * time.Millisecond,
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
		IndexTTL:         24 * time.Hour,
	}
}

type Cache struct {
	store   Store
	opts    Options
	breaker *breaker
	logger  *log.Logger

	hits     atomic.Int64
	misses   atomic.Int64
	failures atomic.Int64
}

// Stats is a point-in-time view for health reporting
type Stats struct {
	State    string `json:"state"`
	Hits     int64  `json:"hits"`
	Misses   int64  `json:"misses"`
	Failures int64  `json:"failures"`
}

func New(store Store, opts Options, logger *log.Logger) *Cache {
	defaults := DefaultOptions()
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaults.OpTimeout
	}
	if opts.FailureThreshold < 1 {
		opts.FailureThreshold = defaults.FailureThreshold
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = defaults.Cooldown
	}
	if opts.IndexTTL <= 0 {
		opts.IndexTTL = defaults.IndexTTL
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Cache{
		store:   store,
		opts:    opts,
		breaker: newBreaker(opts.FailureThreshold, opts.Cooldown),
		logger:  logger.WithComponent(log.ComponentCache),
	}
}

// Stats reports breaker state and counters. A nil cache reports "disabled".
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{State: "disabled"}
	}
	return Stats{
		State:    c.breaker.stateName(),
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Failures: c.failures.Load(),
	}
}

// Ping checks the backing store, bypassing the breaker. A successful ping
// closes an open circuit; a failed one is not counted against it.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	opCtx, cancel := context.WithTimeout(ctx, c.opts.OpTimeout)
	defer cancel()

	if err := c.store.Ping(opCtx); err != nil {
		return err
	}
	c.breaker.recordSuccess()
	return nil
}

// do runs op under the op timeout and feeds the outcome to the breaker.
// A miss counts as success. Cancellation of the caller's context is not
// held against the store.
func (c *Cache) do(ctx context.Context, op func(ctx context.Context) error) error {
	if c.breaker.isOpen() {
		return ErrUnavailable
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opts.OpTimeout)
	defer cancel()

	err := op(opCtx)
	switch {
	case err == nil, errors.Is(err, ErrMiss):
		c.breaker.recordSuccess()
	case ctx.Err() != nil:
		// caller went away
	default:
		c.failures.Add(1)
		if c.breaker.recordFailure() {
			c.logger.Warn("Cache circuit opened",
				log.FieldError, err,
				"cooldown", c.opts.Cooldown.String())
		}
	}
	return err
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		raw, err = c.store.Get(ctx, key)
		return err
	})
	return raw, err
}

// put stores value and registers the key in the owner index
func (c *Cache) put(ctx context.Context, key Key, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to encode cache entry",
			log.FieldCacheKey, key.String(), log.FieldError, err)
		return
	}

	rendered := key.String()
	err = c.do(ctx, func(ctx context.Context) error {
		if err := c.store.Set(ctx, rendered, raw, ttl); err != nil {
			return err
		}
		return c.store.AddToIndex(ctx, IndexKey(key.Owner), rendered, c.opts.IndexTTL)
	})
	if err != nil && !errors.Is(err, ErrUnavailable) {
		c.logger.WarnContext(ctx, "Failed to store cache entry",
			log.NewFields().
				WithCache(rendered, false).
				WithError(err).
				WithErrorType(log.ErrorTypeCache).
				ToSlice()...)
	}
}

// GetOrCompute returns the cached value for key, or computes, stores and
// returns it. Compute errors are returned unchanged and nothing is stored.
func GetOrCompute[T any](ctx context.Context, c *Cache, key Key, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return compute(ctx)
	}

	rendered := key.String()
	store := true

	raw, err := c.get(ctx, rendered)
	switch {
	case err == nil:
		var cached T
		jsonErr := json.Unmarshal(raw, &cached)
		if jsonErr == nil {
			c.hits.Add(1)
			c.logger.DebugContext(ctx, "Cache hit",
				log.NewFields().WithCache(rendered, true).ToSlice()...)
			return cached, nil
		}
		c.logger.WarnContext(ctx, "Discarding malformed cache entry",
			log.NewFields().
				WithCache(rendered, false).
				WithError(jsonErr).
				WithErrorType(log.ErrorTypeCache).
				ToSlice()...)
	case errors.Is(err, ErrMiss):
	case errors.Is(err, ErrUnavailable):
		store = false
	default:
		store = false
		c.logger.WarnContext(ctx, "Cache read failed, computing",
			log.NewFields().
				WithCache(rendered, false).
				WithError(err).
				WithErrorType(log.ErrorTypeCache).
				ToSlice()...)
	}

	c.misses.Add(1)
	c.logger.DebugContext(ctx, "Cache miss",
		log.NewFields().WithCache(rendered, false).ToSlice()...)
	value, err := compute(ctx)
	if err != nil {
		return value, err
	}
	if store {
		c.put(ctx, key, value, ttl)
	}
	return value, nil
}

// Invalidate deletes the owner's cached entries in the given namespaces,
// or all of them when none are given. It returns the number of keys removed.
func (c *Cache) Invalidate(ctx context.Context, owner int64, namespaces ...string) int {
	if c == nil {
		return 0
	}

	index := IndexKey(owner)
	var removed []string
	err := c.do(ctx, func(ctx context.Context) error {
		members, err := c.store.IndexMembers(ctx, index)
		if err != nil {
			return err
		}
		for _, m := range members {
			if inNamespace(m, namespaces) {
				removed = append(removed, m)
			}
		}
		if len(removed) == 0 {
			return nil
		}
		if err := c.store.Delete(ctx, removed...); err != nil {
			return err
		}
		return c.store.RemoveFromIndex(ctx, index, removed...)
	})
	if err != nil {
		c.logger.WarnContext(ctx, "Cache invalidation failed",
			log.NewFields().
				WithUser(owner).
				WithOperation(log.OpInvalidate).
				WithError(err).
				WithErrorType(log.ErrorTypeCache).
				ToSlice()...)
		return 0
	}

	c.logger.DebugContext(ctx, "Cache invalidated",
		log.FieldUserID, owner,
		"namespaces", namespaces,
		"keys", len(removed))
	return len(removed)
}
