package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

const (
	DefaultWarmPeriod = 30
	warmLockTTL       = 30 * time.Second
)

// DashboardSource computes (and caches) a user's dashboard
type DashboardSource interface {
	Dashboard(ctx context.Context, userID int64, periodDays int) (services.Dashboard, error)
}

// CacheWarmer reacts to transaction changes by dropping the owner's cached
// entries and recomputing their dashboards so the next request is a hit.
type CacheWarmer struct {
	cache     *cache.Cache
	locker    *cache.Locker
	dashboard DashboardSource
	periods   []int
	logger    *log.Logger
}

// NewCacheWarmer builds a warmer. A nil locker warms without coordination;
// empty periods warm only the default dashboard.
func NewCacheWarmer(c *cache.Cache, locker *cache.Locker, dashboard DashboardSource, periods []int, logger *log.Logger) *CacheWarmer {
	if len(periods) == 0 {
		periods = []int{DefaultWarmPeriod}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &CacheWarmer{
		cache:     c,
		locker:    locker,
		dashboard: dashboard,
		periods:   periods,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleTransactionChanged is the amqp.Handler for the change feed
func (w *CacheWarmer) HandleTransactionChanged(ctx context.Context, msg *amqp.TransactionChanged) error {
	removed := w.cache.Invalidate(ctx, msg.UserID, cache.NamespaceTransactions, cache.NamespaceAnalytics)

	w.logger.DebugContext(ctx, "Processing transaction change",
		log.NewFields().
			WithOperation(log.OpConsume).
			WithUser(msg.UserID).
			ToSlice()...,
	)

	if err := w.Warm(ctx, msg.UserID); err != nil {
		return fmt.Errorf("warm user %d after %s: %w", msg.UserID, msg.Action, err)
	}

	w.logger.InfoContext(ctx, "Cache re-warmed",
		log.FieldUserID, msg.UserID,
		log.FieldTransactionID, msg.TransactionID,
		"action", string(msg.Action),
		"invalidated", removed)
	return nil
}

// Warm recomputes the user's dashboards. When another worker already holds
// the user's warm lock the call is a no-op.
func (w *CacheWarmer) Warm(ctx context.Context, userID int64) error {
	key := "warm:user:" + strconv.FormatInt(userID, 10)

	err := w.locker.WithLock(ctx, key, warmLockTTL, 0, func(ctx context.Context) error {
		for _, period := range w.periods {
			if _, err := w.dashboard.Dashboard(ctx, userID, period); err != nil {
				return fmt.Errorf("dashboard period=%d: %w", period, err)
			}
		}
		return nil
	})
	if errors.Is(err, cache.ErrLockHeld) {
		w.logger.DebugContext(ctx, "Warm already in progress",
			log.FieldUserID, userID,
			log.FieldOperation, log.OpWarm)
		return nil
	}
	return err
}
