package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const (
	MinDashboardPeriod = 1
	MaxDashboardPeriod = 3650
	MaxTrendPeriods    = 366

	dashboardTrendMonths = 6
	overviewMonths       = 12
	recentTransactions   = 5
)

// AnalyticsStore is the read side the analytics service needs
type AnalyticsStore interface {
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
	CategoriesByIDs(ctx context.Context, ids []int64) ([]core.Category, error)
}

type AnalyticsConfig struct {
	DashboardTTL time.Duration
	AnalyticsTTL time.Duration
	Location     *time.Location
	Now          func() time.Time
}

type AnalyticsService struct {
	store  AnalyticsStore
	cache  *cache.Cache
	cfg    AnalyticsConfig
	logger *log.Logger
}

func NewAnalyticsService(store AnalyticsStore, c *cache.Cache, cfg AnalyticsConfig, logger *log.Logger) *AnalyticsService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.DashboardTTL <= 0 {
		cfg.DashboardTTL = 600 * time.Second
	}
	if cfg.AnalyticsTTL <= 0 {
		cfg.AnalyticsTTL = 900 * time.Second
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &AnalyticsService{
		store:  store,
		cache:  c,
		cfg:    cfg,
		logger: logger.WithComponent(log.ComponentAnalytics),
	}
}

func (s *AnalyticsService) now() time.Time {
	return s.cfg.Now().In(s.cfg.Location)
}

type Dashboard struct {
	Summary            core.Summary        `json:"summary"`
	CategoryBreakdown  []core.CategoryStat `json:"categoryBreakdown"`
	RecentTransactions []core.Transaction  `json:"recentTransactions"`
	MonthlyTrends      []core.MonthTrend   `json:"monthlyTrends"`
	Period             int                 `json:"period"`
}

// Dashboard summarizes the last periodDays days, plus the five most recent
// transactions and a trailing six-month trend independent of the period.
func (s *AnalyticsService) Dashboard(ctx context.Context, userID int64, periodDays int) (Dashboard, error) {
	if periodDays < MinDashboardPeriod || periodDays > MaxDashboardPeriod {
		return Dashboard{}, core.Invalidf("period must be between %d and %d days", MinDashboardPeriod, MaxDashboardPeriod)
	}

	key := cache.NewKey(cache.NamespaceAnalytics, userID, "dashboard").
		With("period", strconv.Itoa(periodDays))

	return cache.GetOrCompute(ctx, s.cache, key, s.cfg.DashboardTTL, func(ctx context.Context) (Dashboard, error) {
		return s.computeDashboard(ctx, userID, periodDays)
	})
}

func (s *AnalyticsService) computeDashboard(ctx context.Context, userID int64, periodDays int) (Dashboard, error) {
	now := s.now()
	since := now.Add(-time.Duration(periodDays) * 24 * time.Hour)
	months := core.Buckets(now, dashboardTrendMonths, core.Monthly)
	trendFrom := months[0].Start

	var (
		periodTxs []core.Transaction
		recent    []core.Transaction
		trendTxs  []core.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		periodTxs, err = s.store.ListTransactions(gctx, storage.TransactionFilter{UserID: userID, From: &since})
		if err != nil {
			return fmt.Errorf("period transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		recent, err = s.store.ListTransactions(gctx, storage.TransactionFilter{UserID: userID, Limit: recentTransactions})
		if err != nil {
			return fmt.Errorf("recent transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		trendTxs, err = s.store.ListTransactions(gctx, storage.TransactionFilter{UserID: userID, From: &trendFrom})
		if err != nil {
			return fmt.Errorf("trend transactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	categories := s.categoryLookup(ctx, periodTxs)

	return Dashboard{
		Summary:            core.Summarize(periodTxs),
		CategoryBreakdown:  core.BreakdownByCategoryAndType(periodTxs, categories),
		RecentTransactions: recent,
		MonthlyTrends:      core.MonthlyTrends(core.Trend(trendTxs, months, core.Monthly)),
		Period:             periodDays,
	}, nil
}

// CategoryFilter narrows category analytics. Nil bounds are open; both
// bounds are inclusive.
type CategoryFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Type      core.TransactionType
}

func (f CategoryFilter) validate() error {
	if f.Type != "" && !f.Type.Valid() {
		return core.ErrInvalidType
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return core.Invalidf("startDate must not be after endDate")
	}
	return nil
}

func (f CategoryFilter) key(userID int64) cache.Key {
	k := cache.NewKey(cache.NamespaceAnalytics, userID, "categories").With("type", string(f.Type))
	if f.StartDate != nil {
		k = k.With("start", f.StartDate.UTC().Format(time.RFC3339Nano))
	}
	if f.EndDate != nil {
		k = k.With("end", f.EndDate.UTC().Format(time.RFC3339Nano))
	}
	return k
}

// CategoryAnalytics totals, counts and averages transactions per category
func (s *AnalyticsService) CategoryAnalytics(ctx context.Context, userID int64, f CategoryFilter) ([]core.CategoryStat, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	return cache.GetOrCompute(ctx, s.cache, f.key(userID), s.cfg.AnalyticsTTL, func(ctx context.Context) ([]core.CategoryStat, error) {
		txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{
			UserID: userID,
			Type:   f.Type,
			From:   f.StartDate,
			To:     f.EndDate,
		})
		if err != nil {
			return nil, fmt.Errorf("category analytics transactions: %w", err)
		}
		return core.BreakdownByCategory(txs, s.categoryLookup(ctx, txs)), nil
	})
}

// TrendQuery selects a spending trend series. Zero Periods means the
// granularity's default.
type TrendQuery struct {
	Granularity core.Granularity
	CategoryID  *int64
	Periods     int
}

// SpendingTrends reports income, expenses and net per bucket, oldest first,
// including empty buckets.
func (s *AnalyticsService) SpendingTrends(ctx context.Context, userID int64, q TrendQuery) ([]core.TrendPoint, error) {
	if q.Granularity == "" {
		q.Granularity = core.Monthly
	}
	if _, err := core.ParseGranularity(string(q.Granularity)); err != nil {
		return nil, err
	}
	if q.Periods == 0 {
		q.Periods = q.Granularity.DefaultPeriods()
	}
	if q.Periods < 1 || q.Periods > MaxTrendPeriods {
		return nil, core.Invalidf("periods must be between 1 and %d", MaxTrendPeriods)
	}

	key := cache.NewKey(cache.NamespaceAnalytics, userID, "trends").
		With("granularity", string(q.Granularity)).
		With("periods", strconv.Itoa(q.Periods))
	if q.CategoryID != nil {
		key = key.With("category", strconv.FormatInt(*q.CategoryID, 10))
	}

	return cache.GetOrCompute(ctx, s.cache, key, s.cfg.AnalyticsTTL, func(ctx context.Context) ([]core.TrendPoint, error) {
		buckets := core.Buckets(s.now(), q.Periods, q.Granularity)
		from := buckets[0].Start
		to := buckets[len(buckets)-1].End.Add(-time.Nanosecond)

		txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{
			UserID:     userID,
			CategoryID: q.CategoryID,
			From:       &from,
			To:         &to,
		})
		if err != nil {
			return nil, fmt.Errorf("trend transactions: %w", err)
		}
		return core.Trend(txs, buckets, q.Granularity), nil
	})
}

// MonthlyOverview reports income and expenses for each of the trailing
// twelve calendar months, current month last.
func (s *AnalyticsService) MonthlyOverview(ctx context.Context, userID int64) (core.IncomeExpenseSeries, error) {
	key := cache.NewKey(cache.NamespaceAnalytics, userID, "monthly")

	return cache.GetOrCompute(ctx, s.cache, key, s.cfg.AnalyticsTTL, func(ctx context.Context) (core.IncomeExpenseSeries, error) {
		months := core.Buckets(s.now(), overviewMonths, core.Monthly)
		from := months[0].Start

		txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{UserID: userID, From: &from})
		if err != nil {
			return core.IncomeExpenseSeries{}, fmt.Errorf("monthly overview transactions: %w", err)
		}
		return core.SeriesFromTrend(core.Trend(txs, months, core.Monthly)), nil
	})
}

// ExpensesByCategory totals the user's expenses per category name across
// their whole history.
func (s *AnalyticsService) ExpensesByCategory(ctx context.Context, userID int64) (core.LabeledSeries, error) {
	key := cache.NewKey(cache.NamespaceAnalytics, userID, "category")

	return cache.GetOrCompute(ctx, s.cache, key, s.cfg.AnalyticsTTL, func(ctx context.Context) (core.LabeledSeries, error) {
		txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{UserID: userID})
		if err != nil {
			return core.LabeledSeries{}, fmt.Errorf("category expense transactions: %w", err)
		}
		return core.ExpensesByCategoryName(txs, s.categoryLookup(ctx, txs)), nil
	})
}

// categoryLookup resolves the categories referenced by txs. A failure is
// logged and yields an empty lookup so results fall back to raw ids.
func (s *AnalyticsService) categoryLookup(ctx context.Context, txs []core.Transaction) map[int64]core.CategoryRef {
	ids := core.CategoryIDs(txs)
	if len(ids) == 0 {
		return map[int64]core.CategoryRef{}
	}
	categories, err := s.store.CategoriesByIDs(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "Category enrichment failed, reporting raw ids",
			log.NewFields().
				WithOperation(log.OpCompute).
				WithErrorType(log.ErrorTypeDatabase).
				WithError(err).
				ToSlice()...)
		return map[int64]core.CategoryRef{}
	}
	return core.CategoryIndex(categories)
}
