package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// EventPublisher announces ledger writes. Publishing is fire-and-forget.
type EventPublisher interface {
	PublishTransactionChanged(ctx context.Context, msg *amqp.TransactionChanged) error
}

// TransactionService orchestrates transaction writes, cache invalidation
// and change events.
type TransactionService struct {
	store     storage.Store
	cache     *cache.Cache
	publisher EventPublisher
	listTTL   time.Duration
	logger    *log.Logger
}

func NewTransactionService(store storage.Store, c *cache.Cache, publisher EventPublisher, listTTL time.Duration, logger *log.Logger) *TransactionService {
	if listTTL <= 0 {
		listTTL = 300 * time.Second
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionService{
		store:     store,
		cache:     c,
		publisher: publisher,
		listTTL:   listTTL,
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

// TransactionInput carries the writable fields of a transaction
type TransactionInput struct {
	Amount     core.Money
	Type       core.TransactionType
	CategoryID *int64
	Note       string
	Date       time.Time
}

func (in TransactionInput) apply(tx core.Transaction) core.Transaction {
	tx.Amount = in.Amount
	tx.Type = in.Type
	tx.CategoryID = in.CategoryID
	tx.Note = strings.TrimSpace(in.Note)
	tx.Date = in.Date
	return tx
}

// OptionalID tells an absent field apart from an explicit null. Set with a
// nil ID clears the reference.
type OptionalID struct {
	Set bool
	ID  *int64
}

// TransactionPatch carries the fields of a partial update. Nil fields keep
// their stored value.
type TransactionPatch struct {
	Amount     *core.Money
	Type       *core.TransactionType
	CategoryID OptionalID
	Note       *string
	Date       *time.Time
}

func (p TransactionPatch) apply(tx core.Transaction) core.Transaction {
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Type != nil {
		tx.Type = *p.Type
	}
	if p.CategoryID.Set {
		tx.CategoryID = p.CategoryID.ID
	}
	if p.Note != nil {
		tx.Note = strings.TrimSpace(*p.Note)
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	return tx
}

// ListQuery filters and paginates a transaction listing. UserID selects
// another user's ledger and requires ADMIN.
type ListQuery struct {
	UserID     int64
	Type       core.TransactionType
	CategoryID *int64
	From       *time.Time
	To         *time.Time
	Search     string
	Page       int
	Limit      int
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type TransactionPage struct {
	Transactions []core.Transaction `json:"transactions"`
	Pagination   Pagination         `json:"pagination"`
}

func (q *ListQuery) normalize() error {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = DefaultPageSize
	}
	if q.Page < 1 {
		return core.Invalidf("page must be at least 1")
	}
	if q.Limit < 1 || q.Limit > MaxPageSize {
		return core.Invalidf("limit must be between 1 and %d", MaxPageSize)
	}
	if q.Type != "" && !q.Type.Valid() {
		return core.ErrInvalidType
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return core.Invalidf("startDate must not be after endDate")
	}
	q.Search = strings.TrimSpace(q.Search)
	return nil
}

func (q ListQuery) key(owner int64) cache.Key {
	k := cache.NewKey(cache.NamespaceTransactions, owner, "list").
		With("page", strconv.Itoa(q.Page)).
		With("limit", strconv.Itoa(q.Limit)).
		With("type", string(q.Type)).
		With("search", q.Search)
	if q.CategoryID != nil {
		k = k.With("category", strconv.FormatInt(*q.CategoryID, 10))
	}
	if q.From != nil {
		k = k.With("start", q.From.UTC().Format(time.RFC3339Nano))
	}
	if q.To != nil {
		k = k.With("end", q.To.UTC().Format(time.RFC3339Nano))
	}
	return k
}

// List returns one page of the caller's transactions, newest first
func (s *TransactionService) List(ctx context.Context, who core.Identity, q ListQuery) (TransactionPage, error) {
	if err := q.normalize(); err != nil {
		return TransactionPage{}, err
	}

	owner := who.ID
	if q.UserID != 0 && q.UserID != who.ID {
		if !who.IsAdmin() {
			return TransactionPage{}, fmt.Errorf("list transactions of user %d: %w", q.UserID, core.ErrForbidden)
		}
		owner = q.UserID
	}

	return cache.GetOrCompute(ctx, s.cache, q.key(owner), s.listTTL, func(ctx context.Context) (TransactionPage, error) {
		filter := storage.TransactionFilter{
			UserID:     owner,
			Type:       q.Type,
			CategoryID: q.CategoryID,
			From:       q.From,
			To:         q.To,
			Search:     q.Search,
		}

		var (
			txs   []core.Transaction
			total int
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			page := filter
			page.Limit = q.Limit
			page.Offset = (q.Page - 1) * q.Limit
			var err error
			txs, err = s.store.ListTransactions(gctx, page)
			return err
		})
		g.Go(func() error {
			var err error
			total, err = s.store.CountTransactions(gctx, filter)
			return err
		})
		if err := g.Wait(); err != nil {
			return TransactionPage{}, fmt.Errorf("list transactions: %w", err)
		}

		return TransactionPage{
			Transactions: txs,
			Pagination: Pagination{
				Page:  q.Page,
				Limit: q.Limit,
				Total: total,
				Pages: (total + q.Limit - 1) / q.Limit,
			},
		}, nil
	})
}

// Get returns a transaction the caller may access
func (s *TransactionService) Get(ctx context.Context, who core.Identity, id int64) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if !who.CanAccess(tx.UserID) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrForbidden)
	}
	return tx, nil
}

func (s *TransactionService) checkCategory(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := s.store.GetCategory(ctx, *id); err != nil {
		return err
	}
	return nil
}

// Create records a transaction owned by the caller
func (s *TransactionService) Create(ctx context.Context, who core.Identity, in TransactionInput) (core.Transaction, error) {
	tx := in.apply(core.Transaction{UserID: who.ID})
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkCategory(ctx, tx.CategoryID); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.afterWrite(ctx, created.UserID, created.ID, amqp.ActionCreated)
	s.logger.InfoContext(ctx, "Transaction created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithUser(created.UserID).
			WithTransaction(created.ID, created.Amount.String()).
			ToSlice()...)
	return created, nil
}

// Update merges the patch over the stored transaction. Only the owner or
// an admin may update.
func (s *TransactionService) Update(ctx context.Context, who core.Identity, id int64, patch TransactionPatch) (core.Transaction, error) {
	existing, err := s.Get(ctx, who, id)
	if err != nil {
		return core.Transaction{}, err
	}

	tx := patch.apply(existing)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if patch.CategoryID.Set {
		if err := s.checkCategory(ctx, tx.CategoryID); err != nil {
			return core.Transaction{}, err
		}
	}

	updated, err := s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.afterWrite(ctx, existing.UserID, id, amqp.ActionUpdated)
	return updated, nil
}

// Delete removes a transaction. Only the owner or an admin may delete.
func (s *TransactionService) Delete(ctx context.Context, who core.Identity, id int64) error {
	existing, err := s.Get(ctx, who, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.afterWrite(ctx, existing.UserID, id, amqp.ActionDeleted)
	return nil
}

// afterWrite drops the owner's cached listings and analytics, then
// announces the change. Neither step can fail the write.
func (s *TransactionService) afterWrite(ctx context.Context, owner, txID int64, action amqp.Action) {
	s.cache.Invalidate(ctx, owner, cache.NamespaceTransactions, cache.NamespaceAnalytics)

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionChanged(ctx, amqp.NewTransactionChanged(owner, txID, action)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish transaction change",
			log.NewFields().
				WithOperation(log.OpPublish).
				WithUser(owner).
				WithError(err).
				ToSlice()...)
	}
}
