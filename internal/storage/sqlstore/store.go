// Package sqlstore implements storage.Store over database/sql. The
// postgres and sqlite packages supply the Dialect and migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, now: time.Now}
}

// DB exposes the handle for migrations
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const transactionColumns = `t.id, t.amount, t.type, t.category_id, c.name, t.note, t.date, t.user_id, t.created_at, t.updated_at`

const transactionFrom = ` FROM transactions t LEFT JOIN categories c ON c.id = t.category_id`

func (s *Store) transactionWhere(f storage.TransactionFilter) (string, []any) {
	var conds []string
	var args []any

	if f.UserID != 0 {
		conds = append(conds, "t.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Type != "" {
		conds = append(conds, "t.type = ?")
		args = append(args, string(f.Type))
	}
	if f.CategoryID != nil {
		conds = append(conds, "t.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.From != nil {
		conds = append(conds, "t.date >= ?")
		args = append(args, s.dialect.EncodeTime(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "t.date <= ?")
		args = append(args, s.dialect.EncodeTime(*f.To))
	}
	if f.Search != "" {
		conds = append(conds, "LOWER(t.note) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		tx           core.Transaction
		txType       string
		categoryID   sql.NullInt64
		categoryName sql.NullString
	)
	err := row.Scan(
		&tx.ID,
		moneyColumn{s.dialect, &tx.Amount},
		&txType,
		&categoryID,
		&categoryName,
		&tx.Note,
		timeColumn{s.dialect, &tx.Date},
		&tx.UserID,
		timeColumn{s.dialect, &tx.CreatedAt},
		timeColumn{s.dialect, &tx.UpdatedAt},
	)
	if err != nil {
		return tx, err
	}
	tx.Type = core.TransactionType(txType)
	if categoryID.Valid {
		id := categoryID.Int64
		tx.CategoryID = &id
		if categoryName.Valid {
			tx.Category = &core.CategoryRef{ID: id, Name: categoryName.String}
		}
	}
	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	where, args := s.transactionWhere(f)
	query := "SELECT " + transactionColumns + transactionFrom + where + " ORDER BY t.date DESC, t.id DESC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := s.scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func (s *Store) CountTransactions(ctx context.Context, f storage.TransactionFilter) (int, error) {
	where, args := s.transactionWhere(f)
	var n int
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind("SELECT COUNT(*) FROM transactions t"+where), args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.Rebind("SELECT "+transactionColumns+transactionFrom+" WHERE t.id = ?"), id)
	tx, err := s.scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tx, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return tx, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func (s *Store) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	now := s.now().UTC()
	var id int64
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
		INSERT INTO transactions (amount, type, category_id, note, date, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		s.dialect.EncodeMoney(tx.Amount),
		string(tx.Type),
		nullableID(tx.CategoryID),
		tx.Note,
		s.dialect.EncodeTime(tx.Date),
		tx.UserID,
		s.dialect.EncodeTime(now),
		s.dialect.EncodeTime(now),
	).Scan(&id)
	if err != nil {
		if s.dialect.IsForeignKeyViolation(err) {
			return core.Transaction{}, core.ErrCategoryNotFound
		}
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return s.GetTransaction(ctx, id)
}

func (s *Store) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE transactions
		SET amount = ?, type = ?, category_id = ?, note = ?, date = ?, updated_at = ?
		WHERE id = ?`),
		s.dialect.EncodeMoney(tx.Amount),
		string(tx.Type),
		nullableID(tx.CategoryID),
		tx.Note,
		s.dialect.EncodeTime(tx.Date),
		s.dialect.EncodeTime(s.now().UTC()),
		tx.ID,
	)
	if err != nil {
		if s.dialect.IsForeignKeyViolation(err) {
			return core.Transaction{}, core.ErrCategoryNotFound
		}
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", tx.ID, err)
	}
	if err := expectAffected(res, "transaction", tx.ID); err != nil {
		return core.Transaction{}, err
	}
	return s.GetTransaction(ctx, tx.ID)
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind("DELETE FROM transactions WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return expectAffected(res, "transaction", id)
}

func expectAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d rows affected: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, core.ErrNotFound)
	}
	return nil
}
