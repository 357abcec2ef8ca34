// Package postgres opens the PostgreSQL backend through the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
	"fintrack/internal/storage/sqlstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open connects to dsn and returns a ready store
func Open(ctx context.Context, dsn string) (*sqlstore.Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return sqlstore.New(db, Dialect{}), nil
}

// Migrate applies the embedded schema migrations
func Migrate(db *sql.DB) error {
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("create pgx migrate driver: %w", err)
	}
	return storage.RunMigrations(migrationsFS, "migrations", "pgx", driver)
}

// Dialect renders queries for PostgreSQL
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

// Rebind rewrites ? placeholders to $1, $2, ...
func (Dialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (Dialect) EncodeMoney(m core.Money) any {
	return m.Decimal().StringFixed(2)
}

func (Dialect) ScanMoney(src any) (core.Money, error) {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return core.Money{}, fmt.Errorf("scan numeric: %w", err)
	}
	return core.MoneyFromDecimal(d), nil
}

func (Dialect) EncodeTime(t time.Time) any {
	return t.UTC()
}

func (Dialect) ScanTime(src any) (time.Time, error) {
	switch v := src.(type) {
	case time.Time:
		return v.UTC(), nil
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", src)
	}
}

func (Dialect) IsUniqueViolation(err error) bool {
	return pgCode(err) == "23505"
}

func (Dialect) IsForeignKeyViolation(err error) bool {
	return pgCode(err) == "23503"
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
