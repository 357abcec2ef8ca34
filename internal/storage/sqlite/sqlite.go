// Package sqlite opens the SQLite backend (modernc, no cgo). Amounts are
// stored as integer cents and timestamps as fixed-width UTC text so that
// range comparisons stay lexicographic.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"fintrack/internal/core"
	"fintrack/internal/storage"
	"fintrack/internal/storage/sqlstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory database.
func Open(ctx context.Context, path string) (*sqlstore.Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one connection keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return sqlstore.New(db, Dialect{}), nil
}

// Migrate applies the embedded schema migrations
func Migrate(db *sql.DB) error {
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}
	return storage.RunMigrations(migrationsFS, "migrations", "sqlite", driver)
}

// Dialect renders queries for SQLite
type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Rebind(query string) string { return query }

func (Dialect) EncodeMoney(m core.Money) any { return m.Cents }

func (Dialect) ScanMoney(src any) (core.Money, error) {
	switch v := src.(type) {
	case int64:
		return core.Money{Cents: v}, nil
	case float64:
		return core.Money{Cents: int64(v)}, nil
	case nil:
		return core.Money{}, nil
	default:
		return core.Money{}, fmt.Errorf("unexpected amount type %T", src)
	}
}

func (Dialect) EncodeTime(t time.Time) any {
	return t.UTC().Format(timeLayout)
}

func (Dialect) ScanTime(src any) (time.Time, error) {
	switch v := src.(type) {
	case string:
		return parseTime(v)
	case []byte:
		return parseTime(string(v))
	case time.Time:
		return v.UTC(), nil
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", src)
	}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func (Dialect) IsUniqueViolation(err error) bool {
	return sqliteCode(err) == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		(err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed"))
}

func (Dialect) IsForeignKeyViolation(err error) bool {
	return sqliteCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY ||
		(err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed"))
}

func sqliteCode(err error) int {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()
	}
	return 0
}
