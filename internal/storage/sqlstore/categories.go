package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

const categoryColumns = `c.id, c.name, c.amount, c.created_at, c.updated_at`

func (s *Store) categoryTargets(c *core.Category) []any {
	return []any{
		&c.ID,
		&c.Name,
		moneyColumn{s.dialect, &c.Budget},
		timeColumn{s.dialect, &c.CreatedAt},
		timeColumn{s.dialect, &c.UpdatedAt},
	}
}

func (s *Store) queryCategories(ctx context.Context, query string, args ...any) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]core.Category, 0)
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(s.categoryTargets(&c)...); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	categories, err := s.queryCategories(ctx, "SELECT "+categoryColumns+" FROM categories c ORDER BY c.name, c.id")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *Store) CategoriesByIDs(ctx context.Context, ids []int64) ([]core.Category, error) {
	if len(ids) == 0 {
		return []core.Category{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	categories, err := s.queryCategories(ctx,
		"SELECT "+categoryColumns+" FROM categories c WHERE c.id IN ("+placeholders+") ORDER BY c.id", args...)
	if err != nil {
		return nil, fmt.Errorf("categories by ids: %w", err)
	}
	return categories, nil
}

func (s *Store) getCategoryWhere(ctx context.Context, cond string, arg any) (core.Category, error) {
	var c core.Category
	err := s.db.QueryRowContext(ctx,
		s.dialect.Rebind("SELECT "+categoryColumns+" FROM categories c WHERE "+cond), arg).
		Scan(s.categoryTargets(&c)...)
	if errors.Is(err, sql.ErrNoRows) {
		return c, core.ErrCategoryNotFound
	}
	return c, err
}

func (s *Store) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := s.getCategoryWhere(ctx, "c.id = ?", id)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return c, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, err
}

func (s *Store) FindCategoryByName(ctx context.Context, name string) (core.Category, error) {
	c, err := s.getCategoryWhere(ctx, "LOWER(c.name) = LOWER(?)", strings.TrimSpace(name))
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return c, fmt.Errorf("find category %q: %w", name, err)
	}
	return c, err
}

func (s *Store) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	now := s.now().UTC()
	var id int64
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
		INSERT INTO categories (name, amount, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`),
		strings.TrimSpace(c.Name),
		s.dialect.EncodeMoney(c.Budget),
		s.dialect.EncodeTime(now),
		s.dialect.EncodeTime(now),
	).Scan(&id)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return core.Category{}, core.ErrCategoryExists
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return s.GetCategory(ctx, id)
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE categories SET name = ?, amount = ?, updated_at = ? WHERE id = ?`),
		strings.TrimSpace(c.Name),
		s.dialect.EncodeMoney(c.Budget),
		s.dialect.EncodeTime(s.now().UTC()),
		c.ID,
	)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return core.Category{}, core.ErrCategoryExists
		}
		return core.Category{}, fmt.Errorf("update category %d: %w", c.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Category{}, core.ErrCategoryNotFound
	}
	return s.GetCategory(ctx, c.ID)
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind("DELETE FROM categories WHERE id = ?"), id)
	if err != nil {
		if s.dialect.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: category %d is referenced by transactions", core.ErrConflict, id)
		}
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrCategoryNotFound
	}
	return nil
}

func (s *Store) CountCategoryUsage(ctx context.Context, id int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.dialect.Rebind("SELECT COUNT(*) FROM transactions WHERE category_id = ?"), id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count category usage %d: %w", id, err)
	}
	return n, nil
}

func (s *Store) CategoryUsage(ctx context.Context, userID int64) ([]core.CategoryUsage, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`
		SELECT `+categoryColumns+`, COALESCE(SUM(t.amount), 0), COUNT(t.id)
		FROM categories c
		LEFT JOIN transactions t
			ON t.category_id = c.id AND t.type = ? AND t.user_id = ?
		GROUP BY c.id, c.name, c.amount, c.created_at, c.updated_at
		ORDER BY c.name, c.id`),
		string(core.Expense), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("category usage: %w", err)
	}
	defer rows.Close()

	usage := make([]core.CategoryUsage, 0)
	for rows.Next() {
		var u core.CategoryUsage
		targets := append(s.categoryTargets(&u.Category),
			moneyColumn{s.dialect, &u.TotalAmount},
			&u.TransactionCount,
		)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan category usage: %w", err)
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category usage: %w", err)
	}
	return usage, nil
}
