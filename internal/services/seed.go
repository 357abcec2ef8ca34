package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

var demoCategories = []struct {
	name   string
	budget int64
}{
	{"Food", 80000},
	{"Transport", 50000},
	{"Entertainment", 40000},
	{"Salary", 0},
	{"Utilities", 30000},
	{"Shopping", 60000},
	{"Healthcare", 20000},
}

// SeedDemo fills store with the demo categories and fifty transactions
// for userID spread over the six months before now. Existing categories
// are reused; amounts are deterministic.
func SeedDemo(ctx context.Context, store storage.Store, userID int64, now time.Time) (int, error) {
	categories := make([]core.Category, 0, len(demoCategories))
	for _, dc := range demoCategories {
		c, err := store.FindCategoryByName(ctx, dc.name)
		if errors.Is(err, core.ErrNotFound) {
			c, err = store.CreateCategory(ctx, core.Category{Name: dc.name, Budget: core.Money{Cents: dc.budget}})
		}
		if err != nil {
			return 0, fmt.Errorf("seed category %s: %w", dc.name, err)
		}
		categories = append(categories, c)
	}

	created := 0
	for i := 0; i < 50; i++ {
		date := time.Date(now.Year(), now.Month()-time.Month(i%6), 1+i%20, 12, 0, 0, 0, now.Location())
		tx := core.Transaction{
			Type:   core.Expense,
			Note:   "Expense item",
			Date:   date,
			UserID: userID,
			Amount: core.Money{Cents: 1000 + int64(i*397%20000)},
		}
		if i%5 == 0 {
			tx.Type = core.Income
			tx.Note = "Salary"
			tx.Amount = core.Money{Cents: 200000 + int64(i*1531%100000)}
		} else {
			id := categories[i%len(categories)].ID
			tx.CategoryID = &id
		}
		if _, err := store.CreateTransaction(ctx, tx); err != nil {
			return created, fmt.Errorf("seed transaction %d: %w", i, err)
		}
		created++
	}
	return created, nil
}
