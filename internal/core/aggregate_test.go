package core

import (
	"testing"
	"time"
)

func ptr(v int64) *int64 { return &v }

func tx(typ TransactionType, cents int64, cat *int64, date time.Time) Transaction {
	return Transaction{Type: typ, Amount: Money{Cents: cents}, CategoryID: cat, Date: date}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize(nil); got != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", got)
	}
}

func TestSummarizeIsAdditive(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a := []Transaction{tx(Income, 200000, nil, day), tx(Expense, 1999, ptr(1), day)}
	b := []Transaction{tx(Expense, 15000, ptr(2), day), tx(Expense, 1, ptr(1), day), tx(Income, 33, nil, day)}

	whole := Summarize(append(append([]Transaction{}, a...), b...))
	combined := Summarize(a).Combine(Summarize(b))
	if whole != combined {
		t.Fatalf("summarize not additive: %+v vs %+v", whole, combined)
	}
	if whole.TotalIncome.Cents != 200033 || whole.TotalExpenses.Cents != 17000 || whole.TransactionCount != 5 {
		t.Fatalf("unexpected totals %+v", whole)
	}
	if whole.NetIncome.Cents != 183033 {
		t.Fatalf("unexpected net %d", whole.NetIncome.Cents)
	}
	if got := Summarize(a).Combine(Summary{}); got != Summarize(a) {
		t.Fatalf("zero summary should be the identity")
	}
}

func TestBreakdownByCategory(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cats := map[int64]CategoryRef{1: {ID: 1, Name: "Groceries"}, 2: {ID: 2, Name: "Rent"}}
	txs := []Transaction{
		tx(Expense, 1000, ptr(1), day),
		tx(Expense, 500, ptr(1), day),
		tx(Expense, 120000, ptr(2), day),
		tx(Income, 300000, nil, day),
		tx(Expense, 700, ptr(9), day), // unknown category
	}

	stats := BreakdownByCategory(txs, cats)
	if len(stats) != 4 {
		t.Fatalf("expected 4 groups, got %d", len(stats))
	}

	// ordered by total desc
	if stats[0].CategoryID != nil || stats[0].Category != nil || stats[0].TotalAmount.Cents != 300000 {
		t.Fatalf("expected uncategorized income first, got %+v", stats[0])
	}
	if stats[1].Category == nil || stats[1].Category.Name != "Rent" {
		t.Fatalf("expected Rent second, got %+v", stats[1])
	}
	groceries := stats[2]
	if groceries.Category == nil || groceries.Category.Name != "Groceries" {
		t.Fatalf("expected Groceries third, got %+v", groceries)
	}
	if groceries.TransactionCount != 2 || groceries.TotalAmount.Cents != 1500 || groceries.AverageAmount.Cents != 750 {
		t.Fatalf("unexpected groceries stats %+v", groceries)
	}
	unknown := stats[3]
	if unknown.CategoryID == nil || *unknown.CategoryID != 9 || unknown.Category != nil {
		t.Fatalf("expected raw id 9 without metadata, got %+v", unknown)
	}
	if unknown.Type != "" {
		t.Fatalf("type should be empty when not grouping by type")
	}
}

func TestBreakdownWithoutCategoryLookup(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	stats := BreakdownByCategory([]Transaction{tx(Expense, 100, ptr(3), day)}, nil)
	if len(stats) != 1 || stats[0].Category != nil || *stats[0].CategoryID != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestBreakdownByCategoryAndType(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		tx(Expense, 1000, ptr(1), day),
		tx(Income, 1000, ptr(1), day),
		tx(Income, 50, ptr(1), day),
	}
	stats := BreakdownByCategoryAndType(txs, map[int64]CategoryRef{1: {ID: 1, Name: "Side"}})
	if len(stats) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(stats))
	}
	if stats[0].Type != Income || stats[0].TotalAmount.Cents != 1050 || stats[0].AverageAmount.Cents != 525 {
		t.Fatalf("unexpected first group %+v", stats[0])
	}
	if stats[1].Type != Expense || stats[1].TransactionCount != 1 {
		t.Fatalf("unexpected second group %+v", stats[1])
	}
}

func TestTrendReportsEveryBucket(t *testing.T) {
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	for _, g := range []Granularity{Daily, Weekly, Monthly} {
		buckets := Buckets(now, g.DefaultPeriods(), g)
		points := Trend(nil, buckets, g)
		if len(points) != len(buckets) {
			t.Fatalf("%s: expected %d points, got %d", g, len(buckets), len(points))
		}
		for i, p := range points {
			if p.Period != buckets[i].Key || !p.Income.IsZero() || !p.Expenses.IsZero() || !p.Net.IsZero() {
				t.Fatalf("%s: unexpected point %+v", g, p)
			}
		}
	}
}

func TestTrendSixMonthScenario(t *testing.T) {
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	txs := []Transaction{
		tx(Income, 200000, nil, time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC)),
		tx(Expense, 15000, ptr(1), time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)),
		tx(Expense, 99, ptr(1), time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)), // before window
		tx(Expense, 99, ptr(1), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)),    // after window
	}

	months := MonthlyTrends(Trend(txs, Buckets(now, 6, Monthly), Monthly))
	if len(months) != 6 {
		t.Fatalf("expected 6 months, got %d", len(months))
	}
	first, last := months[0], months[5]
	if first.Month != "2025-01" || first.Income.String() != "2000.00" || !first.Expenses.IsZero() || first.Net.String() != "2000.00" {
		t.Fatalf("unexpected first month %+v", first)
	}
	if last.Month != "2025-06" || !last.Income.IsZero() || last.Expenses.String() != "150.00" || last.Net.String() != "-150.00" {
		t.Fatalf("unexpected last month %+v", last)
	}
	for _, m := range months[1:5] {
		if !m.Income.IsZero() || !m.Expenses.IsZero() || !m.Net.IsZero() {
			t.Fatalf("expected zeroed month, got %+v", m)
		}
	}
}

func TestTrendUsesBucketLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, loc)
	// 22:30 UTC on 31 May is already 1 June in UTC+2
	txs := []Transaction{tx(Expense, 100, nil, time.Date(2025, 5, 31, 22, 30, 0, 0, time.UTC))}
	points := Trend(txs, Buckets(now, 2, Monthly), Monthly)
	if points[1].Period != "2025-06" || points[1].Expenses.Cents != 100 {
		t.Fatalf("expected June expense, got %+v", points)
	}
}

func TestSeriesFromTrend(t *testing.T) {
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	txs := []Transaction{
		tx(Income, 300000, nil, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)),
		tx(Expense, 4550, ptr(1), time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)),
		tx(Expense, 1, nil, time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC)), // before window
	}

	series := SeriesFromTrend(Trend(txs, Buckets(now, 12, Monthly), Monthly))
	if len(series.Labels) != 12 || len(series.Incomes) != 12 || len(series.Expenses) != 12 {
		t.Fatalf("expected 12 entries per array, got %+v", series)
	}
	if series.Labels[0] != "2024-07" || series.Labels[11] != "2025-06" {
		t.Fatalf("unexpected labels %v", series.Labels)
	}
	if series.Incomes[0].Cents != 300000 || !series.Expenses[0].IsZero() {
		t.Fatalf("unexpected first month %s/%s", series.Incomes[0], series.Expenses[0])
	}
	if series.Expenses[11].Cents != 4550 || !series.Incomes[11].IsZero() {
		t.Fatalf("unexpected last month %s/%s", series.Incomes[11], series.Expenses[11])
	}

	empty := SeriesFromTrend(nil)
	if empty.Labels == nil || empty.Incomes == nil || empty.Expenses == nil {
		t.Fatalf("expected empty arrays, got %+v", empty)
	}
}

func TestExpensesByCategoryName(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	categories := map[int64]CategoryRef{1: {ID: 1, Name: "Food"}, 2: {ID: 2, Name: "Salary"}, 3: {ID: 3, Name: "Bills"}}

	tests := []struct {
		name       string
		txs        []Transaction
		wantLabels []string
		wantCents  []int64
	}{
		{
			name:       "empty",
			wantLabels: []string{},
			wantCents:  []int64{},
		},
		{
			name: "expenses only, income-only category as zero",
			txs: []Transaction{
				tx(Expense, 1000, ptr(1), day),
				tx(Expense, 250, ptr(1), day),
				tx(Income, 500000, ptr(2), day),
				tx(Expense, 300, nil, day),
				tx(Income, 700, nil, day),
			},
			wantLabels: []string{"Food", UncategorizedLabel, "Salary"},
			wantCents:  []int64{1250, 300, 0},
		},
		{
			name: "ties ordered by label, unknown id labelled",
			txs: []Transaction{
				tx(Expense, 500, ptr(3), day),
				tx(Expense, 500, ptr(1), day),
				tx(Expense, 900, ptr(42), day),
			},
			wantLabels: []string{"Category 42", "Bills", "Food"},
			wantCents:  []int64{900, 500, 500},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpensesByCategoryName(tt.txs, categories)
			if len(got.Labels) != len(tt.wantLabels) || len(got.Values) != len(tt.wantCents) {
				t.Fatalf("got %+v, want labels %v", got, tt.wantLabels)
			}
			for i := range tt.wantLabels {
				if got.Labels[i] != tt.wantLabels[i] || got.Values[i].Cents != tt.wantCents[i] {
					t.Errorf("[%d] = %s %d, want %s %d", i, got.Labels[i], got.Values[i].Cents, tt.wantLabels[i], tt.wantCents[i])
				}
			}
		})
	}
}
