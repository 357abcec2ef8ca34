package core

import (
	"sort"
	"strconv"
	"time"
)

// UncategorizedLabel names the group of transactions without a category.
const UncategorizedLabel = "Uncategorized"

type (
	Summary struct {
		TotalIncome      Money `json:"totalIncome"`
		TotalExpenses    Money `json:"totalExpenses"`
		NetIncome        Money `json:"netIncome"`
		TransactionCount int   `json:"transactionCount"`
	}

	// CategoryStat aggregates one category group. A nil CategoryID is the
	// uncategorized group; a non-nil id with a nil Category could not be enriched.
	CategoryStat struct {
		CategoryID       *int64          `json:"categoryId"`
		Category         *CategoryRef    `json:"category"`
		Type             TransactionType `json:"type,omitempty"`
		TotalAmount      Money           `json:"totalAmount"`
		TransactionCount int             `json:"transactionCount"`
		AverageAmount    Money           `json:"averageAmount"`
	}

	TrendPoint struct {
		Period   string `json:"period"`
		Income   Money  `json:"income"`
		Expenses Money  `json:"expenses"`
		Net      Money  `json:"net"`
	}

	MonthTrend struct {
		Month    string `json:"month"`
		Income   Money  `json:"income"`
		Expenses Money  `json:"expenses"`
		Net      Money  `json:"net"`
	}

	// IncomeExpenseSeries is a trend laid out as parallel chart arrays.
	IncomeExpenseSeries struct {
		Labels   []string `json:"labels"`
		Incomes  []Money  `json:"incomes"`
		Expenses []Money  `json:"expenses"`
	}

	// LabeledSeries pairs chart labels with one value each.
	LabeledSeries struct {
		Labels []string `json:"labels"`
		Values []Money  `json:"values"`
	}

	groupKey struct {
		categoryID int64
		hasID      bool
		typ        TransactionType
	}
)

// Summarize totals income and expenses. Empty input yields the zero Summary.
func Summarize(txs []Transaction) Summary {
	var s Summary
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case Expense:
			s.TotalExpenses = s.TotalExpenses.Add(t.Amount)
		}
		s.TransactionCount++
	}
	s.NetIncome = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// Combine merges two summaries over disjoint transaction sets.
func (s Summary) Combine(o Summary) Summary {
	out := Summary{
		TotalIncome:      s.TotalIncome.Add(o.TotalIncome),
		TotalExpenses:    s.TotalExpenses.Add(o.TotalExpenses),
		TransactionCount: s.TransactionCount + o.TransactionCount,
	}
	out.NetIncome = out.TotalIncome.Sub(out.TotalExpenses)
	return out
}

// BreakdownByCategory groups txs by category id.
func BreakdownByCategory(txs []Transaction, categories map[int64]CategoryRef) []CategoryStat {
	return breakdown(txs, categories, false)
}

// BreakdownByCategoryAndType groups txs by category id and transaction type.
func BreakdownByCategoryAndType(txs []Transaction, categories map[int64]CategoryRef) []CategoryStat {
	return breakdown(txs, categories, true)
}

func breakdown(txs []Transaction, categories map[int64]CategoryRef, byType bool) []CategoryStat {
	groups := make(map[groupKey]*CategoryStat)
	for _, t := range txs {
		k := groupKey{}
		if t.CategoryID != nil {
			k.categoryID, k.hasID = *t.CategoryID, true
		}
		if byType {
			k.typ = t.Type
		}
		stat, ok := groups[k]
		if !ok {
			stat = &CategoryStat{Type: k.typ}
			if k.hasID {
				id := k.categoryID
				stat.CategoryID = &id
				if ref, found := categories[id]; found {
					stat.Category = &ref
				}
			}
			groups[k] = stat
		}
		stat.TotalAmount = stat.TotalAmount.Add(t.Amount)
		stat.TransactionCount++
	}

	stats := make([]CategoryStat, 0, len(groups))
	for _, stat := range groups {
		stat.AverageAmount = stat.TotalAmount.Div(stat.TransactionCount)
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		return statLess(stats[i], stats[j])
	})
	return stats
}

// statLess orders by total desc, then category id asc with uncategorized last, then type.
func statLess(a, b CategoryStat) bool {
	if a.TotalAmount.Cents != b.TotalAmount.Cents {
		return a.TotalAmount.Cents > b.TotalAmount.Cents
	}
	switch {
	case a.CategoryID == nil && b.CategoryID != nil:
		return false
	case a.CategoryID != nil && b.CategoryID == nil:
		return true
	case a.CategoryID != nil && b.CategoryID != nil && *a.CategoryID != *b.CategoryID:
		return *a.CategoryID < *b.CategoryID
	}
	return a.Type < b.Type
}

// Trend sums income and expenses per bucket. Every bucket is reported, empty
// ones as zeros; transactions outside the buckets are ignored.
func Trend(txs []Transaction, buckets []Bucket, g Granularity) []TrendPoint {
	points := make([]TrendPoint, len(buckets))
	index := make(map[string]int, len(buckets))
	var loc *time.Location
	for i, b := range buckets {
		points[i] = TrendPoint{Period: b.Key}
		index[b.Key] = i
		loc = b.Start.Location()
	}
	for _, t := range txs {
		date := t.Date
		if loc != nil {
			date = date.In(loc)
		}
		i, ok := index[BucketKeyFor(date, g)]
		if !ok {
			continue
		}
		switch t.Type {
		case Income:
			points[i].Income = points[i].Income.Add(t.Amount)
		case Expense:
			points[i].Expenses = points[i].Expenses.Add(t.Amount)
		}
	}
	for i := range points {
		points[i].Net = points[i].Income.Sub(points[i].Expenses)
	}
	return points
}

// MonthlyTrends relabels a monthly trend for the dashboard.
func MonthlyTrends(points []TrendPoint) []MonthTrend {
	out := make([]MonthTrend, len(points))
	for i, p := range points {
		out[i] = MonthTrend{Month: p.Period, Income: p.Income, Expenses: p.Expenses, Net: p.Net}
	}
	return out
}

// SeriesFromTrend splits a trend into labels, incomes and expenses.
func SeriesFromTrend(points []TrendPoint) IncomeExpenseSeries {
	out := IncomeExpenseSeries{
		Labels:   make([]string, len(points)),
		Incomes:  make([]Money, len(points)),
		Expenses: make([]Money, len(points)),
	}
	for i, p := range points {
		out.Labels[i] = p.Period
		out.Incomes[i] = p.Income
		out.Expenses[i] = p.Expenses
	}
	return out
}

// ExpensesByCategoryName totals expenses per category name. Every category
// seen is reported, income-only ones as zero. Transactions without a
// category fall under UncategorizedLabel; ids missing from categories are
// labelled "Category <id>". Ordered by value desc, then label.
func ExpensesByCategoryName(txs []Transaction, categories map[int64]CategoryRef) LabeledSeries {
	totals := make(map[string]Money)
	for _, t := range txs {
		label := UncategorizedLabel
		if t.CategoryID != nil {
			if ref, ok := categories[*t.CategoryID]; ok {
				label = ref.Name
			} else {
				label = "Category " + strconv.FormatInt(*t.CategoryID, 10)
			}
		}
		total := totals[label]
		if t.Type == Expense {
			total = total.Add(t.Amount)
		}
		totals[label] = total
	}

	labels := make([]string, 0, len(totals))
	for label := range totals {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, b := totals[labels[i]], totals[labels[j]]
		if a.Cents != b.Cents {
			return a.Cents > b.Cents
		}
		return labels[i] < labels[j]
	})

	out := LabeledSeries{Labels: labels, Values: make([]Money, len(labels))}
	for i, label := range labels {
		out.Values[i] = totals[label]
	}
	return out
}
