package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"

	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"

	// MaxNoteLength is counted in characters, not bytes.
	MaxNoteLength = 500
)

type (
	TransactionType string

	Role string

	// Identity is the authenticated caller as attached by the gateway.
	Identity struct {
		ID    int64
		Role  Role
		Email string
	}

	// CategoryRef is the slim category projection embedded in results.
	CategoryRef struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	Category struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		Budget    Money     `json:"amount"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// CategoryUsage is a category together with the expenses booked on it.
	CategoryUsage struct {
		Category
		TotalAmount      Money `json:"totalAmount"`
		TransactionCount int   `json:"transactionCount"`
	}

	Transaction struct {
		ID         int64           `json:"id"`
		Amount     Money           `json:"amount"`
		Type       TransactionType `json:"type"`
		CategoryID *int64          `json:"categoryId"`
		Category   *CategoryRef    `json:"category,omitempty"`
		Note       string          `json:"note"`
		Date       time.Time       `json:"date"`
		UserID     int64           `json:"userId"`
		CreatedAt  time.Time       `json:"createdAt"`
		UpdatedAt  time.Time       `json:"updatedAt"`
	}
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")

	ErrInvalidAmount      = fmt.Errorf("%w: amount must be a positive number", ErrInvalidInput)
	ErrInvalidType        = fmt.Errorf("%w: type must be INCOME or EXPENSE", ErrInvalidInput)
	ErrInvalidGranularity = fmt.Errorf("%w: period must be daily, weekly or monthly", ErrInvalidInput)
	ErrEmptyDate          = fmt.Errorf("%w: date cannot be zero", ErrInvalidInput)
	ErrNoteTooLong        = fmt.Errorf("%w: note too long (max 500 characters)", ErrInvalidInput)
	ErrInvalidCategory    = fmt.Errorf("%w: category name must be between 2 and 50 characters", ErrInvalidInput)
	ErrCategoryNotFound   = fmt.Errorf("category %w", ErrNotFound)
	ErrCategoryExists     = fmt.Errorf("%w: category with this name already exists", ErrConflict)
)

// Invalidf builds an input error that matches ErrInvalidInput.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToUpper(strings.TrimSpace(s))); t {
	case Income, Expense:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanAccess reports whether the caller may read or mutate data owned by userID.
func (i Identity) CanAccess(userID int64) bool {
	return i.IsAdmin() || i.ID == userID
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Date.IsZero() {
		return ErrEmptyDate
	}
	if utf8.RuneCountInString(t.Note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

func (c Category) Validate() error {
	n := utf8.RuneCountInString(strings.TrimSpace(c.Name))
	if n < 2 || n > 50 {
		return ErrInvalidCategory
	}
	if c.Budget.Cents < 0 || c.Budget.Cents > MaxAmountCents {
		return Invalidf("category amount must be between 0 and %s", maxAmount.StringFixed(2))
	}
	return nil
}

// Ref returns the slim projection of the category.
func (c Category) Ref() CategoryRef {
	return CategoryRef{ID: c.ID, Name: c.Name}
}

// CategoryIndex maps category ids to their projection for enrichment.
func CategoryIndex(categories []Category) map[int64]CategoryRef {
	idx := make(map[int64]CategoryRef, len(categories))
	for _, c := range categories {
		idx[c.ID] = c.Ref()
	}
	return idx
}

// CategoryIDs returns the distinct non-nil category ids referenced by txs, in first-seen order.
func CategoryIDs(txs []Transaction) []int64 {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, t := range txs {
		if t.CategoryID == nil {
			continue
		}
		if _, ok := seen[*t.CategoryID]; ok {
			continue
		}
		seen[*t.CategoryID] = struct{}{}
		ids = append(ids, *t.CategoryID)
	}
	return ids
}
