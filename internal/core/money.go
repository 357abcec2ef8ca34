// Package core provides the finance domain: transactions, categories,
// fixed-point money, time bucketing and the aggregation engine.
//
// This file contains the Money type. Amounts are held as integer cents so
// that sums never drift; decimal parsing and formatting happen only at the
// boundaries.
package core

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountCents is the largest magnitude a Money may carry, matching the
// NUMERIC(12,2) columns that store it: 9,999,999,999.99.
const MaxAmountCents int64 = 999_999_999_999

var maxAmount = decimal.New(MaxAmountCents, -2)

type Money struct {
	Cents int64
}

// ParseMoney converts a decimal string to Money with half-up rounding to the cent.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns ErrInvalidAmount for invalid formats, negative or zero amounts, and
// amounts above MaxAmountCents.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234 cents
//	ParseMoney("12,345") -> 1235 cents
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m, err := boundedMoney(d)
	if err != nil {
		return Money{}, err
	}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// MoneyFromDecimal rounds d half-up to the cent.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

// boundedMoney is MoneyFromDecimal with the magnitude checked before the
// conversion to int64 can wrap.
func boundedMoney(d decimal.Decimal) (Money, error) {
	d = d.Round(2)
	if d.Abs().GreaterThan(maxAmount) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: d.Shift(2).IntPart()}, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// Div divides evenly by n, rounding half-up to the cent. Zero for n <= 0.
func (m Money) Div(n int) Money {
	if n <= 0 {
		return Money{}
	}
	q := decimal.NewFromInt(m.Cents).Div(decimal.NewFromInt(int64(n))).Round(0)
	return Money{Cents: q.IntPart()}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// String formats with exactly two decimals, e.g. "2000.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON emits a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string. Values
// beyond MaxAmountCents are rejected with ErrInvalidAmount.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*m = Money{}
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(string(data), ",", "."))
	if err != nil {
		return ErrInvalidAmount
	}
	parsed, err := boundedMoney(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
