package sqlstore

import (
	"time"

	"fintrack/internal/core"
)

// Dialect adapts the shared queries to one SQL engine. Queries are written
// with ? placeholders and passed through Rebind.
type Dialect interface {
	Name() string
	Rebind(query string) string

	EncodeMoney(m core.Money) any
	ScanMoney(src any) (core.Money, error)
	EncodeTime(t time.Time) any
	ScanTime(src any) (time.Time, error)

	IsUniqueViolation(err error) bool
	IsForeignKeyViolation(err error) bool
}

type moneyColumn struct {
	d   Dialect
	dst *core.Money
}

func (c moneyColumn) Scan(src any) error {
	m, err := c.d.ScanMoney(src)
	if err != nil {
		return err
	}
	*c.dst = m
	return nil
}

type timeColumn struct {
	d   Dialect
	dst *time.Time
}

func (c timeColumn) Scan(src any) error {
	t, err := c.d.ScanTime(src)
	if err != nil {
		return err
	}
	*c.dst = t
	return nil
}
