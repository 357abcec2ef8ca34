package services

import (
	"errors"

	"fintrack/internal/core"
)

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
