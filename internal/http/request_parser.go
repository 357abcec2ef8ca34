package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fintrack/internal/core"
)

const dateLayout = "2006-01-02"

// parseDate accepts RFC 3339 timestamps or YYYY-MM-DD dates. A bare date is
// midnight in loc, or the last instant of that day when endOfDay is set so
// that an end bound covers the whole day.
func parseDate(value string, loc *time.Location, endOfDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, core.Invalidf("invalid date %q: use YYYY-MM-DD or RFC 3339", value)
	}
	if endOfDay {
		d = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return d, nil
}

// queryDate parses an optional date query parameter
func queryDate(c *gin.Context, name string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(raw, loc, endOfDay)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// queryInt parses an optional integer query parameter
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.Invalidf("%s must be an integer", name)
	}
	return n, nil
}

// queryID parses an optional positive id query parameter
func queryID(c *gin.Context, name string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(raw)
	if err != nil {
		return nil, core.Invalidf("%s must be a positive integer", name)
	}
	return &id, nil
}

// queryType parses an optional transaction type query parameter
func queryType(c *gin.Context, name string) (core.TransactionType, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return "", nil
	}
	return core.ParseTransactionType(raw)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, core.Invalidf("invalid id %q", raw)
	}
	return id, nil
}

// pathID parses the :id route parameter
func pathID(c *gin.Context) (int64, error) {
	return parseID(c.Param("id"))
}

// sanitizeInput removes control characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
