package core

import (
	"strings"
	"time"
)

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"

	// WeekStart is the first day of a weekly bucket.
	WeekStart = time.Sunday

	dayKeyLayout   = "2006-01-02"
	monthKeyLayout = "2006-01"
)

type (
	Granularity string

	// Bucket is the half-open interval [Start, End) labelled by Key.
	Bucket struct {
		Key   string
		Start time.Time
		End   time.Time
	}
)

// ParseGranularity parses daily, weekly or monthly. Empty means monthly.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return Monthly, nil
	case Daily, Weekly, Monthly:
		return g, nil
	default:
		return "", ErrInvalidGranularity
	}
}

// DefaultPeriods is the number of buckets a trend covers when the caller does not say.
func (g Granularity) DefaultPeriods() int {
	switch g {
	case Daily:
		return 30
	case Weekly:
		return 12
	default:
		return 12
	}
}

// BucketStart truncates t to the start of its bucket in t's location.
func BucketStart(t time.Time, g Granularity) time.Time {
	y, m, d := t.Date()
	switch g {
	case Daily:
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	case Weekly:
		offset := (int(t.Weekday()) - int(WeekStart) + 7) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	}
}

// BucketKeyFor maps t to the key of the bucket containing it.
func BucketKeyFor(t time.Time, g Granularity) string {
	return bucketKey(BucketStart(t, g), g)
}

// Buckets enumerates n contiguous buckets, oldest first, the last one containing now.
func Buckets(now time.Time, n int, g Granularity) []Bucket {
	if n < 1 {
		return []Bucket{}
	}
	start := shiftBucket(BucketStart(now, g), g, -(n - 1))
	buckets := make([]Bucket, 0, n)
	for i := 0; i < n; i++ {
		end := shiftBucket(start, g, 1)
		buckets = append(buckets, Bucket{
			Key:   bucketKey(start, g),
			Start: start,
			End:   end,
		})
		start = end
	}
	return buckets
}

func shiftBucket(start time.Time, g Granularity, k int) time.Time {
	switch g {
	case Daily:
		return start.AddDate(0, 0, k)
	case Weekly:
		return start.AddDate(0, 0, 7*k)
	default:
		return start.AddDate(0, k, 0)
	}
}

func bucketKey(start time.Time, g Granularity) string {
	if g == Monthly {
		return start.Format(monthKeyLayout)
	}
	return start.Format(dayKeyLayout)
}
