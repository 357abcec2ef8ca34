package core

import (
	"errors"
	"testing"
	"time"
)

func TestBucketsHaveNoGapsOrDuplicates(t *testing.T) {
	nows := []time.Time{
		time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
		time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 30, 12, 0, 0, 0, time.FixedZone("CET", 3600)),
	}
	for _, now := range nows {
		for _, g := range []Granularity{Daily, Weekly, Monthly} {
			for _, n := range []int{1, 6, 12, 53} {
				buckets := Buckets(now, n, g)
				if len(buckets) != n {
					t.Fatalf("%s %s n=%d: got %d buckets", now, g, n, len(buckets))
				}
				seen := map[string]bool{}
				for i, b := range buckets {
					if seen[b.Key] {
						t.Fatalf("%s %s: duplicate key %s", now, g, b.Key)
					}
					seen[b.Key] = true
					if i > 0 && !buckets[i-1].End.Equal(b.Start) {
						t.Fatalf("%s %s: gap between %s and %s", now, g, buckets[i-1].Key, b.Key)
					}
					if !b.Start.Before(b.End) {
						t.Fatalf("%s %s: empty bucket %s", now, g, b.Key)
					}
					if BucketKeyFor(b.Start, g) != b.Key {
						t.Fatalf("%s %s: start of %s maps to %s", now, g, b.Key, BucketKeyFor(b.Start, g))
					}
				}
				last := buckets[n-1]
				if now.Before(last.Start) || !now.Before(last.End) {
					t.Fatalf("%s %s: last bucket %s does not contain now", now, g, last.Key)
				}
			}
		}
	}
}

func TestBucketsMonthlyUsesCalendarMonths(t *testing.T) {
	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	got := Buckets(now, 6, Monthly)
	want := []string{"2024-10", "2024-11", "2024-12", "2025-01", "2025-02", "2025-03"}
	for i, b := range got {
		if b.Key != want[i] {
			t.Fatalf("bucket %d: want %s, got %s", i, want[i], b.Key)
		}
	}
}

func TestBucketKeyFor(t *testing.T) {
	cases := []struct {
		t    time.Time
		g    Granularity
		want string
	}{
		{time.Date(2025, 6, 4, 15, 0, 0, 0, time.UTC), Daily, "2025-06-04"},
		{time.Date(2025, 6, 4, 15, 0, 0, 0, time.UTC), Monthly, "2025-06"},
		// Wednesday belongs to the week starting Sunday 1 June
		{time.Date(2025, 6, 4, 15, 0, 0, 0, time.UTC), Weekly, "2025-06-01"},
		// A Sunday starts its own week
		{time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Weekly, "2025-06-01"},
		// Saturday closes the previous week, across a month boundary
		{time.Date(2025, 5, 31, 23, 59, 59, 0, time.UTC), Weekly, "2025-05-25"},
		// Exactly at a month boundary belongs to the new month
		{time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), Monthly, "2025-07"},
		{time.Date(2025, 6, 30, 23, 59, 59, 999, time.UTC), Monthly, "2025-06"},
	}
	for _, tc := range cases {
		if got := BucketKeyFor(tc.t, tc.g); got != tc.want {
			t.Fatalf("%s %s: want %s, got %s", tc.t, tc.g, tc.want, got)
		}
	}
}

func TestParseGranularity(t *testing.T) {
	cases := map[string]Granularity{"": Monthly, "daily": Daily, "Weekly": Weekly, " monthly ": Monthly}
	for in, want := range cases {
		got, err := ParseGranularity(in)
		if err != nil || got != want {
			t.Fatalf("%q expected %s, got %s (err=%v)", in, want, got, err)
		}
	}
	if _, err := ParseGranularity("yearly"); !errors.Is(err, ErrInvalidGranularity) {
		t.Fatalf("expected ErrInvalidGranularity, got %v", err)
	}
}

func TestBucketsNonPositive(t *testing.T) {
	if got := Buckets(time.Now(), 0, Daily); len(got) != 0 {
		t.Fatalf("expected no buckets, got %d", len(got))
	}
}
