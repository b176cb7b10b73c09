package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Temporal bucket names accepted in "field:bucket" specs.
const (
	BucketYear    = "year"
	BucketQuarter = "quarter"
	BucketMonth   = "month"
	BucketWeek    = "week"
	BucketDay     = "day"
)

// DefaultBucket applies to date fields grouped without an explicit bucket.
const DefaultBucket = BucketMonth

var frenchMonths = [12]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// FrenchMonth returns the French name of a 1-based month number.
func FrenchMonth(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return frenchMonths[m-1]
}

// FrenchMonthNumber returns the 1-based number of a French month name, or 0.
func FrenchMonthNumber(name string) int {
	name = strings.ToLower(name)
	for i, n := range frenchMonths {
		if n == name {
			return i + 1
		}
	}
	return 0
}

// ValidBucket reports whether b names a supported bucket.
func ValidBucket(b string) bool {
	switch b {
	case BucketYear, BucketQuarter, BucketMonth, BucketWeek, BucketDay:
		return true
	}
	return false
}

// BucketKey truncates t to a canonical, lexically ordered bucket key:
// 2024, 2024-Q1, 2024-01, 2024-W05 or 2024-01-15.
func BucketKey(t time.Time, bucket string) (string, error) {
	switch bucket {
	case BucketYear:
		return t.Format("2006"), nil
	case BucketQuarter:
		return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())+2)/3), nil
	case BucketMonth:
		return t.Format("2006-01"), nil
	case BucketWeek:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w), nil
	case BucketDay:
		return t.Format("2006-01-02"), nil
	default:
		return "", fmt.Errorf("unsupported bucket %q", bucket)
	}
}

// BucketLabel renders a bucket key for display: 2024, Q1/2024,
// janvier 2024, W05/2024 or 15/01/2024. Keys that do not parse are
// returned unchanged.
func BucketLabel(key, bucket string) string {
	switch bucket {
	case BucketQuarter:
		if y, q, ok := strings.Cut(key, "-Q"); ok {
			return "Q" + q + "/" + y
		}
	case BucketMonth:
		if y, m, ok := strings.Cut(key, "-"); ok {
			if n, err := strconv.Atoi(m); err == nil && FrenchMonth(n) != "" {
				return FrenchMonth(n) + " " + y
			}
		}
	case BucketWeek:
		if y, w, ok := strings.Cut(key, "-W"); ok {
			return "W" + w + "/" + y
		}
	case BucketDay:
		if t, err := time.Parse("2006-01-02", key); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return key
}

// toTime converts a stored date value. Strings are parsed in UTC with
// dateparse so heterogeneous seed formats group consistently.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		if t == "" {
			return time.Time{}, false
		}
		parsed, err := dateparse.ParseIn(t, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	case []byte:
		return toTime(string(t))
	}
	return time.Time{}, false
}
