package labels

import (
	"cmp"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/matthewbaird/dashboard/internal/store"
)

// Sort-key tiers. Date-like labels sort before numbers, numbers before text.
const (
	tierDate = iota
	tierNumber
	tierText
)

var (
	monthYearRe = regexp.MustCompile(`^(?i)\s*(\p{L}+)\s+(\d{4})\s*$`)
	monthRe     = regexp.MustCompile(`^\s*(\d{1,2})/(\d{4})\s*$`)
	yearRe      = regexp.MustCompile(`^\s*(\d{4})\s*$`)
	quarterRe   = regexp.MustCompile(`^(?i)\s*Q([1-4])/(\d{4})\s*$`)
	weekRe      = regexp.MustCompile(`^(?i)\s*W(\d{1,2})/(\d{4})\s*$`)
	dayRe       = regexp.MustCompile(`^\s*(\d{1,2})/(\d{1,2})/(\d{4})\s*$`)
)

// Key is a total-order sort key for a label.
type Key struct {
	tier  int
	parts []float64
	text  string
}

// SortKey derives the key of a possibly absent label. A nil label sorts
// last among text labels.
func SortKey(label *string) Key {
	if label == nil {
		return Key{tier: tierText}
	}
	return SmartSortKey(*label)
}

// SmartSortKey derives the key of label, trying in order: a French month
// name with a year, MM/YYYY, a bare year, Qn/YYYY, a number (comma as
// decimal point, spaces ignored), then case-insensitive text. Week and day
// bucket labels (W05/2024, 15/01/2024) also sort chronologically.
func SmartSortKey(label string) Key {
	if m := monthYearRe.FindStringSubmatch(label); m != nil {
		if month := store.FrenchMonthNumber(m[1]); month > 0 {
			return Key{tier: tierDate, parts: []float64{atof(m[2]), float64(month)}}
		}
	}
	if m := monthRe.FindStringSubmatch(label); m != nil {
		if month := atof(m[1]); month >= 1 && month <= 12 {
			return Key{tier: tierDate, parts: []float64{atof(m[2]), month}}
		}
	}
	if m := yearRe.FindStringSubmatch(label); m != nil {
		return Key{tier: tierDate, parts: []float64{atof(m[1]), 0}}
	}
	if m := quarterRe.FindStringSubmatch(label); m != nil {
		return Key{tier: tierDate, parts: []float64{atof(m[2]), 0, atof(m[1])}}
	}
	if m := weekRe.FindStringSubmatch(label); m != nil {
		return Key{tier: tierDate, parts: []float64{atof(m[2]), 0, 0, atof(m[1])}}
	}
	if m := dayRe.FindStringSubmatch(label); m != nil {
		return Key{tier: tierDate, parts: []float64{atof(m[3]), atof(m[2]), atof(m[1])}}
	}

	normalized := strings.ReplaceAll(strings.ReplaceAll(label, ",", "."), " ", "")
	if f, err := strconv.ParseFloat(normalized, 64); err == nil && !math.IsNaN(f) {
		return Key{tier: tierNumber, parts: []float64{f}}
	}
	return Key{tier: tierText, text: strings.ToLower(label)}
}

// Compare returns -1, 0 or +1. Within the date tier a key that is a prefix
// of another sorts first.
func (k Key) Compare(o Key) int {
	if k.tier != o.tier {
		return cmp.Compare(k.tier, o.tier)
	}
	if c := slices.Compare(k.parts, o.parts); c != 0 {
		return c
	}
	return strings.Compare(k.text, o.text)
}

// Less reports whether k sorts before o.
func (k Key) Less(o Key) bool { return k.Compare(o) < 0 }

// Row is a labelled row that can be ordered by label or by total.
type Row interface {
	SortLabel() string
	SortTotal() float64
}

// Policy controls SortAndLimit.
type Policy struct {
	ByTotal bool
	Desc    bool
	Limit   int // 0 = unlimited
}

// SortAndLimit returns rows ordered by p and truncated to p.Limit. Every
// row takes part in the ordering before truncation. Descending order is the
// reversal of the ascending total order; equal rows keep their input order.
// The input slice is not modified.
func SortAndLimit[R Row](rows []R, p Policy) []R {
	items := make([]keyed[R], len(rows))
	for i, r := range rows {
		items[i] = keyed[R]{row: r}
		if !p.ByTotal {
			items[i].key = SmartSortKey(r.SortLabel())
		}
	}

	slices.SortStableFunc(items, func(a, b keyed[R]) int {
		var c int
		if p.ByTotal {
			c = cmp.Compare(a.row.SortTotal(), b.row.SortTotal())
		} else {
			c = a.key.Compare(b.key)
		}
		if p.Desc {
			return -c
		}
		return c
	})

	if p.Limit > 0 && len(items) > p.Limit {
		items = items[:p.Limit]
	}
	out := make([]R, len(items))
	for i, it := range items {
		out[i] = it.row
	}
	return out
}

type keyed[R Row] struct {
	row R
	key Key
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
