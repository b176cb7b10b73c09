package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/matthewbaird/dashboard/internal/types"
)

// Match evaluates the tree against a record. A nil tree matches everything.
func Match(n Node, rec types.Record) bool {
	switch t := n.(type) {
	case nil:
		return true
	case Const:
		return bool(t)
	case Not:
		return !Match(t.Child, rec)
	case And:
		for _, c := range t.Children {
			if !Match(c, rec) {
				return false
			}
		}
		return true
	case Or:
		for _, c := range t.Children {
			if Match(c, rec) {
				return true
			}
		}
		return false
	case Leaf:
		return matchLeaf(t, rec[t.Field])
	default:
		return false
	}
}

func matchLeaf(l Leaf, v any) bool {
	v = unwrap(v)

	if l.IsNullCheck() {
		if l.Op == OpEQ {
			return isEmpty(v)
		}
		return !isEmpty(v)
	}

	switch l.Op {
	case OpEQ:
		return equal(v, l.Value)
	case OpNEQ:
		return !equal(v, l.Value)
	case OpGT, OpGTE, OpLT, OpLTE:
		c, ok := compare(v, l.Value)
		if !ok {
			return false
		}
		switch l.Op {
		case OpGT:
			return c > 0
		case OpGTE:
			return c >= 0
		case OpLT:
			return c < 0
		default:
			return c <= 0
		}
	case OpIn:
		return in(v, l.Values())
	case OpNotIn:
		return !in(v, l.Values())
	case OpLike:
		return !isEmpty(v) && strings.Contains(toString(v), toString(l.Value))
	case OpNotLike:
		return isEmpty(v) || !strings.Contains(toString(v), toString(l.Value))
	case OpILike:
		return !isEmpty(v) && strings.Contains(strings.ToLower(toString(v)), strings.ToLower(toString(l.Value)))
	case OpNotILike:
		return isEmpty(v) || !strings.Contains(strings.ToLower(toString(v)), strings.ToLower(toString(l.Value)))
	case OpEqLike:
		return !isEmpty(v) && likePattern(toString(l.Value), false).MatchString(toString(v))
	case OpEqILike:
		return !isEmpty(v) && likePattern(toString(l.Value), true).MatchString(toString(v))
	}
	return false
}

func in(v any, list []any) bool {
	for _, item := range list {
		if b, ok := item.(bool); ok && !b && isEmpty(v) {
			return true
		}
		if equal(v, item) {
			return true
		}
	}
	return false
}

// unwrap replaces a relation reference with its id.
func unwrap(v any) any {
	switch r := v.(type) {
	case types.RelationRef:
		return r.ID
	case *types.RelationRef:
		if r == nil {
			return nil
		}
		return r.ID
	}
	return v
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	}
	return false
}

func number(v any) (float64, bool) {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return types.ToFloat(v), true
	}
	return 0, false
}

func equal(a, b any) bool {
	b = unwrap(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, ok := number(a); ok {
		if bf, ok := number(b); ok {
			return af == bf
		}
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	return toString(a) == toString(b)
}

// compare orders two values of the same kind: numbers, times or strings.
func compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if af, ok := number(a); ok {
		bf, ok := number(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	return strings.Compare(toString(a), toString(b)), true
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.DateTime)
	default:
		return fmt.Sprint(t)
	}
}

// likePattern converts a SQL LIKE pattern (% and _ wildcards) to an
// anchored regular expression.
func likePattern(pattern string, fold bool) *regexp.Regexp {
	var b strings.Builder
	if fold {
		b.WriteString("(?is)^")
	} else {
		b.WriteString("(?s)^")
	}
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
