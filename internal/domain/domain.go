// Package domain parses and evaluates stored filter predicates.
//
// A predicate is a literal list in prefix notation: leaves are
// (field, operator, value) triples, '&' and '|' combine the next two terms,
// '!' negates the next term, and consecutive terms are implicitly ANDed.
package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matthewbaird/dashboard/internal/literal"
)

// ErrUnsupportedOperator is returned for a leaf whose operator is unknown.
var ErrUnsupportedOperator = errors.New("unsupported operator")

// Op enumerates leaf comparison operators.
type Op int

const (
	OpEQ Op = iota
	OpNEQ
	OpGT
	OpGTE
	OpLT
	OpLTE
	OpIn
	OpNotIn
	OpLike
	OpNotLike
	OpILike
	OpNotILike
	OpEqLike
	OpEqILike
)

var opNames = map[string]Op{
	"=":         OpEQ,
	"==":        OpEQ,
	"!=":        OpNEQ,
	"<>":        OpNEQ,
	">":         OpGT,
	">=":        OpGTE,
	"<":         OpLT,
	"<=":        OpLTE,
	"in":        OpIn,
	"not in":    OpNotIn,
	"like":      OpLike,
	"not like":  OpNotLike,
	"ilike":     OpILike,
	"not ilike": OpNotILike,
	"=like":     OpEqLike,
	"=ilike":    OpEqILike,
}

// ParseOp resolves an operator symbol. Matching is case-insensitive.
func ParseOp(s string) (Op, error) {
	if op, ok := opNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnsupportedOperator, s)
}

// String returns the canonical operator symbol.
func (op Op) String() string {
	switch op {
	case OpEQ:
		return "="
	case OpNEQ:
		return "!="
	case OpGT:
		return ">"
	case OpGTE:
		return ">="
	case OpLT:
		return "<"
	case OpLTE:
		return "<="
	case OpIn:
		return "in"
	case OpNotIn:
		return "not in"
	case OpLike:
		return "like"
	case OpNotLike:
		return "not like"
	case OpILike:
		return "ilike"
	case OpNotILike:
		return "not ilike"
	case OpEqLike:
		return "=like"
	case OpEqILike:
		return "=ilike"
	default:
		return "?"
	}
}

// Node is a predicate tree node: Leaf, And, Or, Not or Const.
type Node interface {
	node()
}

// Leaf compares one field against a value.
type Leaf struct {
	Field string
	Op    Op
	Value any
}

// And matches when every child matches.
type And struct {
	Children []Node
}

// Or matches when any child matches.
type Or struct {
	Children []Node
}

// Not negates its child.
type Not struct {
	Child Node
}

// Const is a constant leaf such as (1, '=', 1).
type Const bool

func (Leaf) node()  {}
func (And) node()   {}
func (Or) node()    {}
func (Not) node()   {}
func (Const) node() {}

// IsNullCheck reports whether the leaf tests for an unset value, which is
// how ('field', '=', False) and ('field', '!=', False) are spelled.
func (l Leaf) IsNullCheck() bool {
	b, ok := l.Value.(bool)
	return ok && !b && (l.Op == OpEQ || l.Op == OpNEQ)
}

// Values returns the leaf value as a list for in/not in.
func (l Leaf) Values() []any {
	switch v := l.Value.(type) {
	case []any:
		return v
	case nil:
		return nil
	default:
		return []any{v}
	}
}

// Parse parses predicate text. Empty text and "[]" yield a nil tree, which
// matches every record.
func Parse(text string) (Node, error) {
	items, err := literal.ParseList(text)
	if err != nil {
		return nil, fmt.Errorf("parsing domain: %w", err)
	}
	return FromValue(items)
}

// FromValue builds a tree from an already-parsed literal list.
func FromValue(v any) (Node, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("domain must be a list, got %T", v)
	}
	if len(items) == 0 {
		return nil, nil
	}

	p := &builder{items: items}
	var terms []Node
	for p.pos < len(p.items) {
		n, err := p.term()
		if err != nil {
			return nil, err
		}
		terms = append(terms, n)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return And{Children: terms}, nil
}

type builder struct {
	items []any
	pos   int
}

func (b *builder) term() (Node, error) {
	if b.pos >= len(b.items) {
		return nil, errors.New("domain: missing operand")
	}
	item := b.items[b.pos]
	b.pos++

	if s, ok := item.(string); ok {
		switch s {
		case "&", "|":
			left, err := b.term()
			if err != nil {
				return nil, err
			}
			right, err := b.term()
			if err != nil {
				return nil, err
			}
			if s == "&" {
				return And{Children: []Node{left, right}}, nil
			}
			return Or{Children: []Node{left, right}}, nil
		case "!":
			child, err := b.term()
			if err != nil {
				return nil, err
			}
			return Not{Child: child}, nil
		default:
			return nil, fmt.Errorf("domain: unexpected operator %q", s)
		}
	}

	triple, ok := item.([]any)
	if !ok || len(triple) != 3 {
		return nil, fmt.Errorf("domain: invalid term %v", item)
	}
	return leaf(triple)
}

func leaf(triple []any) (Node, error) {
	opText, ok := triple[1].(string)
	if !ok {
		return nil, fmt.Errorf("domain: operator must be a string, got %T", triple[1])
	}
	op, err := ParseOp(opText)
	if err != nil {
		return nil, err
	}

	switch left := triple[0].(type) {
	case string:
		return Leaf{Field: left, Op: op, Value: triple[2]}, nil
	case int64:
		// (1, '=', 1) is TRUE_LEAF, (0, '=', 1) is FALSE_LEAF.
		right, ok := triple[2].(int64)
		if !ok || op != OpEQ {
			return nil, fmt.Errorf("domain: invalid constant leaf %v", triple)
		}
		return Const(left == right), nil
	default:
		return nil, fmt.Errorf("domain: field must be a string, got %T", triple[0])
	}
}

// Walk visits n and its descendants depth-first. Returning false from fn
// stops descent below the current node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch t := n.(type) {
	case And:
		for _, c := range t.Children {
			Walk(c, fn)
		}
	case Or:
		for _, c := range t.Children {
			Walk(c, fn)
		}
	case Not:
		Walk(t.Child, fn)
	}
}

// Fields returns the distinct field names referenced by leaves, in order
// of first appearance.
func Fields(n Node) []string {
	var out []string
	seen := map[string]bool{}
	Walk(n, func(n Node) bool {
		if l, ok := n.(Leaf); ok && !seen[l.Field] {
			seen[l.Field] = true
			out = append(out, l.Field)
		}
		return true
	})
	return out
}
