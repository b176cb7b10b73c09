// Package store implements the record-store boundary: plain record search,
// counting and grouped aggregation over a collection.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/matthewbaird/dashboard/internal/domain"
	"github.com/matthewbaird/dashboard/internal/types"
)

// ErrUnknownField is returned when a request names a field the collection
// does not declare.
var ErrUnknownField = errors.New("unknown field")

// Store is the interface the render pipelines query records through.
type Store interface {
	// Search returns matching records. Limit 0 means unlimited.
	Search(ctx context.Context, collection string, dom domain.Node, opts SearchOptions) ([]types.Record, error)

	// Count returns the number of matching records.
	Count(ctx context.Context, collection string, dom domain.Node) (int, error)

	// ReadGroup groups matching records by the given specs and computes the
	// requested aggregates. Each row carries one value per spec keyed by the
	// spec's string form, types.CountKey, and one entry per aggregate keyed
	// by types.AggregateKey.
	ReadGroup(ctx context.Context, collection string, dom domain.Node, aggs []Aggregate, groupBy []types.FieldSpec) ([]types.GroupRow, error)
}

// SearchOptions controls a record search.
type SearchOptions struct {
	Fields []string          // projected fields; empty means all. "id" is always included.
	Limit  int               // 0 = unlimited
	Order  []types.OrderSpec // default: id asc
}

// Aggregate is one requested reduction.
type Aggregate struct {
	Field string
	Func  types.Aggregator
}

// Key returns the group-row key the aggregate is stored under.
func (a Aggregate) Key() string {
	return types.AggregateKey(a.Field, a.Func)
}

func (a Aggregate) validate() error {
	if !a.Func.Valid() {
		return fmt.Errorf("invalid aggregator %q", a.Func)
	}
	if a.Field == "" && a.Func != types.AggCount {
		return fmt.Errorf("aggregator %q needs a field", a.Func)
	}
	return nil
}

func unknownField(collection, field string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnknownField, collection, field)
}
