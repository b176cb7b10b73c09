package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gogf/gf/v2/util/gconv"

	"github.com/matthewbaird/dashboard/internal/domain"
	"github.com/matthewbaird/dashboard/internal/schema"
	"github.com/matthewbaird/dashboard/internal/types"
)

// MemoryStore implements Store over in-memory records.
// Intended for demos and testing. No database required.
//
// Many2one values are stored as the related record's id and resolved to a
// types.RelationRef on read.
type MemoryStore struct {
	mu      sync.RWMutex
	catalog schema.Catalog
	records map[string][]types.Record
}

// NewMemoryStore creates an empty MemoryStore backed by catalog metadata.
func NewMemoryStore(catalog schema.Catalog) *MemoryStore {
	return &MemoryStore{
		catalog: catalog,
		records: make(map[string][]types.Record),
	}
}

// Insert appends records to a collection.
func (s *MemoryStore) Insert(collection string, recs ...types.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[collection] = append(s.records[collection], recs...)
}

func (s *MemoryStore) Search(_ context.Context, collection string, dom domain.Node, opts SearchOptions) ([]types.Record, error) {
	c, err := s.catalog.Collection(collection)
	if err != nil {
		return nil, err
	}
	for _, f := range opts.Fields {
		if f != "id" && c.Field(f) == nil {
			return nil, unknownField(collection, f)
		}
	}
	order := opts.Order
	if len(order) == 0 {
		order = []types.OrderSpec{{Field: "id"}}
	}
	for _, o := range order {
		if o.Field != "id" && c.Field(o.Field) == nil {
			return nil, unknownField(collection, o.Field)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.match(collection, dom)
	sort.SliceStable(matched, func(i, j int) bool {
		for _, o := range order {
			cmp := compareValues(s.sortValue(c.Field(o.Field), matched[i][o.Field]), s.sortValue(c.Field(o.Field), matched[j][o.Field]))
			if cmp == 0 {
				continue
			}
			if o.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	fields := opts.Fields
	if len(fields) == 0 {
		fields = c.FieldOrder
	}
	out := make([]types.Record, 0, len(matched))
	for _, rec := range matched {
		row := types.Record{"id": rec["id"]}
		for _, f := range fields {
			row[f] = s.readValue(c.Field(f), rec[f])
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context, collection string, dom domain.Node) (int, error) {
	if _, err := s.catalog.Collection(collection); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.match(collection, dom)), nil
}

type memGroup struct {
	values   []any // per spec, as returned
	sortKeys []any // per spec, ordering value
	records  []types.Record
}

func (s *MemoryStore) ReadGroup(_ context.Context, collection string, dom domain.Node, aggs []Aggregate, groupBy []types.FieldSpec) ([]types.GroupRow, error) {
	c, err := s.catalog.Collection(collection)
	if err != nil {
		return nil, err
	}
	metas := make([]*schema.FieldMeta, len(groupBy))
	buckets := make([]string, len(groupBy))
	for i, spec := range groupBy {
		f := c.Field(spec.Field)
		if f == nil {
			return nil, unknownField(collection, spec.Field)
		}
		metas[i] = f
		if f.Type.Temporal() {
			buckets[i] = spec.Bucket
			if buckets[i] == "" {
				buckets[i] = DefaultBucket
			}
			if !ValidBucket(buckets[i]) {
				return nil, fmt.Errorf("unsupported bucket %q", buckets[i])
			}
		}
	}
	for _, a := range aggs {
		if err := a.validate(); err != nil {
			return nil, err
		}
		if a.Field != "" && c.Field(a.Field) == nil {
			return nil, unknownField(collection, a.Field)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make(map[string]*memGroup)
	var order []*memGroup
	for _, rec := range s.match(collection, dom) {
		values := make([]any, len(groupBy))
		sortKeys := make([]any, len(groupBy))
		var id strings.Builder
		for i, spec := range groupBy {
			var key any
			values[i], sortKeys[i], key = s.groupValue(metas[i], buckets[i], rec[spec.Field])
			fmt.Fprintf(&id, "%T:%v\x00", key, key)
		}
		g, ok := groups[id.String()]
		if !ok {
			g = &memGroup{values: values, sortKeys: sortKeys}
			groups[id.String()] = g
			order = append(order, g)
		}
		g.records = append(g.records, rec)
	}

	sort.SliceStable(order, func(i, j int) bool {
		for k := range groupBy {
			if cmp := compareValues(order[i].sortKeys[k], order[j].sortKeys[k]); cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})

	rows := make([]types.GroupRow, 0, len(order))
	for _, g := range order {
		row := types.GroupRow{types.CountKey: int64(len(g.records))}
		for i, spec := range groupBy {
			row[spec.String()] = g.values[i]
		}
		for _, a := range aggs {
			row[a.Key()] = aggregate(a, g.records)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// match returns the records of collection accepted by dom. Caller holds mu.
func (s *MemoryStore) match(collection string, dom domain.Node) []types.Record {
	var out []types.Record
	for _, rec := range s.records[collection] {
		if domain.Match(dom, rec) {
			out = append(out, rec)
		}
	}
	return out
}

// readValue converts a stored value to its read form. Caller holds mu.
func (s *MemoryStore) readValue(f *schema.FieldMeta, v any) any {
	if f == nil || !f.IsRelation() || v == nil {
		return v
	}
	return s.relationRef(f, v)
}

func (s *MemoryStore) relationRef(f *schema.FieldMeta, id any) types.RelationRef {
	label := f.RelationLabel
	if label == "" {
		label = "name"
	}
	for _, rec := range s.records[f.Relation] {
		if gconv.String(rec["id"]) == gconv.String(id) {
			return types.RelationRef{ID: id, Name: gconv.String(rec[label])}
		}
	}
	return types.RelationRef{ID: id, Name: gconv.String(id)}
}

func (s *MemoryStore) sortValue(f *schema.FieldMeta, v any) any {
	if f != nil && f.IsRelation() && v != nil {
		return s.relationRef(f, v).Name
	}
	return v
}

// groupValue returns the grouped value of v, the value groups are ordered
// by and the key that identifies the group. Relations group by id and
// order by name.
func (s *MemoryStore) groupValue(f *schema.FieldMeta, bucket string, v any) (value, sortKey, key any) {
	if v == nil {
		return nil, nil, nil
	}
	switch {
	case bucket != "":
		t, ok := toTime(v)
		if !ok {
			return nil, nil, nil
		}
		k, _ := BucketKey(t, bucket)
		return BucketLabel(k, bucket), k, k
	case f.IsRelation():
		ref := s.relationRef(f, v)
		return ref, ref.Name, gconv.String(ref.ID)
	default:
		return v, v, v
	}
}

func aggregate(a Aggregate, recs []types.Record) any {
	if a.Field == "" {
		return int64(len(recs))
	}
	var (
		n           int64
		sum, lo, hi float64
	)
	for _, rec := range recs {
		v, ok := rec[a.Field]
		if !ok || v == nil {
			continue
		}
		f := gconv.Float64(v)
		if n == 0 || f < lo {
			lo = f
		}
		if n == 0 || f > hi {
			hi = f
		}
		sum += f
		n++
	}
	switch a.Func {
	case types.AggCount:
		return n
	case types.AggSum:
		return sum
	}
	if n == 0 {
		return nil
	}
	switch a.Func {
	case types.AggAvg:
		return sum / float64(n)
	case types.AggMin:
		return lo
	default:
		return hi
	}
}

// compareValues orders nil after everything, numbers numerically and
// everything else by its string form.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if isNumber(a) && isNumber(b) {
		af, bf := types.ToFloat(a), types.ToFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(gconv.String(a), gconv.String(b))
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}
