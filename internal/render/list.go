package render

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/matthewbaird/dashboard/internal/labels"
	"github.com/matthewbaird/dashboard/internal/schema"
	"github.com/matthewbaird/dashboard/internal/store"
	"github.com/matthewbaird/dashboard/internal/types"
)

const countColumnLabel = "Count"

// maxListGroupLevels is the deepest list grouping; extra levels are ignored.
const maxListGroupLevels = 2

func (s *Service) list(ctx context.Context, j *job) Payload {
	e := j.opts
	cols, order := s.listColumns(j)
	if groupBy := listGroupBy(j); len(groupBy) > 0 {
		return s.groupedList(ctx, j, cols, groupBy)
	}

	limit := e.RowLimit
	if limit == 0 {
		limit = s.listLimit
	}
	var names []string
	for _, c := range cols {
		if c.field != nil {
			names = append(names, c.name)
		}
	}
	if len(names) == 0 {
		names = []string{"id"}
	}
	recs := soft(j, "search", func() ([]types.Record, error) {
		return s.store.Search(ctx, j.coll.Name, j.dom, store.SearchOptions{Fields: names, Limit: limit, Order: order})
	})
	if recs == nil {
		recs = []types.Record{}
	}

	for _, rec := range recs {
		for _, c := range cols {
			switch {
			case c.field == nil:
				rec[c.name] = displayName(j.coll, rec)
			case c.field.Type == schema.FieldSelection:
				if label, ok := schema.EnumMap(c.field)[fmt.Sprint(rec[c.name])]; ok {
					rec[c.name] = label
				}
			}
		}
	}

	p := ListPayload{
		Type:            string(types.ViewList),
		Data:            recs,
		Fields:          columnMetas(cols),
		Model:           j.coll.Name,
		ShowRecordCount: e.ShowRecordCount,
	}
	if e.ShowRecordCount {
		n := s.countOrZero(ctx, j)
		p.Count = &n
	}
	return p
}

// displayName names a record of a collection without displayable fields
// as "<collection>,<id>".
func displayName(c *schema.Collection, rec types.Record) string {
	return fmt.Sprintf("%s,%v", c.Name, rec["id"])
}

// listGroupBy returns the requested list grouping, limited to the fields the
// collection declares and to two levels.
func listGroupBy(j *job) []types.FieldSpec {
	var out []types.FieldSpec
	seen := map[string]bool{}
	for _, spec := range j.opts.ListGroupBy {
		if j.coll.Field(spec.Field) == nil {
			j.log.Warn("ignoring unknown list grouping", zap.String("field", spec.Field))
			continue
		}
		if seen[spec.String()] {
			continue
		}
		seen[spec.String()] = true
		out = append(out, spec)
	}
	if len(out) > maxListGroupLevels {
		j.log.Debug("list grouping truncated", zap.Int("levels", len(out)))
		out = out[:maxListGroupLevels]
	}
	return out
}

// listGroup is one aggregated list row.
type listGroup struct {
	key   string
	label string
	total float64
	rec   types.Record
}

func (g listGroup) SortLabel() string  { return g.label }
func (g listGroup) SortTotal() float64 { return g.total }

// groupedList renders one or two grouping levels. Level-1 totals and
// level-2 details come from two independent aggregations. With two levels
// each level-1 total row is followed by its detail rows, whose level-1
// column is blank. The row limit applies to level-1 groups. Group columns
// are named by their spec, so date:year and date:month stay distinct.
func (s *Service) groupedList(ctx context.Context, j *job, cols []column, groupBy []types.FieldSpec) Payload {
	e := j.opts
	grouped := map[string]bool{}
	for _, spec := range groupBy {
		grouped[spec.Field] = true
	}
	var numeric []column
	for _, c := range cols {
		if c.field != nil && c.field.Type.Numeric() && c.field.Stored && !grouped[c.name] {
			numeric = append(numeric, c)
		}
	}
	aggs := make([]store.Aggregate, 0, len(numeric))
	for _, c := range numeric {
		aggs = append(aggs, store.Aggregate{Field: c.name, Func: types.AggSum})
	}
	if len(aggs) == 0 {
		aggs = append(aggs, store.Aggregate{Func: types.AggCount})
	}

	pol := policy(e)
	if pol.Limit == 0 {
		pol.Limit = s.listLimit
	}
	first := groupBy[0]
	firstEnum := enumFor(j.coll, first.Field)

	level1 := soft(j, "read_group", func() ([]types.GroupRow, error) {
		return s.store.ReadGroup(ctx, j.coll.Name, j.dom, aggs, groupBy[:1])
	})
	top := make([]listGroup, 0, len(level1))
	for _, row := range level1 {
		g := newListGroup(row, labels.Extract(row, first, firstEnum), numeric)
		g.key = groupKey(row, first)
		top = append(top, g)
	}
	top = labels.SortAndLimit(top, pol)

	data := make([]types.Record, 0, len(top))
	firstCol := first.String()
	if len(groupBy) == 1 {
		for _, g := range top {
			g.rec[firstCol] = g.label
			g.rec[LevelKey] = 1
			data = append(data, g.rec)
		}
	} else {
		second := groupBy[1]
		secondCol := second.String()
		secondEnum := enumFor(j.coll, second.Field)
		detail := soft(j, "read_group", func() ([]types.GroupRow, error) {
			return s.store.ReadGroup(ctx, j.coll.Name, j.dom, aggs, groupBy)
		})
		children := map[string][]listGroup{}
		for _, row := range detail {
			parent := groupKey(row, first)
			children[parent] = append(children[parent], newListGroup(row, labels.Extract(row, second, secondEnum), numeric))
		}

		detailPol := pol
		detailPol.Limit = 0
		for _, g := range top {
			g.rec[firstCol] = g.label
			g.rec[secondCol] = ""
			g.rec[LevelKey] = 1
			g.rec[TotalKey] = true
			data = append(data, g.rec)
			for _, c := range labels.SortAndLimit(children[g.key], detailPol) {
				c.rec[firstCol] = ""
				c.rec[secondCol] = c.label
				c.rec[LevelKey] = 2
				data = append(data, c.rec)
			}
		}
	}

	metas := make([]Column, 0, len(groupBy)+len(numeric)+1)
	specs := make([]string, len(groupBy))
	for i, spec := range groupBy {
		specs[i] = spec.String()
		f := j.coll.Field(spec.Field)
		label := f.DisplayLabel()
		if spec.Bucket != "" {
			label += " (" + spec.Bucket + ")"
		}
		metas = append(metas, Column{Name: specs[i], Label: label, Type: f.Type.String()})
	}
	metas = append(metas, columnMetas(numeric)...)
	metas = append(metas, Column{Name: types.CountKey, Label: countColumnLabel, Type: schema.FieldInteger.String()})

	p := ListPayload{
		Type:            string(types.ViewList),
		Data:            data,
		Fields:          metas,
		Model:           j.coll.Name,
		ShowRecordCount: e.ShowRecordCount,
		IsGrouped:       true,
		GroupBy:         specs,
	}
	if e.ShowRecordCount {
		n := s.countOrZero(ctx, j)
		p.Count = &n
	}
	return p
}

// groupKey identifies the group of row at spec. Relations are keyed by id
// so same-named records stay apart.
func groupKey(row types.GroupRow, spec types.FieldSpec) string {
	v, ok := row[spec.String()]
	if !ok || v == nil {
		v = row[spec.Field]
	}
	switch t := v.(type) {
	case types.RelationRef:
		return fmt.Sprintf("ref:%v", t.ID)
	case []any:
		if len(t) > 0 {
			return fmt.Sprintf("ref:%v", t[0])
		}
	}
	return fmt.Sprintf("%T:%v", v, v)
}

// newListGroup builds a list row from a group row: the group count and the
// sum of each numeric column rounded to its precision. Rows sort by the
// first numeric sum, or by count when there is none.
func newListGroup(row types.GroupRow, label string, numeric []column) listGroup {
	g := listGroup{
		label: label,
		total: row.Count(),
		rec:   types.Record{types.CountKey: int64(row.Count())},
	}
	for i, c := range numeric {
		prec := defaultPrecision
		if c.field.Precision != nil {
			prec = *c.field.Precision
		}
		sum := decimal.NewFromFloat(row.Number(types.AggregateKey(c.name, types.AggSum))).Round(int32(prec)).InexactFloat64()
		g.rec[c.name] = sum
		if i == 0 {
			g.total = sum
		}
	}
	return g
}

func columnMetas(cols []column) []Column {
	out := make([]Column, len(cols))
	for i, c := range cols {
		out[i] = c.meta()
	}
	return out
}
