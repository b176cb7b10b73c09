package render

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/matthewbaird/dashboard/internal/labels"
	"github.com/matthewbaird/dashboard/internal/options"
	"github.com/matthewbaird/dashboard/internal/store"
	"github.com/matthewbaird/dashboard/internal/types"
)

// Default pivot captions.
const (
	defaultMeasureLabel = "Count"
	defaultRowLabel     = "Rows"
)

// measureSpec is the resolved measure of a pivot or graph.
type measureSpec struct {
	field    string
	agg      types.Aggregator
	useCount bool
}

func (m measureSpec) aggregates() []store.Aggregate {
	if m.useCount {
		return nil
	}
	return []store.Aggregate{{Field: m.field, Func: m.agg}}
}

// value reads the measure of a group row; a missing or null aggregate is 0.
func (m measureSpec) value(row types.GroupRow) float64 {
	if m.useCount {
		return row.Count()
	}
	return row.Number(types.AggregateKey(m.field, m.agg))
}

func (s *Service) pivot(ctx context.Context, j *job) Payload {
	e := j.opts
	m := measureSpec{field: e.PivotMeasure(), agg: types.AggSum}
	m.useCount = options.IsCountMeasure(m.field)

	measureLabel := defaultMeasureLabel
	if !m.useCount {
		measureLabel = fieldLabel(j.coll, m.field, "")
	}
	rowAxis, hasRow := e.PivotRowAxis()
	colAxis, hasCol := e.PivotColumnAxis()
	rowLabel := defaultRowLabel
	if hasRow {
		rowLabel = fieldLabel(j.coll, rowAxis.Field, rowAxis.String())
	}

	if hasRow && hasCol {
		matrix := s.matrix(ctx, j, m, rowAxis, colAxis)
		matrix.MeasureLabel = measureLabel
		matrix.RowLabel = rowLabel
		matrix.ColLabel = fieldLabel(j.coll, colAxis.Field, colAxis.String())
		return PivotPayload{Matrix: matrix, ShowDataTitle: e.ShowDataTitle}
	}

	p := PivotPayload{
		MeasureLabel:  measureLabel,
		RowLabel:      rowLabel,
		ShowDataTitle: e.ShowDataTitle,
	}
	var rows []PivotRow
	if hasRow {
		groups := soft(j, "read_group", func() ([]types.GroupRow, error) {
			return s.store.ReadGroup(ctx, j.coll.Name, j.dom, m.aggregates(), []types.FieldSpec{rowAxis})
		})
		enum := enumFor(j.coll, rowAxis.Field)
		for _, g := range groups {
			rows = append(rows, PivotRow{Row: labels.Extract(g, rowAxis, enum), Value: m.value(g)})
		}
	}

	if len(rows) == 0 {
		p.Rows = []PivotRow{{Row: labels.Total, Value: s.domainTotal(ctx, j, m)}}
		return p
	}

	p.Rows = labels.SortAndLimit(rows, policy(e))
	if e.PivotShowColTotals {
		total := decimal.Zero
		for _, r := range p.Rows {
			total = total.Add(decimal.NewFromFloat(r.Value))
		}
		t := total.InexactFloat64()
		p.Total = &t
	}
	return p
}

// domainTotal is the measure's sum over the whole filtered domain, or the
// record count when there is no measure or the sum cannot be read.
func (s *Service) domainTotal(ctx context.Context, j *job, m measureSpec) float64 {
	if !m.useCount {
		groups, err := s.store.ReadGroup(ctx, j.coll.Name, j.dom, m.aggregates(), nil)
		if err == nil && len(groups) > 0 {
			return m.value(groups[0])
		}
		if err != nil {
			j.log.Warn("domain sum failed, counting instead", zap.Error(err))
		}
	}
	return float64(s.countOrZero(ctx, j))
}

// matrix builds a dense 2-D pivot. Cells absent from the aggregation are 0.
// Totals are computed over the rows left after sorting and limiting.
func (s *Service) matrix(ctx context.Context, j *job, m measureSpec, rowAxis, colAxis types.FieldSpec) *Matrix {
	e := j.opts
	groups := soft(j, "read_group", func() ([]types.GroupRow, error) {
		return s.store.ReadGroup(ctx, j.coll.Name, j.dom, m.aggregates(), []types.FieldSpec{rowAxis, colAxis})
	})
	rowEnum := enumFor(j.coll, rowAxis.Field)
	colEnum := enumFor(j.coll, colAxis.Field)

	var (
		cols     []string
		colIndex = map[string]int{}
		rows     []MatrixRow
		rowIndex = map[string]int{}
	)
	for _, g := range groups {
		rl := labels.Extract(g, rowAxis, rowEnum)
		cl := labels.Extract(g, colAxis, colEnum)
		ci, ok := colIndex[cl]
		if !ok {
			ci = len(cols)
			colIndex[cl] = ci
			cols = append(cols, cl)
		}
		ri, ok := rowIndex[rl]
		if !ok {
			ri = len(rows)
			rowIndex[rl] = ri
			rows = append(rows, MatrixRow{Row: rl})
		}
		for len(rows[ri].Values) <= ci {
			rows[ri].Values = append(rows[ri].Values, 0)
		}
		rows[ri].Values[ci] += m.value(g)
	}
	for i := range rows {
		for len(rows[i].Values) < len(cols) {
			rows[i].Values = append(rows[i].Values, 0)
		}
	}

	cols, rows = orderColumns(e.ColumnOrder, cols, rows)
	rows = labels.SortAndLimit(rows, policy(e))

	out := &Matrix{Columns: make([]PivotColumn, len(cols)), Rows: rows}
	for i, c := range cols {
		out.Columns[i] = PivotColumn{Key: i, Label: c}
	}
	if out.Rows == nil {
		out.Rows = []MatrixRow{}
	}

	if e.PivotShowRowTotals {
		for i := range out.Rows {
			t := sumFloats(out.Rows[i].Values)
			out.Rows[i].RowTotal = &t
		}
	}
	if e.PivotShowColTotals && len(out.Rows) > 0 {
		totals := make([]decimal.Decimal, len(cols))
		for _, r := range out.Rows {
			for i, v := range r.Values {
				totals[i] = totals[i].Add(decimal.NewFromFloat(v))
			}
		}
		out.ColTotals = make([]float64, len(cols))
		grand := decimal.Zero
		for i, t := range totals {
			out.ColTotals[i] = t.InexactFloat64()
			grand = grand.Add(t)
		}
		if e.PivotShowRowTotals {
			g := grand.InexactFloat64()
			out.GrandTotal = &g
		}
	}
	return out
}

// orderColumns applies the column order policy, permuting every row's
// values with the headers.
func orderColumns(order string, cols []string, rows []MatrixRow) ([]string, []MatrixRow) {
	if order == options.ColumnOrderFirstSeen || len(cols) < 2 {
		return cols, rows
	}
	perm := make([]int, len(cols))
	for i := range perm {
		perm[i] = i
	}
	switch order {
	case options.ColumnOrderAlphabetical:
		keys := make([]labels.Key, len(cols))
		for i, c := range cols {
			keys[i] = labels.SmartSortKey(c)
		}
		slices.SortStableFunc(perm, func(a, b int) int { return keys[a].Compare(keys[b]) })
	case options.ColumnOrderByTotal:
		totals := make([]float64, len(cols))
		for _, r := range rows {
			for i, v := range r.Values {
				totals[i] += v
			}
		}
		slices.SortStableFunc(perm, func(a, b int) int {
			switch {
			case totals[a] > totals[b]:
				return -1
			case totals[a] < totals[b]:
				return 1
			}
			return 0
		})
	default:
		return cols, rows
	}

	sorted := make([]string, len(cols))
	for i, p := range perm {
		sorted[i] = cols[p]
	}
	for ri := range rows {
		values := make([]float64, len(cols))
		for i, p := range perm {
			values[i] = rows[ri].Values[p]
		}
		rows[ri].Values = values
	}
	return sorted, rows
}

// sumFloats adds values exactly.
func sumFloats(values []float64) float64 {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.InexactFloat64()
}
