package options

import (
	"strings"

	"github.com/gogf/gf/v2/util/gconv"

	"github.com/matthewbaird/dashboard/internal/types"
)

// Column order policies for 2-D pivots.
const (
	ColumnOrderFirstSeen    = "first_seen"
	ColumnOrderAlphabetical = "alphabetical"
	ColumnOrderByTotal      = "by_total"
)

// Chart types.
const (
	ChartBar  = "bar"
	ChartLine = "line"
	ChartPie  = "pie"
)

// Sort policies shared by pivot and graph.
const (
	SortByRow   = "row"
	SortByTotal = "total"
	OrderAsc    = "asc"
	OrderDesc   = "desc"
)

// Effective is the typed view of resolved options. List-valued settings are
// parsed once here; the pipelines never split strings themselves.
type Effective struct {
	ViewTypeHint string

	ListFields  []string
	ListGroupBy []types.FieldSpec
	RowLimit    int // 0 = unset

	ShowRecordCount bool
	ShowDataTitle   bool

	GraphGroupBys   []types.FieldSpec
	GraphMeasure    string
	GraphAggregator types.Aggregator
	GraphChartType  string
	GraphShowLegend bool

	PivotRowGroupBy    []types.FieldSpec
	PivotColumnGroupBy []types.FieldSpec
	PivotColGroupBy    []types.FieldSpec // secondary alias
	PivotMeasures      []string
	PivotSortBy        string
	PivotSortOrder     string
	PivotShowRowTotals bool
	PivotShowColTotals bool
	ColumnOrder        string

	GroupBy []types.FieldSpec
	Measure string
}

func (r *Resolver) effective(o Options) Effective {
	e := Effective{
		ViewTypeHint: strings.ToLower(str(o, ViewTypeHint)),

		ListFields:  stringList(o, ListFields),
		ListGroupBy: specList(o, ListGroupBy),
		RowLimit:    gconv.Int(value(o, RowLimit)),

		ShowRecordCount: boolean(o, ShowRecordCount, true),
		ShowDataTitle:   boolean(o, ShowDataTitle, true),

		GraphGroupBys:   specList(o, GraphGroupBys),
		GraphMeasure:    str(o, GraphMeasure),
		GraphAggregator: types.Aggregator(strings.ToLower(str(o, GraphAggregator))),
		GraphChartType:  strings.ToLower(str(o, GraphChartType)),
		GraphShowLegend: boolean(o, GraphShowLegend, true),

		PivotRowGroupBy:    specList(o, PivotRowGroupBy),
		PivotColumnGroupBy: specList(o, PivotColumnGroupBy),
		PivotColGroupBy:    specList(o, PivotColGroupBy),
		PivotMeasures:      stringList(o, PivotMeasures),
		PivotSortBy:        strings.ToLower(str(o, PivotSortBy)),
		PivotSortOrder:     strings.ToLower(str(o, PivotSortOrder)),
		PivotShowRowTotals: boolean(o, PivotShowRowTotals, true),
		PivotShowColTotals: boolean(o, PivotShowColTotals, true),
		ColumnOrder:        strings.ToLower(str(o, PivotColumnOrder)),

		GroupBy: specList(o, GroupBy),
		Measure: str(o, Measure),
	}

	if e.RowLimit < 0 {
		e.RowLimit = 0
	}
	if !e.GraphAggregator.Valid() {
		e.GraphAggregator = types.AggSum
	}
	switch e.GraphChartType {
	case ChartBar, ChartLine, ChartPie:
	default:
		e.GraphChartType = ChartBar
	}
	if e.PivotSortBy != SortByTotal {
		e.PivotSortBy = SortByRow
	}
	if e.PivotSortOrder != OrderDesc {
		e.PivotSortOrder = OrderAsc
	}
	switch e.ColumnOrder {
	case ColumnOrderFirstSeen, ColumnOrderAlphabetical, ColumnOrderByTotal:
	default:
		e.ColumnOrder = r.defaults.ColumnOrder
		if e.ColumnOrder == "" {
			e.ColumnOrder = ColumnOrderFirstSeen
		}
	}
	return e
}

// PivotRowAxis is the first of the pivot row axis, the graph groupings and
// the generic group-by.
func (e Effective) PivotRowAxis() (types.FieldSpec, bool) {
	return firstSpec(e.PivotRowGroupBy, e.GraphGroupBys, e.GroupBy)
}

// PivotColumnAxis is the first of the pivot column axis and its secondary
// alias. Only one column level is supported.
func (e Effective) PivotColumnAxis() (types.FieldSpec, bool) {
	return firstSpec(e.PivotColumnGroupBy, e.PivotColGroupBy)
}

// PivotMeasure is the first of the pivot measure, the graph measure and
// the generic measure.
func (e Effective) PivotMeasure() string {
	if len(e.PivotMeasures) > 0 {
		return e.PivotMeasures[0]
	}
	if e.GraphMeasure != "" {
		return e.GraphMeasure
	}
	return e.Measure
}

// GraphAxes are the graph groupings, else the generic group-by.
func (e Effective) GraphAxes() []types.FieldSpec {
	if len(e.GraphGroupBys) > 0 {
		return e.GraphGroupBys
	}
	return e.GroupBy
}

// GraphMeasureField is the first of the graph measure, the pivot measure
// and the generic measure.
func (e Effective) GraphMeasureField() string {
	if e.GraphMeasure != "" {
		return e.GraphMeasure
	}
	if len(e.PivotMeasures) > 0 {
		return e.PivotMeasures[0]
	}
	return e.Measure
}

// IsCountMeasure reports whether measure denotes the record count.
func IsCountMeasure(measure string) bool {
	switch strings.ToLower(strings.TrimSpace(measure)) {
	case "", "count", "__count", "record_count":
		return true
	}
	return false
}

// Classify decides the view type: an explicit hint first, then graph
// signals, then pivot signals, else list.
func Classify(e Effective) types.ViewType {
	if hint := e.ViewTypeHint; hint != "" {
		for _, vt := range []types.ViewType{types.ViewGraph, types.ViewPivot, types.ViewList} {
			if strings.Contains(hint, string(vt)) {
				return vt
			}
		}
	}
	if e.GraphMeasure != "" || len(e.GraphGroupBys) > 0 {
		return types.ViewGraph
	}
	if len(e.PivotRowGroupBy) > 0 || len(e.PivotColumnGroupBy) > 0 || len(e.PivotColGroupBy) > 0 || len(e.PivotMeasures) > 0 {
		return types.ViewPivot
	}
	return types.ViewList
}

func firstSpec(lists ...[]types.FieldSpec) (types.FieldSpec, bool) {
	for _, l := range lists {
		if len(l) > 0 {
			return l[0], true
		}
	}
	return types.FieldSpec{}, false
}

func value(o Options, k Key) any {
	v, _ := o.Get(k)
	return v
}

func str(o Options, k Key) string {
	v := value(o, k)
	if l, ok := v.([]any); ok {
		if len(l) == 0 {
			return ""
		}
		v = l[0]
	}
	if v == nil {
		return ""
	}
	return strings.TrimSpace(gconv.String(v))
}

func boolean(o Options, k Key, def bool) bool {
	v, ok := o.Get(k)
	if !ok || v == nil {
		return def
	}
	return gconv.Bool(v)
}

// stringList accepts a list or a comma-joined string.
func stringList(o Options, k Key) []string {
	v := value(o, k)
	var raw []string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		raw = strings.Split(t, ",")
	default:
		raw = gconv.Strings(v)
	}
	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func specList(o Options, k Key) []types.FieldSpec {
	names := stringList(o, k)
	if len(names) == 0 {
		return nil
	}
	specs := make([]types.FieldSpec, 0, len(names))
	for _, n := range names {
		if spec := types.ParseFieldSpec(n); !spec.IsZero() {
			specs = append(specs, spec)
		}
	}
	return specs
}
