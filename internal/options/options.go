// Package options resolves the effective display options of a filter
// render and classifies the view type.
//
// Options are assembled from layered sources by applying immutable patches
// in a fixed order: ambient context, the stored filter's context, the
// display line, and finally the caller's whitelisted overrides.
package options

import (
	"sort"
)

// Key names a recognized option.
type Key string

const (
	ViewTypeHint       Key = "view_type_hint"
	ListFields         Key = "list_fields"
	ListGroupBy        Key = "list_groupby"
	RowLimit           Key = "row_limit"
	ShowRecordCount    Key = "show_record_count"
	ShowDataTitle      Key = "show_data_title"
	GraphGroupBys      Key = "graph_groupbys"
	GraphMeasure       Key = "graph_measure"
	GraphAggregator    Key = "graph_aggregator"
	GraphChartType     Key = "graph_chart_type"
	GraphShowLegend    Key = "graph_show_legend"
	PivotRowGroupBy    Key = "pivot_row_groupby"
	PivotColumnGroupBy Key = "pivot_column_groupby"
	PivotColGroupBy    Key = "pivot_col_groupby" // secondary stored alias of the column axis
	PivotMeasures      Key = "pivot_measures"
	PivotSortBy        Key = "pivot_sort_by"
	PivotSortOrder     Key = "pivot_sort_order"
	PivotShowRowTotals Key = "pivot_show_row_totals"
	PivotShowColTotals Key = "pivot_show_col_totals"
	PivotColumnOrder   Key = "pivot_column_order"
	GroupBy            Key = "group_by"
	Measure            Key = "measure"
)

// known is the fixed key set options are built over.
var known = map[Key]bool{
	ViewTypeHint: true, ListFields: true, ListGroupBy: true, RowLimit: true,
	ShowRecordCount: true, ShowDataTitle: true,
	GraphGroupBys: true, GraphMeasure: true, GraphAggregator: true, GraphChartType: true, GraphShowLegend: true,
	PivotRowGroupBy: true, PivotColumnGroupBy: true, PivotColGroupBy: true, PivotMeasures: true,
	PivotSortBy: true, PivotSortOrder: true, PivotShowRowTotals: true, PivotShowColTotals: true,
	PivotColumnOrder: true, GroupBy: true, Measure: true,
}

// aliases maps context spellings onto recognized keys.
var aliases = map[string]Key{
	"search_default_view_type": ViewTypeHint,
	"display_mode":             ViewTypeHint,
	"graph_mode":               GraphChartType,
}

// overridable is the whitelist of keys a caller may override.
var overridable = map[Key]bool{
	ViewTypeHint: true, GraphChartType: true, GraphAggregator: true, GraphShowLegend: true,
	ShowDataTitle: true, ShowRecordCount: true,
	PivotRowGroupBy: true, PivotColumnGroupBy: true, PivotMeasures: true,
	PivotSortBy: true, PivotSortOrder: true, PivotShowRowTotals: true, PivotShowColTotals: true,
	GraphGroupBys: true, GraphMeasure: true, ListFields: true, ListGroupBy: true, RowLimit: true,
	Measure: true, GroupBy: true, PivotColumnOrder: true,
}

// Lookup resolves a raw key, following aliases. ok is false for keys
// outside the recognized set.
func Lookup(raw string) (Key, bool) {
	if k, ok := aliases[raw]; ok {
		return k, true
	}
	k := Key(raw)
	return k, known[k]
}

// Overridable reports whether a caller may override raw.
func Overridable(raw string) bool {
	k, ok := Lookup(raw)
	return ok && overridable[k]
}

// Patch is a set of option deltas. A patch is never mutated once applied.
type Patch map[Key]any

// Options is an immutable option set.
type Options struct {
	values map[Key]any
}

// With returns a new option set with p applied on top. The receiver is
// left unchanged.
func (o Options) With(p Patch) Options {
	if len(p) == 0 {
		return o
	}
	next := make(map[Key]any, len(o.values)+len(p))
	for k, v := range o.values {
		next[k] = v
	}
	for k, v := range p {
		next[k] = v
	}
	return Options{values: next}
}

// Get returns the raw value of k.
func (o Options) Get(k Key) (any, bool) {
	v, ok := o.values[k]
	return v, ok
}

// Keys returns the set keys in sorted order.
func (o Options) Keys() []Key {
	keys := make([]Key, 0, len(o.values))
	for k := range o.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Map returns a copy of the option values keyed by name.
func (o Options) Map() map[string]any {
	out := make(map[string]any, len(o.values))
	for k, v := range o.values {
		out[string(k)] = v
	}
	return out
}
