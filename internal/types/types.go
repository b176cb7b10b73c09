// Package types provides the value types shared by the dashboard packages:
// stored configuration entities, records and grouped-aggregation rows.
package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gogf/gf/v2/util/gconv"
	"github.com/google/uuid"
)

// ViewType is the presentation shape a filter is rendered as.
type ViewType string

const (
	ViewList  ViewType = "list"
	ViewGraph ViewType = "graph"
	ViewPivot ViewType = "pivot"
)

// Aggregator names a reduction applied to a measure.
type Aggregator string

const (
	AggSum   Aggregator = "sum"
	AggAvg   Aggregator = "avg"
	AggMin   Aggregator = "min"
	AggMax   Aggregator = "max"
	AggCount Aggregator = "count"
)

// Valid reports whether a is one of the supported aggregators.
func (a Aggregator) Valid() bool {
	switch a {
	case AggSum, AggAvg, AggMin, AggMax, AggCount:
		return true
	}
	return false
}

// CountKey is the group-row key holding the number of records in a group.
const CountKey = "__count"

// FieldSpec is a grouping field with an optional temporal bucket,
// written "field" or "field:bucket".
type FieldSpec struct {
	Field  string
	Bucket string
}

// ParseFieldSpec splits "field:bucket". Surrounding whitespace is ignored.
func ParseFieldSpec(s string) FieldSpec {
	s = strings.TrimSpace(s)
	field, bucket, _ := strings.Cut(s, ":")
	return FieldSpec{Field: strings.TrimSpace(field), Bucket: strings.TrimSpace(bucket)}
}

// ParseFieldSpecs parses a comma-joined list, dropping empty entries.
func ParseFieldSpecs(s string) []FieldSpec {
	var specs []FieldSpec
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		specs = append(specs, ParseFieldSpec(part))
	}
	return specs
}

// String returns the persisted form of the spec.
func (f FieldSpec) String() string {
	if f.Bucket == "" {
		return f.Field
	}
	return f.Field + ":" + f.Bucket
}

// IsZero reports whether no field is set.
func (f FieldSpec) IsZero() bool { return f.Field == "" }

// JoinFieldSpecs renders specs back to their comma-joined persisted form.
func JoinFieldSpecs(specs []FieldSpec) string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}

// Tristate is an optional boolean: unset, false or true.
type Tristate uint8

const (
	Unset Tristate = iota
	False
	True
)

// TristateOf converts a bool to a set Tristate.
func TristateOf(b bool) Tristate {
	if b {
		return True
	}
	return False
}

// IsSet reports whether a value was configured.
func (t Tristate) IsSet() bool { return t != Unset }

// Bool returns the configured value, or def when unset.
func (t Tristate) Bool(def bool) bool {
	switch t {
	case True:
		return true
	case False:
		return false
	default:
		return def
	}
}

func (t Tristate) MarshalJSON() ([]byte, error) {
	switch t {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (t *Tristate) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true":
		*t = True
	case "false":
		*t = False
	case "null":
		*t = Unset
	default:
		return fmt.Errorf("tristate: invalid value %s", data)
	}
	return nil
}

// Filter is a stored search: a target collection, a predicate and a context,
// both kept as literal-evaluable text.
type Filter struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Collection string    `json:"collection"`
	Domain     string    `json:"domain"`
	Context    string    `json:"context"`
	Sort       string    `json:"sort,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
}

// Dashboard groups display lines.
type Dashboard struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	Lines       []Line    `json:"lines"`
}

// Line is a stored display-line configuration. Every setting is present;
// empty strings, zero limits and Unset tristates mean "not configured".
// List-valued settings keep their comma-joined persisted form.
type Line struct {
	ID          uuid.UUID   `json:"id"`
	DashboardID uuid.UUID   `json:"dashboard_id"`
	Name        string      `json:"name"`
	Sequence    int         `json:"sequence"`
	FilterID    uuid.UUID   `json:"filter_id"`
	Width       string      `json:"width"`
	Height      string      `json:"height"`
	DisplayMode string      `json:"display_mode"` // "auto", "list", "graph", "pivot"
	Limit       int         `json:"limit"`
	Fields      []LineField `json:"fields,omitempty"`

	ShowRecordCount Tristate `json:"show_record_count"`
	ShowDataTitle   Tristate `json:"show_data_title"`

	ListGroupBy string `json:"list_groupby"`

	GraphChartType  string   `json:"graph_chart_type"`
	GraphAggregator string   `json:"graph_aggregator"`
	GraphMeasure    string   `json:"graph_measure"`
	GraphGroupBys   string   `json:"graph_groupbys"`
	GraphShowLegend Tristate `json:"graph_show_legend"`

	PivotRowGroupBy    string   `json:"pivot_row_groupby"`
	PivotColGroupBy    string   `json:"pivot_col_groupby"`
	PivotMeasure       string   `json:"pivot_measure"`
	PivotSortBy        string   `json:"pivot_sort_by"`
	PivotSortOrder     string   `json:"pivot_sort_order"`
	PivotShowRowTotals Tristate `json:"pivot_show_row_totals"`
	PivotShowColTotals Tristate `json:"pivot_show_col_totals"`
}

// LineField is one configured list column of a line.
type LineField struct {
	Sequence      int    `json:"sequence"`
	FieldName     string `json:"field_name"`
	FieldLabel    string `json:"field_label,omitempty"`
	Visible       bool   `json:"visible"`
	SortOrder     int    `json:"sort_order,omitempty"` // > 0 makes the field a sort key
	SortDirection string `json:"sort_direction,omitempty"`
}

// RelationRef is a reference to a related record with its display name.
// It serializes as [id, name].
type RelationRef struct {
	ID   any
	Name string
}

func (r RelationRef) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.ID, r.Name})
}

// Record is one fetched record, keyed by field name.
type Record map[string]any

// GroupRow is one row of a grouped aggregation: a value per group-by spec
// (raw, or a RelationRef for relation groupings), CountKey, and one
// "<field>_<aggregator>" entry per requested aggregate.
type GroupRow map[string]any

// Count returns the number of records in the group.
func (g GroupRow) Count() float64 {
	return g.Number(CountKey)
}

// Number returns the numeric value stored under key, or 0.
func (g GroupRow) Number(key string) float64 {
	return ToFloat(g[key])
}

// AggregateKey is the group-row key of an aggregated measure.
func AggregateKey(field string, agg Aggregator) string {
	if agg == AggCount && field == "" {
		return CountKey
	}
	return field + "_" + string(agg)
}

// OrderSpec is a resolved ordering directive.
type OrderSpec struct {
	Field string
	Desc  bool
}

// String renders the directive as "field asc|desc".
func (o OrderSpec) String() string {
	if o.Desc {
		return o.Field + " desc"
	}
	return o.Field + " asc"
}

// ParseOrderSpec parses "field", "field asc" or "field desc".
func ParseOrderSpec(s string) (OrderSpec, bool) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return OrderSpec{}, false
	}
	o := OrderSpec{Field: parts[0]}
	if len(parts) > 1 && strings.EqualFold(parts[1], "desc") {
		o.Desc = true
	}
	return o, true
}

// ToFloat converts numeric values produced by stores and decoders to float64.
// Strings are labels, not quantities, so numeric-looking text reads as 0.
func ToFloat(v any) float64 {
	switch v.(type) {
	case nil, bool, string, []byte:
		return 0
	}
	return gconv.Float64(v)
}
