package render

import (
	"encoding/json"

	"github.com/matthewbaird/dashboard/internal/types"
)

// Payload is the shaped result of one render: a ListPayload, PivotPayload,
// GraphPayload or ErrorPayload.
type Payload interface {
	Kind() string
}

// ErrorPayload is returned when a render cannot produce data.
type ErrorPayload struct {
	Error string `json:"error"`
}

func (ErrorPayload) Kind() string { return "error" }

// Column describes one list column.
type Column struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Type      string `json:"type"`
	Precision *int   `json:"precision,omitempty"` // numeric columns only
}

// ListPayload is a flat or grouped record list.
type ListPayload struct {
	Type            string         `json:"type"`
	Data            []types.Record `json:"data"`
	Fields          []Column       `json:"fields"`
	Model           string         `json:"model"`
	Count           *int           `json:"count,omitempty"`
	ShowRecordCount bool           `json:"show_record_count"`
	IsGrouped       bool           `json:"is_grouped,omitempty"`
	GroupBy         []string       `json:"groupby,omitempty"`
}

func (ListPayload) Kind() string { return string(types.ViewList) }

// Keys set on grouped list rows.
const (
	LevelKey = "__level" // 1 for level-1 groups, 2 for nested detail rows
	TotalKey = "__total" // true on level-1 rows of a two-level grouping
)

// PivotRow is one row of a 1-D pivot.
type PivotRow struct {
	Row   string  `json:"row"`
	Value float64 `json:"value"`
}

func (r PivotRow) SortLabel() string  { return r.Row }
func (r PivotRow) SortTotal() float64 { return r.Value }

// PivotColumn is one column header of a 2-D pivot.
type PivotColumn struct {
	Key   int    `json:"key"`
	Label string `json:"label"`
}

// MatrixRow is one row of a 2-D pivot. Values has one entry per column.
type MatrixRow struct {
	Row      string    `json:"row"`
	Values   []float64 `json:"values"`
	RowTotal *float64  `json:"row_total,omitempty"`
}

func (r MatrixRow) SortLabel() string { return r.Row }

func (r MatrixRow) SortTotal() float64 { return sumFloats(r.Values) }

// Matrix is the data of a 2-D pivot.
type Matrix struct {
	Columns      []PivotColumn `json:"columns"`
	Rows         []MatrixRow   `json:"rows"`
	ColTotals    []float64     `json:"col_totals,omitempty"`
	GrandTotal   *float64      `json:"grand_total,omitempty"`
	MeasureLabel string        `json:"measure_label"`
	RowLabel     string        `json:"row_label"`
	ColLabel     string        `json:"col_label"`
}

// PivotPayload holds either 1-D rows or a 2-D matrix.
type PivotPayload struct {
	Rows          []PivotRow
	Matrix        *Matrix
	MeasureLabel  string
	RowLabel      string
	Total         *float64 // 1-D grand total
	ShowDataTitle bool
}

func (PivotPayload) Kind() string { return string(types.ViewPivot) }

// MarshalJSON emits the matrix under "data" for 2-D pivots, and the row
// list plus labels and total for 1-D pivots.
func (p PivotPayload) MarshalJSON() ([]byte, error) {
	if p.Matrix != nil {
		return json.Marshal(struct {
			Type          string  `json:"type"`
			Data          *Matrix `json:"data"`
			ShowDataTitle bool    `json:"show_data_title"`
		}{string(types.ViewPivot), p.Matrix, p.ShowDataTitle})
	}
	rows := p.Rows
	if rows == nil {
		rows = []PivotRow{}
	}
	return json.Marshal(struct {
		Type          string     `json:"type"`
		Data          []PivotRow `json:"data"`
		MeasureLabel  string     `json:"measure_label"`
		RowLabel      string     `json:"row_label"`
		Total         *float64   `json:"total,omitempty"`
		ShowDataTitle bool       `json:"show_data_title"`
	}{string(types.ViewPivot), rows, p.MeasureLabel, p.RowLabel, p.Total, p.ShowDataTitle})
}

// Dataset is one chart series.
type Dataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor"`
}

// ChartData pairs labels with datasets positionally.
type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// GraphPayload is a chart-ready series.
type GraphPayload struct {
	Type          string    `json:"type"`
	ChartType     string    `json:"chart_type"`
	ShowLegend    bool      `json:"show_legend"`
	ShowDataTitle bool      `json:"show_data_title"`
	Data          ChartData `json:"data"`
}

func (GraphPayload) Kind() string { return string(types.ViewGraph) }
