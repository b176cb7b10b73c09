package render

import (
	"context"
	"strings"

	"github.com/matthewbaird/dashboard/internal/labels"
	"github.com/matthewbaird/dashboard/internal/options"
	"github.com/matthewbaird/dashboard/internal/types"
)

// palette is cycled by point index.
var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

const recordCountCaption = "Record count"

var aggregatorTitles = map[types.Aggregator]string{
	types.AggSum:   "Sum",
	types.AggAvg:   "Average",
	types.AggMin:   "Minimum",
	types.AggMax:   "Maximum",
	types.AggCount: "Count",
}

// point is one (label, value) pair of a chart series.
type point struct {
	label string
	value float64
}

func (p point) SortLabel() string  { return p.label }
func (p point) SortTotal() float64 { return p.value }

func (s *Service) graph(ctx context.Context, j *job) Payload {
	e := j.opts
	m := measureSpec{field: e.GraphMeasureField(), agg: e.GraphAggregator}
	m.useCount = options.IsCountMeasure(m.field)
	axes := e.GraphAxes()

	var points []point
	if len(axes) > 0 {
		groups := soft(j, "read_group", func() ([]types.GroupRow, error) {
			return s.store.ReadGroup(ctx, j.coll.Name, j.dom, m.aggregates(), axes)
		})
		enums := make([]map[string]string, len(axes))
		for i, a := range axes {
			enums[i] = enumFor(j.coll, a.Field)
		}
		for _, g := range groups {
			parts := make([]string, 0, len(axes))
			for i, a := range axes {
				if part := labels.Extract(g, a, enums[i]); part != "" {
					parts = append(parts, part)
				}
			}
			points = append(points, point{label: strings.Join(parts, " / "), value: m.value(g)})
		}
	}
	if len(points) == 0 {
		points = []point{{label: labels.Total, value: float64(s.countOrZero(ctx, j))}}
	}

	points = labels.SortAndLimit(points, policy(e))
	data := ChartData{
		Labels: make([]string, len(points)),
		Datasets: []Dataset{{
			Label:           caption(j, m),
			Data:            make([]float64, len(points)),
			BackgroundColor: make([]string, len(points)),
		}},
	}
	for i, p := range points {
		data.Labels[i] = p.label
		data.Datasets[0].Data[i] = p.value
		data.Datasets[0].BackgroundColor[i] = palette[i%len(palette)]
	}

	return GraphPayload{
		Type:          string(types.ViewGraph),
		ChartType:     e.GraphChartType,
		ShowLegend:    e.GraphShowLegend,
		ShowDataTitle: e.ShowDataTitle,
		Data:          data,
	}
}

// caption names the plotted aggregate, e.g. "Sum of Total".
func caption(j *job, m measureSpec) string {
	if m.useCount {
		return recordCountCaption
	}
	title, ok := aggregatorTitles[m.agg]
	if !ok {
		title = string(m.agg)
	}
	return title + " of " + fieldLabel(j.coll, m.field, "")
}
