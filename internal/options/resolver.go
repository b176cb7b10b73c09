package options

import (
	"strings"

	"go.uber.org/zap"

	"github.com/matthewbaird/dashboard/internal/domain"
	"github.com/matthewbaird/dashboard/internal/literal"
	"github.com/matthewbaird/dashboard/internal/types"
)

// Resolver merges configuration layers into effective options.
type Resolver struct {
	ambient  Patch
	defaults Defaults
	logger   *zap.Logger
}

// Defaults are the values used for options no layer sets.
type Defaults struct {
	ColumnOrder string // first_seen, alphabetical or by_total
}

// NewResolver creates a resolver. ambient is the lowest-precedence context
// layer (configured server-wide); unrecognized keys in it are ignored.
func NewResolver(ambient map[string]any, defaults Defaults, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		ambient:  contextPatch(ambient),
		defaults: defaults,
		logger:   logger.Named("options"),
	}
}

// Resolved is the outcome of resolving one render request.
type Resolved struct {
	Domain    domain.Node // nil matches every record
	Options   Options
	Effective Effective
}

// Resolve applies ambient context, the filter's stored context, the
// optional line and the caller overrides, in that order. Malformed stored
// predicate or context text is logged and treated as empty.
func (r *Resolver) Resolve(f types.Filter, line *types.Line, overrides map[string]any) Resolved {
	dom, err := domain.Parse(f.Domain)
	if err != nil {
		r.logger.Warn("ignoring malformed filter domain",
			zap.Stringer("filter_id", f.ID), zap.Error(err))
		dom = nil
	}

	ctx, err := literal.ParseDict(f.Context)
	if err != nil {
		r.logger.Warn("ignoring malformed filter context",
			zap.Stringer("filter_id", f.ID), zap.Error(err))
		ctx = nil
	}

	opts := Options{}.
		With(r.ambient).
		With(contextPatch(ctx)).
		With(LinePatch(line)).
		With(r.overridePatch(overrides))

	return Resolved{
		Domain:    dom,
		Options:   opts,
		Effective: r.effective(opts),
	}
}

// contextPatch keeps the recognized keys of a context map.
func contextPatch(ctx map[string]any) Patch {
	p := Patch{}
	for raw, v := range ctx {
		k, ok := Lookup(raw)
		if !ok {
			continue
		}
		// The canonical spelling wins over an alias present in the same map.
		if _, canonical := ctx[string(k)]; canonical && raw != string(k) {
			continue
		}
		p[k] = v
	}
	return p
}

func (r *Resolver) overridePatch(overrides map[string]any) Patch {
	p := Patch{}
	for raw, v := range overrides {
		if !Overridable(raw) {
			r.logger.Debug("dropping non-whitelisted override", zap.String("key", raw))
			continue
		}
		k, _ := Lookup(raw)
		if _, canonical := overrides[string(k)]; canonical && raw != string(k) {
			continue
		}
		p[k] = v
	}
	return p
}

// LinePatch returns the options a display line sets. Empty strings, zero
// limits and unset flags leave earlier layers untouched.
func LinePatch(l *types.Line) Patch {
	p := Patch{}
	if l == nil {
		return p
	}
	if mode := strings.TrimSpace(l.DisplayMode); mode != "" && mode != "auto" {
		p[ViewTypeHint] = mode
	}
	if l.ShowRecordCount.IsSet() {
		p[ShowRecordCount] = l.ShowRecordCount.Bool(true)
	}
	if l.ShowDataTitle.IsSet() {
		p[ShowDataTitle] = l.ShowDataTitle.Bool(true)
	}
	setString(p, ListGroupBy, l.ListGroupBy)
	setString(p, GraphChartType, l.GraphChartType)
	setString(p, GraphAggregator, l.GraphAggregator)
	setString(p, GraphMeasure, l.GraphMeasure)
	setString(p, GraphGroupBys, l.GraphGroupBys)
	if l.GraphShowLegend.IsSet() {
		p[GraphShowLegend] = l.GraphShowLegend.Bool(true)
	}
	setString(p, PivotRowGroupBy, l.PivotRowGroupBy)
	setString(p, PivotColumnGroupBy, l.PivotColGroupBy)
	if m := strings.TrimSpace(l.PivotMeasure); m != "" {
		p[PivotMeasures] = []any{m}
	}
	setString(p, PivotSortBy, l.PivotSortBy)
	setString(p, PivotSortOrder, l.PivotSortOrder)
	if l.PivotShowRowTotals.IsSet() {
		p[PivotShowRowTotals] = l.PivotShowRowTotals.Bool(true)
	}
	if l.PivotShowColTotals.IsSet() {
		p[PivotShowColTotals] = l.PivotShowColTotals.Bool(true)
	}
	if l.Limit > 0 {
		p[RowLimit] = l.Limit
	}
	return p
}

func setString(p Patch, k Key, v string) {
	if v = strings.TrimSpace(v); v != "" {
		p[k] = v
	}
}
