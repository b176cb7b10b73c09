package render

import (
	"context"
	"slices"
	"strings"

	"github.com/gogf/gf/v2/util/gconv"
	"go.uber.org/zap"

	"github.com/matthewbaird/dashboard/internal/literal"
	"github.com/matthewbaird/dashboard/internal/schema"
	"github.com/matthewbaird/dashboard/internal/types"
)

// maxHeuristicColumns caps the columns picked when no configuration or
// default view names them.
const maxHeuristicColumns = 15

// defaultPrecision applies to numeric columns without a declared precision.
const defaultPrecision = 2

// displayNameColumn is the last-resort column.
const displayNameColumn = "display_name"

// preferredColumns are picked first by the heuristic, in this order.
var preferredColumns = []string{
	"name", "display_name", "date", "invoice_date", "partner_id", "amount_total",
	"amount_untaxed", "amount_tax", "user_id", "company_id", "state", "ref",
	"create_date", "write_date",
}

// column is a resolved list column.
type column struct {
	name  string
	label string
	field *schema.FieldMeta // nil for the display_name fallback
}

func (c column) meta() Column {
	out := Column{Name: c.name, Label: c.label, Type: "char"}
	if c.field == nil {
		return out
	}
	out.Type = c.field.Type.String()
	if c.field.Type.Numeric() {
		p := defaultPrecision
		if c.field.Precision != nil {
			p = *c.field.Precision
		}
		out.Precision = &p
	}
	return out
}

// listColumns resolves the list columns and their ordering, by priority:
// the line's configured fields, the list_fields option, the collection's
// default columns, then a heuristic over the collection's fields.
func (s *Service) listColumns(j *job) ([]column, []types.OrderSpec) {
	if cols, order := lineColumns(j); len(cols) > 0 {
		if len(order) == 0 {
			order = filterOrder(j)
		}
		return cols, order
	}

	order := filterOrder(j)
	if cols := namedColumns(j.coll, j.opts.ListFields, nil); len(cols) > 0 {
		return cols, order
	}

	defaults, err := s.catalog.DefaultColumns(j.coll.Name)
	if err != nil {
		j.log.Warn("default columns unavailable", zap.Error(err))
	}
	if cols := namedColumns(j.coll, defaults, nil); len(cols) > 0 {
		return cols, order
	}

	if cols := namedColumns(j.coll, heuristicColumns(j.coll), nil); len(cols) > 0 {
		return cols, order
	}
	return []column{{name: displayNameColumn, label: "Display Name"}}, order
}

// lineColumns returns the visible configured fields of the line in sequence
// order, and the sort directives of fields with a positive sort order.
func lineColumns(j *job) ([]column, []types.OrderSpec) {
	if j.line == nil || len(j.line.Fields) == 0 {
		return nil, nil
	}
	fields := slices.Clone(j.line.Fields)
	slices.SortStableFunc(fields, func(a, b types.LineField) int { return a.Sequence - b.Sequence })

	var (
		names    []string
		captions = map[string]string{}
	)
	for _, lf := range fields {
		if !lf.Visible {
			continue
		}
		names = append(names, lf.FieldName)
		if lf.FieldLabel != "" {
			captions[lf.FieldName] = lf.FieldLabel
		}
	}

	sorted := slices.DeleteFunc(slices.Clone(fields), func(lf types.LineField) bool { return lf.SortOrder <= 0 })
	slices.SortStableFunc(sorted, func(a, b types.LineField) int { return a.SortOrder - b.SortOrder })
	var order []types.OrderSpec
	for _, lf := range sorted {
		if j.coll.Field(lf.FieldName) == nil {
			continue
		}
		order = append(order, types.OrderSpec{
			Field: lf.FieldName,
			Desc:  strings.EqualFold(lf.SortDirection, "desc"),
		})
	}
	return namedColumns(j.coll, names, captions), order
}

// namedColumns keeps the names the collection declares, without duplicates.
func namedColumns(c *schema.Collection, names []string, captions map[string]string) []column {
	var (
		out  []column
		seen = map[string]bool{}
	)
	for _, name := range names {
		name = strings.TrimSpace(name)
		f := c.Field(name)
		if f == nil || seen[name] {
			continue
		}
		seen[name] = true
		label := captions[name]
		if label == "" {
			label = f.DisplayLabel()
		}
		out = append(out, column{name: name, label: label, field: f})
	}
	return out
}

// heuristicColumns lists the collection's displayable fields. Past the cap,
// preferred business fields come first and the rest fill up to the cap.
func heuristicColumns(c *schema.Collection) []string {
	var names []string
	for _, name := range c.FieldOrder {
		if strings.HasPrefix(name, "_") || !c.Field(name).Type.Listable() {
			continue
		}
		names = append(names, name)
	}
	if len(names) <= maxHeuristicColumns {
		return names
	}

	var preferred, others []string
	for _, p := range preferredColumns {
		if slices.Contains(names, p) {
			preferred = append(preferred, p)
		}
	}
	for _, n := range names {
		if !slices.Contains(preferredColumns, n) {
			others = append(others, n)
		}
	}
	if room := maxHeuristicColumns - len(preferred); room < len(others) {
		others = others[:max(room, 0)]
	}
	return append(preferred, others...)
}

// filterOrder parses the stored filter's sort text, a literal list such as
// ['date desc', 'name'] or a plain comma-joined string.
func filterOrder(j *job) []types.OrderSpec {
	text := strings.TrimSpace(j.filter.Sort)
	if text == "" {
		return nil
	}
	var parts []string
	v, err := literal.Parse(text)
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			parts = append(parts, strings.Split(gconv.String(item), ",")...)
		}
	case string:
		parts = strings.Split(t, ",")
	default:
		if err != nil {
			parts = strings.Split(text, ",")
		}
	}

	var order []types.OrderSpec
	for _, p := range parts {
		o, ok := types.ParseOrderSpec(p)
		if !ok || (o.Field != "id" && j.coll.Field(o.Field) == nil) {
			continue
		}
		order = append(order, o)
	}
	return order
}

// countOrZero counts the filtered domain, or reports 0 when the store fails.
func (s *Service) countOrZero(ctx context.Context, j *job) int {
	return soft(j, "count", func() (int, error) {
		return s.store.Count(ctx, j.coll.Name, j.dom)
	})
}
