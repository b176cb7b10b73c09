// Package seed loads dashboard configuration and demo data from CUE files.
//
// A seed file declares collection metadata, stored filters, dashboards with
// their lines, and optionally sample records for the in-memory store. It is
// unified with an embedded schema and must be fully concrete.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/gogf/gf/v2/util/gconv"
	"github.com/google/uuid"

	"github.com/matthewbaird/dashboard/internal/board"
	"github.com/matthewbaird/dashboard/internal/schema"
	"github.com/matthewbaird/dashboard/internal/store"
	"github.com/matthewbaird/dashboard/internal/types"
)

//go:embed schema.cue
var schemaCUE string

//go:embed demo.cue
var demoCUE []byte

// Result is a loaded seed.
type Result struct {
	Registry   *schema.Registry
	Repository *board.MemoryRepository
	Records    map[string][]types.Record
	Filters    map[string]uuid.UUID // seed key -> filter id
	Dashboards map[string]uuid.UUID // seed key -> dashboard id
}

// Populate inserts the seed's sample records into a memory store.
func (r *Result) Populate(s *store.MemoryStore) {
	names := make([]string, 0, len(r.Records))
	for name := range r.Records {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.Insert(name, r.Records[name]...)
	}
}

// Demo loads the embedded demo seed.
func Demo() (*Result, error) {
	return Load(demoCUE, "demo.cue")
}

// LoadFile loads a seed file from disk.
func LoadFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed: %w", err)
	}
	return Load(data, path)
}

// Load validates seed source against the schema and decodes it.
func Load(data []byte, filename string) (*Result, error) {
	ctx := cuecontext.New()
	schemaVal := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schemaVal.Err(); err != nil {
		return nil, fmt.Errorf("compiling seed schema: %w", err)
	}
	dataVal := ctx.CompileBytes(data, cue.Filename(filename))
	if err := dataVal.Err(); err != nil {
		return nil, fmt.Errorf("compiling %s: %w", filename, err)
	}

	val := schemaVal.Unify(dataVal)
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating %s: %w", filename, err)
	}

	var doc seedDoc
	for path, target := range map[string]any{
		"collections": &doc.Collections,
		"filters":     &doc.Filters,
		"dashboards":  &doc.Dashboards,
		"records":     &doc.Records,
	} {
		v := val.LookupPath(cue.ParsePath(path))
		if !v.Exists() {
			continue
		}
		if err := v.Decode(target); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	return doc.build()
}

type seedDoc struct {
	Collections map[string]collectionDoc    `json:"collections"`
	Filters     map[string]filterDoc        `json:"filters"`
	Dashboards  map[string]dashboardDoc     `json:"dashboards"`
	Records     map[string][]map[string]any `json:"records"`
}

type collectionDoc struct {
	Label          string     `json:"label"`
	Table          string     `json:"table"`
	Fields         []fieldDoc `json:"fields"`
	DefaultColumns []string   `json:"default_columns"`
}

type fieldDoc struct {
	Name          string              `json:"name"`
	Label         string              `json:"label"`
	Type          string              `json:"type"`
	Stored        bool                `json:"stored"`
	Required      bool                `json:"required"`
	Precision     *int                `json:"precision"`
	Relation      string              `json:"relation"`
	RelationLabel string              `json:"relation_label"`
	Options       []schema.EnumOption `json:"options"`
}

type filterDoc struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Collection string `json:"collection"`
	Domain     string `json:"domain"`
	Context    string `json:"context"`
	Sort       string `json:"sort"`
	UserID     string `json:"user_id"`
}

type lineFieldDoc struct {
	Name          string `json:"name"`
	Label         string `json:"label"`
	Sequence      int    `json:"sequence"`
	Visible       bool   `json:"visible"`
	SortOrder     int    `json:"sort_order"`
	SortDirection string `json:"sort_direction"`
}

type lineDoc struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Sequence    int            `json:"sequence"`
	Filter      string         `json:"filter"`
	Width       string         `json:"width"`
	Height      string         `json:"height"`
	DisplayMode string         `json:"display_mode"`
	Limit       int            `json:"limit"`
	Fields      []lineFieldDoc `json:"fields"`

	ShowRecordCount *bool `json:"show_record_count"`
	ShowDataTitle   *bool `json:"show_data_title"`

	ListGroupBy string `json:"list_groupby"`

	GraphChartType  string `json:"graph_chart_type"`
	GraphAggregator string `json:"graph_aggregator"`
	GraphMeasure    string `json:"graph_measure"`
	GraphGroupBys   string `json:"graph_groupbys"`
	GraphShowLegend *bool  `json:"graph_show_legend"`

	PivotRowGroupBy    string `json:"pivot_row_groupby"`
	PivotColGroupBy    string `json:"pivot_col_groupby"`
	PivotMeasure       string `json:"pivot_measure"`
	PivotSortBy        string `json:"pivot_sort_by"`
	PivotSortOrder     string `json:"pivot_sort_order"`
	PivotShowRowTotals *bool  `json:"pivot_show_row_totals"`
	PivotShowColTotals *bool  `json:"pivot_show_col_totals"`
}

type dashboardDoc struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	Lines       []lineDoc `json:"lines"`
}

func (d *seedDoc) build() (*Result, error) {
	res := &Result{
		Registry:   schema.NewRegistry(),
		Repository: board.NewMemoryRepository(),
		Records:    make(map[string][]types.Record),
		Filters:    make(map[string]uuid.UUID),
		Dashboards: make(map[string]uuid.UUID),
	}

	for _, name := range sortedKeys(d.Collections) {
		c, err := buildCollection(name, d.Collections[name])
		if err != nil {
			return nil, err
		}
		res.Registry.Register(c)
	}
	for _, c := range d.Collections {
		for _, f := range c.Fields {
			if f.Relation != "" {
				if _, err := res.Registry.Collection(f.Relation); err != nil {
					return nil, fmt.Errorf("field %s: %w", f.Name, err)
				}
			}
		}
	}

	for _, key := range sortedKeys(d.Filters) {
		fd := d.Filters[key]
		if _, err := res.Registry.Collection(fd.Collection); err != nil {
			return nil, fmt.Errorf("filter %s: %w", key, err)
		}
		id, err := seedID("filter", key, fd.ID)
		if err != nil {
			return nil, err
		}
		f := res.Repository.PutFilter(types.Filter{
			ID:         id,
			Name:       fd.Name,
			Collection: fd.Collection,
			Domain:     fd.Domain,
			Context:    fd.Context,
			Sort:       fd.Sort,
			UserID:     fd.UserID,
		})
		res.Filters[key] = f.ID
	}

	for _, key := range sortedKeys(d.Dashboards) {
		dd := d.Dashboards[key]
		id, err := seedID("dashboard", key, dd.ID)
		if err != nil {
			return nil, err
		}
		dash := types.Dashboard{ID: id, Name: dd.Name, Description: dd.Description, Active: dd.Active}
		for i, ld := range dd.Lines {
			filterID, ok := res.Filters[ld.Filter]
			if !ok {
				return nil, fmt.Errorf("dashboard %s line %q: unknown filter %q", key, ld.Name, ld.Filter)
			}
			lineID, err := seedID("line", fmt.Sprintf("%s/%d", key, i), ld.ID)
			if err != nil {
				return nil, err
			}
			dash.Lines = append(dash.Lines, ld.toLine(lineID, filterID))
		}
		dash = res.Repository.PutDashboard(dash)
		res.Dashboards[key] = dash.ID
	}

	for _, name := range sortedKeys(d.Records) {
		c, err := res.Registry.Collection(name)
		if err != nil {
			return nil, fmt.Errorf("records: %w", err)
		}
		for _, raw := range d.Records[name] {
			res.Records[name] = append(res.Records[name], normalizeRecord(c, raw))
		}
	}
	return res, nil
}

func buildCollection(name string, cd collectionDoc) (*schema.Collection, error) {
	fields := make([]*schema.FieldMeta, 0, len(cd.Fields))
	for _, fd := range cd.Fields {
		ft, err := schema.ParseFieldType(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("collection %s field %s: %w", name, fd.Name, err)
		}
		fields = append(fields, &schema.FieldMeta{
			Name:          fd.Name,
			Label:         fd.Label,
			Type:          ft,
			EnumOptions:   fd.Options,
			Precision:     fd.Precision,
			Relation:      fd.Relation,
			RelationLabel: fd.RelationLabel,
			Stored:        fd.Stored,
			Required:      fd.Required,
		})
	}
	label := cd.Label
	if label == "" {
		label = name
	}
	c := schema.NewCollection(name, label, cd.Table, fields...)
	for _, col := range cd.DefaultColumns {
		if c.Field(col) == nil {
			return nil, fmt.Errorf("collection %s: default column %q is not a field", name, col)
		}
	}
	c.DefaultColumns = cd.DefaultColumns
	return c, nil
}

func (ld lineDoc) toLine(id, filterID uuid.UUID) types.Line {
	l := types.Line{
		ID:                 id,
		Name:               ld.Name,
		Sequence:           ld.Sequence,
		FilterID:           filterID,
		Width:              ld.Width,
		Height:             ld.Height,
		DisplayMode:        ld.DisplayMode,
		Limit:              ld.Limit,
		ShowRecordCount:    tristate(ld.ShowRecordCount),
		ShowDataTitle:      tristate(ld.ShowDataTitle),
		ListGroupBy:        ld.ListGroupBy,
		GraphChartType:     ld.GraphChartType,
		GraphAggregator:    ld.GraphAggregator,
		GraphMeasure:       ld.GraphMeasure,
		GraphGroupBys:      ld.GraphGroupBys,
		GraphShowLegend:    tristate(ld.GraphShowLegend),
		PivotRowGroupBy:    ld.PivotRowGroupBy,
		PivotColGroupBy:    ld.PivotColGroupBy,
		PivotMeasure:       ld.PivotMeasure,
		PivotSortBy:        ld.PivotSortBy,
		PivotSortOrder:     ld.PivotSortOrder,
		PivotShowRowTotals: tristate(ld.PivotShowRowTotals),
		PivotShowColTotals: tristate(ld.PivotShowColTotals),
	}
	for _, fd := range ld.Fields {
		l.Fields = append(l.Fields, types.LineField{
			Sequence:      fd.Sequence,
			FieldName:     fd.Name,
			FieldLabel:    fd.Label,
			Visible:       fd.Visible,
			SortOrder:     fd.SortOrder,
			SortDirection: fd.SortDirection,
		})
	}
	return l
}

// normalizeRecord coerces decoded CUE values to the field's Go type.
func normalizeRecord(c *schema.Collection, raw map[string]any) types.Record {
	rec := make(types.Record, len(raw))
	for k, v := range raw {
		f := c.Field(k)
		switch {
		case v == nil:
			rec[k] = nil
		case k == "id":
			rec[k] = gconv.Int64(v)
		case f == nil:
			rec[k] = v
		case f.Type == schema.FieldInteger || f.Type == schema.FieldMany2One:
			rec[k] = gconv.Int64(v)
		case f.Type == schema.FieldFloat || f.Type == schema.FieldMonetary:
			rec[k] = gconv.Float64(v)
		case f.Type == schema.FieldBoolean:
			rec[k] = gconv.Bool(v)
		default:
			rec[k] = v
		}
	}
	return rec
}

func tristate(b *bool) types.Tristate {
	if b == nil {
		return types.Unset
	}
	return types.TristateOf(*b)
}

// seedID returns the declared id, or a stable id derived from the seed key
// so reloading a seed keeps URLs valid.
func seedID(kind, key, declared string) (uuid.UUID, error) {
	if strings.TrimSpace(declared) != "" {
		id, err := uuid.Parse(declared)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%s %s: invalid id: %w", kind, key, err)
		}
		return id, nil
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("dashboard-seed:"+kind+":"+key)), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
