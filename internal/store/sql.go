package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/gogf/gf/v2/util/gconv"

	"github.com/matthewbaird/dashboard/internal/domain"
	"github.com/matthewbaird/dashboard/internal/schema"
	"github.com/matthewbaird/dashboard/internal/types"
)

// SQLStore implements Store over a relational database. Statements are
// built with ent's dialect-aware SQL builder; collections map to tables via
// the catalog, and many2one columns hold the related row's id.
type SQLStore struct {
	db      *sql.DB
	dialect string
	catalog schema.Catalog
}

// DialectFor maps a database/sql driver name to an ent dialect.
func DialectFor(driver string) (string, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return dialect.SQLite, nil
	case "postgres", "pgx":
		return dialect.Postgres, nil
	case "mysql":
		return dialect.MySQL, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// NewSQLStore creates a SQLStore for the given ent dialect.
func NewSQLStore(db *sql.DB, dialectName string, catalog schema.Catalog) (*SQLStore, error) {
	switch dialectName {
	case dialect.SQLite, dialect.Postgres, dialect.MySQL:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialectName)
	}
	return &SQLStore{db: db, dialect: dialectName, catalog: catalog}, nil
}

// column is one selected expression and how to read it back.
type column struct {
	expr  string
	key   string
	field *schema.FieldMeta
}

func (s *SQLStore) Search(ctx context.Context, collection string, dom domain.Node, opts SearchOptions) ([]types.Record, error) {
	c, err := s.catalog.Collection(collection)
	if err != nil {
		return nil, err
	}
	fields := opts.Fields
	if len(fields) == 0 {
		for _, name := range c.FieldOrder {
			if f := c.Field(name); f.Stored && f.Type.Listable() {
				fields = append(fields, name)
			}
		}
	}

	b := entsql.Dialect(s.dialect)
	t := b.Table(c.Table)
	cols := []column{{expr: t.C("id"), key: "id"}}
	var joins []*relationJoin
	for _, name := range fields {
		if name == "id" {
			continue
		}
		f := c.Field(name)
		if f == nil {
			return nil, unknownField(collection, name)
		}
		if !f.Stored {
			continue
		}
		cols = append(cols, column{expr: t.C(name), key: name, field: f})
		if f.IsRelation() {
			j, err := s.join(b, f)
			if err != nil {
				return nil, err
			}
			joins = append(joins, j)
			cols = append(cols, column{expr: j.label, key: relationNameKey(name)})
		}
	}

	sel := b.Select(exprs(cols)...).From(t)
	for _, j := range joins {
		sel.LeftJoin(j.table).On(t.C(j.field), j.table.C("id"))
	}
	if err := s.where(sel, t, c, dom); err != nil {
		return nil, err
	}

	order := opts.Order
	if len(order) == 0 {
		order = []types.OrderSpec{{Field: "id"}}
	}
	for _, o := range order {
		if o.Field != "id" && c.Field(o.Field) == nil {
			return nil, unknownField(collection, o.Field)
		}
		if o.Desc {
			sel.OrderBy(entsql.Desc(t.C(o.Field)))
		} else {
			sel.OrderBy(entsql.Asc(t.C(o.Field)))
		}
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	rows, err := s.query(ctx, sel, len(cols))
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", collection, err)
	}

	out := make([]types.Record, 0, len(rows))
	for _, vals := range rows {
		rec := make(types.Record, len(fields)+1)
		for i, col := range cols {
			rec[col.key] = normalizeField(col.field, vals[i])
		}
		for _, name := range fields {
			f := c.Field(name)
			if f == nil {
				continue
			}
			if !f.Stored {
				rec[name] = nil
				continue
			}
			if f.IsRelation() {
				nameKey := relationNameKey(name)
				if rec[name] != nil {
					rec[name] = types.RelationRef{ID: rec[name], Name: gconv.String(rec[nameKey])}
				}
				delete(rec, nameKey)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *SQLStore) Count(ctx context.Context, collection string, dom domain.Node) (int, error) {
	c, err := s.catalog.Collection(collection)
	if err != nil {
		return 0, err
	}
	b := entsql.Dialect(s.dialect)
	t := b.Table(c.Table)
	sel := b.Select(entsql.Count("*")).From(t)
	if err := s.where(sel, t, c, dom); err != nil {
		return 0, err
	}
	rows, err := s.query(ctx, sel, 1)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", collection, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return gconv.Int(rows[0][0]), nil
}

func (s *SQLStore) ReadGroup(ctx context.Context, collection string, dom domain.Node, aggs []Aggregate, groupBy []types.FieldSpec) ([]types.GroupRow, error) {
	c, err := s.catalog.Collection(collection)
	if err != nil {
		return nil, err
	}
	b := entsql.Dialect(s.dialect)
	t := b.Table(c.Table)

	type groupCol struct {
		spec   types.FieldSpec
		field  *schema.FieldMeta
		bucket string
		index  int // position of the value column
	}
	var (
		cols      []column
		groups    []groupCol
		joins     []*relationJoin
		groupExpr []string
		orderExpr []string
	)
	for _, spec := range groupBy {
		f := c.Field(spec.Field)
		if f == nil {
			return nil, unknownField(collection, spec.Field)
		}
		if !f.Stored {
			return nil, fmt.Errorf("cannot group by computed field %s.%s", collection, spec.Field)
		}
		g := groupCol{spec: spec, field: f, index: len(cols)}
		expr := t.C(spec.Field)
		if f.Type.Temporal() {
			g.bucket = spec.Bucket
			if g.bucket == "" {
				g.bucket = DefaultBucket
			}
			if expr, err = s.bucketExpr(expr, g.bucket); err != nil {
				return nil, err
			}
		}
		cols = append(cols, column{expr: expr, field: f})
		groupExpr = append(groupExpr, expr)
		if f.IsRelation() {
			j, err := s.join(b, f)
			if err != nil {
				return nil, err
			}
			joins = append(joins, j)
			cols = append(cols, column{expr: j.label})
			groupExpr = append(groupExpr, j.label)
			orderExpr = append(orderExpr, j.label)
		} else {
			orderExpr = append(orderExpr, expr)
		}
		groups = append(groups, g)
	}

	countIdx := len(cols)
	cols = append(cols, column{expr: entsql.Count("*")})
	for _, a := range aggs {
		if err := a.validate(); err != nil {
			return nil, err
		}
		expr, err := s.aggExpr(t, c, a)
		if err != nil {
			return nil, err
		}
		cols = append(cols, column{expr: expr, key: a.Key()})
	}

	sel := b.Select(exprs(cols)...).From(t)
	for _, j := range joins {
		sel.LeftJoin(j.table).On(t.C(j.field), j.table.C("id"))
	}
	if err := s.where(sel, t, c, dom); err != nil {
		return nil, err
	}
	if len(groupExpr) > 0 {
		sel.GroupBy(groupExpr...)
		sel.OrderBy(orderExpr...)
	}

	rows, err := s.query(ctx, sel, len(cols))
	if err != nil {
		return nil, fmt.Errorf("grouping %s: %w", collection, err)
	}

	out := make([]types.GroupRow, 0, len(rows))
	for _, vals := range rows {
		row := types.GroupRow{types.CountKey: int64(gconv.Int(vals[countIdx]))}
		for _, g := range groups {
			v := vals[g.index]
			switch {
			case v == nil:
				row[g.spec.String()] = nil
			case g.bucket != "":
				row[g.spec.String()] = BucketLabel(gconv.String(v), g.bucket)
			case g.field.IsRelation():
				row[g.spec.String()] = types.RelationRef{ID: v, Name: gconv.String(vals[g.index+1])}
			default:
				row[g.spec.String()] = normalizeField(g.field, v)
			}
		}
		for i, col := range cols[countIdx+1:] {
			row[col.key] = aggregateValue(aggs[i], vals[countIdx+1+i])
		}
		out = append(out, row)
	}
	return out, nil
}

type relationJoin struct {
	field string
	table *entsql.SelectTable
	label string
}

// join prepares a LEFT JOIN to the related table of a many2one field.
func (s *SQLStore) join(b *entsql.DialectBuilder, f *schema.FieldMeta) (*relationJoin, error) {
	target, err := s.catalog.Collection(f.Relation)
	if err != nil {
		return nil, fmt.Errorf("relation %s: %w", f.Name, err)
	}
	label := f.RelationLabel
	if label == "" {
		label = "name"
	}
	rt := b.Table(target.Table).As("rel_" + f.Name)
	return &relationJoin{field: f.Name, table: rt, label: rt.C(label)}, nil
}

func (s *SQLStore) where(sel *entsql.Selector, t *entsql.SelectTable, c *schema.Collection, dom domain.Node) error {
	if dom == nil {
		return nil
	}
	p, err := s.predicate(t, c, dom)
	if err != nil {
		return err
	}
	sel.Where(p)
	return nil
}

// predicate translates a domain tree into a SQL predicate.
func (s *SQLStore) predicate(t *entsql.SelectTable, c *schema.Collection, n domain.Node) (*entsql.Predicate, error) {
	switch v := n.(type) {
	case domain.Const:
		if v {
			return entsql.ExprP("1 = 1"), nil
		}
		return entsql.ExprP("1 = 0"), nil
	case domain.Not:
		p, err := s.predicate(t, c, v.Child)
		if err != nil {
			return nil, err
		}
		return entsql.Not(p), nil
	case domain.And:
		ps, err := s.predicates(t, c, v.Children)
		if err != nil {
			return nil, err
		}
		return entsql.And(ps...), nil
	case domain.Or:
		ps, err := s.predicates(t, c, v.Children)
		if err != nil {
			return nil, err
		}
		return entsql.Or(ps...), nil
	case domain.Leaf:
		if v.Field != "id" && c.Field(v.Field) == nil {
			return nil, unknownField(c.Name, v.Field)
		}
		return leafPredicate(t.C(v.Field), v), nil
	default:
		return nil, fmt.Errorf("unsupported domain node %T", n)
	}
}

func (s *SQLStore) predicates(t *entsql.SelectTable, c *schema.Collection, nodes []domain.Node) ([]*entsql.Predicate, error) {
	ps := make([]*entsql.Predicate, 0, len(nodes))
	for _, child := range nodes {
		p, err := s.predicate(t, c, child)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return ps, nil
}

func leafPredicate(col string, l domain.Leaf) *entsql.Predicate {
	if l.IsNullCheck() || l.Value == nil {
		if l.Op == domain.OpNEQ {
			return entsql.NotNull(col)
		}
		if l.Op == domain.OpEQ {
			return entsql.IsNull(col)
		}
	}
	switch l.Op {
	case domain.OpEQ:
		return entsql.EQ(col, l.Value)
	case domain.OpNEQ:
		return entsql.Or(entsql.NEQ(col, l.Value), entsql.IsNull(col))
	case domain.OpGT:
		return entsql.GT(col, l.Value)
	case domain.OpGTE:
		return entsql.GTE(col, l.Value)
	case domain.OpLT:
		return entsql.LT(col, l.Value)
	case domain.OpLTE:
		return entsql.LTE(col, l.Value)
	case domain.OpIn, domain.OpNotIn:
		var (
			vals     []any
			withNull bool
		)
		for _, v := range l.Values() {
			if b, ok := v.(bool); ok && !b {
				withNull = true
				continue
			}
			vals = append(vals, v)
		}
		var p *entsql.Predicate
		switch {
		case len(vals) > 0 && withNull:
			p = entsql.Or(entsql.In(col, vals...), entsql.IsNull(col))
		case len(vals) > 0:
			p = entsql.In(col, vals...)
		case withNull:
			p = entsql.IsNull(col)
		default:
			p = entsql.ExprP("1 = 0")
		}
		if l.Op == domain.OpNotIn {
			return entsql.Not(p)
		}
		return p
	case domain.OpLike:
		return entsql.Contains(col, gconv.String(l.Value))
	case domain.OpNotLike:
		return entsql.Or(entsql.Not(entsql.Contains(col, gconv.String(l.Value))), entsql.IsNull(col))
	case domain.OpILike:
		return entsql.ContainsFold(col, gconv.String(l.Value))
	case domain.OpNotILike:
		return entsql.Or(entsql.Not(entsql.ContainsFold(col, gconv.String(l.Value))), entsql.IsNull(col))
	case domain.OpEqLike:
		return entsql.Like(col, gconv.String(l.Value))
	case domain.OpEqILike:
		pattern := strings.ToLower(gconv.String(l.Value))
		return entsql.P(func(b *entsql.Builder) {
			b.WriteString("LOWER(").Ident(col).WriteString(") LIKE ").Arg(pattern)
		})
	}
	return entsql.ExprP("1 = 0")
}

func (s *SQLStore) aggExpr(t *entsql.SelectTable, c *schema.Collection, a Aggregate) (string, error) {
	if a.Field == "" {
		return entsql.Count("*"), nil
	}
	f := c.Field(a.Field)
	if f == nil {
		return "", unknownField(c.Name, a.Field)
	}
	if !f.Stored {
		return "", fmt.Errorf("cannot aggregate computed field %s.%s", c.Name, a.Field)
	}
	col := t.C(a.Field)
	switch a.Func {
	case types.AggSum:
		return entsql.Sum(col), nil
	case types.AggAvg:
		return entsql.Avg(col), nil
	case types.AggMin:
		return entsql.Min(col), nil
	case types.AggMax:
		return entsql.Max(col), nil
	default:
		return entsql.Count(col), nil
	}
}

// bucketExpr truncates a date column to the canonical bucket key.
func (s *SQLStore) bucketExpr(col, bucket string) (string, error) {
	if !ValidBucket(bucket) {
		return "", fmt.Errorf("unsupported bucket %q", bucket)
	}
	switch s.dialect {
	case dialect.Postgres:
		format := map[string]string{
			BucketYear:    "YYYY",
			BucketQuarter: `YYYY-"Q"Q`,
			BucketMonth:   "YYYY-MM",
			BucketWeek:    `IYYY-"W"IW`,
			BucketDay:     "YYYY-MM-DD",
		}[bucket]
		return fmt.Sprintf("to_char(%s, '%s')", col, format), nil
	case dialect.MySQL:
		if bucket == BucketQuarter {
			return fmt.Sprintf("CONCAT(YEAR(%s), '-Q', QUARTER(%s))", col, col), nil
		}
		format := map[string]string{
			BucketYear:  "%Y",
			BucketMonth: "%Y-%m",
			BucketWeek:  "%x-W%v",
			BucketDay:   "%Y-%m-%d",
		}[bucket]
		return fmt.Sprintf("DATE_FORMAT(%s, '%s')", col, format), nil
	default:
		if bucket == BucketQuarter {
			return fmt.Sprintf("(strftime('%%Y', %s) || '-Q' || ((CAST(strftime('%%m', %s) AS INTEGER) + 2) / 3))", col, col), nil
		}
		format := map[string]string{
			BucketYear:  "%Y",
			BucketMonth: "%Y-%m",
			BucketWeek:  "%Y-W%W",
			BucketDay:   "%Y-%m-%d",
		}[bucket]
		return fmt.Sprintf("strftime('%s', %s)", format, col), nil
	}
}

func (s *SQLStore) query(ctx context.Context, sel *entsql.Selector, n int) ([][]any, error) {
	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals := make([]any, n)
		ptrs := make([]any, n)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}

func exprs(cols []column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.expr
	}
	return out
}

func relationNameKey(field string) string {
	return field + "__name"
}

// normalizeField coerces driver values to the field's semantic type.
func normalizeField(f *schema.FieldMeta, v any) any {
	if f == nil || v == nil {
		return v
	}
	switch {
	case f.Type.Numeric():
		if _, ok := v.(string); ok {
			if f.Type == schema.FieldInteger {
				return gconv.Int64(v)
			}
			return gconv.Float64(v)
		}
	case f.Type == schema.FieldBoolean:
		return gconv.Bool(v)
	case f.Type == schema.FieldDate:
		if t, ok := v.(time.Time); ok {
			return t.Format(time.DateOnly)
		}
	}
	return v
}

// aggregateValue coerces an aggregate column. SUM and COUNT over no rows
// read as zero; AVG, MIN and MAX stay nil.
func aggregateValue(a Aggregate, v any) any {
	switch a.Func {
	case types.AggCount:
		return int64(gconv.Int(v))
	case types.AggSum:
		return gconv.Float64(v)
	}
	if v == nil {
		return nil
	}
	return gconv.Float64(v)
}
