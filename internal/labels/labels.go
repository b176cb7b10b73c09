// Package labels derives display labels from grouped-aggregation rows and
// orders labelled rows for presentation.
package labels

import (
	"github.com/gogf/gf/v2/util/gconv"

	"github.com/matthewbaird/dashboard/internal/types"
)

// Undefined labels a group whose value is null or absent.
const Undefined = "Undefined"

// Total labels the synthetic single row or point used when a grouped
// aggregation yields nothing.
const Total = "Total"

// Extract returns the label of row for spec. The row is looked up by the
// full spec first ("date:month"), then by the bare field. Relation
// references yield their display name and enum keys their mapped label.
func Extract(row types.GroupRow, spec types.FieldSpec, enum map[string]string) string {
	v, ok := row[spec.String()]
	if !ok || v == nil {
		v = row[spec.Field]
	}

	switch t := v.(type) {
	case nil:
		return Undefined
	case types.RelationRef:
		return t.Name
	case []any:
		if len(t) > 1 {
			return gconv.String(t[1])
		}
	}

	if len(enum) > 0 {
		if label, ok := enum[gconv.String(v)]; ok {
			return label
		}
	}
	return gconv.String(v)
}
