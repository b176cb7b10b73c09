// Package schema provides the collection metadata registry.
//
// The registry is populated at startup by the seed loader and consumed by
// the render pipelines (column resolution, labels, enum translation) and the
// SQL store (table and relation lookup).
package schema

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownCollection is returned when a collection is not registered.
var ErrUnknownCollection = errors.New("unknown collection")

// FieldType classifies a field for display and aggregation.
type FieldType int

const (
	FieldChar FieldType = iota
	FieldText
	FieldInteger
	FieldFloat
	FieldMonetary
	FieldBoolean
	FieldDate
	FieldDatetime
	FieldSelection
	FieldMany2One
	FieldOne2Many
	FieldMany2Many
	FieldBinary
)

var fieldTypeNames = map[FieldType]string{
	FieldChar:      "char",
	FieldText:      "text",
	FieldInteger:   "integer",
	FieldFloat:     "float",
	FieldMonetary:  "monetary",
	FieldBoolean:   "boolean",
	FieldDate:      "date",
	FieldDatetime:  "datetime",
	FieldSelection: "selection",
	FieldMany2One:  "many2one",
	FieldOne2Many:  "one2many",
	FieldMany2Many: "many2many",
	FieldBinary:    "binary",
}

// String returns the wire type name.
func (ft FieldType) String() string {
	if s, ok := fieldTypeNames[ft]; ok {
		return s
	}
	return "unknown"
}

// ParseFieldType resolves a wire type name.
func ParseFieldType(s string) (FieldType, error) {
	for ft, name := range fieldTypeNames {
		if name == s {
			return ft, nil
		}
	}
	return 0, fmt.Errorf("unknown field type %q", s)
}

func (ft FieldType) MarshalText() ([]byte, error) {
	return []byte(ft.String()), nil
}

func (ft *FieldType) UnmarshalText(b []byte) error {
	v, err := ParseFieldType(string(b))
	if err != nil {
		return err
	}
	*ft = v
	return nil
}

// Numeric returns true for types that can be summed.
func (ft FieldType) Numeric() bool {
	switch ft {
	case FieldInteger, FieldFloat, FieldMonetary:
		return true
	default:
		return false
	}
}

// Temporal returns true for types that accept a date bucket.
func (ft FieldType) Temporal() bool {
	return ft == FieldDate || ft == FieldDatetime
}

// Listable returns false for types never shown as list columns by default.
func (ft FieldType) Listable() bool {
	switch ft {
	case FieldOne2Many, FieldMany2Many, FieldBinary:
		return false
	default:
		return true
	}
}

// EnumOption is one key/label pair of a selection field.
type EnumOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// FieldMeta describes a single field on a collection.
type FieldMeta struct {
	Name          string       `json:"name"`
	Label         string       `json:"label"`
	Type          FieldType    `json:"type"`
	EnumOptions   []EnumOption `json:"enum_options,omitempty"`
	Precision     *int         `json:"precision,omitempty"` // declared decimal digits
	Relation      string       `json:"relation,omitempty"`  // target collection for many2one
	RelationLabel string       `json:"-"`                   // target column holding the display name
	Stored        bool         `json:"stored"`
	Required      bool         `json:"required"`
}

// IsRelation reports whether values are references to another collection.
func (f *FieldMeta) IsRelation() bool {
	return f.Type == FieldMany2One
}

// DisplayLabel returns the label, falling back to the field name.
func (f *FieldMeta) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Collection holds the metadata for one searchable collection.
type Collection struct {
	Name           string                // collection name, e.g. "account.move"
	Label          string                // human name
	Table          string                // backing SQL table
	Fields         map[string]*FieldMeta // field name -> metadata
	FieldOrder     []string              // fields in declaration order
	DefaultColumns []string              // columns of the default list view, if any
}

// NewCollection builds a collection from fields in declaration order.
func NewCollection(name, label, table string, fields ...*FieldMeta) *Collection {
	c := &Collection{
		Name:   name,
		Label:  label,
		Table:  table,
		Fields: make(map[string]*FieldMeta, len(fields)),
	}
	for _, f := range fields {
		c.Fields[f.Name] = f
		c.FieldOrder = append(c.FieldOrder, f.Name)
	}
	return c
}

// Field returns a field's metadata, or nil.
func (c *Collection) Field(name string) *FieldMeta {
	return c.Fields[name]
}

// Catalog is the metadata boundary the render pipelines depend on.
type Catalog interface {
	// Collection returns a collection's metadata.
	Collection(name string) (*Collection, error)
	// Fields returns metadata for the named fields; unknown names are omitted.
	// With no names, every field is returned.
	Fields(collection string, names ...string) (map[string]*FieldMeta, error)
	// DefaultColumns returns the default list-view columns, possibly empty.
	DefaultColumns(collection string) ([]string, error)
}

// Registry holds metadata for all collections. It is populated at startup
// and is safe for concurrent read access afterwards.
type Registry struct {
	collections map[string]*Collection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{collections: make(map[string]*Collection)}
}

// Register adds or replaces a collection.
func (r *Registry) Register(c *Collection) {
	r.collections[c.Name] = c
}

// Collection returns a collection's metadata.
func (r *Registry) Collection(name string) (*Collection, error) {
	c, ok := r.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return c, nil
}

// Names returns all registered collection names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.collections))
	for n := range r.collections {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Fields(collection string, names ...string) (map[string]*FieldMeta, error) {
	c, err := r.Collection(collection)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return c.Fields, nil
	}
	out := make(map[string]*FieldMeta, len(names))
	for _, n := range names {
		if f, ok := c.Fields[n]; ok {
			out[n] = f
		}
	}
	return out, nil
}

func (r *Registry) DefaultColumns(collection string) ([]string, error) {
	c, err := r.Collection(collection)
	if err != nil {
		return nil, err
	}
	return c.DefaultColumns, nil
}

// HasField reports whether the collection declares the field.
func (r *Registry) HasField(collection, field string) bool {
	c, err := r.Collection(collection)
	return err == nil && c.Fields[field] != nil
}

// EnumMap returns the key -> label map of a selection field, or nil.
func EnumMap(f *FieldMeta) map[string]string {
	if f == nil || f.Type != FieldSelection || len(f.EnumOptions) == 0 {
		return nil
	}
	m := make(map[string]string, len(f.EnumOptions))
	for _, o := range f.EnumOptions {
		m[o.Key] = o.Label
	}
	return m
}
