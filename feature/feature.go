// Package feature defines the feature data model: typed fields,
// schemas and the Feature unit of geospatial data. A feature's values
// live either positionally, in schema order, or keyed by name; both
// forms answer positional and named access.
package feature

import (
	"errors"
	"reflect"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/hjanetzek/jeo/proj"
)

// Common errors returned by this package.
var (
	ErrDuplicateField = errors.New("feature: duplicate field name")
	ErrUnknownField   = errors.New("feature: unknown field")
	ErrIndexRange     = errors.New("feature: index out of range")
	ErrNoGeometry     = errors.New("feature: schema has no geometry field")
)

// IDFunc produces feature identifiers.
type IDFunc func() string

// GenerateID creates identifiers for features constructed without one.
// Tests may swap it for a deterministic generator.
var GenerateID IDFunc = uuid.NewString

// Feature is a single unit of geospatial data: an identifier, values
// held positionally or by name, and an optional coordinate reference
// system.
type Feature struct {
	id  string
	crs *proj.CRS
	stg storage
}

// New creates an empty feature. With a schema the feature stores
// values positionally in schema order; without one it stores values
// by name. An empty id is replaced by a generated one.
func New(id string, schema *Schema) *Feature {
	if schema != nil {
		return FromList(id, nil, schema)
	}
	return FromMap(id, nil, nil)
}

// FromList creates a feature over positional values. When schema is
// nil one is derived from the values on first use.
func FromList(id string, values []any, schema *Schema) *Feature {
	return &Feature{id: ensureID(id), stg: newListStorage(values, schema)}
}

// FromMap creates a feature over named values. When schema is nil one
// is derived from the entries on first use.
func FromMap(id string, values map[string]any, schema *Schema) *Feature {
	return &Feature{id: ensureID(id), stg: newMapStorage(values, schema)}
}

func ensureID(id string) string {
	if id == "" {
		return GenerateID()
	}
	return id
}

// ID returns the feature identifier.
func (f *Feature) ID() string { return f.id }

// CRS returns the explicitly set reference system, else the one the
// schema declares. It never triggers schema derivation.
func (f *Feature) CRS() *proj.CRS {
	if f.crs != nil {
		return f.crs
	}
	if s := f.stg.declared(); s != nil {
		return s.CRS()
	}
	return nil
}

// SetCRS pins the feature's reference system.
func (f *Feature) SetCRS(crs *proj.CRS) { f.crs = crs }

// Schema returns the feature's schema, deriving one from the values
// when none was supplied.
func (f *Feature) Schema() *Schema { return f.stg.schema() }

// Get returns the named value, or nil when the feature has no such
// field.
func (f *Feature) Get(name string) any { return f.stg.get(name) }

// At returns the value at position i, or nil when i is out of range.
func (f *Feature) At(i int) any { return f.stg.at(i) }

// Put sets the named value. On positional features the name must be
// a schema field; named features grow a new entry.
func (f *Feature) Put(name string, value any) error { return f.stg.put(name, value) }

// Set sets the value at position i.
func (f *Feature) Set(i int, value any) error { return f.stg.set(i, value) }

// List returns the values in schema order. The slice is a copy.
func (f *Feature) List() []any { return f.stg.list() }

// Map returns the values keyed by field name. The map is a copy.
func (f *Feature) Map() map[string]any { return f.stg.mapped() }

// Geometry returns the feature's geometry. When a schema is available
// without derivation and declares a geometry field, that field's value
// wins; otherwise the first geometry value found is returned.
func (f *Feature) Geometry() orb.Geometry {
	if s := f.stg.declared(); s != nil {
		if fld, ok := s.Geometry(); ok {
			g, _ := f.stg.get(fld.Name).(orb.Geometry)
			return g
		}
	}
	for _, v := range f.stg.values() {
		if g, ok := v.(orb.Geometry); ok {
			return g
		}
	}
	return nil
}

// SetGeometry stores g in the schema's geometry field.
func (f *Feature) SetGeometry(g orb.Geometry) error {
	fld, ok := f.Schema().Geometry()
	if !ok {
		return ErrNoGeometry
	}
	return f.Put(fld.Name, g)
}

// Equal reports whether two features carry the same id, the same
// pinned reference system and equal values in schema order. Features
// with different storage forms compare equal when their ordered
// values match.
func (f *Feature) Equal(o *Feature) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.id != o.id || !f.crs.Equal(o.crs) {
		return false
	}
	return reflect.DeepEqual(f.List(), o.List())
}
