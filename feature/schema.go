package feature

import (
	"fmt"
	"strings"

	"github.com/hjanetzek/jeo/proj"
)

// Field is a named, typed slot in a schema.
type Field struct {
	Name string
	Type Type
}

// IsGeometry reports whether the field holds a geometry.
func (f Field) IsGeometry() bool {
	return f.Type == TypeGeometry
}

func (f Field) String() string {
	return f.Name + ":" + f.Type.String()
}

// Schema describes the named, ordered fields of a feature. Field names
// are unique within a schema.
type Schema struct {
	name   string
	fields []Field
	index  map[string]int
	crs    *proj.CRS
}

// NewSchema creates a schema from ordered fields.
func NewSchema(name string, fields ...Field) (*Schema, error) {
	s := &Schema{
		name:   name,
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	copy(s.fields, fields)
	for i, f := range s.fields {
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, f.Name)
		}
		s.index[f.Name] = i
	}
	return s, nil
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// CRS returns the reference system declared for geometry fields, or nil.
func (s *Schema) CRS() *proj.CRS { return s.crs }

// Size returns the number of fields.
func (s *Schema) Size() int { return len(s.fields) }

// Fields returns a copy of the ordered field list.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the field at position i, or the zero Field when i is
// out of range.
func (s *Schema) Field(i int) Field {
	if i < 0 || i >= len(s.fields) {
		return Field{}
	}
	return s.fields[i]
}

// Lookup returns the named field.
func (s *Schema) Lookup(name string) (Field, bool) {
	if i, ok := s.index[name]; ok {
		return s.fields[i], true
	}
	return Field{}, false
}

// IndexOf returns the position of the named field, or -1 when the
// schema has no such field.
func (s *Schema) IndexOf(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Geometry returns the first geometry-typed field.
func (s *Schema) Geometry() (Field, bool) {
	for _, f := range s.fields {
		if f.IsGeometry() {
			return f, true
		}
	}
	return Field{}, false
}

func (s *Schema) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.String()
	}
	return s.name + "[" + strings.Join(parts, ",") + "]"
}

// SchemaBuilder assembles a schema incrementally.
type SchemaBuilder struct {
	name   string
	crs    *proj.CRS
	fields []Field
}

// BuildSchema starts a builder for a schema with the given name.
func BuildSchema(name string) *SchemaBuilder {
	return &SchemaBuilder{name: name}
}

// CRS declares the reference system of geometry fields.
func (b *SchemaBuilder) CRS(crs *proj.CRS) *SchemaBuilder {
	b.crs = crs
	return b
}

// Field appends a field.
func (b *SchemaBuilder) Field(name string, t Type) *SchemaBuilder {
	b.fields = append(b.fields, Field{Name: name, Type: t})
	return b
}

// Fields appends fields in order.
func (b *SchemaBuilder) Fields(fields ...Field) *SchemaBuilder {
	b.fields = append(b.fields, fields...)
	return b
}

// Schema validates and builds the schema.
func (b *SchemaBuilder) Schema() (*Schema, error) {
	s, err := NewSchema(b.name, b.fields...)
	if err != nil {
		return nil, err
	}
	s.crs = b.crs
	return s, nil
}
