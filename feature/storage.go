package feature

import (
	"fmt"
	"sort"
)

// storage holds a feature's values in either positional or named form.
// Implementations derive a schema from their values on demand.
type storage interface {
	// schema returns the effective schema, deriving one if needed.
	schema() *Schema
	// declared returns the explicit or already-derived schema without
	// triggering derivation.
	declared() *Schema
	// values returns the value sequence without consulting a schema.
	values() []any
	get(name string) any
	at(i int) any
	put(name string, value any) error
	set(i int, value any) error
	list() []any
	mapped() map[string]any
}

// listStorage keeps values by position. With an explicit schema the
// value slice is padded with nils up to the schema size.
type listStorage struct {
	vals     []any
	explicit *Schema
	derived  *Schema
}

func newListStorage(values []any, schema *Schema) *listStorage {
	n := len(values)
	if schema != nil && schema.Size() > n {
		n = schema.Size()
	}
	vals := make([]any, n)
	copy(vals, values)
	return &listStorage{vals: vals, explicit: schema}
}

func (s *listStorage) schema() *Schema {
	if s.explicit != nil {
		return s.explicit
	}
	if s.derived == nil {
		s.derived = deriveListSchema(s.vals)
	}
	return s.derived
}

func (s *listStorage) declared() *Schema {
	if s.explicit != nil {
		return s.explicit
	}
	return s.derived
}

func (s *listStorage) values() []any { return s.vals }

func (s *listStorage) get(name string) any {
	i := s.schema().IndexOf(name)
	if i < 0 {
		return nil
	}
	return s.at(i)
}

func (s *listStorage) at(i int) any {
	if i < 0 || i >= len(s.vals) {
		return nil
	}
	return s.vals[i]
}

func (s *listStorage) put(name string, value any) error {
	i := s.schema().IndexOf(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return s.set(i, value)
}

func (s *listStorage) set(i int, value any) error {
	if i < 0 || i >= len(s.vals) {
		return fmt.Errorf("%w: %d", ErrIndexRange, i)
	}
	s.vals[i] = value
	return nil
}

func (s *listStorage) list() []any {
	out := make([]any, len(s.vals))
	copy(out, s.vals)
	return out
}

func (s *listStorage) mapped() map[string]any {
	sch := s.schema()
	out := make(map[string]any, sch.Size())
	for i := 0; i < sch.Size(); i++ {
		out[sch.Field(i).Name] = s.at(i)
	}
	return out
}

// deriveListSchema names positional values: the first geometry value
// becomes "geometry", every other slot "field<N>" where N counts only
// the generated names.
func deriveListSchema(values []any) *Schema {
	b := BuildSchema("feature")
	n := 0
	sawGeom := false
	for _, v := range values {
		if !sawGeom && TypeOf(v) == TypeGeometry {
			b.Field("geometry", TypeGeometry)
			sawGeom = true
			continue
		}
		b.Field(fmt.Sprintf("field%d", n), TypeOf(v))
		n++
	}
	s, _ := b.Schema()
	return s
}

// mapStorage keeps values by name, preserving the order names first
// appeared. Positional access resolves through the schema field order.
type mapStorage struct {
	names    []string
	vals     map[string]any
	explicit *Schema
	derived  *Schema
}

func newMapStorage(values map[string]any, schema *Schema) *mapStorage {
	s := &mapStorage{
		vals:     make(map[string]any, len(values)),
		explicit: schema,
	}
	// Go map iteration is unordered; seed entries in key order so
	// derived schemas come out the same every run.
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.names = append(s.names, name)
		s.vals[name] = values[name]
	}
	return s
}

func (s *mapStorage) schema() *Schema {
	if s.explicit != nil {
		return s.explicit
	}
	if s.derived == nil {
		s.derived = deriveMapSchema(s.names, s.vals)
	}
	return s.derived
}

func (s *mapStorage) declared() *Schema {
	if s.explicit != nil {
		return s.explicit
	}
	return s.derived
}

func (s *mapStorage) values() []any {
	out := make([]any, len(s.names))
	for i, name := range s.names {
		out[i] = s.vals[name]
	}
	return out
}

func (s *mapStorage) get(name string) any { return s.vals[name] }

func (s *mapStorage) at(i int) any {
	sch := s.schema()
	if i < 0 || i >= sch.Size() {
		return nil
	}
	return s.vals[sch.Field(i).Name]
}

func (s *mapStorage) put(name string, value any) error {
	if _, ok := s.vals[name]; !ok {
		s.names = append(s.names, name)
		// A new name stales only the derived schema.
		s.derived = nil
	}
	s.vals[name] = value
	return nil
}

func (s *mapStorage) set(i int, value any) error {
	sch := s.schema()
	if i < 0 || i >= sch.Size() {
		return fmt.Errorf("%w: %d", ErrIndexRange, i)
	}
	return s.put(sch.Field(i).Name, value)
}

func (s *mapStorage) list() []any {
	sch := s.schema()
	out := make([]any, sch.Size())
	for i := range out {
		out[i] = s.vals[sch.Field(i).Name]
	}
	return out
}

func (s *mapStorage) mapped() map[string]any {
	out := make(map[string]any, len(s.vals))
	for name, v := range s.vals {
		out[name] = v
	}
	return out
}

func deriveMapSchema(names []string, vals map[string]any) *Schema {
	b := BuildSchema("feature")
	for _, name := range names {
		b.Field(name, TypeOf(vals[name]))
	}
	s, _ := b.Schema()
	return s
}
