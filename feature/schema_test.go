package feature

import (
	"errors"
	"testing"

	"github.com/hjanetzek/jeo/proj"
)

func TestNewSchema(t *testing.T) {
	s, err := NewSchema("roads",
		Field{"geometry", TypeGeometry},
		Field{"name", TypeString},
		Field{"lanes", TypeInt},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Name() != "roads" {
		t.Errorf("expected name roads, got %s", s.Name())
	}
	if s.Size() != 3 {
		t.Errorf("expected 3 fields, got %d", s.Size())
	}
	if i := s.IndexOf("lanes"); i != 2 {
		t.Errorf("expected index 2, got %d", i)
	}
	if i := s.IndexOf("nope"); i != -1 {
		t.Errorf("expected -1 for unknown field, got %d", i)
	}
}

func TestNewSchema_DuplicateField(t *testing.T) {
	_, err := NewSchema("bad", Field{"a", TypeInt}, Field{"a", TypeString})
	if !errors.Is(err, ErrDuplicateField) {
		t.Errorf("expected ErrDuplicateField, got %v", err)
	}
}

func TestSchema_Field(t *testing.T) {
	s, _ := NewSchema("s", Field{"a", TypeInt})

	if f := s.Field(0); f.Name != "a" {
		t.Errorf("expected field a, got %v", f)
	}
	if f := s.Field(1); f != (Field{}) {
		t.Errorf("expected zero field out of range, got %v", f)
	}
	if f := s.Field(-1); f != (Field{}) {
		t.Errorf("expected zero field for negative index, got %v", f)
	}
}

func TestSchema_Geometry(t *testing.T) {
	s, _ := NewSchema("s",
		Field{"name", TypeString},
		Field{"geom", TypeGeometry},
		Field{"other", TypeGeometry},
	)

	f, ok := s.Geometry()
	if !ok {
		t.Fatal("expected a geometry field")
	}
	if f.Name != "geom" {
		t.Errorf("expected first geometry field geom, got %s", f.Name)
	}

	flat, _ := NewSchema("flat", Field{"name", TypeString})
	if _, ok := flat.Geometry(); ok {
		t.Error("expected no geometry field")
	}
}

func TestSchema_FieldsCopy(t *testing.T) {
	s, _ := NewSchema("s", Field{"a", TypeInt})
	fields := s.Fields()
	fields[0].Name = "mutated"

	if s.Field(0).Name != "a" {
		t.Error("mutating the returned slice changed the schema")
	}
}

func TestSchemaBuilder(t *testing.T) {
	s, err := BuildSchema("parcels").
		CRS(proj.WGS84()).
		Field("geometry", TypeGeometry).
		Field("owner", TypeString).
		Schema()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Size() != 2 {
		t.Errorf("expected 2 fields, got %d", s.Size())
	}
	if !s.CRS().Equal(proj.WGS84()) {
		t.Errorf("expected EPSG:4326, got %v", s.CRS())
	}
	if got := s.String(); got != "parcels[geometry:Geometry,owner:String]" {
		t.Errorf("unexpected string form: %s", got)
	}
}

func TestSchemaBuilder_Duplicate(t *testing.T) {
	_, err := BuildSchema("bad").
		Field("x", TypeInt).
		Fields(Field{"x", TypeFloat}).
		Schema()
	if !errors.Is(err, ErrDuplicateField) {
		t.Errorf("expected ErrDuplicateField, got %v", err)
	}
}
