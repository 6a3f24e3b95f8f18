package fgb

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/paulmach/orb"

	"github.com/hjanetzek/jeo/data"
	"github.com/hjanetzek/jeo/feature"
	"github.com/hjanetzek/jeo/proj"
)

func citySchema(t *testing.T) *feature.Schema {
	t.Helper()
	s, err := feature.BuildSchema("cities").
		CRS(proj.WGS84()).
		Field("geometry", feature.TypeGeometry).
		Field("name", feature.TypeString).
		Field("population", feature.TypeInt).
		Field("elevation", feature.TypeFloat).
		Field("capital", feature.TypeBool).
		Schema()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func cityFeatures(s *feature.Schema) []*feature.Feature {
	return []*feature.Feature{
		feature.FromList("1", []any{orb.Point{13.4, 52.5}, "berlin", int64(3645000), 34.0, true}, s),
		feature.FromList("2", []any{orb.Point{8.54, 47.37}, "zurich", int64(415000), 408.0, false}, s),
		feature.FromList("3", []any{orb.Point{2.35, 48.85}, "paris", int64(2161000), 35.0, true}, s),
	}
}

func writeCities(t *testing.T, opts *WriteOptions) []byte {
	t.Helper()
	s := citySchema(t)
	var buf bytes.Buffer
	if err := Write(&buf, s, data.Slice(cityFeatures(s)), opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return buf.Bytes()
}

func TestWriteMagicBytes(t *testing.T) {
	raw := writeCities(t, nil)
	if len(raw) < 8 {
		t.Fatalf("output too short: %d bytes", len(raw))
	}
	magic := []byte{0x66, 0x67, 0x62, 0x03, 0x66, 0x67, 0x62, 0x00}
	if !bytes.Equal(raw[:len(magic)], magic) {
		t.Errorf("expected magic %x, got %x", magic, raw[:len(magic)])
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	ds, err := OpenData(writeCities(t, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ds.Close()

	if ds.Name() != "cities" {
		t.Errorf("expected name cities, got %q", ds.Name())
	}
	if !ds.CRS().Equal(proj.WGS84()) {
		t.Errorf("expected WGS 84, got %v", ds.CRS())
	}

	s := ds.Schema()
	expected := []feature.Field{
		{Name: "geometry", Type: feature.TypeGeometry},
		{Name: "name", Type: feature.TypeString},
		{Name: "population", Type: feature.TypeInt},
		{Name: "elevation", Type: feature.TypeFloat},
		{Name: "capital", Type: feature.TypeBool},
	}
	if s.Size() != len(expected) {
		t.Fatalf("expected %d fields, got %d", len(expected), s.Size())
	}
	for i, want := range expected {
		if got := s.Field(i); got != want {
			t.Errorf("expected %v at %d, got %v", want, i, got)
		}
	}

	n, err := ds.Count(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 features, got %d", n)
	}

	// The index reorders features, so pick one out by name.
	c, err := ds.Cursor(ctx, data.NewQuery().Where(func(f *feature.Feature) bool {
		return f.Get("name") == "zurich"
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := data.Collect(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(got))
	}
	f := got[0]
	if pop := f.Get("population"); pop != int64(415000) {
		t.Errorf("expected population 415000, got %v (%T)", pop, pop)
	}
	if elev := f.Get("elevation"); elev != 408.0 {
		t.Errorf("expected elevation 408, got %v", elev)
	}
	if capital := f.Get("capital"); capital != false {
		t.Errorf("expected capital false, got %v", capital)
	}
	pt, ok := f.Geometry().(orb.Point)
	if !ok {
		t.Fatalf("expected a point, got %T", f.Geometry())
	}
	if pt != (orb.Point{8.54, 47.37}) {
		t.Errorf("expected (8.54, 47.37), got %v", pt)
	}
}

func TestRoundTripGeometryKinds(t *testing.T) {
	s, err := feature.BuildSchema("shapes").
		Field("geometry", feature.TypeGeometry).
		Field("kind", feature.TypeString).
		Schema()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	polyWithHole := orb.Polygon{
		{{0, 0}, {100, 0}, {100, 100}, {0, 100}, {0, 0}},
		{{20, 20}, {80, 20}, {80, 80}, {20, 80}, {20, 20}},
	}
	tests := []struct {
		kind     string
		geom     orb.Geometry
		expected orb.Geometry
	}{
		{"point", orb.Point{1, 2}, orb.Point{1, 2}},
		{"multipoint", orb.MultiPoint{{1, 2}, {3, 4}}, orb.MultiPoint{{1, 2}, {3, 4}}},
		{"linestring", orb.LineString{{0, 0}, {1, 1}, {2, 0}}, orb.LineString{{0, 0}, {1, 1}, {2, 0}}},
		{"multilinestring",
			orb.MultiLineString{{{0, 0}, {1, 1}}, {{5, 5}, {6, 6}, {7, 7}}},
			orb.MultiLineString{{{0, 0}, {1, 1}}, {{5, 5}, {6, 6}, {7, 7}}}},
		{"polygon", polyWithHole, polyWithHole},
		{"multipolygon",
			orb.MultiPolygon{
				{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}},
				{{{50, 50}, {60, 50}, {60, 60}, {50, 60}, {50, 50}}},
			},
			orb.MultiPolygon{
				{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}},
				{{{50, 50}, {60, 50}, {60, 60}, {50, 60}, {50, 50}}},
			}},
		{"collection",
			orb.Collection{orb.Point{1, 1}, orb.LineString{{0, 0}, {2, 2}}},
			orb.Collection{orb.Point{1, 1}, orb.LineString{{0, 0}, {2, 2}}}},
		// Rings and bounds are written as polygons.
		{"ring",
			orb.Ring{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
			orb.Polygon{{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}}},
		{"bound",
			orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 20}},
			orb.Polygon{{{0, 0}, {10, 0}, {10, 20}, {0, 20}, {0, 0}}}},
	}

	var features []*feature.Feature
	for i, tt := range tests {
		features = append(features, feature.FromList(string(rune('a'+i)), []any{tt.geom, tt.kind}, s))
	}

	var buf bytes.Buffer
	if err := Write(&buf, s, data.Slice(features), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ds, err := OpenData(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ds.Close()

	c, err := ds.Cursor(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byKind := make(map[string]orb.Geometry)
	err = data.Each(c, func(f *feature.Feature) error {
		kind, _ := f.Get("kind").(string)
		byKind[kind] = f.Geometry()
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			got, ok := byKind[tt.kind]
			if !ok {
				t.Fatalf("feature missing from file")
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestSearchWindow(t *testing.T) {
	s, err := feature.BuildSchema("grid").
		Field("geometry", feature.TypeGeometry).
		Field("col", feature.TypeInt).
		Field("row", feature.TypeInt).
		Schema()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var features []*feature.Feature
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			features = append(features, feature.FromList("", []any{
				orb.Point{float64(x), float64(y)}, int64(x), int64(y),
			}, s))
		}
	}

	var buf bytes.Buffer
	if err := Write(&buf, s, data.Slice(features), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ds, err := OpenData(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ds.Close()

	q := data.NewQuery().Within(orb.Bound{Min: orb.Point{2, 2}, Max: orb.Point{4, 4}})
	n, err := ds.Count(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Columns 2..4 crossed with rows 2..4.
	if n != 9 {
		t.Errorf("expected 9 features, got %d", n)
	}
}

func TestCursorLimit(t *testing.T) {
	ds, err := OpenData(writeCities(t, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ds.Close()

	c, err := ds.Cursor(context.Background(), data.NewQuery().Limit(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := data.Collect(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 features, got %d", len(got))
	}
}

func TestCursorNoIndex(t *testing.T) {
	ds, err := OpenData(writeCities(t, &WriteOptions{IncludeIndex: false}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ds.Close()

	// The header still answers counts.
	n, err := ds.Count(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 features, got %d", n)
	}

	if _, err := ds.Cursor(context.Background(), nil); !errors.Is(err, ErrNoIndex) {
		t.Errorf("expected ErrNoIndex, got %v", err)
	}
}

func TestClosedDataset(t *testing.T) {
	ds, err := OpenData(writeCities(t, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ds.Cursor(context.Background(), nil); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := ds.Count(context.Background(), nil); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.fgb")
	if err := os.WriteFile(path, writeCities(t, nil), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ds, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ds.Close()

	// The header name wins over the file name.
	if ds.Name() != "cities" {
		t.Errorf("expected name cities, got %q", ds.Name())
	}
	n, err := ds.Count(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 features, got %d", n)
	}
}

func TestOpenFileNameFallback(t *testing.T) {
	s, err := feature.BuildSchema("").
		Field("geometry", feature.TypeGeometry).
		Schema()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fs := []*feature.Feature{feature.FromList("1", []any{orb.Point{1, 2}}, s)}

	var buf bytes.Buffer
	if err := Write(&buf, s, data.Slice(fs), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "parcels.fgb")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ds, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ds.Close()
	if ds.Name() != "parcels" {
		t.Errorf("expected name parcels, got %q", ds.Name())
	}
}

func TestWriteRequiresGeometryField(t *testing.T) {
	s, err := feature.BuildSchema("bare").
		Field("name", feature.TypeString).
		Schema()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = Write(&bytes.Buffer{}, s, data.Empty[*feature.Feature](), nil)
	if !errors.Is(err, ErrNoGeometryField) {
		t.Errorf("expected ErrNoGeometryField, got %v", err)
	}

	err = Write(&bytes.Buffer{}, nil, data.Empty[*feature.Feature](), nil)
	if !errors.Is(err, ErrNoGeometryField) {
		t.Errorf("expected ErrNoGeometryField, got %v", err)
	}
}

func TestWriteSkipsGeometrylessFeatures(t *testing.T) {
	s := citySchema(t)
	features := []*feature.Feature{
		feature.FromList("1", []any{nil, "ghost", int64(0), 0.0, false}, s),
		feature.FromList("2", []any{orb.Point{1, 1}, "real", int64(1), 1.0, false}, s),
	}

	var buf bytes.Buffer
	if err := Write(&buf, s, data.Slice(features), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ds, err := OpenData(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ds.Close()

	n, err := ds.Count(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 feature, got %d", n)
	}
}

func TestOpenDataInvalid(t *testing.T) {
	if _, err := OpenData([]byte("not a flatgeobuf")); err == nil {
		t.Errorf("expected an error")
	}
	if _, err := OpenData(nil); err == nil {
		t.Errorf("expected an error")
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "absent.fgb")); err == nil {
		t.Errorf("expected an error")
	}
}

func TestBoundsFromEnvelope(t *testing.T) {
	ds, err := OpenData(writeCities(t, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ds.Close()

	b, err := ds.Bounds(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Cities span Paris to Berlin.
	if b.Min[0] > 2.36 || b.Max[0] < 13.39 {
		t.Errorf("expected envelope to cover 2.35..13.4, got %v", b)
	}
}
