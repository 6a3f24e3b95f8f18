package fgb

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"

	"github.com/hjanetzek/jeo/data"
	"github.com/hjanetzek/jeo/feature"
	"github.com/hjanetzek/jeo/proj"
)

var _ data.VectorDataset = (*Dataset)(nil)

// Dataset reads features from a FlatGeobuf file. Files opened by path
// are memory-mapped; reads decode only the features a query touches.
type Dataset struct {
	name   string
	fgb    *flatgeobuf.FlatGeoBuf
	header *flattypes.Header
	schema *feature.Schema
	types  []flattypes.ColumnType
}

// Open memory-maps the FlatGeobuf file at path. The dataset takes its
// name from the header, falling back to the file name.
func Open(path string) (*Dataset, error) {
	fgb, err := flatgeobuf.New(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(path)
	return newDataset(strings.TrimSuffix(base, filepath.Ext(base)), fgb)
}

// OpenData reads a FlatGeobuf payload held in memory.
func OpenData(raw []byte) (*Dataset, error) {
	fgb, err := flatgeobuf.NewWithData(raw)
	if err != nil {
		return nil, err
	}
	return newDataset("features", fgb)
}

func newDataset(name string, fgb *flatgeobuf.FlatGeoBuf) (*Dataset, error) {
	h := fgb.Header()
	if h == nil {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidData)
	}
	if n := string(h.Name()); n != "" {
		name = n
	}
	schema, types, err := headerSchema(name, h)
	if err != nil {
		return nil, err
	}
	return &Dataset{name: name, fgb: fgb, header: h, schema: schema, types: types}, nil
}

// Name returns the dataset name.
func (ds *Dataset) Name() string { return ds.name }

// CRS returns the reference system recorded in the header, or nil.
func (ds *Dataset) CRS() *proj.CRS { return ds.schema.CRS() }

// Schema describes the features: a geometry field, then the file's
// columns in order.
func (ds *Dataset) Schema() *feature.Schema { return ds.schema }

// Bounds returns the envelope recorded in the header.
func (ds *Dataset) Bounds(ctx context.Context) (orb.Bound, error) {
	b, _ := ds.envelope()
	return b, nil
}

func (ds *Dataset) envelope() (orb.Bound, bool) {
	if ds.header.EnvelopeLength() < 4 {
		return orb.Bound{}, false
	}
	return orb.Bound{
		Min: orb.Point{ds.header.Envelope(0), ds.header.Envelope(1)},
		Max: orb.Point{ds.header.Envelope(2), ds.header.Envelope(3)},
	}, true
}

// Count returns the number of features matching q. Without a query
// the header count answers directly.
func (ds *Dataset) Count(ctx context.Context, q *data.Query) (int, error) {
	if ds.fgb == nil {
		return 0, ErrClosed
	}
	if q == nil {
		return int(ds.header.FeaturesCount()), nil
	}
	c, err := ds.Cursor(ctx, q)
	if err != nil {
		return 0, err
	}
	return data.Count(c)
}

// Cursor reads the features matching q through the spatial index. The
// query's bounds become the index window; without bounds the whole
// envelope is read.
func (ds *Dataset) Cursor(ctx context.Context, q *data.Query) (data.Cursor[*feature.Feature], error) {
	if ds.fgb == nil {
		return nil, ErrClosed
	}
	if ds.header.IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}

	window, ok := q.Bounds()
	if !ok {
		env, ok := ds.envelope()
		if !ok {
			// No envelope to scan by, so nothing is reachable.
			return q.Apply(data.Empty[*feature.Feature]()), nil
		}
		window = env
	}

	raw, err := ds.fgb.Search(window.Min[0], window.Min[1], window.Max[0], window.Max[1])
	if err != nil {
		return nil, err
	}
	return q.Apply(&featureCursor{ds: ds, raw: raw}), nil
}

// Close detaches the underlying file. The mapping itself is released
// when the garbage collector finalizes it.
func (ds *Dataset) Close() error {
	ds.fgb = nil
	return nil
}

// decodeFeature converts a wire feature. A feature whose geometry has
// no orb form decodes to nil and is skipped.
func (ds *Dataset) decodeFeature(raw *flattypes.Feature, i int) (*feature.Feature, error) {
	var fg flattypes.Geometry
	g := decodeGeometry(raw.Geometry(&fg))
	if g == nil {
		return nil, nil
	}

	values := make([]any, ds.schema.Size())
	values[0] = g
	if n := raw.PropertiesLength(); n > 0 && len(ds.types) > 0 {
		blob := make([]byte, n)
		for j := 0; j < n; j++ {
			blob[j] = byte(raw.Properties(j))
		}
		cols, err := decodeValues(blob, ds.types)
		if err != nil {
			return nil, err
		}
		copy(values[1:], cols)
	}

	return feature.FromList(strconv.Itoa(i), values, ds.schema), nil
}

// featureCursor decodes index search results one at a time.
type featureCursor struct {
	ds  *Dataset
	raw []*flattypes.Feature
	pos int
	cur *feature.Feature
	err error
}

func (c *featureCursor) Next() bool {
	if c.err != nil {
		return false
	}
	for c.pos < len(c.raw) {
		f, err := c.ds.decodeFeature(c.raw[c.pos], c.pos)
		c.pos++
		if err != nil {
			c.err = err
			return false
		}
		if f == nil {
			continue
		}
		c.cur = f
		return true
	}
	return false
}

func (c *featureCursor) Value() *feature.Feature { return c.cur }
func (c *featureCursor) Err() error              { return c.err }
func (c *featureCursor) Close() error            { return nil }
