// Package geojson reads GeoJSON feature collections as vector datasets
// and writes feature cursors back out as GeoJSON. Collections are held
// in memory; the format carries no index to read through.
package geojson

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb"
	orbjson "github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/hjanetzek/jeo/data"
	"github.com/hjanetzek/jeo/feature"
	"github.com/hjanetzek/jeo/proj"
)

// Option adjusts how a dataset is loaded.
type Option func(*options)

type options struct {
	name string
	log  *zap.Logger
}

// WithName overrides the dataset name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger routes load diagnostics to log.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

var _ data.VectorDataset = (*Dataset)(nil)

// Dataset is a feature collection loaded from GeoJSON.
type Dataset struct {
	name     string
	schema   *feature.Schema
	features []*feature.Feature

	bounds    orb.Bound
	hasBounds bool
}

// Open loads the GeoJSON file at path. Files ending in .gz are
// decompressed on the fly. The dataset is named after the file unless
// WithName says otherwise.
func Open(path string, opts ...Option) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	name := filepath.Base(path)
	if strings.HasSuffix(name, ".gz") {
		name = strings.TrimSuffix(name, ".gz")
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return Decode(r, append([]Option{WithName(name)}, opts...)...)
}

// Decode loads a GeoJSON feature collection from r.
func Decode(r io.Reader, opts ...Option) (*Dataset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := orbjson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, err
	}
	return FromCollection(fc, opts...)
}

// FromCollection wraps an in-memory feature collection as a dataset.
// The schema is derived from the collection: a geometry field first,
// then the property keys in sorted order, each typed by promoting the
// value types seen across all features. Each feature keeps its parsed
// property map, so positional access resolves through the schema and
// properties a feature never had read as nil.
func FromCollection(fc *orbjson.FeatureCollection, opts ...Option) (*Dataset, error) {
	o := options{name: "features", log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	schema, err := collectionSchema(o.name, fc)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{name: o.name, schema: schema}
	for i, of := range fc.Features {
		values := make(map[string]any, 1+len(of.Properties))
		if of.Geometry != nil {
			values["geometry"] = of.Geometry
		}
		for key, v := range of.Properties {
			values[key] = v
		}
		ds.features = append(ds.features, feature.FromMap(featureID(of, i), values, schema))

		if of.Geometry == nil {
			continue
		}
		b := of.Geometry.Bound()
		if !ds.hasBounds {
			ds.bounds = b
			ds.hasBounds = true
		} else {
			ds.bounds = ds.bounds.Union(b)
		}
	}

	o.log.Debug("loaded feature collection",
		zap.String("name", o.name),
		zap.Int("features", len(ds.features)),
		zap.Int("fields", schema.Size()))
	return ds, nil
}

// collectionSchema derives the dataset schema: a geometry field first,
// then the property keys in sorted order.
func collectionSchema(name string, fc *orbjson.FeatureCollection) (*feature.Schema, error) {
	types := make(map[string]feature.Type)
	for _, of := range fc.Features {
		for key, v := range of.Properties {
			if t, seen := types[key]; seen {
				types[key] = feature.PromoteType(t, feature.TypeOf(v))
			} else {
				types[key] = feature.TypeOf(v)
			}
		}
	}
	keys := make([]string, 0, len(types))
	for key := range types {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	b := feature.BuildSchema(name).
		CRS(proj.WGS84()).
		Field("geometry", feature.TypeGeometry)
	for _, key := range keys {
		b.Field(key, types[key])
	}
	s, err := b.Schema()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// featureID keeps GeoJSON ids, falling back to the feature's position
// in the collection.
func featureID(of *orbjson.Feature, i int) string {
	if of.ID == nil {
		return strconv.Itoa(i)
	}
	if f, ok := of.ID.(float64); ok && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	if s, ok := of.ID.(string); ok {
		return s
	}
	return strconv.Itoa(i)
}

// Name returns the dataset name.
func (ds *Dataset) Name() string { return ds.name }

// CRS returns WGS 84. GeoJSON coordinates are lon/lat per RFC 7946.
func (ds *Dataset) CRS() *proj.CRS { return ds.schema.CRS() }

// Schema describes the features.
func (ds *Dataset) Schema() *feature.Schema { return ds.schema }

// Bounds returns the extent of the loaded geometries.
func (ds *Dataset) Bounds(ctx context.Context) (orb.Bound, error) {
	return ds.bounds, nil
}

// Count returns the number of features matching q.
func (ds *Dataset) Count(ctx context.Context, q *data.Query) (int, error) {
	if q == nil {
		return len(ds.features), nil
	}
	c, err := ds.Cursor(ctx, q)
	if err != nil {
		return 0, err
	}
	return data.Count(c)
}

// Cursor reads the features matching q.
func (ds *Dataset) Cursor(ctx context.Context, q *data.Query) (data.Cursor[*feature.Feature], error) {
	return q.Apply(data.Slice(ds.features)), nil
}

// Close is a no-op; the collection lives in memory.
func (ds *Dataset) Close() error { return nil }
