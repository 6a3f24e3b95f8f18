package fgb

import (
	"io"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/hjanetzek/jeo/data"
	"github.com/hjanetzek/jeo/feature"
)

// Write drains c and encodes the features as FlatGeobuf. The schema
// must declare a geometry field; every other field becomes a column.
// The header's geometry type stays Unknown so features of mixed types
// can share a file.
func Write(w io.Writer, schema *feature.Schema, c data.Cursor[*feature.Feature], opts *WriteOptions) error {
	defer c.Close()
	if opts == nil {
		opts = DefaultWriteOptions()
	}
	if schema == nil {
		return ErrNoGeometryField
	}
	if _, ok := schema.Geometry(); !ok {
		return ErrNoGeometryField
	}

	builder := flatbuffers.NewBuilder(4096)

	header := writer.NewHeader(builder)
	header.SetGeometryType(flattypes.GeometryTypeUnknown)
	name := opts.Name
	if name == "" {
		name = schema.Name()
	}
	if name != "" {
		header.SetName(name)
	}
	if opts.Description != "" {
		header.SetDescription(opts.Description)
	}

	cols, names, types := buildColumns(builder, schema)
	if len(cols) > 0 {
		header.SetColumns(cols)
	}

	if crs := schema.CRS(); crs != nil && crs.Code > 0 {
		rec := writer.NewCrs(builder)
		rec.SetOrg("EPSG")
		rec.SetCode(int32(crs.Code))
		if crs.Name != "" {
			rec.SetName(crs.Name)
		}
		header.SetCrs(rec)
	}

	gen := &cursorGenerator{cur: c, names: names, types: types}
	fw := writer.NewWriter(header, opts.IncludeIndex, gen, nil)
	if _, err := fw.Write(w); err != nil {
		return err
	}
	return c.Err()
}

// buildColumns creates one column per non-geometry field, keeping the
// schema's field order.
func buildColumns(b *flatbuffers.Builder, s *feature.Schema) ([]*writer.Column, []string, []flattypes.ColumnType) {
	var cols []*writer.Column
	var names []string
	var types []flattypes.ColumnType
	for _, fld := range s.Fields() {
		if fld.IsGeometry() {
			continue
		}
		ct := columnType(fld.Type)
		col := writer.NewColumn(b)
		col.SetName(fld.Name)
		col.SetTitle(fld.Name)
		col.SetType(ct)
		col.SetNullable(true)
		cols = append(cols, col)
		names = append(names, fld.Name)
		types = append(types, ct)
	}
	return cols, names, types
}

// cursorGenerator feeds the FlatGeobuf writer from a feature cursor.
// Features without a geometry, or with one that has no wire form, are
// skipped.
type cursorGenerator struct {
	cur   data.Cursor[*feature.Feature]
	names []string
	types []flattypes.ColumnType
}

func (g *cursorGenerator) Generate() *writer.Feature {
	for g.cur.Next() {
		f := g.cur.Value()
		geom := f.Geometry()
		if geom == nil {
			continue
		}

		b := flatbuffers.NewBuilder(1024)
		wg := encodeGeometry(geom, b)
		if wg == nil {
			continue
		}

		wf := writer.NewFeature(b)
		wf.SetGeometry(wg)

		if len(g.names) > 0 {
			values := make([]any, len(g.names))
			for i, name := range g.names {
				values[i] = f.Get(name)
			}
			if props := encodeValues(values, g.types); len(props) > 0 {
				wf.SetProperties(props)
			}
		}

		return wf
	}
	return nil
}
