package fgb

import (
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// geometryType maps an orb geometry to its wire geometry type. Rings
// and bounds travel as polygons.
func geometryType(g orb.Geometry) flattypes.GeometryType {
	switch g.(type) {
	case orb.Point:
		return flattypes.GeometryTypePoint
	case orb.MultiPoint:
		return flattypes.GeometryTypeMultiPoint
	case orb.LineString:
		return flattypes.GeometryTypeLineString
	case orb.MultiLineString:
		return flattypes.GeometryTypeMultiLineString
	case orb.Ring, orb.Polygon, orb.Bound:
		return flattypes.GeometryTypePolygon
	case orb.MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon
	case orb.Collection:
		return flattypes.GeometryTypeGeometryCollection
	}
	return flattypes.GeometryTypeUnknown
}

// packPoints flattens points into the interleaved xy layout.
func packPoints(pts []orb.Point) []float64 {
	xy := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		xy = append(xy, p[0], p[1])
	}
	return xy
}

// packParts flattens multi-part point sequences into one xy array and
// the cumulative point count where each part ends.
func packParts[S ~[]orb.Point](parts []S) ([]float64, []uint32) {
	total := 0
	for _, part := range parts {
		total += len(part)
	}
	xy := make([]float64, 0, total*2)
	ends := make([]uint32, 0, len(parts))
	n := uint32(0)
	for _, part := range parts {
		for _, p := range part {
			xy = append(xy, p[0], p[1])
		}
		n += uint32(len(part))
		ends = append(ends, n)
	}
	return xy, ends
}

// encodeGeometry converts an orb geometry for writing. It returns nil
// when the geometry type has no wire form.
func encodeGeometry(g orb.Geometry, b *flatbuffers.Builder) *writer.Geometry {
	if g == nil {
		return nil
	}

	wg := writer.NewGeometry(b)

	switch v := g.(type) {
	case orb.Point:
		wg.SetType(flattypes.GeometryTypePoint)
		wg.SetXY([]float64{v[0], v[1]})

	case orb.MultiPoint:
		wg.SetType(flattypes.GeometryTypeMultiPoint)
		wg.SetXY(packPoints(v))

	case orb.LineString:
		wg.SetType(flattypes.GeometryTypeLineString)
		wg.SetXY(packPoints(v))

	case orb.MultiLineString:
		wg.SetType(flattypes.GeometryTypeMultiLineString)
		xy, ends := packParts(v)
		wg.SetXY(xy)
		wg.SetEnds(ends)

	case orb.Ring:
		return encodeGeometry(orb.Polygon{v}, b)

	case orb.Polygon:
		wg.SetType(flattypes.GeometryTypePolygon)
		xy, ends := packParts(v)
		wg.SetXY(xy)
		wg.SetEnds(ends)

	case orb.MultiPolygon:
		wg.SetType(flattypes.GeometryTypeMultiPolygon)
		parts := make([]writer.Geometry, 0, len(v))
		for _, poly := range v {
			pg := writer.NewGeometry(b)
			pg.SetType(flattypes.GeometryTypePolygon)
			xy, ends := packParts(poly)
			pg.SetXY(xy)
			pg.SetEnds(ends)
			parts = append(parts, *pg)
		}
		wg.SetParts(parts)

	case orb.Collection:
		wg.SetType(flattypes.GeometryTypeGeometryCollection)
		parts := make([]writer.Geometry, 0, len(v))
		for _, child := range v {
			if cg := encodeGeometry(child, b); cg != nil {
				parts = append(parts, *cg)
			}
		}
		wg.SetParts(parts)

	case orb.Bound:
		return encodeGeometry(v.ToPolygon(), b)

	default:
		return nil
	}

	return wg
}

// decodeGeometry converts a wire geometry back to orb. It returns nil
// for empty or unknown geometries.
func decodeGeometry(fg *flattypes.Geometry) orb.Geometry {
	if fg == nil {
		return nil
	}

	switch fg.Type() {
	case flattypes.GeometryTypePoint:
		pts := unpackPoints(fg)
		if len(pts) == 0 {
			return nil
		}
		return pts[0]

	case flattypes.GeometryTypeMultiPoint:
		return orb.MultiPoint(unpackPoints(fg))

	case flattypes.GeometryTypeLineString:
		return orb.LineString(unpackPoints(fg))

	case flattypes.GeometryTypeMultiLineString:
		parts := unpackParts(fg)
		mls := make(orb.MultiLineString, len(parts))
		for i, p := range parts {
			mls[i] = orb.LineString(p)
		}
		return mls

	case flattypes.GeometryTypePolygon:
		return decodePolygon(fg)

	case flattypes.GeometryTypeMultiPolygon:
		return decodeMultiPolygon(fg)

	case flattypes.GeometryTypeGeometryCollection:
		return decodeCollection(fg)
	}

	return nil
}

func decodePolygon(fg *flattypes.Geometry) orb.Polygon {
	parts := unpackParts(fg)
	poly := make(orb.Polygon, len(parts))
	for i, p := range parts {
		poly[i] = orb.Ring(p)
	}
	return poly
}

func decodeMultiPolygon(fg *flattypes.Geometry) orb.MultiPolygon {
	n := fg.PartsLength()
	if n == 0 {
		// Single-part encodings carry the rings inline.
		poly := decodePolygon(fg)
		if len(poly) == 0 {
			return orb.MultiPolygon{}
		}
		return orb.MultiPolygon{poly}
	}

	mp := make(orb.MultiPolygon, 0, n)
	for i := 0; i < n; i++ {
		var part flattypes.Geometry
		if !fg.Parts(&part, i) {
			continue
		}
		if poly := decodePolygon(&part); len(poly) > 0 {
			mp = append(mp, poly)
		}
	}
	return mp
}

func decodeCollection(fg *flattypes.Geometry) orb.Collection {
	n := fg.PartsLength()
	coll := make(orb.Collection, 0, n)
	for i := 0; i < n; i++ {
		var part flattypes.Geometry
		if !fg.Parts(&part, i) {
			continue
		}
		if g := decodeGeometry(&part); g != nil {
			coll = append(coll, g)
		}
	}
	return coll
}

// unpackPoints reads the interleaved xy array back into points.
func unpackPoints(fg *flattypes.Geometry) []orb.Point {
	n := fg.XyLength()
	pts := make([]orb.Point, 0, n/2)
	for i := 0; i+1 < n; i += 2 {
		pts = append(pts, orb.Point{fg.Xy(i), fg.Xy(i + 1)})
	}
	return pts
}

// unpackParts splits the xy array at the recorded part ends. Without
// an ends array all points form a single part.
func unpackParts(fg *flattypes.Geometry) [][]orb.Point {
	pts := unpackPoints(fg)
	n := fg.EndsLength()
	if n == 0 {
		if len(pts) == 0 {
			return nil
		}
		return [][]orb.Point{pts}
	}

	parts := make([][]orb.Point, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		end := int(fg.Ends(i))
		if end > len(pts) {
			end = len(pts)
		}
		if start > end {
			break
		}
		parts = append(parts, pts[start:end])
		start = end
	}
	return parts
}
