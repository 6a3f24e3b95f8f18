package geojson

import (
	"io"

	"github.com/paulmach/orb"
	orbjson "github.com/paulmach/orb/geojson"

	"github.com/hjanetzek/jeo/data"
	"github.com/hjanetzek/jeo/feature"
)

// Write drains c and encodes the features as a GeoJSON feature
// collection. Geometry-typed values become each feature's geometry;
// everything else lands in properties.
func Write(w io.Writer, c data.Cursor[*feature.Feature]) error {
	defer c.Close()

	fc := orbjson.NewFeatureCollection()
	for c.Next() {
		f := c.Value()
		of := orbjson.NewFeature(f.Geometry())
		of.ID = f.ID()
		for name, v := range f.Map() {
			if _, ok := v.(orb.Geometry); ok {
				continue
			}
			of.Properties[name] = v
		}
		fc.Append(of)
	}
	if err := c.Err(); err != nil {
		return err
	}

	raw, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}
