package workspace

import (
	"path/filepath"
	"strings"

	"github.com/hjanetzek/jeo/data"
	"github.com/hjanetzek/jeo/fgb"
	"github.com/hjanetzek/jeo/geojson"
)

func init() {
	Register(geojsonDriver{})
	Register(fgbDriver{})
}

// ext returns the lowercased extension of path, looking through a
// trailing .gz.
func ext(path string) string {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimSuffix(name, ".gz")
	return filepath.Ext(name)
}

type geojsonDriver struct{}

func (geojsonDriver) Name() string      { return "geojson" }
func (geojsonDriver) Aliases() []string { return []string{"json"} }

func (geojsonDriver) CanOpen(path string) bool {
	e := ext(path)
	return e == ".geojson" || e == ".json"
}

func (geojsonDriver) Open(path string) (data.Dataset, error) {
	ds, err := geojson.Open(path)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

type fgbDriver struct{}

func (fgbDriver) Name() string      { return "fgb" }
func (fgbDriver) Aliases() []string { return []string{"flatgeobuf"} }

// CanOpen does not look through .gz: FlatGeobuf files are read by
// offset and must be stored uncompressed.
func (fgbDriver) CanOpen(path string) bool {
	return filepath.Ext(strings.ToLower(path)) == ".fgb"
}

func (fgbDriver) Open(path string) (data.Dataset, error) {
	ds, err := fgb.Open(path)
	if err != nil {
		return nil, err
	}
	return ds, nil
}
