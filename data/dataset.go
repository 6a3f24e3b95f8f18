// Package data defines the access contracts shared by every dataset
// backend: generic cursors, feature queries, vector and tile dataset
// interfaces, and in-memory implementations of both.
package data

import (
	"context"
	"errors"

	"github.com/paulmach/orb"

	"github.com/hjanetzek/jeo/feature"
	"github.com/hjanetzek/jeo/proj"
)

var (
	// ErrInvalidRange is returned when a tile range holds a value
	// below Unbounded.
	ErrInvalidRange = errors.New("data: invalid tile range")

	// ErrNoGrid is returned when a tile names a zoom level the
	// dataset has no grid for.
	ErrNoGrid = errors.New("data: no grid for zoom")

	// ErrOutsideGrid is returned when a tile's column or row falls
	// outside its grid.
	ErrOutsideGrid = errors.New("data: tile outside grid")
)

// Dataset is the surface every backend shares.
type Dataset interface {
	// Name identifies the dataset within its workspace.
	Name() string
	// CRS returns the coordinate system data is stored in, or nil
	// when unknown.
	CRS() *proj.CRS
	// Bounds returns the extent of the data in its own CRS.
	Bounds(ctx context.Context) (orb.Bound, error)
	// Close releases underlying resources.
	Close() error
}

// VectorDataset holds features.
type VectorDataset interface {
	Dataset

	// Schema describes the features, or nil when the dataset is
	// empty and schemaless.
	Schema() *feature.Schema
	// Count returns the number of features matching q. A nil q
	// counts everything.
	Count(ctx context.Context, q *Query) (int, error)
	// Cursor reads the features matching q. A nil q reads everything.
	Cursor(ctx context.Context, q *Query) (Cursor[*feature.Feature], error)
}

// TileSet holds pre-rendered tiles in one or more grids.
type TileSet interface {
	Dataset

	// Grids returns the tile grids, ordered by ascending zoom.
	Grids() []TileGrid
	// Grid returns the grid for zoom z. ok is false when the set has
	// no grid at that zoom.
	Grid(z int) (TileGrid, bool)
	// Read returns the tile at z, x, y, or (nil, nil) when no tile
	// is stored there.
	Read(ctx context.Context, z, x, y int) (*Tile, error)
	// ReadRange reads every stored tile within r, ordered by zoom,
	// then row, then column.
	ReadRange(ctx context.Context, r TileRange) (Cursor[Tile], error)
}

// Extent drains c and returns the union of the feature bounds. ok is
// false when no feature had a geometry.
func Extent(c Cursor[*feature.Feature]) (orb.Bound, bool, error) {
	defer c.Close()
	var b orb.Bound
	ok := false
	for c.Next() {
		g := c.Value().Geometry()
		if g == nil {
			continue
		}
		if !ok {
			b = g.Bound()
			ok = true
			continue
		}
		b = b.Union(g.Bound())
	}
	return b, ok, c.Err()
}
