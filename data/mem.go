package data

import (
	"context"
	"fmt"
	"sync"

	"github.com/paulmach/orb"

	"github.com/hjanetzek/jeo/feature"
	"github.com/hjanetzek/jeo/proj"
)

// MemVector is an in-memory VectorDataset, mainly for tests and small
// derived collections.
type MemVector struct {
	name   string
	schema *feature.Schema
	crs    *proj.CRS

	mu       sync.RWMutex
	features []*feature.Feature
}

// NewMemVector returns an empty in-memory dataset. schema may be nil
// for a schemaless collection.
func NewMemVector(name string, schema *feature.Schema) *MemVector {
	v := &MemVector{name: name, schema: schema}
	if schema != nil {
		v.crs = schema.CRS()
	}
	return v
}

func (v *MemVector) Name() string { return v.name }

func (v *MemVector) CRS() *proj.CRS { return v.crs }

func (v *MemVector) Schema() *feature.Schema { return v.schema }

// Add appends features to the collection.
func (v *MemVector) Add(fs ...*feature.Feature) {
	v.mu.Lock()
	v.features = append(v.features, fs...)
	v.mu.Unlock()
}

func (v *MemVector) snapshot() []*feature.Feature {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]*feature.Feature, len(v.features))
	copy(out, v.features)
	return out
}

func (v *MemVector) Bounds(ctx context.Context) (orb.Bound, error) {
	b, _, err := Extent(Slice(v.snapshot()))
	return b, err
}

func (v *MemVector) Count(ctx context.Context, q *Query) (int, error) {
	c, err := v.Cursor(ctx, q)
	if err != nil {
		return 0, err
	}
	return Count(c)
}

func (v *MemVector) Cursor(ctx context.Context, q *Query) (Cursor[*feature.Feature], error) {
	return q.Apply(Slice(v.snapshot())), nil
}

func (v *MemVector) Close() error { return nil }

// MemTileSet is an in-memory TileSet.
type MemTileSet struct {
	name  string
	crs   *proj.CRS
	grids []TileGrid

	mu    sync.RWMutex
	tiles map[[3]int]Tile
}

// NewMemTileSet returns an empty tile set over the given grids.
func NewMemTileSet(name string, crs *proj.CRS, grids []TileGrid) *MemTileSet {
	return &MemTileSet{
		name:  name,
		crs:   crs,
		grids: sortGrids(grids),
		tiles: make(map[[3]int]Tile),
	}
}

func (s *MemTileSet) Name() string { return s.name }

func (s *MemTileSet) CRS() *proj.CRS { return s.crs }

// Grids returns the pyramid, ordered by ascending zoom.
func (s *MemTileSet) Grids() []TileGrid {
	out := make([]TileGrid, len(s.grids))
	copy(out, s.grids)
	return out
}

// Grid returns the grid for zoom z.
func (s *MemTileSet) Grid(z int) (TileGrid, bool) {
	for _, g := range s.grids {
		if g.Zoom == z {
			return g, true
		}
	}
	return TileGrid{}, false
}

// Put stores t, replacing any tile already at its address.
func (s *MemTileSet) Put(t Tile) error {
	g, ok := s.Grid(t.Z)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoGrid, t.Z)
	}
	if t.X < 0 || t.X >= g.Width || t.Y < 0 || t.Y >= g.Height {
		return fmt.Errorf("%w: %s", ErrOutsideGrid, t)
	}
	s.mu.Lock()
	s.tiles[[3]int{t.Z, t.X, t.Y}] = t
	s.mu.Unlock()
	return nil
}

func (s *MemTileSet) Bounds(ctx context.Context) (orb.Bound, error) {
	if len(s.grids) == 0 {
		return orb.Bound{}, nil
	}
	return s.grids[0].Bounds, nil
}

func (s *MemTileSet) Read(ctx context.Context, z, x, y int) (*Tile, error) {
	s.mu.RLock()
	t, ok := s.tiles[[3]int{z, x, y}]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// ReadTile makes the set usable as a TileReader.
func (s *MemTileSet) ReadTile(ctx context.Context, z, x, y int) (*Tile, error) {
	return s.Read(ctx, z, x, y)
}

func (s *MemTileSet) ReadRange(ctx context.Context, r TileRange) (Cursor[Tile], error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return GridRange(ctx, s.grids, r, s), nil
}

func (s *MemTileSet) Close() error { return nil }
