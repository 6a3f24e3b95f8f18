package data

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/project"
)

// Unbounded marks a tile range dimension as unconstrained.
const Unbounded = -1

// Tile is one stored tile. Row 0 is the bottom of the grid (TMS
// order).
type Tile struct {
	Z    int    // zoom level
	X    int    // column
	Y    int    // row
	Data []byte // encoded payload
	Mime string // payload content type
}

func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// TileGrid describes one zoom level of a tile pyramid.
type TileGrid struct {
	Zoom       int       // level within the pyramid
	Width      int       // columns
	Height     int       // rows
	TileWidth  int       // tile width in pixels
	TileHeight int       // tile height in pixels
	XRes       float64   // units per pixel along x
	YRes       float64   // units per pixel along y
	Bounds     orb.Bound // extent covered by the grid
}

// TileRange bounds a ReadRange scan. Any field may be Unbounded to
// leave that side open.
type TileRange struct {
	MinZ, MaxZ int
	MinX, MaxX int
	MinY, MaxY int
}

// AllTiles returns the range matching every tile.
func AllTiles() TileRange {
	return TileRange{
		MinZ: Unbounded, MaxZ: Unbounded,
		MinX: Unbounded, MaxX: Unbounded,
		MinY: Unbounded, MaxY: Unbounded,
	}
}

// ZoomRange returns the range matching every tile between zoom levels
// lo and hi inclusive.
func ZoomRange(lo, hi int) TileRange {
	r := AllTiles()
	r.MinZ, r.MaxZ = lo, hi
	return r
}

// Validate reports whether every field is a coordinate or Unbounded.
func (r TileRange) Validate() error {
	for _, v := range []int{r.MinZ, r.MaxZ, r.MinX, r.MaxX, r.MinY, r.MaxY} {
		if v < Unbounded {
			return fmt.Errorf("%w: %d", ErrInvalidRange, v)
		}
	}
	return nil
}

// ContainsZoom reports whether zoom level z falls inside the range.
func (r TileRange) ContainsZoom(z int) bool {
	if r.MinZ != Unbounded && z < r.MinZ {
		return false
	}
	if r.MaxZ != Unbounded && z > r.MaxZ {
		return false
	}
	return true
}

// Contains reports whether the tile at z, x, y falls inside the range.
func (r TileRange) Contains(z, x, y int) bool {
	if !r.ContainsZoom(z) {
		return false
	}
	if r.MinX != Unbounded && x < r.MinX {
		return false
	}
	if r.MaxX != Unbounded && x > r.MaxX {
		return false
	}
	if r.MinY != Unbounded && y < r.MinY {
		return false
	}
	if r.MaxY != Unbounded && y > r.MaxY {
		return false
	}
	return true
}

// clamp intersects the range with g's extent, returning the concrete
// column and row windows to scan. ok is false when they are empty.
func (r TileRange) clamp(g TileGrid) (minX, maxX, minY, maxY int, ok bool) {
	minX, maxX = 0, g.Width-1
	minY, maxY = 0, g.Height-1
	if r.MinX != Unbounded && r.MinX > minX {
		minX = r.MinX
	}
	if r.MaxX != Unbounded && r.MaxX < maxX {
		maxX = r.MaxX
	}
	if r.MinY != Unbounded && r.MinY > minY {
		minY = r.MinY
	}
	if r.MaxY != Unbounded && r.MaxY < maxY {
		maxY = r.MaxY
	}
	return minX, maxX, minY, maxY, minX <= maxX && minY <= maxY
}

// TileAt returns the XYZ tile covering pt (in WGS 84 lon/lat) at zoom z.
func TileAt(pt orb.Point, z int) (x, y int) {
	t := maptile.At(pt, maptile.Zoom(z))
	return int(t.X), int(t.Y)
}

// TileBound returns the WGS 84 extent of the XYZ tile at z, x, y.
func TileBound(z, x, y int) orb.Bound {
	return maptile.New(uint32(x), uint32(y), maptile.Zoom(z)).Bound()
}

// WebMercatorGrids builds the standard 256px web mercator pyramid for
// zoom levels 0 through maxZoom, ordered by ascending zoom.
func WebMercatorGrids(maxZoom int) []TileGrid {
	world := project.Bound(maptile.New(0, 0, 0).Bound(), project.WGS84.ToMercator)
	span := world.Max[0] - world.Min[0]
	grids := make([]TileGrid, 0, maxZoom+1)
	for z := 0; z <= maxZoom; z++ {
		n := 1 << uint(z)
		res := span / float64(n*256)
		grids = append(grids, TileGrid{
			Zoom:       z,
			Width:      n,
			Height:     n,
			TileWidth:  256,
			TileHeight: 256,
			XRes:       res,
			YRes:       res,
			Bounds:     world,
		})
	}
	return grids
}

// sortGrids returns a copy of grids ordered by ascending zoom.
func sortGrids(grids []TileGrid) []TileGrid {
	out := make([]TileGrid, len(grids))
	copy(out, grids)
	sort.Slice(out, func(i, j int) bool { return out[i].Zoom < out[j].Zoom })
	return out
}
