package data

import "context"

// TileReader looks up a single tile. Implementations return (nil, nil)
// when no tile is stored at the address.
type TileReader interface {
	ReadTile(ctx context.Context, z, x, y int) (*Tile, error)
}

// TileReaderFunc adapts a function to the TileReader interface.
type TileReaderFunc func(ctx context.Context, z, x, y int) (*Tile, error)

func (f TileReaderFunc) ReadTile(ctx context.Context, z, x, y int) (*Tile, error) {
	return f(ctx, z, x, y)
}

// GridRange scans grids for the tiles inside r, reading each address
// through rd and skipping absences. Tiles come out ordered by zoom,
// then row, then column. grids must be ordered by ascending zoom.
func GridRange(ctx context.Context, grids []TileGrid, r TileRange, rd TileReader) Cursor[Tile] {
	return &rangeCursor{ctx: ctx, grids: grids, rng: r, rd: rd}
}

type rangeCursor struct {
	ctx   context.Context
	grids []TileGrid
	rng   TileRange
	rd    TileReader

	gi      int
	started bool
	minX    int
	maxX    int
	maxY    int
	x, y    int

	cur  Tile
	err  error
	done bool
}

// nextGrid advances to the next grid inside the zoom range and resets
// the scan window. It returns false when no grid remains.
func (c *rangeCursor) nextGrid() bool {
	for ; c.gi < len(c.grids); c.gi++ {
		g := c.grids[c.gi]
		if !c.rng.ContainsZoom(g.Zoom) {
			continue
		}
		minX, maxX, minY, maxY, ok := c.rng.clamp(g)
		if !ok {
			continue
		}
		c.minX, c.maxX, c.maxY = minX, maxX, maxY
		c.x, c.y = minX, minY
		return true
	}
	return false
}

// advance steps to the next address, row by row within the grid.
func (c *rangeCursor) advance() bool {
	if !c.started {
		c.started = true
		return c.nextGrid()
	}
	c.x++
	if c.x > c.maxX {
		c.x = c.minX
		c.y++
	}
	if c.y > c.maxY {
		c.gi++
		return c.nextGrid()
	}
	return true
}

func (c *rangeCursor) Next() bool {
	if c.done || c.err != nil {
		return false
	}
	for c.advance() {
		if err := c.ctx.Err(); err != nil {
			c.err = err
			return false
		}
		g := c.grids[c.gi]
		t, err := c.rd.ReadTile(c.ctx, g.Zoom, c.x, c.y)
		if err != nil {
			c.err = err
			return false
		}
		if t == nil {
			continue
		}
		c.cur = *t
		return true
	}
	c.done = true
	return false
}

func (c *rangeCursor) Value() Tile { return c.cur }
func (c *rangeCursor) Err() error  { return c.err }

func (c *rangeCursor) Close() error {
	c.done = true
	return nil
}
