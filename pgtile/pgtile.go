// Package pgtile reads tile pyramids stored in a PostgreSQL table.
// Tiles live in a relation of (zoom int, x int, y int, data bytea)
// rows, one row per stored tile.
package pgtile

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/lib/pq"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/hjanetzek/jeo/data"
	"github.com/hjanetzek/jeo/proj"
)

var (
	// ErrClosed is returned when reading from a closed store.
	ErrClosed = errors.New("pgtile: store is closed")
)

// Option configures a Store.
type Option func(*Store)

// WithName overrides the dataset name, which defaults to the table
// name.
func WithName(name string) Option {
	return func(s *Store) { s.name = name }
}

// WithCRS sets the coordinate system the grids are defined in. The
// default is web mercator, the usual CRS for XYZ pyramids.
func WithCRS(crs *proj.CRS) Option {
	return func(s *Store) { s.crs = crs }
}

// WithMime sets the content type reported on tiles. The default is
// image/png.
func WithMime(mime string) Option {
	return func(s *Store) { s.mime = mime }
}

// WithGzip marks the stored payloads as gzip-compressed. Reads
// decompress them before returning, and a payload that does not
// inflate is an error, not a missing tile.
func WithGzip() Option {
	return func(s *Store) { s.gzip = true }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

var _ data.TileSet = (*Store)(nil)

// Store is a data.TileSet backed by a PostgreSQL table.
type Store struct {
	db    *sql.DB
	table string
	name  string
	crs   *proj.CRS
	grids []data.TileGrid
	mime  string
	gzip  bool
	log   *zap.Logger
	ownDB bool
}

// Open returns a tile set reading from table over db. grids describes
// the pyramid the table holds. The caller keeps ownership of db; Close
// does not close it.
func Open(db *sql.DB, table string, grids []data.TileGrid, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("pgtile: nil db")
	}
	if table == "" {
		return nil, errors.New("pgtile: empty table name")
	}
	s := &Store{
		db:    db,
		table: table,
		name:  table,
		crs:   proj.WebMercator(),
		grids: sortedGrids(grids),
		mime:  "image/png",
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OpenDSN opens a PostgreSQL connection with the lib/pq driver and
// returns a tile set over it. Close closes the connection.
func OpenDSN(dsn, table string, grids []data.TileGrid, opts ...Option) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgtile: open %q: %w", table, err)
	}
	s, err := Open(db, table, grids, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownDB = true
	return s, nil
}

func (s *Store) Name() string { return s.name }

func (s *Store) CRS() *proj.CRS { return s.crs }

// Grids returns the pyramid, ordered by ascending zoom.
func (s *Store) Grids() []data.TileGrid {
	out := make([]data.TileGrid, len(s.grids))
	copy(out, s.grids)
	return out
}

// Grid returns the grid for zoom z.
func (s *Store) Grid(z int) (data.TileGrid, bool) {
	for _, g := range s.grids {
		if g.Zoom == z {
			return g, true
		}
	}
	return data.TileGrid{}, false
}

// Bounds returns the extent of the lowest grid, which covers the whole
// pyramid.
func (s *Store) Bounds(ctx context.Context) (orb.Bound, error) {
	if len(s.grids) == 0 {
		return orb.Bound{}, nil
	}
	return s.grids[0].Bounds, nil
}

// Read returns the tile at z, x, y, or (nil, nil) when the table has
// no row there.
func (s *Store) Read(ctx context.Context, z, x, y int) (*data.Tile, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	query := fmt.Sprintf("SELECT data FROM %s WHERE zoom = $1 AND x = $2 AND y = $3", quoteTable(s.table))
	var blob []byte
	err := s.db.QueryRowContext(ctx, query, z, x, y).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pgtile: read %d/%d/%d: %w", z, x, y, err)
	}
	if s.gzip {
		if blob, err = gunzip(blob); err != nil {
			return nil, fmt.Errorf("pgtile: read %d/%d/%d: %w", z, x, y, err)
		}
	}
	return &data.Tile{Z: z, X: x, Y: y, Data: blob, Mime: s.mime}, nil
}

// ReadRange scans every stored tile within r in zoom, row, column
// order. The cursor streams rows straight from the database; Close
// releases them.
func (s *Store) ReadRange(ctx context.Context, r data.TileRange) (data.Cursor[data.Tile], error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	query, args := rangeQuery(s.table, r)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgtile: read range: %w", err)
	}
	s.log.Debug("scanning tile range",
		zap.String("table", s.table),
		zap.String("query", query))
	return &tileCursor{rows: rows, store: s}, nil
}

// Close closes the connection when the store opened it itself.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	if s.ownDB {
		return db.Close()
	}
	return nil
}

// rangeQuery builds the range scan statement. Unbounded fields
// contribute no WHERE term.
func rangeQuery(table string, r data.TileRange) (string, []any) {
	var terms []string
	var args []any
	add := func(expr string, v int) {
		if v == data.Unbounded {
			return
		}
		args = append(args, v)
		terms = append(terms, fmt.Sprintf("%s $%d", expr, len(args)))
	}
	add("zoom >=", r.MinZ)
	add("zoom <=", r.MaxZ)
	add("x >=", r.MinX)
	add("x <=", r.MaxX)
	add("y >=", r.MinY)
	add("y <=", r.MaxY)

	query := "SELECT zoom, x, y, data FROM " + quoteTable(table)
	if len(terms) > 0 {
		query += " WHERE " + strings.Join(terms, " AND ")
	}
	return query + " ORDER BY zoom, y, x", args
}

// quoteTable quotes a table name, keeping any schema qualifier as its
// own identifier.
func quoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

type tileCursor struct {
	rows  *sql.Rows
	store *Store
	cur   data.Tile
	err   error
}

func (c *tileCursor) Next() bool {
	if c.err != nil {
		return false
	}
	if !c.rows.Next() {
		return false
	}
	var t data.Tile
	if err := c.rows.Scan(&t.Z, &t.X, &t.Y, &t.Data); err != nil {
		c.err = fmt.Errorf("pgtile: scan tile: %w", err)
		return false
	}
	if c.store.gzip {
		blob, err := gunzip(t.Data)
		if err != nil {
			c.err = fmt.Errorf("pgtile: tile %s: %w", t, err)
			return false
		}
		t.Data = blob
	}
	t.Mime = c.store.mime
	c.cur = t
	return true
}

func (c *tileCursor) Value() data.Tile { return c.cur }

func (c *tileCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *tileCursor) Close() error { return c.rows.Close() }

// gunzip inflates a stored payload.
func gunzip(blob []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func sortedGrids(grids []data.TileGrid) []data.TileGrid {
	out := make([]data.TileGrid, len(grids))
	copy(out, grids)
	sort.Slice(out, func(i, j int) bool { return out[i].Zoom < out[j].Zoom })
	return out
}
