package pgtile

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hjanetzek/jeo/data"
	"github.com/hjanetzek/jeo/proj"
)

func newStore(t *testing.T, opts ...Option) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s, err := Open(db, "tiles", data.WebMercatorGrids(3), opts...)
	require.NoError(t, err)
	return s, mock
}

func gzipped(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestRead(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM "tiles" WHERE zoom = $1 AND x = $2 AND y = $3`)).
		WithArgs(1, 0, 0).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte("png bytes")))

	tile, err := s.Read(context.Background(), 1, 0, 0)
	require.NoError(t, err)
	require.NotNil(t, tile)
	assert.Equal(t, "1/0/0", tile.String())
	assert.Equal(t, []byte("png bytes"), tile.Data)
	assert.Equal(t, "image/png", tile.Mime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadMissing(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery("SELECT data FROM").
		WithArgs(3, 7, 7).
		WillReturnError(sql.ErrNoRows)

	tile, err := s.Read(context.Background(), 3, 7, 7)
	require.NoError(t, err)
	assert.Nil(t, tile)
}

func TestReadQueryError(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery("SELECT data FROM").
		WithArgs(0, 0, 0).
		WillReturnError(errors.New("connection reset"))

	tile, err := s.Read(context.Background(), 0, 0, 0)
	assert.Nil(t, tile)
	assert.ErrorContains(t, err, "connection reset")
}

func TestReadGzip(t *testing.T) {
	s, mock := newStore(t, WithGzip())
	mock.ExpectQuery("SELECT data FROM").
		WithArgs(0, 0, 0).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(gzipped(t, []byte("tile payload"))))

	tile, err := s.Read(context.Background(), 0, 0, 0)
	require.NoError(t, err)
	require.NotNil(t, tile)
	assert.Equal(t, []byte("tile payload"), tile.Data)
}

func TestReadGzipCorrupt(t *testing.T) {
	s, mock := newStore(t, WithGzip())
	mock.ExpectQuery("SELECT data FROM").
		WithArgs(0, 0, 0).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte("not gzip")))

	// A payload that does not inflate is a decode failure, not a
	// missing tile.
	tile, err := s.Read(context.Background(), 0, 0, 0)
	assert.Error(t, err)
	assert.Nil(t, tile)
}

func TestRangeQuery(t *testing.T) {
	window := data.ZoomRange(1, 2)
	open := data.AllTiles()
	open.MinZ = 2
	open.MinX = 3
	open.MaxY = 4

	tests := []struct {
		name  string
		r     data.TileRange
		query string
		args  []any
	}{
		{
			"unbounded",
			data.AllTiles(),
			`SELECT zoom, x, y, data FROM "tiles" ORDER BY zoom, y, x`,
			nil,
		},
		{
			"zoom window",
			window,
			`SELECT zoom, x, y, data FROM "tiles" WHERE zoom >= $1 AND zoom <= $2 ORDER BY zoom, y, x`,
			[]any{1, 2},
		},
		{
			"open sides",
			open,
			`SELECT zoom, x, y, data FROM "tiles" WHERE zoom >= $1 AND x >= $2 AND y <= $3 ORDER BY zoom, y, x`,
			[]any{2, 3, 4},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := rangeQuery("tiles", tt.r)
			assert.Equal(t, tt.query, query)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestReadRange(t *testing.T) {
	s, mock := newStore(t)
	rows := sqlmock.NewRows([]string{"zoom", "x", "y", "data"}).
		AddRow(0, 0, 0, []byte("a")).
		AddRow(1, 0, 0, []byte("b")).
		AddRow(1, 1, 0, []byte("c"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT zoom, x, y, data FROM "tiles" ORDER BY zoom, y, x`)).
		WillReturnRows(rows)

	c, err := s.ReadRange(context.Background(), data.AllTiles())
	require.NoError(t, err)
	tiles, err := data.Collect(c)
	require.NoError(t, err)
	require.Len(t, tiles, 3)
	assert.Equal(t, "0/0/0", tiles[0].String())
	assert.Equal(t, []byte("b"), tiles[1].Data)
	assert.Equal(t, "image/png", tiles[2].Mime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadRangeWindow(t *testing.T) {
	s, mock := newStore(t)
	r := data.ZoomRange(2, 2)
	r.MinX = 1
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT zoom, x, y, data FROM "tiles" WHERE zoom >= $1 AND zoom <= $2 AND x >= $3 ORDER BY zoom, y, x`)).
		WithArgs(2, 2, 1).
		WillReturnRows(sqlmock.NewRows([]string{"zoom", "x", "y", "data"}).
			AddRow(2, 1, 0, []byte("t")))

	c, err := s.ReadRange(context.Background(), r)
	require.NoError(t, err)
	tiles, err := data.Collect(c)
	require.NoError(t, err)
	require.Len(t, tiles, 1)
	assert.Equal(t, "2/1/0", tiles[0].String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadRangeInvalid(t *testing.T) {
	s, _ := newStore(t)
	r := data.AllTiles()
	r.MinY = -3

	_, err := s.ReadRange(context.Background(), r)
	assert.ErrorIs(t, err, data.ErrInvalidRange)
}

func TestReadRangeRowError(t *testing.T) {
	s, mock := newStore(t)
	rows := sqlmock.NewRows([]string{"zoom", "x", "y", "data"}).
		AddRow(0, 0, 0, []byte("a")).
		RowError(0, errors.New("connection reset"))
	mock.ExpectQuery("SELECT zoom, x, y, data FROM").WillReturnRows(rows)

	c, err := s.ReadRange(context.Background(), data.AllTiles())
	require.NoError(t, err)
	assert.False(t, c.Next())
	assert.ErrorContains(t, c.Err(), "connection reset")
	assert.NoError(t, c.Close())
}

func TestReadRangeGzipCorrupt(t *testing.T) {
	s, mock := newStore(t, WithGzip())
	rows := sqlmock.NewRows([]string{"zoom", "x", "y", "data"}).
		AddRow(0, 0, 0, []byte("junk"))
	mock.ExpectQuery("SELECT zoom, x, y, data FROM").WillReturnRows(rows)

	c, err := s.ReadRange(context.Background(), data.AllTiles())
	require.NoError(t, err)
	assert.False(t, c.Next())
	assert.ErrorContains(t, c.Err(), "0/0/0")
	assert.NoError(t, c.Close())
}

func TestClosed(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Close())

	_, err := s.Read(context.Background(), 0, 0, 0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.ReadRange(context.Background(), data.AllTiles())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, s.Close())
}

func TestCloseKeepsSharedDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	s, err := Open(db, "tiles", nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// The store did not open the handle, so closing the store must
	// leave it usable.
	mock.ExpectClose()
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenDSN(t *testing.T) {
	// sql.Open connects lazily, so constructing the store needs no
	// server.
	s, err := OpenDSN("host=localhost dbname=gis sslmode=disable", "tiles", nil)
	require.NoError(t, err)
	assert.Equal(t, "tiles", s.Name())
	assert.NoError(t, s.Close())
}

func TestOpenRejectsBadArguments(t *testing.T) {
	_, err := Open(nil, "tiles", nil)
	assert.Error(t, err)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = Open(db, "", nil)
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := Open(db, "public.tiles", data.WebMercatorGrids(1),
		WithName("basemap"),
		WithMime("application/vnd.mapbox-vector-tile"),
		WithCRS(proj.WGS84()),
		WithLogger(zap.NewNop()),
	)
	require.NoError(t, err)
	assert.Equal(t, "basemap", s.Name())
	assert.True(t, s.CRS().Equal(proj.WGS84()))
	assert.Len(t, s.Grids(), 2)
}

func TestDefaults(t *testing.T) {
	s, _ := newStore(t)
	assert.Equal(t, "tiles", s.Name())
	assert.True(t, s.CRS().Equal(proj.WebMercator()))
}

func TestGridsAndBounds(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	world := orb.Bound{Min: orb.Point{-5, -5}, Max: orb.Point{5, 5}}
	grids := []data.TileGrid{
		{Zoom: 2, Width: 4, Height: 4, Bounds: world},
		{Zoom: 0, Width: 1, Height: 1, Bounds: world},
	}
	s, err := Open(db, "tiles", grids)
	require.NoError(t, err)

	got := s.Grids()
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Zoom)
	assert.Equal(t, 2, got[1].Zoom)

	g, ok := s.Grid(2)
	require.True(t, ok)
	assert.Equal(t, 4, g.Width)
	_, ok = s.Grid(1)
	assert.False(t, ok, "no grid at zoom 1")

	b, err := s.Bounds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, world, b)

	empty, err := Open(db, "tiles", nil)
	require.NoError(t, err)
	b, err = empty.Bounds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, orb.Bound{}, b)
}

func TestQuoteTable(t *testing.T) {
	tests := []struct {
		in  string
		out string
	}{
		{"tiles", `"tiles"`},
		{"public.tiles", `"public"."tiles"`},
		{`ti"les`, `"ti""les"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.out, quoteTable(tt.in))
		})
	}
}
