// Package fgb reads and writes FlatGeobuf, a FlatBuffers-based binary
// encoding of feature collections with an optional packed R-tree index.
// Reads go through the index, so spatial queries touch only the
// features whose boxes intersect the window.
package fgb

import (
	"errors"
)

// Common errors returned by this package.
var (
	ErrNilGeometry     = errors.New("fgb: nil geometry")
	ErrUnsupportedType = errors.New("fgb: unsupported geometry type")
	ErrInvalidData     = errors.New("fgb: invalid data")
	ErrNoIndex         = errors.New("fgb: file has no spatial index")
	ErrNoGeometryField = errors.New("fgb: schema has no geometry field")
	ErrClosed          = errors.New("fgb: dataset is closed")
)

// WriteOptions configures Write.
type WriteOptions struct {
	Name         string // Layer name; defaults to the schema name
	Description  string // Layer description
	IncludeIndex bool   // Write the spatial index (default: true)
}

// DefaultWriteOptions returns default options for writing FlatGeobuf.
func DefaultWriteOptions() *WriteOptions {
	return &WriteOptions{
		IncludeIndex: true,
	}
}
