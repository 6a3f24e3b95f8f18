package fgb

import (
	"fmt"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"

	"github.com/hjanetzek/jeo/feature"
	"github.com/hjanetzek/jeo/proj"
)

// columnType maps a field type to the column type written to the wire.
// Integers widen to Long and floats to Double so values survive a
// round trip unchanged.
func columnType(t feature.Type) flattypes.ColumnType {
	switch t {
	case feature.TypeBool:
		return flattypes.ColumnTypeBool
	case feature.TypeInt:
		return flattypes.ColumnTypeLong
	case feature.TypeFloat:
		return flattypes.ColumnTypeDouble
	case feature.TypeString:
		return flattypes.ColumnTypeString
	case feature.TypeTime:
		return flattypes.ColumnTypeDateTime
	case feature.TypeBinary:
		return flattypes.ColumnTypeBinary
	case feature.TypeJSON:
		return flattypes.ColumnTypeJson
	}
	return flattypes.ColumnTypeString
}

// fieldType maps a wire column type back to a field type.
func fieldType(ct flattypes.ColumnType) feature.Type {
	switch ct {
	case flattypes.ColumnTypeBool:
		return feature.TypeBool
	case flattypes.ColumnTypeByte, flattypes.ColumnTypeUByte,
		flattypes.ColumnTypeShort, flattypes.ColumnTypeUShort,
		flattypes.ColumnTypeInt, flattypes.ColumnTypeUInt,
		flattypes.ColumnTypeLong, flattypes.ColumnTypeULong:
		return feature.TypeInt
	case flattypes.ColumnTypeFloat, flattypes.ColumnTypeDouble:
		return feature.TypeFloat
	case flattypes.ColumnTypeString:
		return feature.TypeString
	case flattypes.ColumnTypeDateTime:
		return feature.TypeTime
	case flattypes.ColumnTypeBinary:
		return feature.TypeBinary
	case flattypes.ColumnTypeJson:
		return feature.TypeJSON
	}
	return feature.TypeString
}

// headerSchema builds the dataset schema from a file header: a
// geometry field first, then one field per column. The returned slice
// holds the wire type of each column, in column order.
func headerSchema(name string, h *flattypes.Header) (*feature.Schema, []flattypes.ColumnType, error) {
	b := feature.BuildSchema(name).Field("geometry", feature.TypeGeometry)

	var crs flattypes.Crs
	if c := h.Crs(&crs); c != nil && c.Code() > 0 {
		b.CRS(&proj.CRS{
			Code: int(c.Code()),
			Name: string(c.Name()),
			WKT:  string(c.Wkt()),
		})
	}

	n := h.ColumnsLength()
	types := make([]flattypes.ColumnType, n)
	for i := 0; i < n; i++ {
		var col flattypes.Column
		if !h.Columns(&col, i) {
			return nil, nil, fmt.Errorf("%w: column %d unreadable", ErrInvalidData, i)
		}
		types[i] = col.Type()
		b.Field(string(col.Name()), fieldType(col.Type()))
	}

	s, err := b.Schema()
	if err != nil {
		return nil, nil, err
	}
	return s, types, nil
}
