package fgb

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
)

// Property wire format: for each present value, a 2-byte little-endian
// column index followed by the value bytes. Strings and json are
// NUL-terminated, binary is length-prefixed, scalars are fixed width.

// encodeValues encodes one value per column. Nil values and values
// that cannot take the column's type are left out entirely.
func encodeValues(values []any, types []flattypes.ColumnType) []byte {
	var buf bytes.Buffer
	var val bytes.Buffer
	for i, v := range values {
		if v == nil || i >= len(types) {
			continue
		}
		// Encode to the side first so a failed conversion never
		// leaves a column index without its value bytes.
		val.Reset()
		if !encodeValue(&val, v, types[i]) {
			continue
		}
		var idx [2]byte
		binary.LittleEndian.PutUint16(idx[:], uint16(i))
		buf.Write(idx[:])
		buf.Write(val.Bytes())
	}
	return buf.Bytes()
}

func encodeValue(buf *bytes.Buffer, v any, t flattypes.ColumnType) bool {
	switch t {
	case flattypes.ColumnTypeBool:
		b, ok := v.(bool)
		if !ok {
			return false
		}
		if b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}

	case flattypes.ColumnTypeByte, flattypes.ColumnTypeUByte:
		n, ok := toInt(v)
		if !ok {
			return false
		}
		buf.WriteByte(byte(n))

	case flattypes.ColumnTypeShort, flattypes.ColumnTypeUShort:
		n, ok := toInt(v)
		if !ok {
			return false
		}
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(n))
		buf.Write(b[:])

	case flattypes.ColumnTypeInt, flattypes.ColumnTypeUInt:
		n, ok := toInt(v)
		if !ok {
			return false
		}
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(n))
		buf.Write(b[:])

	case flattypes.ColumnTypeLong:
		n, ok := toInt(v)
		if !ok {
			return false
		}
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(n))
		buf.Write(b[:])

	case flattypes.ColumnTypeULong:
		n, ok := toUint(v)
		if !ok {
			return false
		}
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], n)
		buf.Write(b[:])

	case flattypes.ColumnTypeFloat:
		f, ok := toFloat(v)
		if !ok {
			return false
		}
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(float32(f)))
		buf.Write(b[:])

	case flattypes.ColumnTypeDouble:
		f, ok := toFloat(v)
		if !ok {
			return false
		}
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
		buf.Write(b[:])

	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime:
		s, ok := toText(v)
		if !ok {
			return false
		}
		buf.WriteString(s)
		buf.WriteByte(0)

	case flattypes.ColumnTypeJson:
		raw, err := json.Marshal(v)
		if err != nil {
			return false
		}
		buf.Write(raw)
		buf.WriteByte(0)

	case flattypes.ColumnTypeBinary:
		b, ok := v.([]byte)
		if !ok {
			return false
		}
		var l [4]byte
		binary.LittleEndian.PutUint32(l[:], uint32(len(b)))
		buf.Write(l[:])
		buf.Write(b)

	default:
		return false
	}
	return true
}

// decodeValues decodes a property blob into one value per column.
// Columns the blob does not mention stay nil. Truncated or malformed
// blobs are an error.
func decodeValues(data []byte, types []flattypes.ColumnType) ([]any, error) {
	values := make([]any, len(types))
	off := 0
	for off < len(data) {
		if off+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated column index at %d", ErrInvalidData, off)
		}
		idx := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if idx >= len(types) {
			return nil, fmt.Errorf("%w: column %d out of range", ErrInvalidData, idx)
		}
		v, n, err := decodeValue(data[off:], types[idx])
		if err != nil {
			return nil, err
		}
		values[idx] = v
		off += n
	}
	return values, nil
}

// decodeValue reads one value, returning it and the bytes consumed.
// Integers come back as int64 and floats as float64 regardless of
// wire width.
func decodeValue(data []byte, t flattypes.ColumnType) (any, int, error) {
	switch t {
	case flattypes.ColumnTypeBool:
		if len(data) < 1 {
			return nil, 0, errShort(t)
		}
		return data[0] != 0, 1, nil

	case flattypes.ColumnTypeByte:
		if len(data) < 1 {
			return nil, 0, errShort(t)
		}
		return int64(int8(data[0])), 1, nil

	case flattypes.ColumnTypeUByte:
		if len(data) < 1 {
			return nil, 0, errShort(t)
		}
		return int64(data[0]), 1, nil

	case flattypes.ColumnTypeShort:
		if len(data) < 2 {
			return nil, 0, errShort(t)
		}
		return int64(int16(binary.LittleEndian.Uint16(data))), 2, nil

	case flattypes.ColumnTypeUShort:
		if len(data) < 2 {
			return nil, 0, errShort(t)
		}
		return int64(binary.LittleEndian.Uint16(data)), 2, nil

	case flattypes.ColumnTypeInt:
		if len(data) < 4 {
			return nil, 0, errShort(t)
		}
		return int64(int32(binary.LittleEndian.Uint32(data))), 4, nil

	case flattypes.ColumnTypeUInt:
		if len(data) < 4 {
			return nil, 0, errShort(t)
		}
		return int64(binary.LittleEndian.Uint32(data)), 4, nil

	case flattypes.ColumnTypeLong:
		if len(data) < 8 {
			return nil, 0, errShort(t)
		}
		return int64(binary.LittleEndian.Uint64(data)), 8, nil

	case flattypes.ColumnTypeULong:
		if len(data) < 8 {
			return nil, 0, errShort(t)
		}
		return binary.LittleEndian.Uint64(data), 8, nil

	case flattypes.ColumnTypeFloat:
		if len(data) < 4 {
			return nil, 0, errShort(t)
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data))), 4, nil

	case flattypes.ColumnTypeDouble:
		if len(data) < 8 {
			return nil, 0, errShort(t)
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), 8, nil

	case flattypes.ColumnTypeString:
		s, n, err := readCString(data, t)
		return s, n, err

	case flattypes.ColumnTypeDateTime:
		s, n, err := readCString(data, t)
		if err != nil {
			return nil, 0, err
		}
		if ts, perr := time.Parse(time.RFC3339Nano, s); perr == nil {
			return ts, n, nil
		}
		return s, n, nil

	case flattypes.ColumnTypeJson:
		s, n, err := readCString(data, t)
		if err != nil {
			return nil, 0, err
		}
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, 0, fmt.Errorf("%w: bad json value: %v", ErrInvalidData, err)
		}
		return v, n, nil

	case flattypes.ColumnTypeBinary:
		if len(data) < 4 {
			return nil, 0, errShort(t)
		}
		size := int(binary.LittleEndian.Uint32(data))
		if len(data) < 4+size {
			return nil, 0, errShort(t)
		}
		return append([]byte(nil), data[4:4+size]...), 4 + size, nil
	}

	return nil, 0, fmt.Errorf("%w: column type %d", ErrInvalidData, t)
}

// readCString reads a NUL-terminated string.
func readCString(data []byte, t flattypes.ColumnType) (string, int, error) {
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return "", 0, errShort(t)
	}
	return string(data[:i]), i + 1, nil
}

func errShort(t flattypes.ColumnType) error {
	return fmt.Errorf("%w: truncated %s value", ErrInvalidData, flattypes.EnumNamesColumnType[t])
}

// Conversion helpers. Values reach the writer as whatever Go type the
// caller stored, so each column type accepts every sensible source.

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

func toUint(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case int:
		if n >= 0 {
			return uint64(n), true
		}
	case int64:
		if n >= 0 {
			return uint64(n), true
		}
	case float64:
		if n >= 0 {
			return uint64(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil && i >= 0 {
			return uint64(i), true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toText(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	case time.Time:
		return s.Format(time.RFC3339Nano), true
	}
	return "", false
}
