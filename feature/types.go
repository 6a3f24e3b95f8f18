package feature

import (
	"encoding/json"
	"time"

	"github.com/paulmach/orb"
)

// Type tags the kind of value a field holds.
type Type int

const (
	TypeUnknown Type = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeTime
	TypeBinary
	TypeJSON
	TypeGeometry
)

var typeNames = map[Type]string{
	TypeUnknown:  "Unknown",
	TypeBool:     "Bool",
	TypeInt:      "Int",
	TypeFloat:    "Float",
	TypeString:   "String",
	TypeTime:     "Time",
	TypeBinary:   "Binary",
	TypeJSON:     "Json",
	TypeGeometry: "Geometry",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "Unknown"
}

// TypeOf determines the field type for a Go value.
func TypeOf(value any) Type {
	if value == nil {
		return TypeUnknown
	}
	if _, ok := value.(orb.Geometry); ok {
		return TypeGeometry
	}

	switch v := value.(type) {
	case bool:
		return TypeBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInt
	case float32, float64:
		return TypeFloat
	case string:
		return TypeString
	case time.Time:
		return TypeTime
	case []byte:
		return TypeBinary
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return TypeInt
		}
		return TypeFloat
	case map[string]any, []any:
		return TypeJSON
	default:
		return TypeJSON
	}
}

// PromoteType returns the more general type when two observations of
// a field disagree.
func PromoteType(a, b Type) Type {
	if a == b {
		return a
	}
	if a == TypeUnknown {
		return b
	}
	if b == TypeUnknown {
		return a
	}

	if a == TypeJSON || b == TypeJSON {
		return TypeJSON
	}
	if a == TypeString || b == TypeString {
		return TypeString
	}

	rank := map[Type]int{
		TypeBool:  0,
		TypeInt:   1,
		TypeFloat: 2,
	}
	ra, okA := rank[a]
	rb, okB := rank[b]
	if okA && okB {
		if ra > rb {
			return a
		}
		return b
	}

	// Everything else only meets in JSON.
	return TypeJSON
}
