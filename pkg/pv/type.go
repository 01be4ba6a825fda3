package pv

import (
	"fmt"
	"strings"
)

// Type identifies the value shape of a process variable.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeString
	TypeDouble
	TypeLong
	TypeDoubleArray
)

// String returns the type name as used in database files.
func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeDouble:
		return "double"
	case TypeLong:
		return "long"
	case TypeDoubleArray:
		return "double_array"
	default:
		return "unknown"
	}
}

// ParseType parses a type name. It accepts the names returned by String
// and the EPICS record-style aliases "stringin", "ai", "longin" and
// "waveform".
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "stringin", "stringout":
		return TypeString, nil
	case "double", "ai", "ao":
		return TypeDouble, nil
	case "long", "longin", "longout":
		return TypeLong, nil
	case "double_array", "doublearray", "waveform":
		return TypeDoubleArray, nil
	default:
		return TypeUnknown, fmt.Errorf("unknown process variable type %q", s)
	}
}
