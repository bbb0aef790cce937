package types

import (
	"strings"

	"storekit/pkg/dberror"
)

// Type is the type of a column.
type Type int

const (
	IntType Type = iota
	StringType
)

var ErrUnknownType = dberror.New(dberror.CategoryFormat, "UNKNOWN_TYPE", "unknown field type")

// Size returns the number of bytes a field of this type occupies on a page.
func (t Type) Size() uint32 {
	switch t {
	case IntType:
		return IntSize
	case StringType:
		return StringSize
	default:
		return 0
	}
}

// String returns a string representation of the type
func (t Type) String() string {
	switch t {
	case IntType:
		return "INT_TYPE"
	case StringType:
		return "STRING_TYPE"
	default:
		return "UNKNOWN_TYPE"
	}
}

// ParseType maps a schema-file type name ("int" or "string", any case) to a Type.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int":
		return IntType, nil
	case "string":
		return StringType, nil
	default:
		return 0, ErrUnknownType.WithDetailf("type %q", name)
	}
}
