package tuple

import (
	"fmt"
	"strings"

	"storekit/pkg/dberror"
	"storekit/pkg/types"
)

var (
	ErrInvalidSchema = dberror.New(dberror.CategoryFormat, "INVALID_SCHEMA", "invalid tuple description")
	ErrFieldIndex    = dberror.New(dberror.CategoryLookup, "FIELD_INDEX_OUT_OF_RANGE", "field index out of range")
	ErrFieldNotFound = dberror.New(dberror.CategoryLookup, "FIELD_NOT_FOUND", "no field with that name")
)

// TupleDescription describes the schema of a tuple: the type and optional
// name of each field, in order.
//
// A TupleDescription is immutable once created. Rename returns a new value
// rather than changing the names in place, so relations that share a schema
// never observe each other's renames.
type TupleDescription struct {
	types      []types.Type
	fieldNames []string
}

// NewTupleDesc creates a new TupleDescription given field types and optional field names.
//
// Parameters:
//   - fieldTypes: slice of field types (must contain at least one element)
//   - fieldNames: optional slice of field names (must match fieldTypes length if provided)
//
// Returns:
//   - *TupleDescription: newly created tuple descriptor
//   - error: if fieldTypes is empty or fieldNames length doesn't match fieldTypes length
func NewTupleDesc(fieldTypes []types.Type, fieldNames []string) (*TupleDescription, error) {
	if len(fieldTypes) < 1 {
		return nil, ErrInvalidSchema.WithDetailf("must provide at least one field type")
	}

	for i, t := range fieldTypes {
		if t.Size() == 0 {
			return nil, types.ErrUnknownType.WithDetailf("field %d has type %d", i, int(t))
		}
	}

	var namesCopy []string
	if fieldNames != nil {
		if len(fieldNames) != len(fieldTypes) {
			return nil, ErrInvalidSchema.WithDetailf("field names length (%d) must match field types length (%d)",
				len(fieldNames), len(fieldTypes))
		}
		namesCopy = append([]string(nil), fieldNames...)
	}

	return &TupleDescription{
		types:      append([]types.Type(nil), fieldTypes...),
		fieldNames: namesCopy,
	}, nil
}

// NumFields returns the number of fields in this tuple descriptor.
func (td *TupleDescription) NumFields() int {
	return len(td.types)
}

// GetFieldName returns the name of the ith field, or "" if the schema has no names.
func (td *TupleDescription) GetFieldName(i int) (string, error) {
	if i < 0 || i >= len(td.types) {
		return "", ErrFieldIndex.WithDetailf("index %d not in [0, %d)", i, len(td.types))
	}

	if td.fieldNames == nil {
		return "", nil
	}
	return td.fieldNames[i], nil
}

// TypeAtIndex returns the type of the ith field.
func (td *TupleDescription) TypeAtIndex(i int) (types.Type, error) {
	if i < 0 || i >= len(td.types) {
		return 0, ErrFieldIndex.WithDetailf("index %d not in [0, %d)", i, len(td.types))
	}
	return td.types[i], nil
}

// Types returns a copy of the field types.
func (td *TupleDescription) Types() []types.Type {
	return append([]types.Type(nil), td.types...)
}

// FieldNames returns a copy of the field names, or nil if the schema has none.
func (td *TupleDescription) FieldNames() []string {
	if td.fieldNames == nil {
		return nil
	}
	return append([]string(nil), td.fieldNames...)
}

// GetSize returns the size in bytes of a record with this schema, the sum
// of the field widths.
func (td *TupleDescription) GetSize() uint32 {
	var size uint32
	for _, fieldType := range td.types {
		size += fieldType.Size()
	}
	return size
}

// FindFieldIndex locates a field by name (case-sensitive).
func (td *TupleDescription) FindFieldIndex(fieldName string) (int, error) {
	for i, name := range td.fieldNames {
		if name == fieldName {
			return i, nil
		}
	}
	return -1, ErrFieldNotFound.WithDetailf("column %q", fieldName)
}

// Rename returns a copy of td whose field names are replaced by names.
// The receiver is left untouched.
func (td *TupleDescription) Rename(names []string) (*TupleDescription, error) {
	return NewTupleDesc(td.types, names)
}

// WithPrefix returns a copy of td whose field names are prefixed with
// "prefix.". Unnamed fields become "prefix.null".
func (td *TupleDescription) WithPrefix(prefix string) *TupleDescription {
	names := make([]string, len(td.types))
	for i := range td.types {
		name := "null"
		if td.fieldNames != nil {
			name = td.fieldNames[i]
		}
		names[i] = prefix + "." + name
	}
	return &TupleDescription{types: td.types, fieldNames: names}
}

// Equals checks if two TupleDescriptions have the same field types in the
// same order. Field names are not compared.
func (td *TupleDescription) Equals(other *TupleDescription) bool {
	if other == nil || len(td.types) != len(other.types) {
		return false
	}

	for i, fieldType := range td.types {
		if fieldType != other.types[i] {
			return false
		}
	}
	return true
}

// String returns a string representation of this TupleDescription.
// Format: "Type1(fieldName1),Type2(fieldName2),..."
// If a field has no name, "null" is used as the name.
func (td *TupleDescription) String() string {
	parts := make([]string, 0, len(td.types))

	for i, fieldType := range td.types {
		fieldName := "null"
		if td.fieldNames != nil {
			fieldName = td.fieldNames[i]
		}
		parts = append(parts, fmt.Sprintf("%s(%s)", fieldType.String(), fieldName))
	}

	return strings.Join(parts, ",")
}
