package tuple

import (
	"bytes"
	"io"
	"strings"

	"storekit/pkg/dberror"
	"storekit/pkg/types"
)

var ErrFieldType = dberror.New(dberror.CategoryFormat, "FIELD_TYPE_MISMATCH", "field type does not match schema")

// Tuple represents a row of data
type Tuple struct {
	TupleDesc *TupleDescription // Schema of this tuple
	fields    []types.Field     // The actual field values
	RecordID  *RecordID         // Where this tuple is stored (nil until placed on a page)
}

// NewTuple creates a new tuple with the given schema
func NewTuple(td *TupleDescription) *Tuple {
	return &Tuple{
		TupleDesc: td,
		fields:    make([]types.Field, td.NumFields()),
	}
}

// SetField sets the ith field. The field's type must match the schema.
func (t *Tuple) SetField(i int, field types.Field) error {
	expectedType, err := t.TupleDesc.TypeAtIndex(i)
	if err != nil {
		return err
	}

	if field.Type() != expectedType {
		return ErrFieldType.WithDetailf("field %d: expected %v, got %v", i, expectedType, field.Type())
	}

	t.fields[i] = field
	return nil
}

// GetField returns the value of the ith field
func (t *Tuple) GetField(i int) (types.Field, error) {
	if i < 0 || i >= len(t.fields) {
		return nil, ErrFieldIndex.WithDetailf("index %d not in [0, %d)", i, len(t.fields))
	}
	return t.fields[i], nil
}

// Serialize writes the tuple's fields in schema order. Every field must be set.
func (t *Tuple) Serialize(w io.Writer) error {
	for i, f := range t.fields {
		if f == nil {
			return ErrFieldType.WithDetailf("field %d is not set", i)
		}
		if err := f.Serialize(w); err != nil {
			return dberror.IOError(err, "Serialize", "Tuple")
		}
	}
	return nil
}

// Bytes returns the serialized tuple, exactly TupleDesc.GetSize() bytes.
func (t *Tuple) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(t.TupleDesc.GetSize()))
	if err := t.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseTuple reads one tuple of schema td from r.
func ParseTuple(r io.Reader, td *TupleDescription) (*Tuple, error) {
	t := NewTuple(td)
	for i, fieldType := range td.types {
		f, err := types.ParseField(r, fieldType)
		if err != nil {
			return nil, err
		}
		t.fields[i] = f
	}
	return t, nil
}

// Equals reports whether both tuples have equal schemas and field values.
// Record ids are not compared.
func (t *Tuple) Equals(other *Tuple) bool {
	if other == nil || !t.TupleDesc.Equals(other.TupleDesc) {
		return false
	}
	for i, f := range t.fields {
		o := other.fields[i]
		if f == nil || o == nil {
			if f != o {
				return false
			}
			continue
		}
		if !f.Equals(o) {
			return false
		}
	}
	return true
}

// String returns a string representation of this tuple
// Format: field1\tfield2\tfield3\t...\tfieldN\n
func (t *Tuple) String() string {
	parts := make([]string, 0, len(t.fields))
	for _, field := range t.fields {
		if field != nil {
			parts = append(parts, field.String())
		} else {
			parts = append(parts, "null")
		}
	}
	return strings.Join(parts, "\t") + "\n"
}

// Clone creates a copy of this tuple sharing the (immutable) field values.
// The copy has no record id.
func (t *Tuple) Clone() *Tuple {
	return &Tuple{
		TupleDesc: t.TupleDesc,
		fields:    append([]types.Field(nil), t.fields...),
	}
}
