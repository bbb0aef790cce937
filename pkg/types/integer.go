package types

import (
	"encoding/binary"
	"io"
	"strconv"

	"storekit/pkg/primitives"
)

// IntSize is the on-page width of an IntField.
const IntSize = 4

// IntField is a 32-bit signed integer stored big-endian.
type IntField struct {
	Value int32
}

func NewIntField(value int32) *IntField {
	return &IntField{Value: value}
}

func (f *IntField) Serialize(w io.Writer) error {
	bytes := make([]byte, IntSize)
	binary.BigEndian.PutUint32(bytes, uint32(f.Value)) // #nosec G115
	_, err := w.Write(bytes)
	return err
}

func (f *IntField) Compare(op primitives.Predicate, other Field) (bool, error) {
	o, ok := other.(*IntField)
	if !ok {
		return false, mismatch(f, other)
	}
	return compareOrdered(f.Value, o.Value, op), nil
}

func (f *IntField) Type() Type {
	return IntType
}

func (f *IntField) String() string {
	return strconv.FormatInt(int64(f.Value), 10)
}

func (f *IntField) Equals(other Field) bool {
	o, ok := other.(*IntField)
	if !ok {
		return false
	}
	return f.Value == o.Value
}

func (f *IntField) Length() uint32 {
	return IntSize
}
