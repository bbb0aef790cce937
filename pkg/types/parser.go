package types

import (
	"encoding/binary"
	"io"

	"storekit/pkg/dberror"
)

var ErrMalformedField = dberror.New(dberror.CategoryFormat, "MALFORMED_FIELD", "cannot parse field")

// ParseField reads one field of fieldType from r. It consumes exactly
// fieldType.Size() bytes on success.
func ParseField(r io.Reader, fieldType Type) (Field, error) {
	switch fieldType {
	case IntType:
		return parseIntField(r)

	case StringType:
		return parseStringField(r)

	default:
		return nil, ErrUnknownType.WithDetailf("type %d", int(fieldType))
	}
}

func parseIntField(r io.Reader) (*IntField, error) {
	bytes := make([]byte, IntSize)
	if _, err := io.ReadFull(r, bytes); err != nil {
		return nil, ErrMalformedField.WithCause(err)
	}
	return NewIntField(int32(binary.BigEndian.Uint32(bytes))), nil // #nosec G115
}

func parseStringField(r io.Reader) (*StringField, error) {
	buf := make([]byte, StringSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, ErrMalformedField.WithCause(err)
	}

	length := int(buf[0])
	if length > StringMaxSize {
		return nil, ErrMalformedField.WithDetailf("string length %d exceeds %d", length, StringMaxSize)
	}
	return &StringField{Value: string(buf[1 : 1+length])}, nil
}

// CreateFieldFromConstant builds a field of type t from its text form.
func CreateFieldFromConstant(t Type, constant string) (Field, error) {
	switch t {
	case IntType:
		v, err := parseInt32(constant)
		if err != nil {
			return nil, ErrMalformedField.WithDetailf("%q is not an int", constant)
		}
		return NewIntField(v), nil

	case StringType:
		return NewStringField(constant), nil

	default:
		return nil, ErrUnknownType.WithDetailf("type %d", int(t))
	}
}
