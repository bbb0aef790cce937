package types

import (
	"io"
	"strings"
	"unicode/utf8"

	"storekit/pkg/primitives"
)

const (
	// StringMaxSize is the number of payload bytes a StringField can hold.
	StringMaxSize = 128

	// StringSize is the on-page width of a StringField: one length byte
	// followed by StringMaxSize zero-padded payload bytes.
	StringSize = 1 + StringMaxSize
)

// StringField represents a fixed-width text field.
type StringField struct {
	Value string
}

// NewStringField creates a new StringField. Values longer than StringMaxSize
// bytes are truncated at the last rune boundary that fits.
func NewStringField(value string) *StringField {
	if len(value) > StringMaxSize {
		n := StringMaxSize
		for n > 0 && !utf8.RuneStart(value[n]) {
			n--
		}
		value = value[:n]
	}
	return &StringField{Value: value}
}

// Compare performs a lexicographic comparison. Like is a substring match.
func (s *StringField) Compare(op primitives.Predicate, other Field) (bool, error) {
	o, ok := other.(*StringField)
	if !ok {
		return false, mismatch(s, other)
	}

	if op == primitives.Like {
		return strings.Contains(s.Value, o.Value), nil
	}
	return compareOrdered(s.Value, o.Value, op), nil
}

// Serialize writes the field in its fixed-width layout:
//  1. 1 byte holding the payload length
//  2. the payload bytes
//  3. zero padding up to StringMaxSize
func (s *StringField) Serialize(w io.Writer) error {
	length := min(len(s.Value), StringMaxSize)

	buf := make([]byte, StringSize)
	buf[0] = byte(length)
	copy(buf[1:], s.Value[:length])

	_, err := w.Write(buf)
	return err
}

func (s *StringField) Type() Type {
	return StringType
}

func (s *StringField) String() string {
	return s.Value
}

func (s *StringField) Equals(other Field) bool {
	o, ok := other.(*StringField)
	if !ok {
		return false
	}
	return s.Value == o.Value
}

func (s *StringField) Length() uint32 {
	return StringSize
}
