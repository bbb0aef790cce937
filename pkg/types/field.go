package types

import (
	"io"

	"storekit/pkg/dberror"
	"storekit/pkg/primitives"
)

// Field is a single typed value inside a tuple.
type Field interface {
	// Serialize writes exactly Length() bytes to w.
	Serialize(w io.Writer) error

	// Compare applies op with the receiver on the left. Comparing fields of
	// different types fails with ErrTypeMismatch.
	Compare(op primitives.Predicate, other Field) (bool, error)

	Type() Type

	String() string

	Equals(other Field) bool

	Length() uint32
}

var ErrTypeMismatch = dberror.New(dberror.CategoryFormat, "TYPE_MISMATCH", "cannot compare fields of different types")

// Cmp returns -1, 0 or +1 as a is less than, equal to or greater than b.
func Cmp(a, b Field) (int, error) {
	less, err := a.Compare(primitives.LessThan, b)
	if err != nil {
		return 0, err
	}
	if less {
		return -1, nil
	}
	if a.Equals(b) {
		return 0, nil
	}
	return 1, nil
}

func mismatch(a, b Field) error {
	return ErrTypeMismatch.WithDetailf("%s vs %s", a.Type(), b.Type())
}
