package tuple

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storekit/pkg/storage/page"
	"storekit/pkg/types"
)

func mustDesc(t *testing.T, names ...string) *TupleDescription {
	t.Helper()
	td, err := NewTupleDesc([]types.Type{types.IntType, types.StringType}, names)
	require.NoError(t, err)
	return td
}

func TestNewTupleDesc(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		td := mustDesc(t, "id", "name")
		assert.Equal(t, 2, td.NumFields())
		assert.Equal(t, uint32(4+129), td.GetSize())

		name, err := td.GetFieldName(1)
		require.NoError(t, err)
		assert.Equal(t, "name", name)

		idx, err := td.FindFieldIndex("name")
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewTupleDesc(nil, nil)
		assert.True(t, errors.Is(err, ErrInvalidSchema))
	})

	t.Run("name count mismatch", func(t *testing.T) {
		_, err := NewTupleDesc([]types.Type{types.IntType}, []string{"a", "b"})
		assert.True(t, errors.Is(err, ErrInvalidSchema))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewTupleDesc([]types.Type{types.Type(7)}, nil)
		assert.True(t, errors.Is(err, types.ErrUnknownType))
	})

	t.Run("lookups", func(t *testing.T) {
		td := mustDesc(t)
		name, err := td.GetFieldName(0)
		require.NoError(t, err)
		assert.Equal(t, "", name)

		_, err = td.GetFieldName(2)
		assert.True(t, errors.Is(err, ErrFieldIndex))
		_, err = td.TypeAtIndex(-1)
		assert.True(t, errors.Is(err, ErrFieldIndex))
		_, err = td.FindFieldIndex("x")
		assert.True(t, errors.Is(err, ErrFieldNotFound))
	})
}

func TestTupleDesc_InputsAreCopied(t *testing.T) {
	typs := []types.Type{types.IntType}
	names := []string{"a"}
	td, err := NewTupleDesc(typs, names)
	require.NoError(t, err)

	typs[0] = types.StringType
	names[0] = "changed"
	assert.Equal(t, "INT_TYPE(a)", td.String())

	td.FieldNames()[0] = "mutated"
	assert.Equal(t, []string{"a"}, td.FieldNames())
}

func TestTupleDesc_RenameLeavesOriginal(t *testing.T) {
	td := mustDesc(t, "id", "name")

	renamed, err := td.Rename([]string{"uid", "uname"})
	require.NoError(t, err)

	assert.Equal(t, "INT_TYPE(id),STRING_TYPE(name)", td.String())
	assert.Equal(t, "INT_TYPE(uid),STRING_TYPE(uname)", renamed.String())
	assert.True(t, td.Equals(renamed))

	prefixed := mustDesc(t).WithPrefix("t")
	assert.Equal(t, []string{"t.null", "t.null"}, prefixed.FieldNames())
}

func TestTupleDesc_Equals(t *testing.T) {
	a := mustDesc(t, "x", "y")
	b, err := NewTupleDesc([]types.Type{types.StringType, types.IntType}, nil)
	require.NoError(t, err)

	assert.True(t, a.Equals(mustDesc(t)))
	assert.False(t, a.Equals(b))
	assert.False(t, a.Equals(nil))
}

func TestTuple_SetGet(t *testing.T) {
	tup := NewTuple(mustDesc(t))

	require.NoError(t, tup.SetField(0, types.NewIntField(5)))
	err := tup.SetField(1, types.NewIntField(6))
	assert.True(t, errors.Is(err, ErrFieldType))

	f, err := tup.GetField(0)
	require.NoError(t, err)
	assert.Equal(t, "5", f.String())

	_, err = tup.GetField(3)
	assert.True(t, errors.Is(err, ErrFieldIndex))
}

func TestTuple_SerializeRoundTrip(t *testing.T) {
	td := mustDesc(t)
	tup := NewBuilder(td).AddInt(-9).AddString("hello").MustBuild()

	b, err := tup.Bytes()
	require.NoError(t, err)
	assert.Len(t, b, int(td.GetSize()))

	got, err := ParseTuple(bytes.NewReader(b), td)
	require.NoError(t, err)
	assert.True(t, tup.Equals(got))
	assert.Equal(t, "-9\thello\n", got.String())
}

func TestTuple_SerializeUnsetField(t *testing.T) {
	tup := NewTuple(mustDesc(t))
	_, err := tup.Bytes()
	assert.True(t, errors.Is(err, ErrFieldType))
}

func TestTuple_Clone(t *testing.T) {
	tup := NewBuilder(mustDesc(t)).AddInt(1).AddString("a").MustBuild()
	tup.RecordID = NewRecordID(page.NewPageDescriptor(1, 0), 3)

	c := tup.Clone()
	assert.Nil(t, c.RecordID)
	assert.True(t, c.Equals(tup))

	require.NoError(t, c.SetField(0, types.NewIntField(2)))
	assert.False(t, c.Equals(tup))
}

func TestBuilder_Errors(t *testing.T) {
	_, err := NewBuilder(mustDesc(t)).AddInt(1).Build()
	assert.True(t, errors.Is(err, ErrInvalidSchema))

	_, err = NewBuilder(mustDesc(t)).AddString("x").AddInt(1).Build()
	assert.True(t, errors.Is(err, ErrFieldType))
}

func TestRecordID_Equals(t *testing.T) {
	pid := page.NewPageDescriptor(3, 4)
	a := NewRecordID(pid, 1)

	assert.True(t, a.Equals(NewRecordID(pid, 1)))
	assert.False(t, a.Equals(NewRecordID(pid, 2)))
	assert.False(t, a.Equals(nil))
	assert.Contains(t, a.String(), "tuple=1")
}
