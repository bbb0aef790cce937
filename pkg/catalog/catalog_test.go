package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storekit/pkg/dberror"
	"storekit/pkg/primitives"
	"storekit/pkg/storage/heap"
	"storekit/pkg/tuple"
	"storekit/pkg/types"
)

func newTestFile(t *testing.T, name string) *heap.HeapFile {
	t.Helper()
	td, err := tuple.NewTupleDesc([]types.Type{types.IntType, types.StringType}, []string{"id", "name"})
	require.NoError(t, err)
	hf, err := heap.NewHeapFile(primitives.Filepath(filepath.Join(t.TempDir(), name+DataFileExt)), td)
	require.NoError(t, err)
	return hf
}

func TestCatalog_AddAndLookup(t *testing.T) {
	c := NewCatalog()
	hf := newTestFile(t, "users")
	t.Cleanup(func() { _ = c.Clear() })

	require.NoError(t, c.AddTable(hf, "users", "id"))

	id, err := c.GetTableID("users")
	require.NoError(t, err)
	assert.Equal(t, hf.GetID(), id)

	name, err := c.GetTableName(id)
	require.NoError(t, err)
	assert.Equal(t, "users", name)

	td, err := c.GetTupleDesc(id)
	require.NoError(t, err)
	assert.Same(t, hf.GetTupleDesc(), td)

	pk, err := c.GetPrimaryKey(id)
	require.NoError(t, err)
	assert.Equal(t, "id", pk)

	file, err := c.GetDbFile(id)
	require.NoError(t, err)
	assert.Same(t, hf, file)

	assert.True(t, c.TableExists("users"))
	assert.Equal(t, []string{"users"}, c.GetAllTableNames())
	assert.Equal(t, []primitives.TableID{id}, c.TableIDs())
	assert.NoError(t, c.ValidateIntegrity())
	assert.Contains(t, c.String(), "users(")
}

func TestCatalog_Errors(t *testing.T) {
	c := NewCatalog()
	hf := newTestFile(t, "t")
	t.Cleanup(func() { _ = hf.Close() })

	_, err := c.GetTableID("missing")
	assert.True(t, errors.Is(err, ErrTableNotFound))
	assert.True(t, dberror.IsCategory(err, dberror.CategoryLookup))

	_, err = c.GetDbFile(primitives.TableID(99))
	assert.True(t, errors.Is(err, ErrTableNotFound))

	assert.True(t, errors.Is(c.AddTable(nil, "t", ""), ErrInvalidTable))
	assert.True(t, errors.Is(c.AddTable(hf, " ", ""), ErrInvalidTable))
	assert.True(t, errors.Is(c.AddTable(hf, "t", "nope"), ErrInvalidTable))
}

func TestCatalog_ReplaceByName(t *testing.T) {
	c := NewCatalog()
	first, second := newTestFile(t, "a"), newTestFile(t, "b")
	t.Cleanup(func() { _ = first.Close() })
	t.Cleanup(func() { _ = c.Clear() })

	require.NoError(t, c.AddTable(first, "t", ""))
	require.NoError(t, c.AddTable(second, "t", ""))

	id, err := c.GetTableID("t")
	require.NoError(t, err)
	assert.Equal(t, second.GetID(), id)
	_, err = c.GetDbFile(first.GetID())
	assert.Error(t, err)
	assert.NoError(t, c.ValidateIntegrity())
}

func TestCatalog_RenameAndRemove(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.AddTable(newTestFile(t, "a"), "a", ""))
	require.NoError(t, c.AddTable(newTestFile(t, "b"), "b", ""))
	t.Cleanup(func() { _ = c.Clear() })

	assert.True(t, errors.Is(c.RenameTable("a", "b"), ErrTableExists))
	assert.True(t, errors.Is(c.RenameTable("zz", "c"), ErrTableNotFound))
	require.NoError(t, c.RenameTable("a", "c"))
	assert.Equal(t, []string{"b", "c"}, c.GetAllTableNames())

	require.NoError(t, c.RemoveTable("c"))
	assert.False(t, c.TableExists("c"))
	assert.True(t, errors.Is(c.RemoveTable("c"), ErrTableNotFound))
	assert.NoError(t, c.ValidateIntegrity())
}

func TestParseSchemaLine(t *testing.T) {
	def, err := ParseSchemaLine("users (id int pk, name string, age int)")
	require.NoError(t, err)
	assert.Equal(t, "users", def.Name)
	assert.Equal(t, []string{"id", "name", "age"}, def.FieldNames)
	assert.Equal(t, []types.Type{types.IntType, types.StringType, types.IntType}, def.FieldTypes)
	assert.Equal(t, "id", def.PrimaryKey)

	td, err := def.TupleDesc()
	require.NoError(t, err)
	assert.Equal(t, 3, td.NumFields())
}

func TestParseSchemaLine_Invalid(t *testing.T) {
	cases := map[string]string{
		"no parens":        "users id int",
		"no name":          "(id int)",
		"missing type":     "users (id)",
		"bad annotation":   "users (id int key)",
		"two primary keys": "users (id int pk, other int pk)",
		"spaced name":      "my users (id int)",
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSchemaLine(line)
			assert.True(t, errors.Is(err, ErrSchemaSyntax), "got %v", err)
		})
	}

	_, err := ParseSchemaLine("users (id float)")
	assert.True(t, errors.Is(err, types.ErrUnknownType))
}

func TestLoadSchema(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "catalog.txt")
	require.NoError(t, os.WriteFile(schemaPath, []byte(
		"# tables\nusers (id int pk, name string)\n\norders (id int, user_id int)\n"), 0o600))

	c := NewCatalog()
	t.Cleanup(func() { _ = c.Clear() })
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, c.LoadSchema(schemaPath, dataDir))

	assert.Equal(t, []string{"orders", "users"}, c.GetAllTableNames())
	assert.FileExists(t, filepath.Join(dataDir, "users"+DataFileExt))

	id, err := c.GetTableID("orders")
	require.NoError(t, err)
	hf, err := c.GetDbFile(id)
	require.NoError(t, err)
	assert.Equal(t, primitives.Filepath(filepath.Join(dataDir, "orders"+DataFileExt)).Hash(), hf.GetID())
}

func TestLoadSchema_Errors(t *testing.T) {
	dir := t.TempDir()
	c := NewCatalog()
	t.Cleanup(func() { _ = c.Clear() })

	err := c.LoadSchema(filepath.Join(dir, "missing.txt"), dir)
	assert.True(t, dberror.IsCategory(err, dberror.CategoryIO))

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("ok (a int)\nbroken\n"), 0o600))
	err = c.LoadSchema(bad, dir)
	assert.True(t, dberror.IsCategory(err, dberror.CategoryFormat))
	assert.True(t, c.TableExists("ok"))
}
