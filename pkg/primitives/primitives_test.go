package primitives

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilepath_HashIsStableAcrossRelativeForms(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	abs := Filepath(filepath.Join(dir, "users.dat"))
	assert.Equal(t, abs.Hash(), Filepath("users.dat").Hash())
	assert.Equal(t, abs.Hash(), Filepath("./users.dat").Hash())
	assert.NotEqual(t, abs.Hash(), Filepath("orders.dat").Hash())
}

func TestFilepath_Join(t *testing.T) {
	base := Filepath("/data")
	assert.Equal(t, filepath.Join("/data", "tables", "users.dat"), base.Join("tables", "users.dat").String())
	assert.Equal(t, "users.dat", base.Join("users.dat").Base())
}

func TestTransactionID(t *testing.T) {
	assert.False(t, NoTransaction.IsValid())
	assert.True(t, TransactionID(7).IsValid())
	assert.Equal(t, "TID(7)", TransactionID(7).String())
	assert.Equal(t, "TID(none)", NoTransaction.String())
}

func TestPredicate_String(t *testing.T) {
	cases := map[Predicate]string{
		Equals:             "=",
		NotEqual:           "<>",
		LessThan:           "<",
		LessThanOrEqual:    "<=",
		GreaterThan:        ">",
		GreaterThanOrEqual: ">=",
		Like:               "LIKE",
		Predicate(99):      "UNKNOWN",
	}
	for p, want := range cases {
		assert.Equal(t, want, p.String())
	}
}
