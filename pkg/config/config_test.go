package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storekit/pkg/dberror"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, int64(DefaultBufferPoolCapacity), cfg.BufferPool.Capacity)
	assert.Equal(t, int64(DefaultIndexDegree), cfg.Index.Degree)
}

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(`
[storage]
data_dir = "/tmp/sk"
catalog_file = "/tmp/sk/catalog.txt"

[buffer_pool]
capacity = 8

[index]
degree = 5

[log]
level = "debug"
format = "json"
output = "stdout"
`))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/sk", cfg.Storage.DataDir)
	assert.Equal(t, "/tmp/sk/catalog.txt", cfg.Storage.CatalogFile)
	assert.Equal(t, int64(8), cfg.BufferPool.Capacity)
	assert.Equal(t, int64(5), cfg.Index.Degree)
	assert.Equal(t, "debug", cfg.LoggingConfig().Level)
	assert.Equal(t, "json", cfg.LoggingConfig().Format)
	assert.Equal(t, "stdout", cfg.LoggingConfig().Output)
}

func TestParse_MissingKeysUseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("[buffer_pool]\ncapacity = 3\n"))
	require.NoError(t, err)

	assert.Equal(t, int64(3), cfg.BufferPool.Capacity)
	assert.Equal(t, DefaultDataDir, cfg.Storage.DataDir)
	assert.Equal(t, int64(DefaultIndexDegree), cfg.Index.Degree)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"negative capacity": "[buffer_pool]\ncapacity = -1\n",
		"small degree":      "[index]\ndegree = 2\n",
		"bad level":         "[log]\nlevel = \"loud\"\n",
		"bad format":        "[log]\nformat = \"xml\"\n",
		"not toml":          "[storage\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storekit.toml")
	require.NoError(t, os.WriteFile(path, []byte("[index]\ndegree = 7\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Index.Degree)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.True(t, dberror.IsCategory(err, dberror.CategoryIO))
}

func TestEncode_ParsesBack(t *testing.T) {
	cfg := Default()
	cfg.Storage.CatalogFile = "schema.txt"
	cfg.BufferPool.Capacity = 12

	data, err := cfg.Encode()
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
