package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"storekit/pkg/primitives"
)

func resetLogger(t *testing.T) {
	t.Helper()
	require.NoError(t, Close())
	t.Cleanup(func() { _ = Close() })
}

func TestInit_FileOutput(t *testing.T) {
	resetLogger(t)
	path := filepath.Join(t.TempDir(), "logs", "storekit.log")

	require.NoError(t, Init(Config{Level: "debug", Format: "json", Output: path}))
	assert.Error(t, Init(Config{}), "second Init must fail")

	Debug("hello", zap.Int("n", 1))
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"n":1`)
	assert.Contains(t, string(data), `"service":"storekit"`)
}

func TestInit_LevelFilter(t *testing.T) {
	resetLogger(t)
	path := filepath.Join(t.TempDir(), "warn.log")

	require.NoError(t, Init(Config{Level: "warn", Format: "console", Output: path}))
	Info("dropped")
	Warn("kept")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestGetLogger_LazyDefault(t *testing.T) {
	resetLogger(t)
	assert.NotNil(t, GetLogger())
	assert.Same(t, GetLogger(), GetLogger())
}

func TestContextHelpers(t *testing.T) {
	resetLogger(t)
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))

	WithTx(primitives.TransactionID(7)).Info("tx")
	WithComponent("BufferPool").Info("component")
	WithLock(3, primitives.TableID(9)).Info("lock")
	WithTable("users").Info("table")
	WithIndex("users_pk").Info("index")
	WithPage(primitives.TableID(4)).Info("page")

	entries := logs.All()
	require.Len(t, entries, 6)
	assert.Equal(t, uint64(7), entries[0].ContextMap()["tx_id"])
	assert.Equal(t, "BufferPool", entries[1].ContextMap()["component"])
	assert.Equal(t, "TableID(9)", entries[2].ContextMap()["resource"])
	assert.Equal(t, "users", entries[3].ContextMap()["table"])
	assert.Equal(t, "users_pk", entries[4].ContextMap()["index"])
	assert.Equal(t, "TableID(4)", entries[5].ContextMap()["page"])
}
