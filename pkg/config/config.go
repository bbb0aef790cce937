// Package config loads storekit settings from a TOML file.
//
// Example file:
//
//	[storage]
//	data_dir = "/var/lib/storekit"
//	catalog_file = "/etc/storekit/catalog.txt"
//
//	[buffer_pool]
//	capacity = 50
//
//	[index]
//	degree = 4
//
//	[log]
//	level = "info"
//	format = "json"
//	output = "stderr"
//
// Keys that are missing keep their default value.
package config

import (
	"os"
	"strings"

	toml "github.com/pelletier/go-toml"

	"storekit/pkg/dberror"
	"storekit/pkg/logging"
)

const (
	DefaultDataDir            = "data"
	DefaultBufferPoolCapacity = 50
	DefaultIndexDegree        = 4
	MinIndexDegree            = 3
)

var ErrInvalidConfig = dberror.New(dberror.CategoryFormat, "INVALID_CONFIG", "invalid configuration")

type StorageConfig struct {
	DataDir string `toml:"data_dir"`

	// CatalogFile is an optional schema file loaded at startup.
	CatalogFile string `toml:"catalog_file"`
}

type BufferPoolConfig struct {
	Capacity int64 `toml:"capacity"`
}

type IndexConfig struct {
	Degree int64 `toml:"degree"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// Config is the full storekit configuration.
type Config struct {
	Storage    StorageConfig    `toml:"storage"`
	BufferPool BufferPoolConfig `toml:"buffer_pool"`
	Index      IndexConfig      `toml:"index"`
	Log        LogConfig        `toml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Storage:    StorageConfig{DataDir: DefaultDataDir},
		BufferPool: BufferPoolConfig{Capacity: DefaultBufferPoolCapacity},
		Index:      IndexConfig{Degree: DefaultIndexDegree},
		Log:        LogConfig{Level: "info", Format: "console", Output: "stderr"},
	}
}

// Load reads and validates the TOML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dberror.IOError(err, "Load", "Config")
	}
	return Parse(data)
}

// Parse decodes TOML bytes, fills unset keys from Default and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, ErrInvalidConfig.WithDetailf("decoding toml").WithCause(err)
	}

	cfg.applyDefaults(Default())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults(d *Config) {
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = d.Storage.DataDir
	}
	if c.BufferPool.Capacity == 0 {
		c.BufferPool.Capacity = d.BufferPool.Capacity
	}
	if c.Index.Degree == 0 {
		c.Index.Degree = d.Index.Degree
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Log.Output == "" {
		c.Log.Output = d.Log.Output
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		return ErrInvalidConfig.WithDetailf("storage.data_dir must be set")
	}
	if c.BufferPool.Capacity <= 0 {
		return ErrInvalidConfig.WithDetailf("buffer_pool.capacity must be positive, got %d", c.BufferPool.Capacity)
	}
	if c.Index.Degree < MinIndexDegree {
		return ErrInvalidConfig.WithDetailf("index.degree must be at least %d, got %d", MinIndexDegree, c.Index.Degree)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidConfig.WithDetailf("log.level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return ErrInvalidConfig.WithDetailf("log.format %q", c.Log.Format)
	}
	return nil
}

// LoggingConfig converts the [log] section for logging.Init.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		Output: c.Log.Output,
	}
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(*c)
	if err != nil {
		return nil, ErrInvalidConfig.WithDetailf("encoding toml").WithCause(err)
	}
	return data, nil
}
