// Package config loads the dynbind process configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/on-the-ground/dynbind/dispatch"
	"github.com/on-the-ground/dynbind/internal/logging"
	"github.com/on-the-ground/dynbind/registry"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Cache    CacheConfig    `yaml:"cache"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // default: info
	Format string `yaml:"format"` // auto | console | json, default: auto
}

type DispatchConfig struct {
	BufferSize int `yaml:"buffer_size"` // default: 1
	NumWorkers int `yaml:"num_workers"` // default: 1
}

type CacheConfig struct {
	Enabled     bool  `yaml:"enabled"`
	NumCounters int64 `yaml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost"`
	BufferItems int64 `yaml:"buffer_items"`
}

func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatAuto,
		},
	}.Normalize()
}

// Normalize fills unset or non-positive values with defaults.
func (c Config) Normalize() Config {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = logging.FormatAuto
	}
	d := dispatch.NewConfig(c.Dispatch.BufferSize, c.Dispatch.NumWorkers)
	c.Dispatch = DispatchConfig{BufferSize: d.BufferSize, NumWorkers: d.NumWorkers}
	rc := registry.NewCacheConfig(c.Cache.NumCounters, c.Cache.MaxCost, c.Cache.BufferItems)
	c.Cache.NumCounters, c.Cache.MaxCost, c.Cache.BufferItems = rc.NumCounters, rc.MaxCost, rc.BufferItems
	return c
}

// Validate reports every invalid setting. Empty strings and zero sizes are
// valid and mean the default.
func (c Config) Validate() error {
	var err error
	switch c.Log.Format {
	case "", logging.FormatAuto, logging.FormatConsole, logging.FormatJSON:
	default:
		err = multierr.Append(err, fmt.Errorf("%s: unknown format %q", KeyLogFormat, c.Log.Format))
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
	default:
		err = multierr.Append(err, fmt.Errorf("%s: unknown level %q", KeyLogLevel, c.Log.Level))
	}
	for _, size := range []struct {
		key string
		n   int64
	}{
		{KeyDispatchBufferSize, int64(c.Dispatch.BufferSize)},
		{KeyDispatchNumWorkers, int64(c.Dispatch.NumWorkers)},
		{KeyCacheNumCounters, c.Cache.NumCounters},
		{KeyCacheMaxCost, c.Cache.MaxCost},
		{KeyCacheBufferItems, c.Cache.BufferItems},
	} {
		if size.n < 0 {
			err = multierr.Append(err, fmt.Errorf("%s: must not be negative, got %d", size.key, size.n))
		}
	}
	return err
}

func (c Config) DispatchConfig() dispatch.Config {
	return dispatch.NewConfig(c.Dispatch.BufferSize, c.Dispatch.NumWorkers)
}

func (c Config) RegistryCacheConfig() registry.CacheConfig {
	return registry.NewCacheConfig(c.Cache.NumCounters, c.Cache.MaxCost, c.Cache.BufferItems)
}

// Parse decodes YAML and fills what it leaves unset with defaults. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg.Normalize(), nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}
