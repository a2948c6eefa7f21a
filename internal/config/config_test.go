package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/on-the-ground/dynbind/dispatch"
	"github.com/on-the-ground/dynbind/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
	assert.Equal(t, dispatch.Config{BufferSize: 1, NumWorkers: 1}, cfg.DispatchConfig())
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, int64(1<<16), cfg.Cache.MaxCost)
	assert.Equal(t, int64(10<<16), cfg.Cache.NumCounters)
	assert.Equal(t, int64(64), cfg.Cache.BufferItems)
	assert.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	cfg, err := config.Parse([]byte(`
log:
  level: debug
  format: json
dispatch:
  buffer_size: 16
  num_workers: 0
cache:
  enabled: true
  max_cost: 100
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, dispatch.Config{BufferSize: 16, NumWorkers: 1}, cfg.DispatchConfig())
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, int64(100), cfg.RegistryCacheConfig().MaxCost)
	assert.Equal(t, int64(1000), cfg.RegistryCacheConfig().NumCounters)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestParse_Errors(t *testing.T) {
	_, err := config.Parse([]byte("log:\n  colour: red\n"))
	assert.ErrorContains(t, err, "failed to parse config")

	_, err = config.Parse([]byte("log:\n  level: loud\n  format: xml\n"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "log.level: unknown level \"loud\"")
	assert.ErrorContains(t, err, "log.format: unknown format \"xml\"")

	_, err = config.Parse([]byte("dispatch:\n  num_workers: -2\ncache:\n  max_cost: -1\n"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "dispatch.num_workers: must not be negative, got -2")
	assert.ErrorContains(t, err, "cache.max_cost: must not be negative, got -1")
	assert.NotContains(t, err.Error(), "dispatch.buffer_size")
}

func TestValidate_EmptyMeansDefault(t *testing.T) {
	assert.NoError(t, config.Config{}.Validate())
	assert.Equal(t, config.Default(), config.Config{}.Normalize())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dynbind.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dispatch:\n  num_workers: 4\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Dispatch.NumWorkers)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}
