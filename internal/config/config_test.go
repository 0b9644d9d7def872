package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/colloquy/internal/config"
	"github.com/kode4food/colloquy/internal/runtime"
)

func TestDefaults(t *testing.T) {
	cfg := config.NewDefaultConfig()
	assert.Equal(t, runtime.DefaultMaxCascadeDepth, cfg.MaxCascadeDepth)
	assert.Equal(t, config.DefaultOrphanPolicy, cfg.OrphanPolicy)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, config.DefaultRedisEndpoint, cfg.Snapshot.Addr)
	assert.False(t, cfg.Snapshot.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
max_cascade_depth: 75
orphan_policy: detach
snapshot:
  enabled: true
  addr: redis.internal:6379
  prefix: dialogs
`)
	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 75, cfg.MaxCascadeDepth)
	assert.Equal(t, string(runtime.OrphanDetach), cfg.OrphanPolicy)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.True(t, cfg.Snapshot.Enabled)
	assert.Equal(t, "redis.internal:6379", cfg.Snapshot.Addr)
	assert.Equal(t, "dialogs", cfg.Snapshot.Prefix)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := config.LoadFile(
		filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COLLOQUY_MAX_CASCADE_DEPTH", "12")
	t.Setenv("COLLOQUY_ORPHAN_POLICY", "detach")
	t.Setenv("COLLOQUY_LOG_LEVEL", "debug")
	t.Setenv("COLLOQUY_SNAPSHOT_ADDR", "other:6379")

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.MaxCascadeDepth)
	assert.Equal(t, string(runtime.OrphanDetach), cfg.OrphanPolicy)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "other:6379", cfg.Snapshot.Addr)
}

func TestEnvInvalidDepthRejected(t *testing.T) {
	t.Setenv("COLLOQUY_MAX_CASCADE_DEPTH", "lots")

	_, err := config.FromEnv()
	assert.ErrorIs(t, err, config.ErrInvalidEnvValue)

	path := writeConfig(t, "max_cascade_depth: 75\n")
	_, err = config.LoadFile(path)
	assert.ErrorIs(t, err, config.ErrInvalidEnvValue)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "log_level: warn\n")
	t.Setenv("COLLOQUY_LOG_LEVEL", "error")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*config.Config)
		err  error
	}{
		{
			name: "zero depth",
			mod:  func(c *config.Config) { c.MaxCascadeDepth = 0 },
			err:  config.ErrInvalidCascadeDepth,
		},
		{
			name: "excessive depth",
			mod:  func(c *config.Config) { c.MaxCascadeDepth = 20_000 },
			err:  config.ErrCascadeDepthTooLarge,
		},
		{
			name: "bad policy",
			mod:  func(c *config.Config) { c.OrphanPolicy = "adopt" },
			err:  config.ErrInvalidOrphanPolicy,
		},
		{
			name: "bad log level",
			mod:  func(c *config.Config) { c.LogLevel = "trace" },
			err:  config.ErrInvalidLogLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			tt.mod(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.err)
		})
	}
}

func TestRuntimeOptions(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.MaxCascadeDepth = 99
	cfg.OrphanPolicy = string(runtime.OrphanDetach)

	opts := cfg.RuntimeOptions()
	assert.Equal(t, 99, opts.MaxCascadeDepth)
	assert.Equal(t, runtime.OrphanDetach, opts.OrphanPolicy)
}

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}
