// Package config holds tunable runtime settings. Values come from
// defaults, an optional YAML file, and environment overrides, in that
// order
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kode4food/colloquy/internal/runtime"
)

type (
	// Config holds configuration settings for the runtime
	Config struct {
		MaxCascadeDepth int    `yaml:"max_cascade_depth"`
		OrphanPolicy    string `yaml:"orphan_policy"`
		LogLevel        string `yaml:"log_level"`

		Snapshot SnapshotConfig `yaml:"snapshot"`
	}

	// SnapshotConfig configures post-tick snapshot persistence
	SnapshotConfig struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
		Prefix  string `yaml:"prefix"`
		DB      int    `yaml:"db"`
	}
)

const (
	DefaultOrphanPolicy  = string(runtime.OrphanStop)
	DefaultLogLevel      = "info"
	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisPrefix   = "colloquy"

	MaxCascadeDepthCeiling = 10_000

	envMaxCascadeDepth = "COLLOQUY_MAX_CASCADE_DEPTH"
	envOrphanPolicy    = "COLLOQUY_ORPHAN_POLICY"
	envLogLevel        = "COLLOQUY_LOG_LEVEL"
	envSnapshotAddr    = "COLLOQUY_SNAPSHOT_ADDR"
)

var (
	ErrInvalidCascadeDepth = errors.New(
		"max cascade depth must be positive",
	)
	ErrCascadeDepthTooLarge = errors.New("max cascade depth too large")
	ErrInvalidOrphanPolicy  = errors.New("invalid orphan policy")
	ErrInvalidLogLevel      = errors.New("invalid log level")
	ErrInvalidEnvValue      = errors.New("invalid environment value")
)

var validLogLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {},
}

// NewDefaultConfig creates a configuration with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		MaxCascadeDepth: runtime.DefaultMaxCascadeDepth,
		OrphanPolicy:    DefaultOrphanPolicy,
		LogLevel:        DefaultLogLevel,
		Snapshot: SnapshotConfig{
			Addr:   DefaultRedisEndpoint,
			Prefix: DefaultRedisPrefix,
		},
	}
}

// LoadFile reads a YAML configuration file over the defaults and applies
// environment overrides
func LoadFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a configuration from defaults plus environment overrides
func FromEnv() (*Config, error) {
	cfg := NewDefaultConfig()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(envMaxCascadeDepth); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnvValue,
				envMaxCascadeDepth, v)
		}
		c.MaxCascadeDepth = depth
	}
	if v := os.Getenv(envOrphanPolicy); v != "" {
		c.OrphanPolicy = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(envSnapshotAddr); v != "" {
		c.Snapshot.Addr = v
	}
	return nil
}

// Validate checks the configuration for out-of-range values
func (c *Config) Validate() error {
	if c.MaxCascadeDepth <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCascadeDepth,
			c.MaxCascadeDepth)
	}
	if c.MaxCascadeDepth > MaxCascadeDepthCeiling {
		return fmt.Errorf("%w: %d", ErrCascadeDepthTooLarge,
			c.MaxCascadeDepth)
	}
	switch runtime.OrphanPolicy(c.OrphanPolicy) {
	case runtime.OrphanStop, runtime.OrphanDetach:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOrphanPolicy,
			c.OrphanPolicy)
	}
	if _, ok := validLogLevels[c.LogLevel]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return nil
}

// SlogLevel maps the configured log level onto its slog equivalent
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RuntimeOptions maps the configuration onto runtime options
func (c *Config) RuntimeOptions() *runtime.Options {
	return &runtime.Options{
		MaxCascadeDepth: c.MaxCascadeDepth,
		OrphanPolicy:    runtime.OrphanPolicy(c.OrphanPolicy),
	}
}
