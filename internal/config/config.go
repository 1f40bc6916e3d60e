// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the fastsum command configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvLogLevel overrides Config.LogLevel when set.
const EnvLogLevel = "FASTSUM_LOG_LEVEL"

// Config is the fastsum command configuration, as stored in YAML.
type Config struct {
	// Checked selects overflow checked summation.
	Checked bool `yaml:"checked"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	Perf PerfConfig `yaml:"perf"`
}

// PerfConfig configures performance counter reports.
type PerfConfig struct {
	Enabled bool `yaml:"enabled"`

	// Counters are perf tool counter names, e.g. instructions.
	Counters []string `yaml:"counters"`

	// Kernel includes kernel space events in the counts.
	Kernel bool `yaml:"kernel"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Perf: PerfConfig{
			Counters: []string{"instructions", "cpu-cycles"},
		},
	}
}

// Load loads the configuration at path. A missing file yields the default
// configuration. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		c.LogLevel = lvl
	}
}

// Level returns the zap level for c.LogLevel.
func (c *Config) Level() (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return lvl, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Perf.Enabled && len(c.Perf.Counters) == 0 {
		return fmt.Errorf("perf.enabled is set but perf.counters is empty")
	}
	return nil
}
