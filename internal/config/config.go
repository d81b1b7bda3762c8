// Package config loads the dagsmith application settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fentz26/dagsmith/internal/capacity"
	"github.com/fentz26/dagsmith/internal/deploy"
	"github.com/fentz26/dagsmith/internal/naming"
	"github.com/fentz26/dagsmith/internal/scheduler"
)

// Dir is the settings directory under the user's home.
const Dir = ".dagsmith"

// Config holds application settings.
type Config struct {
	// PoolCapacity is the slot limit each stage is checked against.
	PoolCapacity int `yaml:"pool_capacity"`
	// WorkspaceRoot is where generated project trees are written.
	WorkspaceRoot string `yaml:"workspace_root"`
	// DBPath is the SQLite project store.
	DBPath string `yaml:"db_path"`
	// Listen is the control plane address.
	Listen string `yaml:"listen"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`

	Playback PlaybackConfig `yaml:"playback"`

	// Build bounds the workers of a batch build.
	Build scheduler.Config `yaml:"build"`
}

// PlaybackConfig bounds the pause before each simulated command output.
type PlaybackConfig struct {
	MinDelayMS int `yaml:"min_delay_ms"`
	MaxDelayMS int `yaml:"max_delay_ms"`
}

// MinDelay returns the lower bound as a duration.
func (p PlaybackConfig) MinDelay() time.Duration {
	return time.Duration(p.MinDelayMS) * time.Millisecond
}

// MaxDelay returns the upper bound as a duration.
func (p PlaybackConfig) MaxDelay() time.Duration {
	return time.Duration(p.MaxDelayMS) * time.Millisecond
}

// DefaultConfig returns the default configuration rooted at the user's home.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		PoolCapacity:  capacity.DefaultPoolCapacity,
		WorkspaceRoot: naming.WorkspaceRoot,
		DBPath:        filepath.Join(home, Dir, "dagsmith.db"),
		Listen:        "127.0.0.1:7467",
		LogLevel:      "info",
		LogFormat:     "text",
		Playback: PlaybackConfig{
			MinDelayMS: int(deploy.DefaultMinDelay / time.Millisecond),
			MaxDelayMS: int(deploy.DefaultMaxDelay / time.Millisecond),
		},
		Build: *scheduler.DefaultConfig(),
	}
}

// DefaultPath returns ~/.dagsmith/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(Dir, "config.yaml")
	}
	return filepath.Join(home, Dir, "config.yaml")
}

// LoadConfig loads configuration from a YAML file. A missing file yields
// the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to a YAML file, creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.PoolCapacity < 1 {
		return fmt.Errorf("pool_capacity must be at least 1")
	}
	if c.Playback.MinDelayMS < 0 || c.Playback.MaxDelayMS < c.Playback.MinDelayMS {
		return fmt.Errorf("playback delays must satisfy 0 <= min_delay_ms <= max_delay_ms")
	}
	if c.Build.GlobalMax < 1 {
		return fmt.Errorf("build.global_max must be at least 1")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be: debug, info, warn, or error", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log_format %q, must be: text or json", c.LogFormat)
	}
	return nil
}
