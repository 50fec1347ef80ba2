package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Defaults applied by ApplyDefaults when the corresponding field is unset.
const (
	DefaultPluginPrefix   = "*"
	DefaultMaxSearchDepth = 64
	DefaultLogLevel       = "info"
	DefaultDiagAddr       = "127.0.0.1:9464"
)

// Config holds runtime parameters for plugin discovery, loading and buffer
// negotiation. Zero values mean "unspecified".
type Config struct {
	PluginRoots       []string `json:"plugin_roots" yaml:"plugin_roots" toml:"plugin_roots"`
	PluginPrefix      string   `json:"plugin_prefix" yaml:"plugin_prefix" toml:"plugin_prefix"`
	MaxSearchDepth    int      `json:"max_search_depth" yaml:"max_search_depth" toml:"max_search_depth"`
	LogLevel          string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogLoadFailures   *bool    `json:"log_load_failures" yaml:"log_load_failures" toml:"log_load_failures"`
	AsyncExecution    bool     `json:"async_execution" yaml:"async_execution" toml:"async_execution"`
	DefaultBufferSize uint64   `json:"default_buffer_size" yaml:"default_buffer_size" toml:"default_buffer_size"`
	DiagAddr          string   `json:"diag_addr" yaml:"diag_addr" toml:"diag_addr"`
}

// Defaults returns a Config with every default applied.
func Defaults() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.PluginPrefix == "" {
		c.PluginPrefix = DefaultPluginPrefix
	}
	if c.MaxSearchDepth <= 0 {
		c.MaxSearchDepth = DefaultMaxSearchDepth
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogLoadFailures == nil {
		v := true
		c.LogLoadFailures = &v
	}
	if c.DiagAddr == "" {
		c.DiagAddr = DefaultDiagAddr
	}
}

// ShouldLogLoadFailures reports the effective log_load_failures setting.
func (c Config) ShouldLogLoadFailures() bool {
	return c.LogLoadFailures == nil || *c.LogLoadFailures
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
