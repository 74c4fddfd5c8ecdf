// Package config provides configuration loading and structs for Kaimono.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI and server look for a config file first.
const DefaultPath = "/usr/local/etc/kaimono/config.yaml"

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Dataset DatasetConfig `yaml:"dataset"`
	Server  ServerConfig  `yaml:"server"`
	Output  OutputConfig  `yaml:"output"`
}

// DatasetConfig says where the purchase records come from.
type DatasetConfig struct {
	Path string `yaml:"path"`
	// Format overrides detection from the file extension: csv, xlsx or sqlite.
	Format string `yaml:"format"`
	// Sheet is the XLSX sheet to read; the first sheet when empty.
	Sheet string `yaml:"sheet"`
	// Table is the SQLite table to read.
	Table string `yaml:"table"`
	// Watch makes the server reload the dataset when the file changes.
	Watch bool `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// OutputConfig holds CLI rendering defaults.
type OutputConfig struct {
	Format string `yaml:"format"`
	Index  bool   `yaml:"index"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	configDir := filepath.Dir(path)
	cfg.Dataset.Path = expandPath(cfg.Dataset.Path, configDir)

	return &cfg, nil
}

// Save writes the config to path, creating its directory if needed.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects values no command can work with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Dataset.Format) {
	case "", "csv", "xlsx", "sqlite":
	default:
		return fmt.Errorf("dataset.format %q: want csv, xlsx or sqlite", c.Dataset.Format)
	}
	switch strings.ToLower(c.Output.Format) {
	case "", "text", "compact", "json":
	default:
		return fmt.Errorf("output.format %q: want text, compact or json", c.Output.Format)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. An empty path stays empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
