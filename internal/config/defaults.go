package config

import "github.com/hyperjump/kaimono/internal/dataset"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Dataset.Table == "" {
		cfg.Dataset.Table = dataset.DefaultTable
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = "text"
	}
}

// Default returns the config written by "kaimono init".
func Default() *Config {
	cfg := &Config{
		Dataset: DatasetConfig{Path: "./shopping_trends.csv"},
	}
	ApplyDefaults(cfg)
	return cfg
}
