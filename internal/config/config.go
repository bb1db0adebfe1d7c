package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all stratum configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Analyzer  AnalyzerConfig  `toml:"analyzer"`
	Archive   ArchiveConfig   `toml:"archive"`
	Optimizer OptimizerConfig `toml:"optimizer"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type AnalyzerConfig struct {
	URL string `toml:"url"` // semantic-tag extractor endpoint
}

type ArchiveConfig struct {
	Dir         string `toml:"dir"`          // external archive directory
	MaxAttempts int    `toml:"max_attempts"` // sync retries before dead-letter
}

type OptimizerConfig struct {
	IntervalMinutes int `toml:"interval_minutes"`
	HotCeiling      int `toml:"hot_ceiling"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37780,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Analyzer: AnalyzerConfig{
			URL: "http://localhost:8642",
		},
		Archive: ArchiveConfig{
			Dir:         "", // resolved at runtime next to the database
			MaxAttempts: 5,
		},
		Optimizer: OptimizerConfig{
			IntervalMinutes: 60,
			HotCeiling:      128,
		},
	}
}

// Load reads a TOML config file, layering it over defaults. A missing file
// is not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
