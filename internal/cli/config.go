package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime settings the run command needs.
type Config struct {
	// Database is the SQLite database path.
	Database string `yaml:"database"`

	// Workers sizes the engine worker pool. Zero means the default.
	Workers int `yaml:"workers,omitempty"`

	// MaxDelaySeconds caps card-configured send delays. A seller typo of
	// 86400 should not silently park a delivery for a day. Zero means no
	// cap.
	MaxDelaySeconds int `yaml:"max_delay_seconds,omitempty"`
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() *Config {
	return &Config{}
}

// LoadConfig reads and validates the YAML config at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Database == "" {
		return nil, fmt.Errorf("config %s: database is required", path)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("config %s: workers must not be negative", path)
	}
	if cfg.MaxDelaySeconds < 0 {
		return nil, fmt.Errorf("config %s: max_delay_seconds must not be negative", path)
	}
	return &cfg, nil
}
