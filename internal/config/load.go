package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Default values applied by LoadFile when the file leaves them unset.
const (
	DefaultDatabasePath   = "fleetsync.db"
	DefaultMetricsAddr    = ":9090"
	DefaultSyncInterval   = 10 * time.Minute
	DefaultMaxGenerations = 10
)

// LoadFile reads and parses the configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var rawConfig map[string]interface{}
	if err := yaml.Unmarshal(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build config decoder: %w", err)
	}
	if err := decoder.Decode(rawConfig); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		DatabasePath:   DefaultDatabasePath,
		MetricsAddr:    DefaultMetricsAddr,
		SyncInterval:   DefaultSyncInterval,
		MaxGenerations: DefaultMaxGenerations,
	}
}

// Validate checks the configuration for common errors.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval must be positive")
	}
	if c.MaxGenerations <= 0 {
		return fmt.Errorf("max_generations must be positive")
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("queue_size must not be negative")
	}
	if c.AWS.Region == "" {
		return fmt.Errorf("aws.region is required")
	}
	if c.PaaS.Enabled() && c.PaaS.Token == "" {
		return fmt.Errorf("paas.token is required when paas.endpoint is set")
	}
	return nil
}
