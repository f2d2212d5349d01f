// Package config loads and persists the service configuration.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// DataDir holds the SQLite database file.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// FetchTimeoutSeconds bounds a single feed download. Expiry is treated
	// as a fetch failure; the feed host may otherwise hang forever.
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds" json:"fetch_timeout_seconds"`

	// DefaultCadenceMinutes is applied to connections created without an
	// explicit cadence. Must be one of 15, 30, 60, 180.
	DefaultCadenceMinutes int `yaml:"default_cadence_minutes" json:"default_cadence_minutes"`

	// AmbiguousBlockMaxNights tunes the classifier: "closed"/"not available"
	// spans up to this many nights are treated as reservations, longer
	// spans as administrative blocks.
	AmbiguousBlockMaxNights int `yaml:"ambiguous_block_max_nights" json:"ambiguous_block_max_nights"`

	// ConflictAlertsDefault is the alert preference applied to new
	// connections.
	ConflictAlertsDefault bool `yaml:"conflict_alerts_default" json:"conflict_alerts_default"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:                  "127.0.0.1:8091",
		DataDir:                 "./data",
		FetchTimeoutSeconds:     20,
		DefaultCadenceMinutes:   60,
		AmbiguousBlockMaxNights: 14,
		ConflictAlertsDefault:   true,
	}
}

// Normalize fills in missing or out-of-range values so partially-filled
// configs from older versions still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8091"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.FetchTimeoutSeconds < 15 || c.FetchTimeoutSeconds > 30 {
		c.FetchTimeoutSeconds = 20
	}
	switch c.DefaultCadenceMinutes {
	case 15, 30, 60, 180:
	default:
		c.DefaultCadenceMinutes = 60
	}
	if c.AmbiguousBlockMaxNights <= 0 {
		c.AmbiguousBlockMaxNights = 14
	}
}

// Load loads configuration from the given YAML path. If the file does not
// exist, a default config is written there (0600) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration to path atomically (temp file + rename)
// with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}
