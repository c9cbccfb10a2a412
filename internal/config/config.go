// Package config handles application configuration stored as TOML in the
// user's home directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	// Storage backend selection and local paths
	Storage StorageConfig `toml:"storage"`

	// Remote mirror configuration
	Remote RemoteConfig `toml:"remote"`

	// Application configuration
	App AppConfig `toml:"app"`

	// path the config was loaded from; empty means the default location.
	path string
}

// StorageConfig selects the active storage backend and its file locations.
type StorageConfig struct {
	Backend string `toml:"backend"` // "keyvalue", "sqlite" or "cloud"
	DBPath  string `toml:"db_path"` // SQLite database file
	KVPath  string `toml:"kv_path"` // key-value store file
}

// RemoteConfig contains settings for the remote mirror backend.
type RemoteConfig struct {
	BaseURL           string  `toml:"base_url"`
	APIKey            string  `toml:"api_key"`
	UserID            string  `toml:"user_id"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	InitialBackoff    string  `toml:"initial_backoff"` // e.g. "1s"
	MaxBackoff        string  `toml:"max_backoff"`     // e.g. "60s"
	MaxRetries        int     `toml:"max_retries"`
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "sqlite",
		},
		Remote: RemoteConfig{
			RequestsPerSecond: 5,
			InitialBackoff:    "1s",
			MaxBackoff:        "60s",
			MaxRetries:        5,
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// configPath returns the path to the configuration file.
func configPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".tcg-tracker")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.toml"), nil
}

// Load loads the configuration from the default location. Returns default
// config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.path = path
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	config.path = path

	return &config, nil
}

// Save saves the configuration back to the path it was loaded from.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		p, err := configPath()
		if err != nil {
			return err
		}
		path = p
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "keyvalue", "sqlite", "cloud":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if _, err := time.ParseDuration(c.Remote.InitialBackoff); err != nil {
		return fmt.Errorf("invalid initial backoff %q: %w", c.Remote.InitialBackoff, err)
	}
	if _, err := time.ParseDuration(c.Remote.MaxBackoff); err != nil {
		return fmt.Errorf("invalid max backoff %q: %w", c.Remote.MaxBackoff, err)
	}
	if c.Remote.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative: %d", c.Remote.MaxRetries)
	}
	if c.Remote.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive: %f", c.Remote.RequestsPerSecond)
	}

	return nil
}

// Backend returns the persisted backend selection.
func (c *Config) Backend() string {
	return c.Storage.Backend
}

// SetBackend persists a new backend selection. Switching backends is a view
// change only: no data moves between stores.
func (c *Config) SetBackend(name string) error {
	old := c.Storage.Backend
	c.Storage.Backend = name
	if err := c.Validate(); err != nil {
		c.Storage.Backend = old
		return err
	}
	return c.Save()
}

// GetInitialBackoff returns the sync backoff floor as a duration.
func (c *Config) GetInitialBackoff() (time.Duration, error) {
	return time.ParseDuration(c.Remote.InitialBackoff)
}

// GetMaxBackoff returns the sync backoff ceiling as a duration.
func (c *Config) GetMaxBackoff() (time.Duration, error) {
	return time.ParseDuration(c.Remote.MaxBackoff)
}
