package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Store kinds
const (
	StoreHexa   = "hexa"
	StoreLinear = "linear"
	StoreBadger = "badger"
)

// ValidStores lists the accepted values of Config.Store
var ValidStores = []string{StoreHexa, StoreLinear, StoreBadger}

// Config holds the hexastore CLI configuration.
type Config struct {
	// Store implementation used by load, match, query and compare
	Store string `yaml:"store"`

	// Serve single-bound patterns from an index instead of a scan
	SingleBoundIndex bool `yaml:"single_bound_index"`

	Log    LogConfig    `yaml:"log"`
	Output OutputConfig `yaml:"output"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// OutputConfig configures result rendering.
type OutputConfig struct {
	Color    bool `yaml:"color"`
	MaxWidth int  `yaml:"max_width"` // truncate cells longer than this, 0 disables
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Store: StoreHexa,
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Output: OutputConfig{
			Color:    true,
			MaxWidth: 60,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
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

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"json", "console"}
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !slices.Contains(ValidStores, c.Store) {
		return fmt.Errorf("invalid store: %q (valid: %v)", c.Store, ValidStores)
	}
	if c.SingleBoundIndex && c.Store != StoreHexa {
		return fmt.Errorf("single_bound_index only applies to the %s store", StoreHexa)
	}
	if !slices.Contains(validLevels, c.Log.Level) {
		return fmt.Errorf("invalid log level: %q (valid: %v)", c.Log.Level, validLevels)
	}
	if !slices.Contains(validFormats, c.Log.Format) {
		return fmt.Errorf("invalid log format: %q (valid: %v)", c.Log.Format, validFormats)
	}
	if c.Output.MaxWidth < 0 {
		return fmt.Errorf("output.max_width must not be negative")
	}
	return nil
}
