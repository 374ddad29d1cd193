// ABOUTME: Tool configuration with defaults for units and grouping.
// ABOUTME: Reads and writes a JSON file under the XDG config directory.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config stores healthexport tool configuration.
type Config struct {
	// DistanceUnit is the default unit for distance and elevation output:
	// "km" (default), "m", or "mi".
	DistanceUnit string `json:"distance_unit,omitempty"`

	// GroupThreshold is the default percentage under which small breakdown
	// slices fold into an Others bucket. Defaults to 10.
	GroupThreshold *float64 `json:"group_threshold,omitempty"`

	// ExportDir is where export subcommand output lands when no explicit
	// path is given. Supports ~ expansion. Defaults to the working directory.
	ExportDir string `json:"export_dir,omitempty"`
}

// GetDistanceUnit returns the configured unit, defaulting to kilometers.
func (c *Config) GetDistanceUnit() string {
	if c.DistanceUnit == "" {
		return "km"
	}
	return c.DistanceUnit
}

// GetGroupThreshold returns the configured grouping threshold percentage.
func (c *Config) GetGroupThreshold() float64 {
	if c.GroupThreshold == nil {
		return 10
	}
	return *c.GroupThreshold
}

// GetExportDir returns the configured export directory with ~ expanded.
func (c *Config) GetExportDir() string {
	if c.ExportDir == "" {
		return "."
	}
	return ExpandPath(c.ExportDir)
}

// Validate checks that configured values are usable.
func (c *Config) Validate() error {
	switch c.GetDistanceUnit() {
	case "km", "m", "mi":
	default:
		return fmt.Errorf("unsupported distance unit: %q", c.DistanceUnit)
	}
	if t := c.GetGroupThreshold(); t < 0 || t > 100 {
		return fmt.Errorf("group threshold must be between 0 and 100, got %v", t)
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "healthexport", "config.json")
}

// Load reads config from disk.
func Load() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
