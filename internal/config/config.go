// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultSince     = "24h"
	DefaultFormat    = "plain"
	DefaultSortOrder = "desc"
	DefaultPlainTmpl = "{{.RelativeTime}} [{{.Type}}] {{.Title}}"
	DefaultFullTmpl  = "{{.Timestamp | formatTime}} [{{.Type}}/{{.Style}}] {{.Title}}\n{{meta .Entry \"artist\"}} {{meta .Entry \"album\"}}"
)

// Config represents the overlayctl configuration.
type Config struct {
	Output    OutputConfig    `toml:"output"`
	History   HistoryConfig   `toml:"history"`
	Templates TemplatesConfig `toml:"templates"`
}

// OutputConfig holds default output options.
type OutputConfig struct {
	Format string `toml:"format"` // plain, json, yaml
}

// HistoryConfig holds default journal query options.
type HistoryConfig struct {
	Since string `toml:"since"` // Default time filter (0 = all time)
	Limit int    `toml:"limit"` // Max entries (0 = unlimited)
	Order string `toml:"order"` // asc, desc
}

// TemplatesConfig holds output templates.
type TemplatesConfig struct {
	Plain  string            `toml:"plain"`
	Full   string            `toml:"full"`
	Custom map[string]string `toml:"custom"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Format: DefaultFormat,
		},
		History: HistoryConfig{
			Since: DefaultSince,
			Limit: 0,
			Order: DefaultSortOrder,
		},
		Templates: TemplatesConfig{
			Plain:  DefaultPlainTmpl,
			Full:   DefaultFullTmpl,
			Custom: make(map[string]string),
		},
	}
}

// ConfigDir returns the tvoverlay config directory.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "tvoverlay")
}

// ConfigPath returns the path to the overlayctl config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "tvoverlay")
}

// JournalPath returns the path to the notification journal.
func JournalPath() string {
	return filepath.Join(DataPath(), "journal.jsonl")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetTemplate returns the template for the given name.
// First checks custom templates, then built-in ones.
// Returns empty string if not found.
func (c *Config) GetTemplate(name string) string {
	if tmpl, ok := c.Templates.Custom[name]; ok {
		return tmpl
	}

	switch name {
	case "plain":
		return c.Templates.Plain
	case "full":
		return c.Templates.Full
	default:
		return ""
	}
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}
