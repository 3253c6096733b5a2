package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "5s", "10s", "1m", "1h30m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Seconds returns the duration in whole seconds.
func (d Duration) Seconds() int {
	return int(time.Duration(d) / time.Second)
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for overlayd.
// Loaded from ~/.config/tvoverlay/overlayd.toml
type DaemonConfig struct {
	Display       DisplayConfig      `toml:"display"`
	Notifications NotificationConfig `toml:"notifications"`
	Layout        LayoutConfig       `toml:"layout"`
	Host          HostConfig         `toml:"host"`
	DBus          DBusConfig         `toml:"dbus"`
	MPRIS         MPRISConfig        `toml:"mpris"`
	Audio         AudioConfig        `toml:"audio"`
	Theme         ThemeConfig        `toml:"theme"`
	Mouse         MouseConfig        `toml:"mouse"`
	TUI           TUIConfig          `toml:"tui"`
	Journal       JournalConfig      `toml:"journal"`
	Log           LogConfig          `toml:"log"`
}

// DisplayConfig contains display-related settings.
type DisplayConfig struct {
	OffsetX int     `toml:"offset_x"` // Added to layout x positions
	OffsetY int     `toml:"offset_y"` // Added to layout y positions
	Monitor int     `toml:"monitor"`  // 0 = default, 1+ = specific monitor
	Opacity float64 `toml:"opacity"`  // 0.0-1.0
}

// NotificationConfig contains notification defaults.
type NotificationConfig struct {
	// Used for freedesktop notifications that leave the timeout to the server
	DefaultDuration Duration `toml:"default_duration"`
	// Keep critical freedesktop notifications up until dismissed
	CriticalPersistent bool `toml:"critical_persistent"`
}

// LayoutConfig contains layout template settings.
type LayoutConfig struct {
	Dir   string `toml:"dir"`   // User layout directory, empty = config dir/layouts
	Watch bool   `toml:"watch"` // Reload screens when layouts change
}

// HostConfig selects the UI host.
type HostConfig struct {
	Backend string `toml:"backend"` // gtk, tui, headless
}

// Backend names.
const (
	BackendGTK      = "gtk"
	BackendTUI      = "tui"
	BackendHeadless = "headless"
)

// ValidBackends returns all valid backend values.
func ValidBackends() []string {
	return []string{BackendGTK, BackendTUI, BackendHeadless}
}

// DBusConfig contains session bus settings.
type DBusConfig struct {
	Enabled          bool `toml:"enabled"`
	ClaimFreedesktop bool `toml:"claim_freedesktop"` // Own org.freedesktop.Notifications
	Mirror           bool `toml:"mirror"`            // Show another daemon's notifications when not claiming
}

// MPRISConfig contains now-playing settings.
type MPRISConfig struct {
	Enabled      bool     `toml:"enabled"`
	Player       string   `toml:"player"` // Bus name suffix, empty = first player found
	PollInterval Duration `toml:"poll_interval"`
	Duration     Duration `toml:"duration"` // How long track changes stay up
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled bool        `toml:"enabled"`
	Volume  int         `toml:"volume"` // 0-100
	Sounds  SoundConfig `toml:"sounds"`
}

// SoundConfig contains per-type sound file paths.
type SoundConfig struct {
	New     string `toml:"new"`
	Info    string `toml:"info"`
	Error   string `toml:"error"`
	Warning string `toml:"warning"`
	Check   string `toml:"check"`
	Busy    string `toml:"busy"`
}

// ThemeConfig contains theme settings.
type ThemeConfig struct {
	Name        string `toml:"name"`         // Theme name without .css extension
	ColorScheme string `toml:"color_scheme"` // "system", "light", or "dark"
}

// ColorScheme represents the color scheme preference.
type ColorScheme string

const (
	ColorSchemeSystem ColorScheme = "system"
	ColorSchemeLight  ColorScheme = "light"
	ColorSchemeDark   ColorScheme = "dark"
)

// ValidColorSchemes returns all valid color scheme values.
func ValidColorSchemes() []ColorScheme {
	return []ColorScheme{ColorSchemeSystem, ColorSchemeLight, ColorSchemeDark}
}

// MouseConfig contains mouse button action mappings.
type MouseConfig struct {
	Left   string `toml:"left"`
	Middle string `toml:"middle"`
	Right  string `toml:"right"`
}

// MouseAction represents a mouse button action.
type MouseAction string

const (
	MouseActionDismiss    MouseAction = "dismiss"
	MouseActionDismissAll MouseAction = "dismiss-all"
	MouseActionNone       MouseAction = "none"
)

// TUIConfig contains terminal host settings.
type TUIConfig struct {
	Artwork string `toml:"artwork"` // halfblock, kitty, iterm2, sixel, none
}

// Artwork protocols for the terminal host.
const (
	ArtworkHalfblock = "halfblock"
	ArtworkKitty     = "kitty"
	ArtworkITerm2    = "iterm2"
	ArtworkSixel     = "sixel"
	ArtworkNone      = "none"
)

// JournalConfig contains the notification journal settings.
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // Empty = data dir/journal.jsonl
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Display: DisplayConfig{
			Opacity: 1.0,
		},
		Notifications: NotificationConfig{
			DefaultDuration:    Duration(5 * time.Second),
			CriticalPersistent: false,
		},
		Layout: LayoutConfig{
			Watch: true,
		},
		Host: HostConfig{
			Backend: BackendGTK,
		},
		DBus: DBusConfig{
			Enabled:          true,
			ClaimFreedesktop: true,
		},
		MPRIS: MPRISConfig{
			Enabled:      false,
			PollInterval: Duration(time.Second),
			Duration:     Duration(8 * time.Second),
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  80,
		},
		Theme: ThemeConfig{
			Name:        "default",
			ColorScheme: string(ColorSchemeSystem),
		},
		Mouse: MouseConfig{
			Left:   string(MouseActionDismiss),
			Middle: string(MouseActionNone),
			Right:  string(MouseActionDismissAll),
		},
		TUI: TUIConfig{
			Artwork: ArtworkHalfblock,
		},
		Journal: JournalConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() string {
	return filepath.Join(ConfigDir(), "overlayd.toml")
}

// LayoutDir returns the user layout directory.
func (c *DaemonConfig) LayoutDir() string {
	if c.Layout.Dir != "" {
		return expandPath(c.Layout.Dir)
	}
	return filepath.Join(ConfigDir(), "layouts")
}

// ThemeDir returns the user theme directory.
func (c *DaemonConfig) ThemeDir() string {
	return filepath.Join(ConfigDir(), "themes")
}

// JournalPath returns the journal file path.
func (c *DaemonConfig) JournalPath() string {
	if c.Journal.Path != "" {
		return expandPath(c.Journal.Path)
	}
	return JournalPath()
}

// LoadDaemonConfig loads the daemon configuration from path, or from the
// default path when path is empty.
// If the file doesn't exist, returns the default configuration.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	if path == "" {
		path = DaemonConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfig saves the daemon configuration to path.
func SaveDaemonConfig(config *DaemonConfig, path string) error {
	if path == "" {
		path = DaemonConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	if !slices.Contains(ValidBackends(), c.Host.Backend) {
		return fmt.Errorf("invalid backend %q, must be one of: %v", c.Host.Backend, ValidBackends())
	}

	if c.Display.Opacity < 0 || c.Display.Opacity > 1 {
		return fmt.Errorf("opacity must be between 0 and 1, got %v", c.Display.Opacity)
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	if !slices.Contains(ValidColorSchemes(), ColorScheme(c.Theme.ColorScheme)) {
		return fmt.Errorf("invalid color scheme %q, must be one of: %v", c.Theme.ColorScheme, ValidColorSchemes())
	}

	if c.MPRIS.Enabled && c.MPRIS.PollInterval.Duration() < 100*time.Millisecond {
		return fmt.Errorf("mpris poll_interval must be at least 100ms, got %s", c.MPRIS.PollInterval.Duration())
	}

	validActions := []string{
		string(MouseActionDismiss),
		string(MouseActionDismissAll),
		string(MouseActionNone),
	}
	for _, action := range []string{c.Mouse.Left, c.Mouse.Middle, c.Mouse.Right} {
		if !slices.Contains(validActions, action) {
			return fmt.Errorf("invalid mouse action %q", action)
		}
	}

	validArtwork := []string{ArtworkHalfblock, ArtworkKitty, ArtworkITerm2, ArtworkSixel, ArtworkNone}
	if !slices.Contains(validArtwork, c.TUI.Artwork) {
		return fmt.Errorf("invalid tui artwork mode %q, must be one of: %v", c.TUI.Artwork, validArtwork)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}

	return nil
}

// SoundForType returns the sound file for a notification type name.
// Expands ~ to home directory.
func (c *DaemonConfig) SoundForType(typeName string) string {
	var path string
	switch typeName {
	case "new":
		path = c.Audio.Sounds.New
	case "info":
		path = c.Audio.Sounds.Info
	case "error":
		path = c.Audio.Sounds.Error
	case "warning":
		path = c.Audio.Sounds.Warning
	case "check":
		path = c.Audio.Sounds.Check
	case "busy":
		path = c.Audio.Sounds.Busy
	}
	return expandPath(path)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
