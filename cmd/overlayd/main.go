// Package main is the entry point for the overlayd overlay daemon.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvoverlay/internal/artwork"
	"github.com/jmylchreest/tvoverlay/internal/config"
	"github.com/jmylchreest/tvoverlay/internal/daemon"
	"github.com/jmylchreest/tvoverlay/internal/display"
	"github.com/jmylchreest/tvoverlay/internal/tui"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var opts struct {
	configPath string
	backend    string
	verbose    bool
	logFile    string
}

var rootCmd = &cobra.Command{
	Use:   "overlayd",
	Short: "On-screen notification and dialog overlay daemon",
	Long: `overlayd draws notification screens and dialogs over the desktop.

Notifications arrive on the session bus, either through overlayd's own
interface or, when configured, as the freedesktop notification service.
The overlay can be drawn with GTK layer-shell windows, in a terminal, or
not at all (headless).`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&opts.configPath, "config", "",
		"Path to config file (default: ~/.config/tvoverlay/overlayd.toml)")
	rootCmd.Flags().StringVar(&opts.backend, "backend", "",
		"UI backend: "+strings.Join(config.ValidBackends(), ", ")+" (default: from config)")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.Flags().StringVar(&opts.logFile, "log-file", "",
		"Write logs to this file (default: stderr, or a file in the data directory for the tui backend)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "overlayd:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadDaemonConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.backend != "" {
		cfg.Host.Backend = opts.backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, closeLog, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	host, err := newHost(cfg, logger)
	if err != nil {
		return err
	}

	d, err := daemon.New(daemon.Options{
		Config:     cfg,
		ConfigPath: opts.configPath,
		Host:       host,
		Logger:     logger,
		Version:    version,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting overlayd", "version", version, "backend", cfg.Host.Backend)
	return d.Run(ctx)
}

// newHost builds the UI backend named by the config.
func newHost(cfg *config.DaemonConfig, logger *slog.Logger) (daemon.Host, error) {
	switch cfg.Host.Backend {
	case config.BackendHeadless:
		return daemon.NewHeadlessHost(logger.With("component", "host")), nil

	case config.BackendTUI:
		return tui.NewHost(tui.Options{
			Config:  cfg,
			Artwork: newArtworkCache(logger),
			Logger:  logger.With("component", "tui"),
		}), nil

	case config.BackendGTK, "":
		return display.NewHost(display.Options{
			Config:  cfg,
			Artwork: newArtworkCache(logger),
			Logger:  logger.With("component", "display"),
		}), nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Host.Backend)
	}
}

func newArtworkCache(logger *slog.Logger) *artwork.Cache {
	dir := ""
	if cacheDir, err := os.UserCacheDir(); err == nil {
		dir = filepath.Join(cacheDir, "tvoverlay", "artwork")
	}
	cache, err := artwork.NewCache(artwork.DefaultCacheSize, dir, logger.With("component", "artwork"))
	if err != nil {
		logger.Warn("artwork disabled", "error", err)
		return nil
	}
	return cache
}

// setupLogger configures the global slog logger. The terminal backend owns
// the screen, so its logs go to a file unless one is given.
func setupLogger(cfg *config.DaemonConfig) (*slog.Logger, func(), error) {
	level := parseLevel(cfg.Log.Level)
	if opts.verbose {
		level = slog.LevelDebug
	}

	path := opts.logFile
	if path == "" && cfg.Host.Backend == config.BackendTUI {
		path = filepath.Join(config.DataPath(), "overlayd.log")
	}

	var w io.Writer = os.Stderr
	closeLog := func() {}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeLog = func() { _ = f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, closeLog, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ensure the hosts satisfy the daemon's interfaces
var (
	_ daemon.Host             = (*display.Host)(nil)
	_ daemon.ThemeHost        = (*display.Host)(nil)
	_ daemon.ConfigurableHost = (*display.Host)(nil)
	_ daemon.Host             = (*tui.Host)(nil)
	_ daemon.ConfigurableHost = (*tui.Host)(nil)
)
