// Package main provides the overlayctl client for overlayd.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvoverlay/internal/adapter/output"
	"github.com/jmylchreest/tvoverlay/internal/config"
	"github.com/jmylchreest/tvoverlay/internal/dbus"
	"github.com/jmylchreest/tvoverlay/internal/store"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// busTimeout bounds single calls to overlayd.
const busTimeout = 10 * time.Second

var (
	cfg        *config.Config
	globalOpts struct {
		verbose     bool
		journalFile string
		configPath  string
	}
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "overlayctl",
	Short: "Send notifications and dialogs to overlayd",
	Long: `overlayctl talks to a running overlayd over the session bus.

It can queue notifications, drive a progress screen from a pipe, ask a
question with a dialog, list what is on screen and browse the journal of
notifications overlayd has shown.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.journalFile, "journal-file", "",
		"Path to the journal (default: ~/.local/share/tvoverlay/journal.jsonl)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/tvoverlay/config.toml)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// stderr keeps stdout clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// connect opens a client to overlayd.
func connect() (*dbus.Client, error) {
	client, err := dbus.Connect()
	if err != nil {
		return nil, fmt.Errorf("is overlayd running? %w", err)
	}
	return client, nil
}

// busContext bounds a single call to overlayd.
func busContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), busTimeout)
}

// journalPath returns the journal file, honoring --journal-file.
func journalPath() string {
	if globalOpts.journalFile != "" {
		return globalOpts.journalFile
	}
	return config.JournalPath()
}

// openJournal opens and loads the journal.
func openJournal() (*store.Store, error) {
	persistence, err := store.NewJSONLPersistence(journalPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	s := store.NewStore(persistence)
	if err := s.Hydrate(); err != nil {
		logger.Warn("failed to load journal", "error", err)
	}
	return s, nil
}

// formatterFor builds a formatter from a --format value, falling back to
// the configured default. template is a configured template name or a
// template itself.
func formatterFor(format, template string) (output.Formatter, error) {
	if format == "" {
		format = cfg.Output.Format
	}
	ft, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	if named := cfg.GetTemplate(template); named != "" {
		template = named
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = template
	return output.NewFormatter(ft, opts), nil
}
