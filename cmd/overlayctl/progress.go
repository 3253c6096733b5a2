package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvoverlay/internal/adapter/input"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

var progressOpts struct {
	artist    string
	style     string
	closeNow  bool
	doneTitle string
}

var progressCmd = &cobra.Command{
	Use:   "progress <title>",
	Short: "Show progress read from stdin",
	Long: `Register a screen and update its progress bar from stdin.

Each input line starts with a percentage, optionally followed by text to
show under the bar. Lines that do not start with a number are ignored.
The screen is released when the input ends.

Examples:
  rsync --info=progress2 src/ dst/ | awk '{print $2}' | overlayctl progress "Copying"
  for i in $(seq 0 10 100); do echo "$i step $i"; sleep 1; done | overlayctl progress "Working"`,
	Args: cobra.ExactArgs(1),
	RunE: runProgress,
}

func init() {
	rootCmd.AddCommand(progressCmd)

	progressCmd.Flags().StringVar(&progressOpts.artist, "artist", "",
		"Origin line")
	progressCmd.Flags().StringVar(&progressOpts.style, "style", "busy",
		"Theme style")
	progressCmd.Flags().BoolVar(&progressOpts.closeNow, "close", false,
		"Close the screen as soon as the input ends")
	progressCmd.Flags().StringVar(&progressOpts.doneTitle, "done", "",
		"Title to show when the input ends")
}

func runProgress(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := connect()
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := client.Register(ctx)
	if err != nil {
		return err
	}
	logger.Debug("registered progress screen", "id", id)

	first := progressNotification(id, model.TypeNew, args[0])
	first.Duration = -1
	first.SetProgress(0, "")
	if _, err := client.Queue(ctx, first); err != nil {
		return err
	}

	readErr := input.ReadProgress(ctx, os.Stdin, func(p float64, text string) error {
		upd := progressNotification(id, model.TypeUpdate, "")
		upd.SetProgress(p, text)
		_, err := client.Queue(ctx, upd)
		return err
	})

	// release the registration even when interrupted
	endCtx, cancel := busContext()
	defer cancel()

	if progressOpts.doneTitle != "" {
		done := progressNotification(id, model.TypeUpdate, progressOpts.doneTitle)
		if _, err := client.Queue(endCtx, done); err != nil {
			logger.Warn("failed to update progress screen", "id", id, "error", err)
		}
	}
	if err := client.UnRegister(endCtx, id, progressOpts.closeNow); err != nil {
		logger.Warn("failed to release progress screen", "id", id, "error", err)
	}

	if readErr != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to read progress: %w", readErr)
	}
	return nil
}

func progressNotification(id int, t model.Type, title string) *model.Notification {
	n := model.NewNotification(t, title)
	n.ID = id
	n.Style = progressOpts.style
	if progressOpts.artist != "" {
		n.SetMeta(model.MetaArtist, progressOpts.artist)
	}
	return n
}
