package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvoverlay/internal/adapter/input"
)

var replayOpts struct {
	source string
	delay  time.Duration
	limit  int
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Queue notifications imported from another source",
	Long: `Import notifications from another daemon's history or from stdin and
queue them on the overlay, oldest first.

Sources:
  dunst  the history kept by dunst (needs dunstctl)
  stdin  a JSON array or JSON lines of notifications

Examples:
  overlayctl replay --source dunst --limit 5
  echo '{"title":"Backup done","type":"check"}' | overlayctl replay --source stdin`,
	Args: cobra.NoArgs,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replayOpts.source, "source", "",
		"Source to import from (dunst, stdin; default: auto-detect)")
	replayCmd.Flags().DurationVar(&replayOpts.delay, "delay", 0,
		"Pause between notifications")
	replayCmd.Flags().IntVarP(&replayOpts.limit, "limit", "n", 0,
		"Only replay the newest N notifications (0=all)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	adapter, err := input.NewAdapter(replayOpts.source)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifications, err := adapter.Import(ctx)
	if err != nil {
		return fmt.Errorf("failed to import from %s: %w", adapter.Name(), err)
	}
	if replayOpts.limit > 0 && len(notifications) > replayOpts.limit {
		notifications = notifications[len(notifications)-replayOpts.limit:]
	}
	logger.Debug("imported notifications", "source", adapter.Name(), "count", len(notifications))

	client, err := connect()
	if err != nil {
		return err
	}
	defer client.Close()

	queued := 0
	for i, n := range notifications {
		if i > 0 && replayOpts.delay > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(replayOpts.delay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, busTimeout)
		accepted, err := client.Queue(callCtx, n)
		cancel()
		if err != nil {
			return err
		}
		if !accepted {
			logger.Warn("overlayd rejected notification", "title", n.Title())
			continue
		}
		queued++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Queued %d of %d notifications from %s\n",
		queued, len(notifications), adapter.Name())
	return nil
}
