package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// errDialogCancelled is returned when the user backs out of a dialog.
var errDialogCancelled = errors.New("dialog cancelled")

var dialogOpts struct {
	timeout time.Duration
	index   bool
}

var dialogCmd = &cobra.Command{
	Use:   "dialog <text> <button>...",
	Short: "Ask a question on the overlay",
	Long: `Show a dialog with a message and a list of buttons, wait for the
user's choice and print the chosen button.

The command fails when the dialog is cancelled or the timeout passes.

Examples:
  overlayctl dialog "Delete this recording?" Yes No
  overlayctl dialog "Resume playback?" "From 12:04" "From the start" --index`,
	Args: cobra.MinimumNArgs(2),
	RunE: runDialog,
}

func init() {
	rootCmd.AddCommand(dialogCmd)

	dialogCmd.Flags().DurationVar(&dialogOpts.timeout, "timeout", 0,
		"Give up after this long (0 = wait forever)")
	dialogCmd.Flags().BoolVar(&dialogOpts.index, "index", false,
		"Print the 0-based button index instead of its title")
}

func runDialog(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if dialogOpts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dialogOpts.timeout)
		defer cancel()
	}

	client, err := connect()
	if err != nil {
		return err
	}
	defer client.Close()

	res, err := client.Dialog(ctx, args[0], args[1:])
	if err != nil {
		return err
	}
	if res.Result < 0 {
		return errDialogCancelled
	}

	if dialogOpts.index {
		fmt.Fprintln(cmd.OutOrStdout(), res.Result)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	}
	return nil
}
