package main

import (
	"github.com/spf13/cobra"
)

var screensOpts struct {
	format string
}

var screensCmd = &cobra.Command{
	Use:   "screens",
	Short: "List the overlays on screen",
	Long: `List the overlay stack of the running overlayd, bottom first.

Examples:
  overlayctl screens
  overlayctl screens --format json | jq '.[] | select(.kind == "notification")'`,
	Args: cobra.NoArgs,
	RunE: runScreens,
}

func init() {
	rootCmd.AddCommand(screensCmd)

	screensCmd.Flags().StringVarP(&screensOpts.format, "format", "f", "",
		"Output format (plain, json, yaml, dmenu, ids)")
}

func runScreens(cmd *cobra.Command, args []string) error {
	f, err := formatterFor(screensOpts.format, "")
	if err != nil {
		return err
	}

	client, err := connect()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := busContext()
	defer cancel()

	screens, err := client.Screens(ctx)
	if err != nil {
		return err
	}
	return f.FormatScreens(cmd.OutOrStdout(), screens)
}
