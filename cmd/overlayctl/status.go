package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/model"
	"github.com/jmylchreest/tvoverlay/internal/overlay"
)

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output the overlay status in Waybar's custom module JSON format.

This is designed to be used with Waybar's custom module:

  "custom/overlay": {
    "exec": "overlayctl status",
    "interval": 2,
    "return-type": "json"
  }

The output includes:
  - text: Number of notification screens on the overlay
  - alt: empty, active, dialog or offline
  - tooltip: The screen titles, top first
  - class: The most severe screen style (error, warning, busy, ...)
  - percentage: Progress of the first screen showing a progress bar`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	status := WaybarStatus{Text: "", Alt: "offline", Class: "offline"}

	client, err := connect()
	if err == nil {
		defer client.Close()

		ctx, cancel := busContext()
		defer cancel()

		screens, err := client.Screens(ctx)
		if err != nil {
			logger.Debug("failed to list screens", "error", err)
		} else {
			status = generateStatus(screens)
		}
	}

	return json.NewEncoder(cmd.OutOrStdout()).Encode(status)
}

// severity orders styles for the status class; unknown styles rank lowest.
var severity = map[string]int{
	model.TypeNames[model.TypeInfo]:    1,
	model.TypeNames[model.TypeCheck]:   2,
	model.TypeNames[model.TypeBusy]:    3,
	model.TypeNames[model.TypeWarning]: 4,
	model.TypeNames[model.TypeError]:   5,
}

// generateStatus summarizes the overlay stack.
func generateStatus(screens []center.ScreenInfo) WaybarStatus {
	var notifications []center.ScreenInfo
	dialogs := 0
	for _, s := range screens {
		switch s.Kind {
		case overlay.KindNotification.String():
			notifications = append(notifications, s)
		case overlay.KindDialog.String():
			dialogs++
		}
	}

	if len(notifications) == 0 && dialogs == 0 {
		return WaybarStatus{Text: "", Alt: "empty", Class: "empty"}
	}

	class := "normal"
	best := 0
	percentage := 0
	var lines []string
	for i := len(notifications) - 1; i >= 0; i-- {
		s := notifications[i]
		if rank := severity[s.Style]; rank > best {
			best = rank
			class = s.Style
		}
		if percentage == 0 && s.Progress > 0 {
			percentage = int(s.Progress * 100)
		}
		if title := s.Metadata[model.MetaTitle]; title != "" {
			lines = append(lines, title)
		}
	}

	alt := "active"
	if dialogs > 0 {
		alt = "dialog"
		lines = append([]string{fmt.Sprintf("%d dialog(s) waiting", dialogs)}, lines...)
	}

	return WaybarStatus{
		Text:       fmt.Sprintf("%d", len(notifications)),
		Alt:        alt,
		Tooltip:    strings.Join(lines, "\n"),
		Class:      class,
		Percentage: min(percentage, 100),
	}
}
