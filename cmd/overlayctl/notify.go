package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

var notifyOpts struct {
	kind       string
	duration   int
	artist     string
	album      string
	format     string
	meta       map[string]string
	image      string
	progress   float64
	text       string
	style      string
	fullscreen bool
}

var notifyCmd = &cobra.Command{
	Use:   "notify [title]",
	Short: "Queue a notification",
	Long: `Queue a notification on the overlay.

The notification is anonymous and gets a screen of its own. Registered
screens belong to the bus connection that registered them; see "overlayctl
progress" for a command that registers and updates in one go.

Examples:
  overlayctl notify "Recording started" --artist "BBC One" --album "News at Six"
  overlayctl notify "Disk almost full" --type warning --duration 10
  overlayctl notify "Now playing" --image cover.jpg --progress 0.25 --text "1:02 / 4:10"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)

	notifyCmd.Flags().StringVarP(&notifyOpts.kind, "type", "t", "new",
		"Notification type (new, update, info, error, warning, check, busy)")
	notifyCmd.Flags().IntVarP(&notifyOpts.duration, "duration", "d", 0,
		"Seconds on screen (0 = default, negative = until closed)")
	notifyCmd.Flags().StringVar(&notifyOpts.artist, "artist", "",
		"Origin line")
	notifyCmd.Flags().StringVar(&notifyOpts.album, "album", "",
		"Description line")
	notifyCmd.Flags().StringVar(&notifyOpts.format, "format", "",
		"Extra line, such as a format or channel")
	notifyCmd.Flags().StringToStringVarP(&notifyOpts.meta, "meta", "m", nil,
		"Additional metadata as key=value")
	notifyCmd.Flags().StringVar(&notifyOpts.image, "image", "",
		"Artwork image path")
	notifyCmd.Flags().Float64Var(&notifyOpts.progress, "progress", model.NoProgress,
		"Progress between 0 and 1")
	notifyCmd.Flags().StringVar(&notifyOpts.text, "text", "",
		"Progress text")
	notifyCmd.Flags().StringVar(&notifyOpts.style, "style", "",
		"Theme style (default: the type name)")
	notifyCmd.Flags().BoolVar(&notifyOpts.fullscreen, "fullscreen", false,
		"Cover the whole display")
}

func runNotify(cmd *cobra.Command, args []string) error {
	title := ""
	if len(args) > 0 {
		title = args[0]
	}

	n, err := buildNotification(title)
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

	accepted, err := client.Queue(ctx, n)
	if err != nil {
		return err
	}
	if !accepted {
		return fmt.Errorf("overlayd rejected the notification")
	}
	return nil
}

// buildNotification turns the notify flags into a notification.
func buildNotification(title string) (*model.Notification, error) {
	t, err := model.ParseType(notifyOpts.kind)
	if err != nil {
		return nil, err
	}

	n := model.NewNotification(t, title)
	n.Duration = notifyOpts.duration
	n.Style = notifyOpts.style
	n.Fullscreen = notifyOpts.fullscreen

	for k, v := range notifyOpts.meta {
		n.SetMeta(strings.ToLower(k), v)
	}
	for k, v := range map[string]string{
		model.MetaArtist: notifyOpts.artist,
		model.MetaAlbum:  notifyOpts.album,
		model.MetaFormat: notifyOpts.format,
	} {
		if v != "" {
			n.SetMeta(k, v)
		}
	}

	if notifyOpts.image != "" {
		n.Artwork = &model.Artwork{Path: notifyOpts.image}
	}
	if notifyOpts.progress != model.NoProgress || notifyOpts.text != "" {
		n.SetProgress(notifyOpts.progress, notifyOpts.text)
	}

	if err := n.Validate(); err != nil {
		return nil, fmt.Errorf("invalid notification: %w", err)
	}
	return n, nil
}
