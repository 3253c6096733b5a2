package input

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

// dunst urgency values.
const (
	dunstUrgencyLow      = 0
	dunstUrgencyCritical = 2
)

// DunstAdapter fetches notifications from dunstctl history, so what was
// missed can be replayed on the overlay.
type DunstAdapter struct{}

// NewDunstAdapter creates a new DunstAdapter.
func NewDunstAdapter() *DunstAdapter {
	return &DunstAdapter{}
}

// Name returns the adapter identifier.
func (a *DunstAdapter) Name() string {
	return "dunst"
}

// Import fetches notifications from dunstctl history.
func (a *DunstAdapter) Import(ctx context.Context) ([]*model.Notification, error) {
	cmd := exec.CommandContext(ctx, "dunstctl", "history")
	output, err := cmd.Output()
	if err != nil {
		return nil, &AdapterError{
			Source:  "dunst",
			Message: "failed to execute dunstctl history",
			Err:     err,
		}
	}

	return ParseDunstHistory(output)
}

// dunstHistory represents the top-level dunstctl history JSON structure.
type dunstHistory struct {
	Type string         `json:"type"`
	Data [][]dunstEntry `json:"data"`
}

// dunstEntry represents a single notification in dunstctl history.
type dunstEntry struct {
	ID        dunstValue `json:"id"`
	AppName   dunstValue `json:"appname"`
	Summary   dunstValue `json:"summary"`
	Body      dunstValue `json:"body"`
	Timestamp dunstValue `json:"timestamp"`
	Timeout   dunstValue `json:"timeout"`
	Urgency   dunstValue `json:"urgency"`
	Category  dunstValue `json:"category"`
	IconPath  dunstValue `json:"icon_path"`
	Progress  dunstValue `json:"progress"`
}

// dunstValue represents a typed value in dunst JSON.
// dunst uses {"type": "INT", "data": 123} format.
type dunstValue struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// String returns the value as a string.
func (v dunstValue) String() string {
	switch d := v.Data.(type) {
	case string:
		return d
	case float64:
		return strconv.FormatFloat(d, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(d, 10)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", d)
	}
}

// Int returns the value as an int.
func (v dunstValue) Int() int {
	switch d := v.Data.(type) {
	case float64:
		return int(d)
	case int64:
		return int(d)
	case string:
		i, _ := strconv.Atoi(d)
		return i
	default:
		return 0
	}
}

// ParseDunstHistory parses dunstctl history JSON output. dunst lists the
// newest notification first; the result is oldest first.
func ParseDunstHistory(data []byte) ([]*model.Notification, error) {
	var history dunstHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, &AdapterError{
			Source:  "dunst",
			Message: "failed to parse dunstctl history JSON",
			Err:     err,
		}
	}
	if history.Type == "" {
		return nil, &AdapterError{Source: "dunst", Message: "not dunstctl history output"}
	}

	var notifications []*model.Notification

	// dunst uses nested arrays: data is [[entry1, entry2, ...]]
	for _, group := range history.Data {
		for i := len(group) - 1; i >= 0; i-- {
			n := convertDunstEntry(group[i])
			if n.Validate() != nil {
				continue
			}
			notifications = append(notifications, n)
		}
	}

	return notifications, nil
}

// convertDunstEntry maps a dunst entry the way the freedesktop bridge maps
// a Notify call: summary to title, app name to artist, body to album and
// category to format.
func convertDunstEntry(entry dunstEntry) *model.Notification {
	t := model.TypeNew
	if entry.Urgency.Int() == dunstUrgencyCritical {
		t = model.TypeError
	}

	n := model.NewNotification(t, sanitizeString(entry.Summary.String()))
	if app := sanitizeString(entry.AppName.String()); app != "" {
		n.SetMeta(model.MetaArtist, app)
	}
	if body := sanitizeString(entry.Body.String()); body != "" {
		n.SetMeta(model.MetaAlbum, body)
	}
	if category := entry.Category.String(); category != "" {
		n.SetMeta(model.MetaFormat, category)
	}

	// dunst timeouts are in microseconds
	if timeout := entry.Timeout.Int(); timeout > 0 {
		n.Duration = max(timeout/1_000_000, 1)
	}

	if p := entry.Progress.Int(); p >= 0 && p <= 100 && entry.Progress.Data != nil {
		n.SetProgress(float64(p)/100, "")
	}
	if icon := entry.IconPath.String(); icon != "" {
		n.Artwork = &model.Artwork{Path: icon}
	}
	return n
}

// sanitizeString removes control characters and trims whitespace.
func sanitizeString(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r < 32 && r != '\n' && r != '\t' {
			result.WriteRune(' ')
		} else {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}
