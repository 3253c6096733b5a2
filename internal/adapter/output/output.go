// Package output provides the overlayctl output formatters for journal
// entries and live screens.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

// Formatter formats journal entries and screen listings.
type Formatter interface {
	// FormatEntries writes journal entries to the writer.
	FormatEntries(w io.Writer, entries []model.Entry) error

	// FormatScreens writes the overlay stack, bottom first.
	FormatScreens(w io.Writer, screens []center.ScreenInfo) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatDmenu FormatType = "dmenu"
	FormatIDs   FormatType = "ids"
)

// Formats lists the accepted format names.
func Formats() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatDmenu, FormatIDs}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (FormatType, error) {
	f := FormatType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q, must be one of: %v", s, Formats())
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatDmenu:
		return NewDmenuFormatter(opts)
	case FormatIDs:
		return NewIDsFormatter()
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template   string // Custom template for dmenu/plain entries
	ShowIndex  bool   // Show 1-based index prefix
	ShowTime   bool   // Show relative time
	ShowClient bool   // Show the producing client
	TextMaxLen int    // Maximum secondary text length (0 = unlimited)
	Separator  string // Field separator for dmenu format

	// Now is the reference time for relative times; nil = time.Now.
	Now func() time.Time
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:  true,
		ShowTime:   true,
		ShowClient: false,
		TextMaxLen: 80,
		Separator:  " | ",
	}
}

func (o FormatterOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// FormatField outputs a specific field from an entry.
func FormatField(e *model.Entry, field string) string {
	switch strings.ToLower(field) {
	case "id", "entry_id":
		return e.EntryID
	case "title", "summary":
		return e.Title()
	case "artist", "origin":
		return e.Metadata[model.MetaArtist]
	case "album", "description", "body":
		return e.Metadata[model.MetaAlbum]
	case "format", "extra":
		return e.Metadata[model.MetaFormat]
	case "type":
		return e.Type
	case "style":
		return e.Style
	case "client":
		return string(e.Client)
	case "all", "full":
		return strings.TrimRight(e.Title()+"\n"+secondaryText(e.Metadata), "\n")
	default:
		return e.Title()
	}
}

// secondaryText joins the metadata shown under the title.
func secondaryText(md map[string]string) string {
	var parts []string
	for _, key := range []string{model.MetaArtist, model.MetaAlbum, model.MetaFormat} {
		if v := md[key]; v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " - ")
}

// progressLabel renders screen progress as its text or a percentage.
func progressLabel(progress float64, text string) string {
	if text != "" {
		return text
	}
	if progress < 0 {
		return ""
	}
	return fmt.Sprintf("%d%%", int(progress*100+0.5))
}
