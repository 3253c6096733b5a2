package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

// DmenuFormatter formats one line per item for dmenu/rofi/fuzzel pickers.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	f := &DmenuFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("dmenu").Funcs(templateFuncs(opts)).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// FormatEntries writes entries in dmenu format (one per line).
func (f *DmenuFormatter) FormatEntries(w io.Writer, entries []model.Entry) error {
	for i := range entries {
		line := f.formatLine(i+1, &entries[i])
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// FormatScreens writes screens in dmenu format (one per line), prefixed
// with their handle so a pick can be passed back.
func (f *DmenuFormatter) FormatScreens(w io.Writer, screens []center.ScreenInfo) error {
	sep := f.separator()
	for _, s := range screens {
		parts := []string{fmt.Sprintf("%d", s.Handle), s.Kind}
		if title := s.Metadata[model.MetaTitle]; title != "" {
			parts = append(parts, title)
		} else {
			parts = append(parts, s.Name)
		}
		if _, err := fmt.Fprintln(w, strings.Join(parts, sep)); err != nil {
			return err
		}
	}
	return nil
}

func (f *DmenuFormatter) separator() string {
	if f.opts.Separator == "" {
		return " | "
	}
	return f.opts.Separator
}

// formatLine formats a single entry line.
func (f *DmenuFormatter) formatLine(index int, e *model.Entry) string {
	now := f.opts.now()
	if f.template != nil {
		var buf strings.Builder
		data := templateData{
			Index:        index,
			Entry:        e,
			RelativeTime: relativeTime(e.Timestamp, now),
		}
		if err := f.template.Execute(&buf, data); err == nil {
			return buf.String()
		}
	}

	// Default format: [index] [time] [client] title: artist - album
	var parts []string

	if f.opts.ShowIndex {
		parts = append(parts, fmt.Sprintf("%d", index))
	}
	if f.opts.ShowTime {
		parts = append(parts, relativeTime(e.Timestamp, now))
	}
	if f.opts.ShowClient && e.Client != "" {
		parts = append(parts, string(e.Client))
	}

	content := e.Title()
	if text := sanitizeText(secondaryText(e.Metadata), f.opts.TextMaxLen); text != "" {
		if content == "" {
			content = text
		} else {
			content += ": " + text
		}
	}
	parts = append(parts, content)

	return strings.Join(parts, f.separator())
}

// templateData provides data for custom templates. Entry fields are
// promoted, so both {{.Title}} and {{.Entry.Title}} work.
type templateData struct {
	*model.Entry
	Index        int
	RelativeTime string
}

// templateFuncs returns template helper functions.
func templateFuncs(opts FormatterOptions) template.FuncMap {
	return template.FuncMap{
		"truncate": func(s string, maxLen int) string {
			return truncate(s, maxLen)
		},
		"reltime": func(ts int64) string {
			return relativeTime(ts, opts.now())
		},
		"formatTime": func(ts int64) string {
			return time.Unix(ts, 0).Format("2006-01-02 15:04:05")
		},
		"meta": func(e *model.Entry, key string) string {
			return e.Metadata[key]
		},
		"typeIcon": func(typ string) string {
			switch typ {
			case "error":
				return "!"
			case "warning":
				return "W"
			case "check":
				return "+"
			case "busy":
				return "~"
			default:
				return "-"
			}
		},
	}
}

// relativeTime returns a compact relative time string.
func relativeTime(timestamp int64, now time.Time) string {
	if timestamp == 0 {
		return "unknown"
	}

	d := now.Sub(time.Unix(timestamp, 0))

	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw", int(d.Hours()/24/7))
	}
}

// sanitizeText cleans up text for single-line display.
func sanitizeText(text string, maxLen int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", "")

	for strings.Contains(text, "  ") {
		text = strings.ReplaceAll(text, "  ", " ")
	}

	return truncate(strings.TrimSpace(text), maxLen)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
