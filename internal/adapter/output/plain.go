package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/model"
	"github.com/jmylchreest/tvoverlay/internal/overlay"
)

// PlainFormatter formats entries and screens as readable text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs(opts)).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// FormatEntries writes entries as plain text, one block per entry.
func (f *PlainFormatter) FormatEntries(w io.Writer, entries []model.Entry) error {
	for i := range entries {
		if err := f.formatEntry(w, i+1, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) formatEntry(w io.Writer, index int, e *model.Entry) error {
	if f.template != nil {
		var buf strings.Builder
		err := f.template.Execute(&buf, templateData{
			Index:        index,
			Entry:        e,
			RelativeTime: relativeTime(e.Timestamp, f.opts.now()),
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, strings.TrimRight(buf.String(), "\n"))
		return err
	}

	var sb strings.Builder

	if f.opts.ShowIndex {
		fmt.Fprintf(&sb, "[%d] ", index)
	}
	fmt.Fprintf(&sb, "%-7s ", e.Type)
	if f.opts.ShowClient && e.Client != "" {
		fmt.Fprintf(&sb, "<%s> ", e.Client)
	}

	title := e.Title()
	if title == "" {
		title = "(untitled)"
	}
	sb.WriteString(title)

	if f.opts.ShowTime {
		fmt.Fprintf(&sb, " (%s)", humanize.RelTime(e.TimestampTime(), f.opts.now(), "ago", "from now"))
	}
	sb.WriteString("\n")

	if text := sanitizeText(secondaryText(e.Metadata), f.opts.TextMaxLen); text != "" {
		sb.WriteString("    " + text + "\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatScreens writes one line per overlay, bottom of the stack first.
func (f *PlainFormatter) FormatScreens(w io.Writer, screens []center.ScreenInfo) error {
	if len(screens) == 0 {
		_, err := fmt.Fprintln(w, "no screens")
		return err
	}

	now := f.opts.now()
	for _, s := range screens {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%-12s %-22s", s.Kind, s.Name)
		if s.ID != 0 {
			fmt.Fprintf(&sb, " id=%d", s.ID)
		}
		if s.Kind == notificationKind {
			fmt.Fprintf(&sb, " rank=%d", s.Rank)
			if s.Fullscreen {
				sb.WriteString(" fullscreen")
			}
		}
		if title := s.Metadata[model.MetaTitle]; title != "" {
			fmt.Fprintf(&sb, " %q", title)
		}
		if p := progressLabel(s.Progress, s.ProgressText); p != "" {
			fmt.Fprintf(&sb, " [%s]", p)
		}
		switch {
		case s.Kind != notificationKind:
		case s.Expiry.IsZero():
			sb.WriteString(" (persistent)")
		default:
			fmt.Fprintf(&sb, " (expires %s)", expiryLabel(s.Expiry, now))
		}
		if _, err := fmt.Fprintln(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

func expiryLabel(expiry, now time.Time) string {
	if !expiry.After(now) {
		return "now"
	}
	return humanize.RelTime(expiry, now, "ago", "from now")
}

var notificationKind = overlay.KindNotification.String()
