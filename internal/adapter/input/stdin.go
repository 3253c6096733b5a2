package input

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

// StdinAdapter reads notifications from standard input.
type StdinAdapter struct {
	reader io.Reader
}

// NewStdinAdapter creates a new StdinAdapter reading from os.Stdin.
func NewStdinAdapter() *StdinAdapter {
	return &StdinAdapter{reader: os.Stdin}
}

// NewStdinAdapterWithReader creates a new StdinAdapter with a custom reader.
func NewStdinAdapterWithReader(r io.Reader) *StdinAdapter {
	return &StdinAdapter{reader: r}
}

// Name returns the adapter identifier.
func (a *StdinAdapter) Name() string {
	return "stdin"
}

// Import reads notifications from standard input.
// Supports three formats:
// 1. dunstctl history output
// 2. a JSON array of notifications
// 3. one JSON notification per line
func (a *StdinAdapter) Import(ctx context.Context) ([]*model.Notification, error) {
	scanner := bufio.NewScanner(a.reader)
	const maxSize = 10 * 1024 * 1024 // 10MB max
	scanner.Buffer(make([]byte, 64*1024), maxSize)

	var data []byte
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data = append(data, scanner.Bytes()...)
		data = append(data, '\n')
	}

	if err := scanner.Err(); err != nil {
		return nil, &AdapterError{
			Source:  "stdin",
			Message: "failed to read stdin",
			Err:     err,
		}
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if notifications, err := ParseDunstHistory(data); err == nil && len(notifications) > 0 {
		return notifications, nil
	}

	if data[0] == '[' {
		return parseJSONArray(data)
	}
	return parseJSONLines(data)
}

// parseJSONArray parses a JSON array of notifications.
func parseJSONArray(data []byte) ([]*model.Notification, error) {
	var entries []stdinEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &AdapterError{
			Source:  "stdin",
			Message: "failed to parse JSON input",
			Err:     err,
		}
	}
	return convertStdinEntries(entries), nil
}

// parseJSONLines parses one JSON notification per line.
func parseJSONLines(data []byte) ([]*model.Notification, error) {
	var entries []stdinEntry
	for i, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var e stdinEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, &AdapterError{
				Source:  "stdin",
				Message: fmt.Sprintf("failed to parse JSON on line %d", i+1),
				Err:     err,
			}
		}
		entries = append(entries, e)
	}
	return convertStdinEntries(entries), nil
}

func convertStdinEntries(entries []stdinEntry) []*model.Notification {
	var notifications []*model.Notification
	for _, entry := range entries {
		n, err := convertStdinEntry(entry)
		if err != nil {
			continue
		}
		notifications = append(notifications, n)
	}
	return notifications
}

// stdinEntry represents a notification in the simple JSON format.
type stdinEntry struct {
	Type       string   `json:"type"`
	Title      string   `json:"title"`
	Artist     string   `json:"artist,omitempty"`
	Album      string   `json:"album,omitempty"`
	Format     string   `json:"format,omitempty"`
	Duration   int      `json:"duration,omitempty"`
	Progress   *float64 `json:"progress,omitempty"` // 0..1
	Text       string   `json:"text,omitempty"`
	Style      string   `json:"style,omitempty"`
	Fullscreen bool     `json:"fullscreen,omitempty"`
	Image      string   `json:"image,omitempty"`
}

// convertStdinEntry converts a stdin entry to an anonymous notification.
func convertStdinEntry(entry stdinEntry) (*model.Notification, error) {
	t := model.TypeNew
	if entry.Type != "" {
		parsed, err := model.ParseType(entry.Type)
		if err != nil {
			return nil, err
		}
		t = parsed
	}

	n := model.NewNotification(t, sanitizeString(entry.Title))
	n.Duration = entry.Duration
	n.Style = entry.Style
	n.Fullscreen = entry.Fullscreen
	for key, v := range map[string]string{
		model.MetaArtist: entry.Artist,
		model.MetaAlbum:  entry.Album,
		model.MetaFormat: entry.Format,
	} {
		if v = sanitizeString(v); v != "" {
			n.SetMeta(key, v)
		}
	}
	if entry.Progress != nil || entry.Text != "" {
		p := model.NoProgress
		if entry.Progress != nil {
			p = *entry.Progress
		}
		n.SetProgress(p, entry.Text)
	}
	if entry.Image != "" {
		n.Artwork = &model.Artwork{Path: entry.Image}
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// ProgressFunc receives one progress reading: a fraction in 0..1 and the
// text that followed the number, if any.
type ProgressFunc func(progress float64, text string) error

// ReadProgress reads percentages from r, one per line, such as "42",
// "42%" or "42 copying disc 2". Lines that do not start with a number are
// skipped. It stops at EOF, on a callback error or when ctx is done.
func ReadProgress(ctx context.Context, r io.Reader, fn ProgressFunc) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, text, ok := ParseProgressLine(scanner.Text())
		if !ok {
			continue
		}
		if err := fn(p, text); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return &AdapterError{Source: "stdin", Message: "failed to read progress", Err: err}
	}
	return nil
}

// ParseProgressLine parses a percentage line. The value is clamped to
// 0..100 and returned as a fraction.
func ParseProgressLine(line string) (float64, string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, "", false
	}

	pct, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
	if err != nil {
		return 0, "", false
	}
	pct = min(max(pct, 0), 100)

	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
	return pct / 100, sanitizeString(text), true
}
