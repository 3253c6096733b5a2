package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entry is a journal record of a notification the center has shown.
type Entry struct {
	EntryID   string `json:"entry_id" yaml:"entry_id"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`

	ID         int               `json:"id" yaml:"id"`
	Client     ClientID          `json:"client,omitempty" yaml:"client,omitempty"`
	Type       string            `json:"type" yaml:"type"`
	Style      string            `json:"style,omitempty" yaml:"style,omitempty"`
	Fullscreen bool              `json:"fullscreen,omitempty" yaml:"fullscreen,omitempty"`
	Duration   int               `json:"duration" yaml:"duration"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Progress   float64           `json:"progress,omitempty" yaml:"progress,omitempty"`
}

// Journal validation errors.
var (
	ErrEmptyEntryID     = errors.New("entry_id cannot be empty")
	ErrInvalidTimestamp = errors.New("timestamp must be greater than 0")
)

// NewEntry records a notification as a journal entry.
func NewEntry(n *Notification) (*Entry, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ULID: %w", err)
	}

	e := &Entry{
		EntryID:    id.String(),
		Timestamp:  time.Now().Unix(),
		ID:         n.ID,
		Client:     n.Client,
		Type:       n.Type.String(),
		Style:      n.EffectiveStyle(),
		Fullscreen: n.Fullscreen,
		Duration:   n.Duration,
		Metadata:   maps.Clone(n.Metadata),
		Progress:   NoProgress,
	}
	if n.Playback != nil {
		e.Progress = n.Playback.Progress
	}
	return e, nil
}

// Validate checks that the entry has all required fields.
func (e *Entry) Validate() error {
	if e.EntryID == "" {
		return ErrEmptyEntryID
	}
	if e.Timestamp <= 0 {
		return ErrInvalidTimestamp
	}
	if _, err := ParseType(e.Type); err != nil {
		return err
	}
	return nil
}

// Title returns the title metadata value.
func (e *Entry) Title() string {
	return e.Metadata[MetaTitle]
}

// TimestampTime returns the timestamp as a time.Time.
func (e *Entry) TimestampTime() time.Time {
	return time.Unix(e.Timestamp, 0)
}

// RelativeTime returns a short relative time string.
// Examples: "just now", "5m ago", "2h ago", "1d ago".
func (e *Entry) RelativeTime() string {
	diff := time.Now().Unix() - e.Timestamp

	switch {
	case diff < 0:
		return "in the future"
	case diff < 60:
		return "just now"
	case diff < 3600:
		return fmt.Sprintf("%dm ago", diff/60)
	case diff < 86400:
		return fmt.Sprintf("%dh ago", diff/3600)
	default:
		return fmt.Sprintf("%dd ago", diff/86400)
	}
}
