// Package model defines the core data structures for tvoverlay.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Type is the kind of a notification.
type Type int

// Notification types. Update merges into an existing screen; every other type
// replaces the screen content.
const (
	TypeNew Type = iota
	TypeUpdate
	TypeInfo
	TypeError
	TypeWarning
	TypeCheck
	TypeBusy
)

// TypeNames maps notification types to their names. Names double as default
// theme styles.
var TypeNames = map[Type]string{
	TypeNew:     "new",
	TypeUpdate:  "update",
	TypeInfo:    "info",
	TypeError:   "error",
	TypeWarning: "warning",
	TypeCheck:   "check",
	TypeBusy:    "busy",
}

// String returns the name of the type.
func (t Type) String() string {
	if name, ok := TypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseType converts a type name to a Type.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range TypeNames {
		if name == s {
			return t, nil
		}
	}
	return TypeNew, fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// IsUpdate reports whether the type merges into existing content.
func (t Type) IsUpdate() bool {
	return t == TypeUpdate
}

// Metadata keys understood by notification screens.
const (
	MetaTitle  = "title"
	MetaArtist = "artist"
	MetaAlbum  = "album"
	MetaFormat = "format"
)

// NoProgress marks playback without a progress value.
const NoProgress = -1.0

// ClientID is an opaque handle identifying a notification producer.
// It is compared only for equality.
type ClientID string

// NewClientID generates a unique client handle for in-process producers.
func NewClientID() ClientID {
	return ClientID(ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String())
}

// Artwork is an image attached to a notification, either inline or by path.
type Artwork struct {
	Image []byte `json:"image,omitempty"`
	Path  string `json:"path,omitempty"`
}

// Playback carries progress information.
type Playback struct {
	Progress float64 `json:"progress"` // 0..1, NoProgress=none
	Text     string  `json:"text,omitempty"`
}

// Notification is a request to show or update an on-screen notification.
// Producers build one and hand it to the center, which keeps its own copy.
type Notification struct {
	// 0 = anonymous, >0 = registered id, -1 = demoted after an ownership mismatch
	ID       int      `json:"id"`
	Client   ClientID `json:"client,omitempty"`
	Type     Type     `json:"type"`
	Duration int      `json:"duration"` // seconds, <0 = persistent

	Metadata map[string]string `json:"metadata,omitempty"`
	Artwork  *Artwork          `json:"artwork,omitempty"`
	Playback *Playback         `json:"playback,omitempty"`

	Style      string `json:"style,omitempty"`
	Fullscreen bool   `json:"fullscreen,omitempty"`
}

// Validation errors.
var (
	ErrEmptyClient     = errors.New("client cannot be empty")
	ErrInvalidType     = errors.New("invalid notification type")
	ErrInvalidProgress = errors.New("progress must be -1 or between 0 and 1")
	ErrEmptyArtwork    = errors.New("artwork needs an image or a path")
)

// NewNotification creates a notification of the given type with the given title.
func NewNotification(t Type, title string) *Notification {
	n := &Notification{Type: t}
	if title != "" {
		n.Metadata = map[string]string{MetaTitle: title}
	}
	return n
}

// Validate checks that the notification is well formed.
func (n *Notification) Validate() error {
	if _, ok := TypeNames[n.Type]; !ok {
		return ErrInvalidType
	}
	if n.ID > 0 && n.Client == "" {
		return ErrEmptyClient
	}
	if p := n.Playback; p != nil && p.Progress != NoProgress && (p.Progress < 0 || p.Progress > 1) {
		return ErrInvalidProgress
	}
	if a := n.Artwork; a != nil && len(a.Image) == 0 && a.Path == "" {
		return ErrEmptyArtwork
	}
	return nil
}

// SetMeta sets a metadata value, allocating the map if needed.
func (n *Notification) SetMeta(key, value string) {
	if n.Metadata == nil {
		n.Metadata = make(map[string]string)
	}
	n.Metadata[key] = value
}

// SetProgress attaches playback progress. Values outside 0..1 clear the progress.
func (n *Notification) SetProgress(progress float64, text string) {
	if progress < 0 || progress > 1 {
		progress = NoProgress
	}
	n.Playback = &Playback{Progress: progress, Text: text}
}

// EffectiveStyle returns the style, falling back to the type name for the
// typed kinds (error, warning, ...).
func (n *Notification) EffectiveStyle() string {
	if n.Style != "" {
		return n.Style
	}
	switch n.Type {
	case TypeNew, TypeUpdate:
		return ""
	default:
		return n.Type.String()
	}
}

// Title returns the title metadata value.
func (n *Notification) Title() string {
	return n.Metadata[MetaTitle]
}

// Clone creates a deep copy of the notification.
func (n *Notification) Clone() *Notification {
	clone := *n
	if n.Metadata != nil {
		clone.Metadata = maps.Clone(n.Metadata)
	}
	if n.Artwork != nil {
		art := *n.Artwork
		if n.Artwork.Image != nil {
			art.Image = append([]byte(nil), n.Artwork.Image...)
		}
		clone.Artwork = &art
	}
	if n.Playback != nil {
		pb := *n.Playback
		clone.Playback = &pb
	}
	return &clone
}
