package dbus

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

// CloseReason represents the reason for closing a notification.
// These values are defined by the freedesktop.org notification specification.
type CloseReason uint32

const (
	// CloseReasonExpired indicates the notification expired (timeout reached).
	CloseReasonExpired CloseReason = 1
	// CloseReasonDismissed indicates the user dismissed the notification.
	CloseReasonDismissed CloseReason = 2
	// CloseReasonClosed indicates the notification was closed via CloseNotification.
	CloseReasonClosed CloseReason = 3
	// CloseReasonUndefined is reserved/undefined per the freedesktop spec.
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Urgency levels from the urgency hint.
const (
	UrgencyLow      = 0
	UrgencyNormal   = 1
	UrgencyCritical = 2
)

// Hints understood beyond the freedesktop set.
const (
	HintStyle      = "x-tvoverlay-style"
	HintFullscreen = "x-tvoverlay-fullscreen"
)

// DBusNotification represents an incoming D-Bus Notify call.
// It contains the raw parameters from the org.freedesktop.Notifications.Notify method.
type DBusNotification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

func (n *DBusNotification) stringHint(name string) string {
	if v, ok := n.Hints[name]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

func (n *DBusNotification) boolHint(name string) bool {
	if v, ok := n.Hints[name]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

// Urgency extracts the urgency hint from the notification.
// Returns UrgencyNormal if not specified.
func (n *DBusNotification) Urgency() int {
	if v, ok := n.Hints["urgency"]; ok {
		if b, ok := v.Value().(byte); ok {
			return int(b)
		}
	}
	return UrgencyNormal
}

// Category extracts the category hint from the notification.
func (n *DBusNotification) Category() string {
	return n.stringHint("category")
}

// Style extracts the overlay style hint.
func (n *DBusNotification) Style() string {
	return n.stringHint(HintStyle)
}

// Fullscreen reports whether the overlay fullscreen hint is set.
func (n *DBusNotification) Fullscreen() bool {
	return n.boolHint(HintFullscreen)
}

// SuppressSound returns true if the suppress-sound hint is set.
func (n *DBusNotification) SuppressSound() bool {
	return n.boolHint("suppress-sound")
}

// Transient returns true if the transient hint is set.
// Transient notifications are not written to the journal.
func (n *DBusNotification) Transient() bool {
	return n.boolHint("transient")
}

// ImagePath extracts the image path, from the image-path hint or, failing
// that, an app icon given as a file path.
func (n *DBusNotification) ImagePath() string {
	if p := n.stringHint("image-path"); p != "" {
		return p
	}
	if p := n.stringHint("image_path"); p != "" {
		return p
	}
	if strings.HasPrefix(n.AppIcon, "/") || strings.HasPrefix(n.AppIcon, "file://") {
		return n.AppIcon
	}
	return ""
}

// ImageData decodes the image-data hint, a (iiibiiay) raw pixel struct, into
// PNG bytes. Returns nil if not present or invalid.
func (n *DBusNotification) ImageData() []byte {
	for _, name := range []string{"image-data", "image_data", "icon_data"} {
		v, ok := n.Hints[name]
		if !ok {
			continue
		}
		fields, ok := v.Value().([]interface{})
		if !ok {
			return nil
		}
		img, err := decodeRawImage(fields)
		if err != nil {
			return nil
		}
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil
		}
		return buf.Bytes()
	}
	return nil
}

func decodeRawImage(fields []interface{}) (image.Image, error) {
	if len(fields) != 7 {
		return nil, fmt.Errorf("image-data has %d fields, want 7", len(fields))
	}
	width, ok1 := fields[0].(int32)
	height, ok2 := fields[1].(int32)
	stride, ok3 := fields[2].(int32)
	hasAlpha, ok4 := fields[3].(bool)
	bits, ok5 := fields[4].(int32)
	channels, ok6 := fields[5].(int32)
	data, ok7 := fields[6].([]byte)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 || !ok7 {
		return nil, fmt.Errorf("image-data has unexpected field types")
	}
	if bits != 8 || width <= 0 || height <= 0 || (channels != 3 && channels != 4) {
		return nil, fmt.Errorf("unsupported image-data format %dx%d %d bits %d channels", width, height, bits, channels)
	}
	if int(stride)*int(height-1)+int(width*channels) > len(data) {
		return nil, fmt.Errorf("image-data is truncated")
	}

	img := image.NewNRGBA(image.Rect(0, 0, int(width), int(height)))
	for y := 0; y < int(height); y++ {
		row := data[y*int(stride):]
		for x := 0; x < int(width); x++ {
			src := row[x*int(channels):]
			dst := img.Pix[y*img.Stride+x*4:]
			dst[0], dst[1], dst[2] = src[0], src[1], src[2]
			dst[3] = 0xff
			if hasAlpha && channels == 4 {
				dst[3] = src[3]
			}
		}
	}
	return img, nil
}

// Progress extracts the progress value hint.
// Returns -1 if not present, 0-100 for valid progress values.
// This is used by dunstify with the -h int:value:N option.
func (n *DBusNotification) Progress() int {
	if v, ok := n.Hints["value"]; ok {
		var p int
		switch val := v.Value().(type) {
		case int32:
			p = int(val)
		case uint32:
			p = int(val)
		case int:
			p = val
		case byte:
			p = int(val)
		default:
			return -1
		}
		if p < 0 || p > 100 {
			return -1
		}
		return p
	}
	return -1
}

// MapOptions controls how freedesktop notifications become overlay
// notifications.
type MapOptions struct {
	DefaultDuration    int // seconds, used when the sender leaves it to the server
	CriticalPersistent bool
}

// ToNotification converts the call into an overlay notification. Summary
// becomes the title, the app name the artist, the body the album and the
// category the format.
func (n *DBusNotification) ToNotification(opts MapOptions) *model.Notification {
	t := model.TypeNew
	critical := n.Urgency() == UrgencyCritical
	if critical {
		t = model.TypeError
	}

	out := model.NewNotification(t, n.Summary)
	if n.AppName != "" {
		out.SetMeta(model.MetaArtist, n.AppName)
	}
	if n.Body != "" {
		out.SetMeta(model.MetaAlbum, n.Body)
	}
	if c := n.Category(); c != "" {
		out.SetMeta(model.MetaFormat, c)
	}

	if p := n.Progress(); p >= 0 {
		out.SetProgress(float64(p)/100, fmt.Sprintf("%d%%", p))
	}

	if data := n.ImageData(); data != nil {
		out.Artwork = &model.Artwork{Image: data}
	} else if path := n.ImagePath(); path != "" {
		out.Artwork = &model.Artwork{Path: path}
	}

	out.Style = n.Style()
	out.Fullscreen = n.Fullscreen()

	switch {
	case critical && opts.CriticalPersistent:
		out.Duration = 0
	case n.ExpireTimeout < 0:
		out.Duration = opts.DefaultDuration
	case n.ExpireTimeout == 0:
		out.Duration = 0
	default:
		// round up to whole seconds
		out.Duration = int((n.ExpireTimeout + 999) / 1000)
	}

	return out
}

// ServerCapabilities lists the capabilities advertised by overlayd.
var ServerCapabilities = []string{
	"body",        // Support body text
	"icon-static", // Support static icons
	"persistence", // Notifications are journaled
	"sound",       // Play sounds
}

// ServerInfo contains information about the notification server.
type ServerInfo struct {
	Name        string // "overlayd"
	Vendor      string // "tvoverlay"
	Version     string // Build version
	SpecVersion string // "1.2"
}

// DefaultServerInfo returns the default server information.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:        "overlayd",
		Vendor:      "tvoverlay",
		Version:     "0.0.1", // Will be replaced by build-time version
		SpecVersion: "1.2",
	}
}
