package dbus

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

func TestCloseReasonString(t *testing.T) {
	tests := []struct {
		reason   CloseReason
		expected string
	}{
		{CloseReasonExpired, "expired"},
		{CloseReasonDismissed, "dismissed"},
		{CloseReasonClosed, "closed"},
		{CloseReasonUndefined, "undefined"},
		{CloseReason(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.reason.String())
		})
	}
}

func TestUrgency(t *testing.T) {
	tests := []struct {
		name     string
		hints    map[string]dbus.Variant
		expected int
	}{
		{
			name:     "no hint",
			hints:    nil,
			expected: UrgencyNormal,
		},
		{
			name:     "low urgency",
			hints:    map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(0))},
			expected: UrgencyLow,
		},
		{
			name:     "critical urgency",
			hints:    map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(2))},
			expected: UrgencyCritical,
		},
		{
			name:     "wrong type returns normal",
			hints:    map[string]dbus.Variant{"urgency": dbus.MakeVariant("high")},
			expected: UrgencyNormal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &DBusNotification{Hints: tt.hints}
			assert.Equal(t, tt.expected, n.Urgency())
		})
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name     string
		hints    map[string]dbus.Variant
		expected int
	}{
		{"no hint", nil, -1},
		{"int32", map[string]dbus.Variant{"value": dbus.MakeVariant(int32(42))}, 42},
		{"uint32", map[string]dbus.Variant{"value": dbus.MakeVariant(uint32(100))}, 100},
		{"byte", map[string]dbus.Variant{"value": dbus.MakeVariant(byte(7))}, 7},
		{"out of range", map[string]dbus.Variant{"value": dbus.MakeVariant(int32(150))}, -1},
		{"wrong type", map[string]dbus.Variant{"value": dbus.MakeVariant("50")}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &DBusNotification{Hints: tt.hints}
			assert.Equal(t, tt.expected, n.Progress())
		})
	}
}

func TestImagePath(t *testing.T) {
	tests := []struct {
		name     string
		icon     string
		hints    map[string]dbus.Variant
		expected string
	}{
		{"none", "", nil, ""},
		{"icon name is not a path", "mail-unread", nil, ""},
		{"icon path", "/usr/share/icons/a.png", nil, "/usr/share/icons/a.png"},
		{"icon uri", "file:///tmp/a.png", nil, "file:///tmp/a.png"},
		{"hint wins", "/icon.png", map[string]dbus.Variant{"image-path": dbus.MakeVariant("/hint.png")}, "/hint.png"},
		{"legacy hint", "", map[string]dbus.Variant{"image_path": dbus.MakeVariant("/old.png")}, "/old.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &DBusNotification{AppIcon: tt.icon, Hints: tt.hints}
			assert.Equal(t, tt.expected, n.ImagePath())
		})
	}
}

func rawImageHint(w, h, stride int32, alpha bool, channels int32, data []byte) dbus.Variant {
	return dbus.MakeVariant([]interface{}{w, h, stride, alpha, int32(8), channels, data})
}

func TestImageData(t *testing.T) {
	// 2x1 RGBA, red then half transparent green
	data := []byte{255, 0, 0, 255, 0, 255, 0, 128}
	n := &DBusNotification{Hints: map[string]dbus.Variant{
		"image-data": rawImageHint(2, 1, 8, true, 4, data),
	}}

	encoded := n.ImageData()
	require.NotNil(t, encoded)
	img, err := png.Decode(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	r, _, _, a := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), a)

	bad := []struct {
		name string
		hint dbus.Variant
	}{
		{"truncated", rawImageHint(4, 4, 16, true, 4, data)},
		{"two channels", rawImageHint(1, 1, 2, false, 2, []byte{1, 2})},
		{"not a struct", dbus.MakeVariant("nope")},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			n := &DBusNotification{Hints: map[string]dbus.Variant{"image-data": tt.hint}}
			assert.Nil(t, n.ImageData())
		})
	}
}

func TestToNotification(t *testing.T) {
	opts := MapOptions{DefaultDuration: 6}

	tests := []struct {
		name     string
		n        DBusNotification
		opts     MapOptions
		check    func(t *testing.T, n *model.Notification)
		duration int
	}{
		{
			name: "fields map to metadata",
			n: DBusNotification{
				AppName: "mpd", Summary: "Song", Body: "Album",
				Hints:         map[string]dbus.Variant{"category": dbus.MakeVariant("music")},
				ExpireTimeout: -1,
			},
			opts:     opts,
			duration: 6,
			check: func(t *testing.T, n *model.Notification) {
				assert.Equal(t, model.TypeNew, n.Type)
				assert.Equal(t, map[string]string{
					model.MetaTitle:  "Song",
					model.MetaArtist: "mpd",
					model.MetaAlbum:  "Album",
					model.MetaFormat: "music",
				}, n.Metadata)
				assert.Nil(t, n.Playback)
				assert.Nil(t, n.Artwork)
			},
		},
		{
			name: "critical becomes error",
			n: DBusNotification{
				Summary:       "Disk full",
				Hints:         map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(2))},
				ExpireTimeout: 2500,
			},
			opts:     opts,
			duration: 3,
			check: func(t *testing.T, n *model.Notification) {
				assert.Equal(t, model.TypeError, n.Type)
				assert.Equal(t, "error", n.EffectiveStyle())
			},
		},
		{
			name: "critical persistent",
			n: DBusNotification{
				Hints:         map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(2))},
				ExpireTimeout: 2500,
			},
			opts:     MapOptions{DefaultDuration: 6, CriticalPersistent: true},
			duration: 0,
		},
		{
			name:     "never expires",
			n:        DBusNotification{ExpireTimeout: 0},
			opts:     opts,
			duration: 0,
		},
		{
			name: "progress and overlay hints",
			n: DBusNotification{
				AppIcon: "/tmp/cover.png",
				Hints: map[string]dbus.Variant{
					"value":        dbus.MakeVariant(int32(25)),
					HintStyle:      dbus.MakeVariant("osd"),
					HintFullscreen: dbus.MakeVariant(true),
				},
				ExpireTimeout: 1000,
			},
			opts:     opts,
			duration: 1,
			check: func(t *testing.T, n *model.Notification) {
				require.NotNil(t, n.Playback)
				assert.InDelta(t, 0.25, n.Playback.Progress, 1e-9)
				assert.Equal(t, "25%", n.Playback.Text)
				assert.Equal(t, "osd", n.Style)
				assert.True(t, n.Fullscreen)
				require.NotNil(t, n.Artwork)
				assert.Equal(t, "/tmp/cover.png", n.Artwork.Path)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.n.ToNotification(tt.opts)
			assert.Equal(t, tt.duration, n.Duration)
			require.NoError(t, n.Validate())
			if tt.check != nil {
				tt.check(t, n)
			}
		})
	}
}

func TestDefaultServerInfo(t *testing.T) {
	info := DefaultServerInfo()
	assert.Equal(t, "overlayd", info.Name)
	assert.Equal(t, "1.2", info.SpecVersion)
}
