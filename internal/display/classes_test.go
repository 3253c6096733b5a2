package display

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/config"
	"github.com/jmylchreest/tvoverlay/internal/dialog"
	"github.com/jmylchreest/tvoverlay/internal/layout"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

func TestSanitizeClassName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"error", "error"},
		{"Now Playing", "now-playing"},
		{"org.mpris.vlc", "org-mpris-vlc"},
		{"  --weird__name//", "weird-name"},
		{"ünïcode", "ncode"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeClassName(tt.in))
		})
	}
}

func TestElementClass(t *testing.T) {
	assert.Equal(t, "overlay-title", elementClass(layout.ElementTypeTitle))
	assert.Equal(t, "overlay-progress-text", elementClass(layout.ElementTypeProgressText))
}

func TestScreenClasses(t *testing.T) {
	r := center.Render{
		Style:      "Error",
		Fullscreen: true,
		Layout:     &layout.LayoutConfig{Name: "notification-error"},
		Elements: map[layout.ElementType]center.Element{
			layout.ElementTypeProgress: {Progress: 0.6, Visible: true},
			layout.ElementTypeImage:    {Artwork: &model.Artwork{Path: "/a.png"}, Visible: true},
		},
	}

	got := screenClasses(r, "dark", 0.9)
	assert.Equal(t, []string{
		"overlay-screen", "overlay-notification", "dark",
		"style-error", "layout-notification-error", "fullscreen", "translucent",
		"has-progress", "progress-medium", "has-image",
	}, got)

	plain := screenClasses(center.Render{
		Elements: map[layout.ElementType]center.Element{
			layout.ElementTypeProgress: {Progress: model.NoProgress, Visible: true},
		},
	}, "", 1)
	assert.Equal(t, []string{"overlay-screen", "overlay-notification"}, plain)
}

func TestProgressClass(t *testing.T) {
	assert.Equal(t, "progress-minimal", progressClass(0))
	assert.Equal(t, "progress-low", progressClass(0.25))
	assert.Equal(t, "progress-medium", progressClass(0.5))
	assert.Equal(t, "progress-high", progressClass(0.99))
	assert.Equal(t, "progress-complete", progressClass(1))
}

func TestPlacement(t *testing.T) {
	x, y := placement(center.Render{X: 40, Y: 300}, config.DisplayConfig{OffsetX: 10, OffsetY: -20})
	assert.Equal(t, 50, x)
	assert.Equal(t, 280, y)
}

func TestMouseAction(t *testing.T) {
	m := config.MouseConfig{Left: "dismiss", Middle: "none", Right: "dismiss-all"}
	assert.Equal(t, config.MouseActionDismiss, mouseAction(m, 1))
	assert.Equal(t, config.MouseActionNone, mouseAction(m, 2))
	assert.Equal(t, config.MouseActionDismissAll, mouseAction(m, 3))
	assert.Equal(t, config.MouseActionNone, mouseAction(m, 8))
}

func TestActionForKey(t *testing.T) {
	a, ok := actionForKey(0xff52) // Up
	assert.True(t, ok)
	assert.Equal(t, dialog.ActionUp, a)

	a, ok = actionForKey(0xff0d) // Return
	assert.True(t, ok)
	assert.Equal(t, dialog.ActionSelect, a)

	a, ok = actionForKey(0xff1b) // Escape
	assert.True(t, ok)
	assert.Equal(t, dialog.ActionEscape, a)

	_, ok = actionForKey(0x0071) // q
	assert.False(t, ok)
}
