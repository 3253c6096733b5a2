package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/config"
	"github.com/jmylchreest/tvoverlay/internal/core"
	"github.com/jmylchreest/tvoverlay/internal/model"
	"github.com/jmylchreest/tvoverlay/internal/overlay"
	"github.com/jmylchreest/tvoverlay/internal/theme"
)

func withNotifyOpts(t *testing.T, set func()) {
	t.Helper()
	saved := notifyOpts
	t.Cleanup(func() { notifyOpts = saved })

	notifyOpts.kind = "new"
	notifyOpts.duration = 0
	notifyOpts.artist = ""
	notifyOpts.album = ""
	notifyOpts.format = ""
	notifyOpts.meta = nil
	notifyOpts.image = ""
	notifyOpts.progress = model.NoProgress
	notifyOpts.text = ""
	notifyOpts.style = ""
	notifyOpts.fullscreen = false
	set()
}

func TestBuildNotification(t *testing.T) {
	withNotifyOpts(t, func() {
		notifyOpts.kind = "Warning"
		notifyOpts.duration = 10
		notifyOpts.artist = "BBC One"
		notifyOpts.meta = map[string]string{"Channel": "101"}
		notifyOpts.progress = 0.25
		notifyOpts.text = "1:02 / 4:10"
		notifyOpts.image = "cover.jpg"
	})

	n, err := buildNotification("Disk almost full")
	require.NoError(t, err)

	assert.Equal(t, model.TypeWarning, n.Type)
	assert.Equal(t, 10, n.Duration)
	assert.Equal(t, "Disk almost full", n.Title())
	assert.Equal(t, "BBC One", n.Metadata[model.MetaArtist])
	assert.Equal(t, "101", n.Metadata["channel"])
	assert.NotContains(t, n.Metadata, model.MetaAlbum)
	require.NotNil(t, n.Playback)
	assert.InDelta(t, 0.25, n.Playback.Progress, 1e-9)
	assert.Equal(t, "1:02 / 4:10", n.Playback.Text)
	require.NotNil(t, n.Artwork)
	assert.Equal(t, "cover.jpg", n.Artwork.Path)
	assert.Equal(t, 0, n.ID)
}

func TestBuildNotification_NoProgressByDefault(t *testing.T) {
	withNotifyOpts(t, func() {})

	n, err := buildNotification("")
	require.NoError(t, err)
	assert.Nil(t, n.Playback)
	assert.Nil(t, n.Metadata)
}

func TestBuildNotification_InvalidType(t *testing.T) {
	withNotifyOpts(t, func() { notifyOpts.kind = "shout" })

	_, err := buildNotification("x")
	assert.Error(t, err)
}

func screen(kind overlay.Kind, title, style string, progress float64) center.ScreenInfo {
	return center.ScreenInfo{
		Kind:     kind.String(),
		Style:    style,
		Metadata: map[string]string{model.MetaTitle: title},
		Progress: progress,
	}
}

func TestGenerateStatus(t *testing.T) {
	tests := []struct {
		name    string
		screens []center.ScreenInfo
		want    WaybarStatus
	}{
		{
			name: "empty",
			want: WaybarStatus{Alt: "empty", Class: "empty"},
		},
		{
			name: "plain notifications",
			screens: []center.ScreenInfo{
				screen(overlay.KindNotification, "one", "", 0),
				screen(overlay.KindNotification, "two", "", 0),
			},
			want: WaybarStatus{Text: "2", Alt: "active", Tooltip: "two\none", Class: "normal"},
		},
		{
			name: "most severe style wins",
			screens: []center.ScreenInfo{
				screen(overlay.KindNotification, "err", "error", 0),
				screen(overlay.KindNotification, "busy", "busy", 0.5),
				screen(overlay.KindNotification, "info", "info", 0),
			},
			want: WaybarStatus{Text: "3", Alt: "active", Tooltip: "info\nbusy\nerr", Class: "error", Percentage: 50},
		},
		{
			name: "dialog waiting",
			screens: []center.ScreenInfo{
				screen(overlay.KindNotification, "one", "check", 0),
				{Kind: overlay.KindDialog.String(), Name: "confirm"},
			},
			want: WaybarStatus{Text: "1", Alt: "dialog", Tooltip: "1 dialog(s) waiting\none", Class: "check"},
		},
		{
			name: "plain screens are not counted",
			screens: []center.ScreenInfo{
				{Kind: overlay.KindScreen.String(), Name: "menu"},
			},
			want: WaybarStatus{Alt: "empty", Class: "empty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, generateStatus(tt.screens))
		})
	}
}

func journalEntries() []model.Entry {
	now := time.Now().Unix()
	return []model.Entry{
		{EntryID: "01A", Timestamp: now, Type: "new", Metadata: map[string]string{model.MetaTitle: "first"}},
		{EntryID: "01B", Timestamp: now - 60, Type: "error", Metadata: map[string]string{model.MetaTitle: "second"}},
	}
}

func TestLookupEntry(t *testing.T) {
	entries := journalEntries()

	tests := []struct {
		selection string
		want      string
	}{
		{"01B", "second"},
		{"1", "first"},
		{" 2 ", "second"},
		{"2 | 1m ago | error | second", "second"},
		{"3", ""},
		{"nope", ""},
	}

	for _, tt := range tests {
		t.Run(tt.selection, func(t *testing.T) {
			e := lookupEntry(entries, tt.selection)
			if tt.want == "" {
				assert.Nil(t, e)
				return
			}
			require.NotNil(t, e)
			assert.Equal(t, tt.want, e.Title())
		})
	}
}

func TestHistoryQuery_ConfigDefaults(t *testing.T) {
	savedCfg, savedOpts := cfg, historyOpts
	t.Cleanup(func() { cfg, historyOpts = savedCfg, savedOpts })

	cfg = config.DefaultConfig()
	cfg.History.Limit = 5
	historyOpts.since = ""
	historyOpts.limit = -1
	historyOpts.types = "error,warning"
	historyOpts.sortBy = "title"
	historyOpts.sortOrder = ""

	filter, sortOpts, err := historyQuery()
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, filter.Since)
	assert.Equal(t, 5, filter.Limit)
	assert.Equal(t, []model.Type{model.TypeError, model.TypeWarning}, filter.Types)
	assert.Equal(t, core.SortByTitle, sortOpts.Field)
	assert.Equal(t, core.SortDesc, sortOpts.Order)
}

func TestHistoryQuery_FlagsOverride(t *testing.T) {
	savedCfg, savedOpts := cfg, historyOpts
	t.Cleanup(func() { cfg, historyOpts = savedCfg, savedOpts })

	cfg = config.DefaultConfig()
	historyOpts.since = "1h"
	historyOpts.limit = 0
	historyOpts.types = ""
	historyOpts.sortBy = "timestamp"
	historyOpts.sortOrder = "asc"

	filter, sortOpts, err := historyQuery()
	require.NoError(t, err)

	assert.Equal(t, time.Hour, filter.Since)
	assert.Equal(t, 0, filter.Limit)
	assert.Empty(t, filter.Types)
	assert.Equal(t, core.SortAsc, sortOpts.Order)

	historyOpts.since = "soon"
	_, _, err = historyQuery()
	assert.Error(t, err)
}

func TestThemeRows(t *testing.T) {
	themes := []theme.Info{
		{Name: theme.DefaultThemeName, Bundled: true, Default: true},
		{Name: "neon", Path: "/tmp/neon.css"},
	}

	rows := themeRows(themes, "")
	assert.True(t, rows[0].Active)
	assert.False(t, rows[1].Active)

	rows = themeRows(themes, "neon")
	assert.False(t, rows[0].Active)
	assert.True(t, rows[1].Active)
}
