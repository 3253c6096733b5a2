package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

func TestDunstAdapter_Name(t *testing.T) {
	adapter := NewDunstAdapter()
	assert.Equal(t, "dunst", adapter.Name())
}

const dunstSample = `{
	"type": "aa{sv}",
	"data": [[
		{
			"id": {"type": "i", "data": 124},
			"appname": {"type": "s", "data": "tvheadend"},
			"summary": {"type": "s", "data": "Recording failed"},
			"body": {"type": "s", "data": "Tuner 2 lost signal"},
			"timestamp": {"type": "x", "data": 1703577700000000},
			"timeout": {"type": "x", "data": 0},
			"urgency": {"type": "s", "data": 2},
			"category": {"type": "s", "data": ""},
			"icon_path": {"type": "s", "data": ""},
			"progress": {"type": "i", "data": -1}
		},
		{
			"id": {"type": "i", "data": 123},
			"appname": {"type": "s", "data": "firefox"},
			"summary": {"type": "s", "data": "Download Complete"},
			"body": {"type": "s", "data": "episode.mkv has finished downloading"},
			"timestamp": {"type": "x", "data": 1703577600000000},
			"timeout": {"type": "x", "data": 10000000},
			"urgency": {"type": "s", "data": 1},
			"category": {"type": "s", "data": "transfer.complete"},
			"icon_path": {"type": "s", "data": "/usr/share/icons/firefox.png"},
			"progress": {"type": "i", "data": 100}
		}
	]]
}`

func TestParseDunstHistory(t *testing.T) {
	notifications, err := ParseDunstHistory([]byte(dunstSample))
	require.NoError(t, err)
	require.Len(t, notifications, 2)

	// oldest first
	n1 := notifications[0]
	assert.Equal(t, model.TypeNew, n1.Type)
	assert.Equal(t, "Download Complete", n1.Title())
	assert.Equal(t, "firefox", n1.Metadata[model.MetaArtist])
	assert.Equal(t, "episode.mkv has finished downloading", n1.Metadata[model.MetaAlbum])
	assert.Equal(t, "transfer.complete", n1.Metadata[model.MetaFormat])
	assert.Equal(t, 10, n1.Duration)
	require.NotNil(t, n1.Playback)
	assert.Equal(t, 1.0, n1.Playback.Progress)
	require.NotNil(t, n1.Artwork)
	assert.Equal(t, "/usr/share/icons/firefox.png", n1.Artwork.Path)
	assert.Zero(t, n1.ID)

	n2 := notifications[1]
	assert.Equal(t, model.TypeError, n2.Type)
	assert.Equal(t, "Recording failed", n2.Title())
	assert.Zero(t, n2.Duration)
	assert.Nil(t, n2.Playback)
	assert.Nil(t, n2.Artwork)
}

func TestParseDunstHistory_Empty(t *testing.T) {
	notifications, err := ParseDunstHistory([]byte(`{"type": "aa{sv}", "data": [[]]}`))
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestParseDunstHistory_Invalid(t *testing.T) {
	_, err := ParseDunstHistory([]byte(`{invalid json`))
	assert.Error(t, err)

	_, err = ParseDunstHistory([]byte(`[{"title": "x"}]`))
	assert.Error(t, err)

	_, err = ParseDunstHistory([]byte(`{"title": "x"}`))
	assert.Error(t, err)
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"normal string", "normal string"},
		{"with\nnewline", "with\nnewline"},
		{"with\ttab", "with\ttab"},
		{"  trimmed  ", "trimmed"},
		{"control\x00char", "control char"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeString(tt.input))
		})
	}
}

func TestDunstValue_String(t *testing.T) {
	tests := []struct {
		name     string
		value    dunstValue
		expected string
	}{
		{"string value", dunstValue{Type: "s", Data: "hello"}, "hello"},
		{"int value", dunstValue{Type: "i", Data: float64(123)}, "123"},
		{"nil value", dunstValue{Type: "s", Data: nil}, ""},
		{"empty string", dunstValue{Type: "s", Data: ""}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.value.String())
		})
	}
}

func TestDunstValue_Int(t *testing.T) {
	tests := []struct {
		name     string
		value    dunstValue
		expected int
	}{
		{"float64 value", dunstValue{Type: "i", Data: float64(123)}, 123},
		{"int64 value", dunstValue{Type: "i", Data: int64(456)}, 456},
		{"string value", dunstValue{Type: "s", Data: "789"}, 789},
		{"nil value", dunstValue{Type: "i", Data: nil}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.value.Int())
		})
	}
}
