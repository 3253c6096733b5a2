package dbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

func TestBuildNotification(t *testing.T) {
	tests := []struct {
		name    string
		id      int32
		typ     string
		options map[string]dbus.Variant
		wantErr bool
		check   func(t *testing.T, n *model.Notification)
	}{
		{
			name: "plain",
			typ:  "new",
			check: func(t *testing.T, n *model.Notification) {
				assert.Equal(t, model.TypeNew, n.Type)
				assert.Nil(t, n.Playback)
			},
		},
		{
			name: "progress with text",
			id:   3,
			typ:  "update",
			options: map[string]dbus.Variant{
				OptionProgress:     dbus.MakeVariant(0.5),
				OptionProgressText: dbus.MakeVariant("1:00 / 2:00"),
			},
			check: func(t *testing.T, n *model.Notification) {
				assert.Equal(t, 3, n.ID)
				require.NotNil(t, n.Playback)
				assert.Equal(t, 0.5, n.Playback.Progress)
				assert.Equal(t, "1:00 / 2:00", n.Playback.Text)
			},
		},
		{
			name: "style fullscreen and image",
			typ:  "info",
			options: map[string]dbus.Variant{
				OptionStyle:      dbus.MakeVariant("osd"),
				OptionFullscreen: dbus.MakeVariant(true),
				OptionImagePath:  dbus.MakeVariant("/a.png"),
			},
			check: func(t *testing.T, n *model.Notification) {
				assert.Equal(t, "osd", n.Style)
				assert.True(t, n.Fullscreen)
				assert.Equal(t, "/a.png", n.Artwork.Path)
			},
		},
		{
			name:    "unknown type",
			typ:     "loud",
			wantErr: true,
		},
		{
			name:    "progress must be a double",
			typ:     "new",
			options: map[string]dbus.Variant{OptionProgress: dbus.MakeVariant("half")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := BuildNotification(":1.5", tt.id, tt.typ, 10, map[string]string{"title": "t"}, tt.options)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.ClientID(":1.5"), n.Client)
			assert.Equal(t, 10, n.Duration)
			assert.Equal(t, "t", n.Title())
			if tt.check != nil {
				tt.check(t, n)
			}
		})
	}
}

func TestNotificationOptionsRoundTrip(t *testing.T) {
	n := model.NewNotification(model.TypeUpdate, "Track")
	n.ID = 4
	n.Duration = 7
	n.Style = "osd"
	n.Fullscreen = true
	n.Artwork = &model.Artwork{Image: []byte{1, 2, 3}}
	n.SetProgress(0.75, "75%")

	got, err := BuildNotification(":1.9", int32(n.ID), n.Type.String(), int32(n.Duration), n.Metadata, NotificationOptions(n))
	require.NoError(t, err)
	n.Client = ":1.9"
	assert.Equal(t, n, got)
}

func TestScreenRecord(t *testing.T) {
	expiry := time.UnixMilli(1_700_000_000_123)
	info := center.ScreenInfo{
		Kind: "notification", Name: "notification", Handle: 9, ID: 2, Rank: 1, Y: 141,
		Style: "error", Metadata: map[string]string{"title": "x"},
		Progress: 0.5, ProgressText: "half", Expiry: expiry,
	}
	r := NewScreenRecord(info)
	assert.Equal(t, expiry.UnixMilli(), r.Expiry)
	assert.True(t, r.Info().Expiry.Equal(expiry))
	back := r.Info()
	back.Expiry = expiry
	assert.Equal(t, info, back)

	bare := NewScreenRecord(center.ScreenInfo{Kind: "dialog"})
	assert.NotNil(t, bare.Metadata)
	assert.Equal(t, int64(0), bare.Expiry)
	assert.True(t, bare.Info().Expiry.IsZero())
}

func TestOverlayServer_RegisterQueueAndClientGone(t *testing.T) {
	fc := newFakeCenter()
	s := NewOverlayServer(fc, nil)
	sender := dbus.Sender(":1.42")

	id, dErr := s.RegisterClient(sender)
	require.Nil(t, dErr)
	assert.Equal(t, int32(1), id)

	ok, dErr := s.QueueClient(sender, id, "new", 5, map[string]string{"title": "hi"}, nil)
	require.Nil(t, dErr)
	assert.True(t, ok)
	require.Len(t, fc.queued, 1)
	assert.Equal(t, model.ClientID(":1.42"), fc.queued[0].Client)

	_, dErr = s.QueueClient(sender, id, "bogus", 5, nil, nil)
	assert.NotNil(t, dErr)

	s.ClientGone(":1.99")
	assert.Empty(t, fc.unregister, "unknown clients are ignored")

	s.ClientGone(":1.42")
	assert.Equal(t, []unregisterCall{{":1.42", 1, true}}, fc.unregister)
}

func TestOverlayServer_UnRegister(t *testing.T) {
	fc := newFakeCenter()
	s := NewOverlayServer(fc, nil)
	id, _ := s.RegisterClient(":1.1")
	require.Nil(t, s.UnRegisterClient(":1.1", id, false))
	assert.Equal(t, []unregisterCall{{":1.1", 1, false}}, fc.unregister)
}

func TestOverlayServer_ListScreens(t *testing.T) {
	fc := newFakeCenter()
	fc.screens = []center.ScreenInfo{{Kind: "notification", ID: 1}, {Kind: "dialog", Name: "dialog"}}
	s := NewOverlayServer(fc, nil)

	records, dErr := s.ListScreens()
	require.Nil(t, dErr)
	require.Len(t, records, 2)
	assert.Equal(t, "dialog", records[1].Kind)
}

func TestOverlayServer_ShowDialog(t *testing.T) {
	s := NewOverlayServer(newFakeCenter(), nil)

	_, dErr := s.ShowDialog("q?", []string{"Yes"})
	assert.NotNil(t, dErr, "no dialog handler")

	var done func(string, int, string)
	s.SetDialogHandler(func(text string, buttons []string, d func(string, int, string)) (string, error) {
		assert.Equal(t, "q?", text)
		assert.Equal(t, []string{"Yes", "No"}, buttons)
		done = d
		return "result-1", nil
	})

	_, dErr = s.ShowDialog("q?", nil)
	assert.NotNil(t, dErr, "buttons are required")

	id, dErr := s.ShowDialog("q?", []string{"Yes", "No"})
	require.Nil(t, dErr)
	assert.Equal(t, "result-1", id)
	require.NotNil(t, done)
	// without a connection the signal is dropped and logged
	done("result-1", 0, "Yes")

	s.SetDialogHandler(func(string, []string, func(string, int, string)) (string, error) {
		return "", errors.New("closed")
	})
	_, dErr = s.ShowDialog("q?", []string{"Yes"})
	assert.NotNil(t, dErr)
}

func TestOverlayServer_ScreenClosedWithoutConnection(t *testing.T) {
	s := NewOverlayServer(newFakeCenter(), nil)
	s.ScreenClosed(context.Background(), 1, true)
	assert.Error(t, s.EmitScreenClosed(1, true))
	assert.Error(t, s.EmitDialogCompleted("x", 0, ""))
}
