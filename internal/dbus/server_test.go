package dbus

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

// fakeCenter records calls the way the center would see them.
type fakeCenter struct {
	mu         sync.Mutex
	next       int
	closed     bool
	refuse     bool
	clients    map[int]model.ClientID
	queued     []*model.Notification
	unregister []unregisterCall
	screens    []center.ScreenInfo
}

type unregisterCall struct {
	client   model.ClientID
	id       int
	closeNow bool
}

func newFakeCenter() *fakeCenter {
	return &fakeCenter{clients: make(map[int]model.ClientID)}
}

func (f *fakeCenter) Queue(n *model.Notification) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.refuse {
		return false
	}
	f.queued = append(f.queued, n.Clone())
	return true
}

func (f *fakeCenter) Register(client model.ClientID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return -1
	}
	f.next++
	f.clients[f.next] = client
	return f.next
}

func (f *fakeCenter) UnRegister(client model.ClientID, id int, closeNow bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.clients, id)
	f.unregister = append(f.unregister, unregisterCall{client, id, closeNow})
}

func (f *fakeCenter) RegisteredIDs(client model.ClientID) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int
	for id, c := range f.clients {
		if c == client {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (f *fakeCenter) Snapshot() []center.ScreenInfo {
	return f.screens
}

func TestNotificationServer_Notify(t *testing.T) {
	fc := newFakeCenter()
	s := NewNotificationServer(fc, MapOptions{DefaultDuration: 5}, nil)

	var seen []*model.Notification
	s.SetQueueHandler(func(_ *DBusNotification, n *model.Notification) {
		seen = append(seen, n)
	})

	id, dErr := s.Notify("app", 0, "", "Hello", "body", nil, nil, -1)
	require.Nil(t, dErr)
	assert.Equal(t, uint32(1), id)
	assert.True(t, s.IsActive(1))

	require.Len(t, fc.queued, 1)
	q := fc.queued[0]
	assert.Equal(t, 1, q.ID)
	assert.Equal(t, FreedesktopClient, q.Client)
	assert.Equal(t, 5, q.Duration)
	assert.Equal(t, "Hello", q.Title())
	assert.Len(t, seen, 1)

	// replacing a live notification reuses its id
	again, dErr := s.Notify("app", id, "", "Hello again", "", nil, nil, -1)
	require.Nil(t, dErr)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, fc.queued[1].ID)

	// replacing an unknown id allocates a new one
	other, dErr := s.Notify("app", 77, "", "Other", "", nil, map[string]dbus.Variant{}, -1)
	require.Nil(t, dErr)
	assert.Equal(t, uint32(2), other)
}

func TestNotificationServer_NotifyRefused(t *testing.T) {
	fc := newFakeCenter()
	fc.refuse = true
	s := NewNotificationServer(fc, MapOptions{}, nil)

	_, dErr := s.Notify("app", 0, "", "x", "", nil, nil, -1)
	assert.NotNil(t, dErr)
	assert.False(t, s.IsActive(1))
	assert.Equal(t, []unregisterCall{{FreedesktopClient, 1, true}}, fc.unregister)

	fc.closed = true
	_, dErr = s.Notify("app", 0, "", "x", "", nil, nil, -1)
	assert.NotNil(t, dErr)
}

func TestNotificationServer_Close(t *testing.T) {
	fc := newFakeCenter()
	s := NewNotificationServer(fc, MapOptions{}, nil)

	id, _ := s.Notify("app", 0, "", "x", "", nil, nil, -1)
	assert.Nil(t, s.CloseNotification(id))
	assert.False(t, s.IsActive(id))
	assert.Equal(t, []unregisterCall{{FreedesktopClient, int(id), true}}, fc.unregister)

	// closing twice is a no-op
	assert.Nil(t, s.CloseNotification(id))
	assert.Len(t, fc.unregister, 1)
}

func TestNotificationServer_ScreenClosedReleases(t *testing.T) {
	fc := newFakeCenter()
	s := NewNotificationServer(fc, MapOptions{}, nil)
	ctx := context.Background()

	id, _ := s.Notify("app", 0, "", "x", "", nil, nil, 3000)
	s.ScreenClosed(ctx, int(id), true)
	assert.False(t, s.IsActive(id))
	assert.Equal(t, []unregisterCall{{FreedesktopClient, int(id), false}}, fc.unregister)

	// ids that are not ours are ignored
	s.ScreenClosed(ctx, 99, false)
	s.ScreenClosed(ctx, -1, false)
	assert.Len(t, fc.unregister, 1)
}

func TestNotificationServer_StopReleasesEverything(t *testing.T) {
	fc := newFakeCenter()
	s := NewNotificationServer(fc, MapOptions{}, nil)
	s.running = true

	s.Notify("a", 0, "", "1", "", nil, nil, -1)
	s.Notify("a", 0, "", "2", "", nil, nil, -1)
	require.NoError(t, s.Stop())
	assert.Empty(t, fc.RegisteredIDs(FreedesktopClient))
	assert.False(t, s.IsActive(1))
}

func TestNotificationServer_Capabilities(t *testing.T) {
	s := NewNotificationServer(newFakeCenter(), MapOptions{}, nil)
	caps, dErr := s.GetCapabilities()
	require.Nil(t, dErr)
	assert.Contains(t, caps, "body")

	name, vendor, _, spec, dErr := s.GetServerInformation()
	require.Nil(t, dErr)
	assert.Equal(t, "overlayd", name)
	assert.Equal(t, "tvoverlay", vendor)
	assert.Equal(t, "1.2", spec)
}
