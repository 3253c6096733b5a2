package daemon

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

type fakeQueue struct {
	mu     sync.Mutex
	queued []*model.Notification
}

func (f *fakeQueue) Queue(n *model.Notification) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, n.Clone())
	return true
}

func TestInternalNotifier_Levels(t *testing.T) {
	tests := []struct {
		level NotificationLevel
		want  model.Type
	}{
		{NotificationLevelInfo, model.TypeInfo},
		{NotificationLevelWarning, model.TypeWarning},
		{NotificationLevelError, model.TypeError},
	}
	for _, tt := range tests {
		q := &fakeQueue{}
		n := NewInternalNotifier(q, nil)
		require.True(t, n.Notify("k", "Summary", "Body", tt.level))
		require.Len(t, q.queued, 1)

		got := q.queued[0]
		assert.Equal(t, tt.want, got.Type)
		assert.Equal(t, 5, got.Duration)
		assert.Equal(t, "Summary", got.Title())
		assert.Equal(t, "Body", got.Metadata[model.MetaAlbum])
		assert.Equal(t, "overlayd", got.Metadata[model.MetaArtist])
		assert.Zero(t, got.ID)
	}
}

func TestInternalNotifier_RateLimit(t *testing.T) {
	q := &fakeQueue{}
	n := NewInternalNotifier(q, nil)

	assert.True(t, n.Notify("reload", "a", "", NotificationLevelInfo))
	assert.False(t, n.Notify("reload", "b", "", NotificationLevelInfo))
	assert.True(t, n.Notify("other", "c", "", NotificationLevelInfo))

	n.SetMinInterval(0)
	assert.True(t, n.Notify("reload", "d", "", NotificationLevelInfo))
	assert.Len(t, q.queued, 3)
}

func TestInternalNotifier_Disabled(t *testing.T) {
	q := &fakeQueue{}
	n := NewInternalNotifier(q, nil)
	n.SetEnabled(false)
	n.NotifyConfigError(errors.New("bad volume"))
	assert.Empty(t, q.queued)

	n.SetEnabled(true)
	n.NotifyConfigError(errors.New("bad volume"))
	require.Len(t, q.queued, 1)
	assert.Equal(t, model.TypeWarning, q.queued[0].Type)
	assert.Equal(t, "bad volume", q.queued[0].Metadata[model.MetaAlbum])
}

func TestInternalNotifier_NilQueue(t *testing.T) {
	n := NewInternalNotifier(nil, nil)
	assert.False(t, n.Notify("k", "s", "", NotificationLevelInfo))
	n.SetMinInterval(time.Minute)
}
