package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvoverlay/internal/core"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

func TestStore_Add(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	require.NoError(t, s.Add(testEntry("a", 1)))
	require.NoError(t, s.Add(testEntry("a", 1)), "duplicates are ignored")
	assert.Equal(t, 1, s.Count())

	assert.ErrorIs(t, s.Add(model.Entry{EntryID: "x"}), model.ErrInvalidTimestamp)

	got := s.GetByID("a")
	require.NotNil(t, got)
	assert.Equal(t, "Title a", got.Title())
	assert.Nil(t, s.GetByID("missing"))
}

func TestStore_AllNewestFirst(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	require.NoError(t, s.Add(testEntry("old", 100)))
	require.NoError(t, s.Add(testEntry("new", 300)))
	require.NoError(t, s.Add(testEntry("mid", 200)))

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].EntryID)
	assert.Equal(t, "old", all[2].EntryID)
}

func TestStore_Query(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	now := time.Now().Unix()
	for i, typ := range []string{"new", "error", "error", "warning"} {
		e := testEntry(string(rune('a'+i)), now-int64(i))
		e.Type = typ
		require.NoError(t, s.Add(e))
	}

	result := s.Query(
		core.FilterOptions{Types: []model.Type{model.TypeError}},
		core.SortOptions{Field: core.SortByTimestamp, Order: core.SortAsc},
	)
	require.Len(t, result, 2)
	assert.Equal(t, "c", result[0].EntryID)
	assert.Equal(t, "b", result[1].EntryID)

	limited := s.Query(core.FilterOptions{Limit: 1}, core.DefaultSortOptions())
	require.Len(t, limited, 1)
	assert.Equal(t, "a", limited[0].EntryID)
}

func TestStore_Prune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	p, err := NewJSONLPersistence(path)
	require.NoError(t, err)
	s := NewStore(p)
	defer s.Close()

	now := time.Now()
	require.NoError(t, s.Add(testEntry("ancient", now.Add(-48*time.Hour).Unix())))
	require.NoError(t, s.Add(testEntry("older", now.Add(-3*time.Hour).Unix())))
	require.NoError(t, s.Add(testEntry("recent", now.Add(-time.Hour).Unix())))
	require.NoError(t, s.Add(testEntry("newest", now.Unix())))

	ch := s.Subscribe()

	removed, err := s.Prune(24*time.Hour, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Nil(t, s.GetByID("ancient"))

	removed, err = s.Prune(0, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Nil(t, s.GetByID("older"))
	assert.NotNil(t, s.GetByID("newest"))

	removed, err = s.Prune(0, 5)
	require.NoError(t, err)
	assert.Zero(t, removed)

	ev := <-ch
	assert.Equal(t, ChangeTypePrune, ev.Type)

	entries, err := p.Load()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestStore_Subscribe(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	ch := s.Subscribe()
	go func() {
		_ = s.Add(testEntry("sub1", 1))
	}()

	select {
	case event := <-ch:
		assert.Equal(t, ChangeTypeAdd, event.Type)
		assert.Equal(t, 1, event.Count)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestStore_Unsubscribe(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	ch := s.Subscribe()
	s.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	require.NoError(t, s.Add(testEntry("a", 1)))
	require.NoError(t, s.Add(testEntry("b", 2)))
	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Count())
	assert.Nil(t, s.GetByID("a"))
}

func TestStore_Close(t *testing.T) {
	s := NewStore(nil)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Add(testEntry("a", 1)), ErrStoreClosed)
	assert.ErrorIs(t, s.Clear(), ErrStoreClosed)
	_, err := s.Prune(time.Hour, 0)
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestRecorder(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()
	r := NewRecorder(s, nil)
	ctx := context.Background()

	first := model.NewNotification(model.TypeNew, "Track")
	first.ID = 2
	first.Client = ":1.5"
	r.NotificationShown(ctx, first, true)

	tick := model.NewNotification(model.TypeUpdate, "")
	tick.ID = 2
	tick.Client = ":1.5"
	tick.SetProgress(0.5, "")
	r.NotificationShown(ctx, tick, false)

	warn := model.NewNotification(model.TypeWarning, "Low battery")
	r.NotificationShown(ctx, warn, true)

	r.ScreenClosed(ctx, 2, false)
	r.Close()
	r.Close()

	// late notifications after Close are dropped
	r.NotificationShown(ctx, warn, true)

	all := s.Query(core.FilterOptions{}, core.SortOptions{Field: core.SortByTitle, Order: core.SortAsc})
	require.Len(t, all, 2)
	assert.Equal(t, "Low battery", all[0].Title())
	assert.Equal(t, "warning", all[0].Style)
	assert.Equal(t, "Track", all[1].Title())
	assert.Equal(t, model.ClientID(":1.5"), all[1].Client)
}
