package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWatcher_SeesOtherWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	writerP, err := NewJSONLPersistence(path)
	require.NoError(t, err)
	writer := NewStore(writerP)
	defer writer.Close()

	readerP, err := NewJSONLPersistence(path)
	require.NoError(t, err)
	reader := NewStore(readerP)
	defer reader.Close()
	require.NoError(t, reader.Hydrate())

	fw, err := NewFileWatcher(reader, path, nil)
	require.NoError(t, err)
	require.NoError(t, fw.Start())
	require.NoError(t, fw.Start())
	defer fw.Stop()

	changes := reader.Subscribe()
	defer reader.Unsubscribe(changes)

	now := time.Now().Unix()
	require.NoError(t, writer.Add(testEntry("a", now)))
	require.NoError(t, writer.Add(testEntry("b", now+1)))

	require.Eventually(t, func() bool {
		return reader.Count() == 2
	}, 2*time.Second, 20*time.Millisecond)

	select {
	case ev := <-changes:
		assert.Equal(t, ChangeTypeAdd, ev.Type)
		assert.Equal(t, "persistence", ev.Source)
	case <-time.After(time.Second):
		t.Fatal("no change event")
	}
	assert.NotNil(t, reader.GetByID("b"))
}

func TestFileWatcher_StopWithoutStart(t *testing.T) {
	fw, err := NewFileWatcher(NewStore(nil), filepath.Join(t.TempDir(), "j.jsonl"), nil)
	require.NoError(t, err)
	assert.NoError(t, fw.Stop())
}
