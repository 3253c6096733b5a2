package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvoverlay/internal/config"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

type fakeSink struct {
	mu        sync.Mutex
	played    []string
	preloaded []string
	volume    float64
	cleared   int
	closed    bool
	err       error
}

func (f *fakeSink) Play(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, path)
	return f.err
}

func (f *fakeSink) Preload(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preloaded = append(f.preloaded, path)
	return f.err
}

func (f *fakeSink) SetVolume(v float64) { f.volume = v }
func (f *fakeSink) ClearCache()         { f.cleared++ }
func (f *fakeSink) Close()              { f.closed = true }

func soundConfig(t *testing.T) (*config.DaemonConfig, string, string) {
	t.Helper()
	dir := t.TempDir()
	newSound := filepath.Join(dir, "new.wav")
	errSound := filepath.Join(dir, "error.ogg")
	require.NoError(t, os.WriteFile(newSound, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(errSound, []byte("x"), 0o644))

	cfg := config.DefaultDaemonConfig()
	cfg.Audio.Enabled = true
	cfg.Audio.Volume = 50
	cfg.Audio.Sounds.New = newSound
	cfg.Audio.Sounds.Error = errSound
	cfg.Audio.Sounds.Busy = filepath.Join(dir, "missing.wav")
	return cfg, newSound, errSound
}

func TestManager_LoadsExistingSounds(t *testing.T) {
	cfg, newSound, errSound := soundConfig(t)
	sink := &fakeSink{}
	m := NewManagerWithSink(cfg, sink, nil)

	assert.Equal(t, 0.5, sink.volume)

	path, ok := m.SoundFor(model.TypeNew)
	assert.True(t, ok)
	assert.Equal(t, newSound, path)

	path, ok = m.SoundFor(model.TypeError)
	assert.True(t, ok)
	assert.Equal(t, errSound, path)

	_, ok = m.SoundFor(model.TypeBusy)
	assert.False(t, ok, "missing files are skipped")

	require.NoError(t, m.Start(context.Background()))
	assert.ElementsMatch(t, []string{newSound, errSound}, sink.preloaded)
}

func TestManager_NotificationShown(t *testing.T) {
	cfg, newSound, errSound := soundConfig(t)
	sink := &fakeSink{}
	m := NewManagerWithSink(cfg, sink, nil)
	ctx := context.Background()

	m.NotificationShown(ctx, model.NewNotification(model.TypeNew, "a"), true)
	m.NotificationShown(ctx, model.NewNotification(model.TypeUpdate, "b"), false)
	m.NotificationShown(ctx, model.NewNotification(model.TypeError, "c"), false)
	m.NotificationShown(ctx, model.NewNotification(model.TypeInfo, "no sound"), true)
	m.Stop()

	assert.ElementsMatch(t, []string{newSound, errSound}, sink.played)
	assert.True(t, sink.closed)
}

func TestManager_Disabled(t *testing.T) {
	cfg, _, _ := soundConfig(t)
	cfg.Audio.Enabled = false
	sink := &fakeSink{}
	m := NewManagerWithSink(cfg, sink, nil)

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.PlayForType(model.TypeNew))
	assert.Empty(t, sink.preloaded)
	assert.Empty(t, sink.played)
}

func TestManager_ErrorCallback(t *testing.T) {
	cfg, _, _ := soundConfig(t)
	sink := &fakeSink{err: ErrUnsupportedFormat}
	m := NewManagerWithSink(cfg, sink, nil)

	var mu sync.Mutex
	var got []error
	m.SetErrorCallback(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, err)
	})

	assert.Error(t, m.Start(context.Background()))

	m.NotificationShown(context.Background(), model.NewNotification(model.TypeNew, "a"), true)
	m.Stop()

	require.Len(t, got, 1)
	assert.True(t, errors.Is(got[0], ErrUnsupportedFormat))
}

func TestManager_UpdateConfig(t *testing.T) {
	cfg, _, errSound := soundConfig(t)
	sink := &fakeSink{}
	m := NewManagerWithSink(cfg, sink, nil)

	next := *cfg
	next.Audio.Sounds.New = ""
	next.Audio.Volume = 100
	m.UpdateConfig(context.Background(), &next)

	assert.Equal(t, 1, sink.cleared)
	assert.Equal(t, 1.0, sink.volume)
	_, ok := m.SoundFor(model.TypeNew)
	assert.False(t, ok)
	assert.Contains(t, sink.preloaded, errSound)
}

func TestPlayer_UnsupportedFormat(t *testing.T) {
	p := NewPlayer(nil)
	err := p.Preload(filepath.Join(t.TempDir(), "cue.flac"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.NoError(t, p.Play(""))
}

func TestPlayer_Volume(t *testing.T) {
	p := NewPlayer(nil)
	p.SetVolume(2)
	assert.Equal(t, 1.0, p.GetVolume())
	p.SetVolume(-1)
	assert.Equal(t, 0.0, p.GetVolume())

	assert.InDelta(t, -1.0, volumeToExponent(0.5), 1e-9)
	assert.Equal(t, 0.0, volumeToExponent(1))
}
