package audio

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/jmylchreest/tvoverlay/internal/config"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

// ErrUnsupportedFormat is returned for sound files beep cannot decode.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Sink plays sound files. Player is the speaker-backed implementation.
type Sink interface {
	Play(path string) error
	Preload(path string) error
	SetVolume(volume float64)
	ClearCache()
	Close()
}

// Manager plays the configured cue for each notification type. It observes
// the notification center.
type Manager struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	sink    Sink
	enabled bool
	sounds  map[model.Type]string

	onError func(err error)
	wg      sync.WaitGroup
}

// NewManager creates a manager playing through the speaker.
func NewManager(cfg *config.DaemonConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return NewManagerWithSink(cfg, NewPlayer(logger), logger)
}

// NewManagerWithSink creates a manager playing through sink.
func NewManagerWithSink(cfg *config.DaemonConfig, sink Sink, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		logger: logger,
		sink:   sink,
		sounds: make(map[model.Type]string),
	}
	m.loadSoundConfig(cfg)
	return m
}

// SetErrorCallback sets a function told about sounds that fail to play.
func (m *Manager) SetErrorCallback(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = fn
}

func (m *Manager) loadSoundConfig(cfg *config.DaemonConfig) {
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}

	sounds := make(map[model.Type]string)
	for typ, name := range model.TypeNames {
		path := cfg.SoundForType(name)
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			m.logger.Warn("sound file not found", "type", name, "path", path)
			continue
		}
		sounds[typ] = path
	}

	m.mu.Lock()
	m.enabled = cfg.Audio.Enabled
	m.sounds = sounds
	m.mu.Unlock()

	m.sink.SetVolume(float64(cfg.Audio.Volume) / 100.0)
}

// Start preloads the configured sounds.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.RLock()
	enabled := m.enabled
	paths := make([]string, 0, len(m.sounds))
	for _, path := range m.sounds {
		paths = append(paths, path)
	}
	m.mu.RUnlock()

	if !enabled {
		return nil
	}

	var errs []error
	for _, path := range paths {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := m.sink.Preload(path); err != nil {
			m.logger.Warn("failed to preload sound", "path", path, "error", err)
			errs = append(errs, err)
		}
	}

	m.logger.Info("audio manager started", "sounds", len(paths))
	return errors.Join(errs...)
}

// Stop waits for playback requests in flight and releases the speaker.
func (m *Manager) Stop() {
	m.wg.Wait()
	m.sink.Close()
	m.logger.Debug("audio manager stopped")
}

// SoundFor returns the cue configured for a type, if any.
func (m *Manager) SoundFor(t model.Type) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path, ok := m.sounds[t]
	return path, ok
}

// PlayForType plays the cue configured for t.
func (m *Manager) PlayForType(t model.Type) error {
	m.mu.RLock()
	enabled := m.enabled
	path, ok := m.sounds[t]
	m.mu.RUnlock()

	if !enabled || !ok {
		return nil
	}
	return m.sink.Play(path)
}

// NotificationShown plays the cue for a notification. Updates to an existing
// screen stay silent so progress ticks do not chime.
func (m *Manager) NotificationShown(_ context.Context, n *model.Notification, first bool) {
	if n.Type.IsUpdate() && !first {
		return
	}

	m.mu.RLock()
	onError := m.onError
	m.mu.RUnlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.PlayForType(n.Type); err != nil {
			m.logger.Debug("failed to play notification sound", "type", n.Type, "error", err)
			if onError != nil {
				onError(err)
			}
		}
	}()
}

// ScreenClosed implements center.Observer.
func (m *Manager) ScreenClosed(context.Context, int, bool) {}

// UpdateConfig applies a reloaded configuration.
func (m *Manager) UpdateConfig(ctx context.Context, cfg *config.DaemonConfig) {
	m.sink.ClearCache()
	m.loadSoundConfig(cfg)
	if err := m.Start(ctx); err != nil {
		m.logger.Warn("failed to preload sounds after reload", "error", err)
	}
	m.logger.Debug("audio manager config updated")
}
