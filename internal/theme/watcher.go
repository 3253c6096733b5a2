package theme

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is how often a theme file is checked for changes.
const DefaultPollInterval = time.Second

// Watcher polls a user theme file and reports new CSS. Imported files are
// not watched; touching the theme file picks up their changes.
type Watcher struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	theme    *Theme
	interval time.Duration

	onChange func(css string)
	onError  func(err error)

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for theme.
func NewWatcher(theme *Theme, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		logger:   logger,
		theme:    theme,
		interval: DefaultPollInterval,
	}
}

// SetPollInterval sets the polling interval.
func (w *Watcher) SetPollInterval(interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.interval = interval
}

// SetChangeCallback sets the function given the new CSS after a change.
func (w *Watcher) SetChangeCallback(fn func(css string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// SetErrorCallback sets the function told when the file cannot be re-read.
// Repeats of the same failure are reported once.
func (w *Watcher) SetErrorCallback(fn func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// Start begins polling. Bundled themes are never watched.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running || w.theme == nil || w.theme.Bundled() {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	interval := w.interval
	w.mu.Unlock()

	go w.watchLoop(ctx, interval)

	w.logger.Debug("theme watcher started", "path", w.theme.Path, "interval", interval)
	return nil
}

// Stop stops polling and waits for the poller to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done
	w.logger.Debug("theme watcher stopped")
}

// IsRunning reports whether the watcher is polling.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *Watcher) watchLoop(ctx context.Context, interval time.Duration) {
	defer close(w.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var failing bool
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			failing = w.check(failing)
		}
	}
}

// check reloads the theme once, returning whether it is failing.
func (w *Watcher) check(failing bool) bool {
	w.mu.RLock()
	theme := w.theme
	onChange := w.onChange
	onError := w.onError
	w.mu.RUnlock()

	changed, err := theme.Reload()
	if err != nil {
		if !failing {
			w.logger.Warn("failed to reload theme", "path", theme.Path, "error", err)
			if onError != nil {
				onError(err)
			}
		}
		return true
	}

	if changed {
		w.logger.Info("theme file changed", "path", theme.Path)
		if onChange != nil {
			onChange(theme.CSS)
		}
	}
	return false
}
