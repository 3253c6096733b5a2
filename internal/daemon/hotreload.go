package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/tvoverlay/internal/config"
)

// FileWatcher polls a single file's modification time.
type FileWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	path         string
	lastModTime  time.Time
	pollInterval time.Duration

	onChangeCallback func()

	stopCh chan struct{}
	doneCh chan struct{}

	running bool
}

// NewFileWatcher creates a watcher for path.
func NewFileWatcher(path string, logger *slog.Logger) *FileWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileWatcher{
		logger:       logger,
		path:         path,
		pollInterval: time.Second,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// SetPollInterval sets the polling interval for file changes.
func (w *FileWatcher) SetPollInterval(interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pollInterval = interval
}

// SetChangeCallback sets the callback to invoke when the file changes.
func (w *FileWatcher) SetChangeCallback(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChangeCallback = callback
}

// Start begins watching the file.
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true

	if info, err := os.Stat(w.path); err == nil {
		w.lastModTime = info.ModTime()
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	interval := w.pollInterval
	w.mu.Unlock()

	go w.watchLoop(ctx, interval)

	w.logger.Debug("file watcher started", "path", w.path, "interval", interval)
	return nil
}

// Stop stops watching and waits for the poll goroutine to exit.
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh
	w.logger.Debug("file watcher stopped", "path", w.path)
}

func (w *FileWatcher) watchLoop(ctx context.Context, interval time.Duration) {
	defer close(w.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.checkForChanges()
		}
	}
}

// checkForChanges runs the callback if the file was modified since the last
// check.
func (w *FileWatcher) checkForChanges() {
	w.mu.RLock()
	callback := w.onChangeCallback
	lastModTime := w.lastModTime
	w.mu.RUnlock()

	info, err := os.Stat(w.path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Debug("failed to stat file", "path", w.path, "error", err)
		}
		return
	}

	modTime := info.ModTime()
	if !modTime.After(lastModTime) {
		return
	}

	w.mu.Lock()
	w.lastModTime = modTime
	w.mu.Unlock()

	w.logger.Debug("file changed", "path", w.path, "modTime", modTime)
	if callback != nil {
		callback()
	}
}

// ConfigWatcher watches the daemon config file and validates new configs
// before handing them on.
type ConfigWatcher struct {
	*FileWatcher

	mu            sync.RWMutex
	currentConfig *config.DaemonConfig

	onReloadCallback func(newConfig *config.DaemonConfig)
	onErrorCallback  func(err error)
}

// NewConfigWatcher creates a ConfigWatcher for the config file at path.
func NewConfigWatcher(path string, initial *config.DaemonConfig, logger *slog.Logger) *ConfigWatcher {
	if path == "" {
		path = config.DaemonConfigPath()
	}
	w := &ConfigWatcher{
		FileWatcher:   NewFileWatcher(path, logger),
		currentConfig: initial,
	}
	w.SetChangeCallback(w.reload)
	return w
}

// SetReloadCallback sets the callback to invoke when config is successfully reloaded.
func (w *ConfigWatcher) SetReloadCallback(callback func(newConfig *config.DaemonConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// SetErrorCallback sets the callback to invoke when config reload fails validation.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErrorCallback = callback
}

// GetCurrentConfig returns the current valid configuration.
func (w *ConfigWatcher) GetCurrentConfig() *config.DaemonConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currentConfig
}

func (w *ConfigWatcher) reload() {
	w.mu.RLock()
	reloadCallback := w.onReloadCallback
	errorCallback := w.onErrorCallback
	w.mu.RUnlock()

	newConfig, err := config.LoadDaemonConfig(w.path)
	if err != nil {
		w.logger.Warn("config file changed but validation failed", "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	w.mu.Lock()
	w.currentConfig = newConfig
	w.mu.Unlock()

	w.logger.Info("config reloaded successfully")
	if reloadCallback != nil {
		reloadCallback(newConfig)
	}
}

// DirWatcher follows a set of directories with fsnotify and reports bursts
// of changes to files with the given extensions as a single event.
type DirWatcher struct {
	logger   *slog.Logger
	dirs     []string
	exts     []string
	debounce time.Duration

	onChange func()

	watcher *fsnotify.Watcher
	doneCh  chan struct{}
}

// NewDirWatcher creates a watcher for dirs. Only files ending in one of exts
// count as changes.
func NewDirWatcher(dirs, exts []string, logger *slog.Logger) *DirWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirWatcher{
		logger:   logger,
		dirs:     dirs,
		exts:     exts,
		debounce: 250 * time.Millisecond,
	}
}

// SetDebounce sets how long the watcher waits for a burst of changes to end.
func (w *DirWatcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// SetChangeCallback sets the callback to invoke after changes settle.
func (w *DirWatcher) SetChangeCallback(callback func()) {
	w.onChange = callback
}

// Start begins watching. Missing directories are skipped; at least one must
// exist.
func (w *DirWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	added := 0
	for _, dir := range w.dirs {
		if err := watcher.Add(dir); err != nil {
			w.logger.Debug("not watching directory", "dir", dir, "error", err)
			continue
		}
		added++
	}
	if added == 0 {
		watcher.Close()
		return errors.New("no watchable directories")
	}

	w.watcher = watcher
	w.doneCh = make(chan struct{})
	go w.watchLoop(ctx)

	w.logger.Debug("directory watcher started", "dirs", w.dirs)
	return nil
}

// Stop stops watching.
func (w *DirWatcher) Stop() {
	if w.watcher == nil {
		return
	}
	w.watcher.Close()
	<-w.doneCh
	w.watcher = nil
}

func (w *DirWatcher) watchLoop(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("directory watcher error", "error", err)
		case <-fire:
			fire = nil
			w.logger.Debug("watched files changed", "dirs", w.dirs)
			if w.onChange != nil {
				w.onChange()
			}
		}
	}
}

func (w *DirWatcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if len(w.exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(ev.Name))
	for _, e := range w.exts {
		if ext == e {
			return true
		}
	}
	return false
}
