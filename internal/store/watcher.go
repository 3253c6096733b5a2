package store

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// journalDebounce coalesces the writes of one append burst into one reload.
const journalDebounce = 100 * time.Millisecond

// FileWatcher reloads a store when another process changes its journal, so
// a reader such as "overlayctl history --follow" sees what overlayd appends.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	store    *Store
	filePath string
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
	stopped chan struct{}
}

// NewFileWatcher creates a watcher for the journal at filePath.
func NewFileWatcher(store *Store, filePath string, logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		watcher:  watcher,
		store:    store,
		filePath: filePath,
		logger:   logger,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Start begins watching. Calling it twice is harmless.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.running {
		return nil
	}

	// prune rewrites the journal by rename, so watch the directory
	if err := fw.watcher.Add(filepath.Dir(fw.filePath)); err != nil {
		return err
	}

	fw.running = true
	go fw.watch()
	return nil
}

func (fw *FileWatcher) watch() {
	defer close(fw.stopped)

	filename := filepath.Base(fw.filePath)
	var (
		debounce *time.Timer
		fire     <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(journalDebounce)
			} else {
				debounce.Reset(journalDebounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			fw.logger.Debug("journal changed, reloading", "file", fw.filePath)
			if err := fw.store.Hydrate(); err != nil {
				fw.logger.Warn("failed to reload journal", "error", err)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("journal watcher error", "error", err)

		case <-fw.done:
			return
		}
	}
}

// Stop stops watching and waits for the watch goroutine to exit.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	running := fw.running
	fw.running = false
	fw.mu.Unlock()

	if running {
		close(fw.done)
		<-fw.stopped
	}
	return fw.watcher.Close()
}
