// Package store keeps the journal of notifications the center has shown.
package store

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jmylchreest/tvoverlay/internal/core"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("store is closed")

// ChangeType indicates the type of store change.
type ChangeType int

const (
	// ChangeTypeAdd indicates entries were added.
	ChangeTypeAdd ChangeType = iota
	// ChangeTypeClear indicates all entries were cleared.
	ChangeTypeClear
	// ChangeTypePrune indicates entries were pruned.
	ChangeTypePrune
)

// ChangeEvent signals store content changes.
type ChangeEvent struct {
	Type   ChangeType
	Count  int
	Source string
}

// Store holds journal entries in memory, backed by an optional Persistence.
type Store struct {
	mu      sync.RWMutex
	entries []model.Entry
	index   map[string]int // entry id -> slice index

	persistence Persistence

	subscribers []chan ChangeEvent
	closed      bool
}

// NewStore creates a new Store.
// If persistence is not nil, it will be used to persist entries.
func NewStore(persistence Persistence) *Store {
	return &Store{
		index:       make(map[string]int),
		persistence: persistence,
	}
}

// Add appends an entry. Entries already present are ignored.
func (s *Store) Add(e model.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, exists := s.index[e.EntryID]; exists {
		return nil
	}

	s.index[e.EntryID] = len(s.entries)
	s.entries = append(s.entries, e)

	if s.persistence != nil {
		if err := s.persistence.Append(e); err != nil {
			return err
		}
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypeAdd, Count: 1, Source: string(e.Client)})
	return nil
}

// All returns every entry, newest first.
func (s *Store) All() []model.Entry {
	s.mu.RLock()
	result := slices.Clone(s.entries)
	s.mu.RUnlock()

	core.Sort(result, core.DefaultSortOptions())
	return result
}

// Query filters and sorts the journal.
func (s *Store) Query(filter core.FilterOptions, sortOpts core.SortOptions) []model.Entry {
	s.mu.RLock()
	result := slices.Clone(s.entries)
	s.mu.RUnlock()

	core.Sort(result, sortOpts)
	return core.Filter(result, filter)
}

// GetByID returns an entry by its journal id.
func (s *Store) GetByID(id string) *model.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx, exists := s.index[id]; exists {
		e := s.entries[idx]
		return &e
	}
	return nil
}

// Count returns the total number of entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Prune drops entries older than maxAge and, when keep > 0, all but the
// newest keep entries. It returns the number removed.
func (s *Store) Prune(maxAge time.Duration, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	kept := slices.Clone(s.entries)
	if maxAge > 0 {
		cutoff := time.Now().Add(-maxAge).Unix()
		kept = slices.DeleteFunc(kept, func(e model.Entry) bool { return e.Timestamp < cutoff })
	}
	if keep > 0 && len(kept) > keep {
		core.Sort(kept, core.SortOptions{Field: core.SortByTimestamp, Order: core.SortAsc})
		kept = kept[len(kept)-keep:]
	}

	removed := len(s.entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if s.persistence != nil {
		if err := s.persistence.Rewrite(kept); err != nil {
			return 0, err
		}
	}
	s.setEntries(kept)

	s.notifyChange(ChangeEvent{Type: ChangeTypePrune, Count: removed})
	return removed, nil
}

func (s *Store) setEntries(es []model.Entry) {
	s.entries = es
	s.index = make(map[string]int, len(es))
	for i, e := range es {
		s.index[e.EntryID] = i
	}
}

// Subscribe returns a channel that receives change events.
func (s *Store) Subscribe() <-chan ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan ChangeEvent, 10)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch <-chan ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = slices.Delete(s.subscribers, i, i+1)
			close(sub)
			return
		}
	}
}

// Close releases resources and closes all subscriber channels.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil

	if s.persistence != nil {
		return s.persistence.Close()
	}
	return nil
}

// Hydrate loads entries from persistence that the store does not have yet.
func (s *Store) Hydrate() error {
	if s.persistence == nil {
		return nil
	}

	entries, err := s.persistence.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, e := range entries {
		if _, exists := s.index[e.EntryID]; exists {
			continue
		}
		s.index[e.EntryID] = len(s.entries)
		s.entries = append(s.entries, e)
		added++
	}

	if added > 0 {
		s.notifyChange(ChangeEvent{Type: ChangeTypeAdd, Count: added, Source: "persistence"})
	}
	return nil
}

// Clear removes all entries.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	count := len(s.entries)
	if s.persistence != nil {
		if err := s.persistence.Clear(); err != nil {
			return err
		}
	}
	s.setEntries(nil)

	s.notifyChange(ChangeEvent{Type: ChangeTypeClear, Count: count})
	return nil
}

// notifyChange sends a change event to all subscribers without blocking.
func (s *Store) notifyChange(event ChangeEvent) {
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Recorder journals the notifications the center shows. Entries are written
// on a background goroutine so the UI owner never waits on the disk. Progress
// ticks for an existing screen are not recorded.
type Recorder struct {
	store  *Store
	logger *slog.Logger

	mu      sync.Mutex
	pending chan model.Entry
	closed  bool
	done    chan struct{}
}

// NewRecorder creates a Recorder writing into s. Call Close to flush it.
func NewRecorder(s *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		store:   s,
		logger:  logger,
		pending: make(chan model.Entry, 64),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.pending {
		if err := r.store.Add(e); err != nil {
			r.logger.Warn("failed to journal notification", "id", e.ID, "error", err)
		}
	}
}

// NotificationShown implements center.Observer.
func (r *Recorder) NotificationShown(_ context.Context, n *model.Notification, first bool) {
	if n.Type.IsUpdate() && !first {
		return
	}
	e, err := model.NewEntry(n)
	if err != nil {
		r.logger.Error("failed to create journal entry", "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.pending <- *e:
	default:
		r.logger.Warn("journal backlog full, dropping entry", "id", n.ID)
	}
}

// ScreenClosed implements center.Observer.
func (r *Recorder) ScreenClosed(context.Context, int, bool) {}

// Close writes the entries still queued and stops the recorder.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.pending)
	}
	r.mu.Unlock()
	<-r.done
}
