// Package center implements the notification center: registration of
// notification producers, the submission queue, and the lifecycle and
// vertical stacking of notification screens.
//
// Queue, Register and UnRegister may be called from any goroutine. Everything
// that touches screens runs on the UI owner and requires a context carrying
// the owner's mark.
package center

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/tvoverlay/internal/model"
	"github.com/jmylchreest/tvoverlay/internal/overlay"
	"github.com/jmylchreest/tvoverlay/internal/uiloop"
)

// Options configures a Center.
type Options struct {
	Owner      *uiloop.Owner
	Dispatcher Dispatcher
	Resolver   Resolver
	Presenter  Presenter
	Logger     *slog.Logger
}

// Center is the notification center.
type Center struct {
	logger     *slog.Logger
	owner      *uiloop.Owner
	dispatcher Dispatcher
	resolver   Resolver
	presenter  Presenter
	clock      clock

	mu            sync.Mutex
	registrations map[int]*Screen
	clients       map[int]model.ClientID
	suspended     map[int]struct{}
	queue         []*model.Notification
	deleted       []*Screen
	screens       []*Screen
	stack         *overlay.Stack
	converted     map[*Screen]*Screen
	currentID     int
	closed        bool
	observers     []Observer
	events        []func(ctx context.Context, o Observer)

	nextHandle atomic.Uint64
	closeOnce  sync.Once
}

// New creates a notification center.
func New(opts Options) *Center {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	presenter := opts.Presenter
	if presenter == nil {
		presenter = nopPresenter{}
	}

	return &Center{
		logger:        logger,
		owner:         opts.Owner,
		dispatcher:    opts.Dispatcher,
		resolver:      opts.Resolver,
		presenter:     presenter,
		clock:         realClock{},
		registrations: make(map[int]*Screen),
		clients:       make(map[int]model.ClientID),
		suspended:     make(map[int]struct{}),
		stack:         overlay.NewStack(),
		converted:     make(map[*Screen]*Screen),
	}
}

// AddObserver registers an observer for screen lifecycle events.
func (c *Center) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Owner returns the UI owner the center runs on.
func (c *Center) Owner() *uiloop.Owner {
	return c.owner
}

func (c *Center) owns(ctx context.Context, op string) bool {
	if c.owner != nil && c.owner.Owns(ctx) {
		return true
	}
	c.logger.Error(op+" not called from the UI owner")
	return false
}

func (c *Center) wakeup() {
	if c.dispatcher == nil {
		return
	}
	c.dispatcher.Dispatch(c.ProcessQueue)
}

// unlock releases the lock and delivers the events collected while it was
// held.
func (c *Center) unlock(ctx context.Context) {
	events := c.events
	c.events = nil
	observers := slices.Clone(c.observers)
	c.mu.Unlock()

	for _, ev := range events {
		for _, o := range observers {
			ev(ctx, o)
		}
	}
}

// Queue submits a notification. The notification is copied; the caller may
// reuse it. It returns false when the center is closed or the type is
// invalid. Updates for a suspended id are refused as well.
func (c *Center) Queue(n *model.Notification) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	clone := n.Clone()
	if err := c.sanitize(clone); err != nil {
		c.logger.Warn("queue: rejected notification", "client", n.Client, "id", n.ID, "error", err)
		return false
	}
	if id := clone.ID; id > 0 {
		if _, ok := c.registrations[id]; !ok || c.clients[id] != n.Client {
			c.logger.Debug("queue: client not registered for id", "client", n.Client, "id", id)
			clone.ID = -1
		} else if _, ok := c.suspended[id]; ok {
			if n.Type.IsUpdate() {
				return false
			}
			delete(c.suspended, id)
		}
	}

	c.queue = append(c.queue, clone)
	c.wakeup()
	return true
}

// sanitize repairs what Validate objects to in a queued copy: out of range
// progress is cleared, empty artwork dropped, and an id without a client
// demoted. Anything else is returned.
func (c *Center) sanitize(n *model.Notification) error {
	for {
		err := n.Validate()
		switch {
		case err == nil:
			return nil
		case errors.Is(err, model.ErrInvalidProgress):
			c.logger.Debug("queue: clearing progress", "progress", n.Playback.Progress)
			n.Playback.Progress = model.NoProgress
		case errors.Is(err, model.ErrEmptyArtwork):
			n.Artwork = nil
		case errors.Is(err, model.ErrEmptyClient):
			n.ID = -1
		default:
			return err
		}
	}
}

// Register allocates a notification id for client. It returns -1 for an
// empty client or a closed center.
func (c *Center) Register(client model.ClientID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || client == "" {
		return -1
	}

	c.currentID++
	c.registrations[c.currentID] = nil
	c.clients[c.currentID] = client
	return c.currentID
}

// UnRegister releases id. The screen bound to it is closed on the next drain
// if it never expires or if closeNow is set; otherwise it runs out its timer.
func (c *Center) UnRegister(client model.ClientID, id int, closeNow bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	screen, ok := c.registrations[id]
	if !ok {
		c.logger.Error("unregister: no such registration", "client", client, "id", id)
		return
	}
	if c.clients[id] != client {
		c.logger.Error("unregister: client not registered for id", "client", client, "id", id)
	}

	if screen != nil && (screen.duration <= 0 || closeNow) {
		c.deleted = append(c.deleted, screen)
	}
	delete(c.registrations, id)
	delete(c.clients, id)
	delete(c.suspended, id)

	c.wakeup()
}

// RegisteredIDs returns the ids held by client.
func (c *Center) RegisteredIDs(client model.ClientID) []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ids []int
	for id, cl := range c.clients {
		if cl == client {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Suspended reports whether id is suspended.
func (c *Center) Suspended(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.suspended[id]
	return ok
}

// ProcessQueue drains the queue, creating, updating and positioning screens.
// It must run on the UI owner.
func (c *Center) ProcessQueue(ctx context.Context) {
	if !c.owns(ctx, "ProcessQueue") {
		return
	}

	c.mu.Lock()
	defer c.unlock(ctx)

	c.purgeDeleted(ctx)

	for _, n := range c.queue {
		c.process(ctx, n)
	}
	c.queue = nil
}

func (c *Center) process(ctx context.Context, n *model.Notification) {
	id := n.ID
	if id > 0 {
		if _, ok := c.registrations[id]; !ok {
			// unregistered between queueing and draining
			c.logger.Debug("process: registration gone", "id", id)
			n.ID = -1
			id = -1
		}
	}

	var screen *Screen
	created := false

	if id > 0 {
		screen = c.registrations[id]
	}
	if screen == nil {
		screen = newScreen(c.nextHandle.Add(1), n, c.clock, c.expire)
		if err := screen.Create(c.resolver); err != nil {
			screen.stopTimer()
			c.logger.Error("process: failed to create screen", "id", id, "error", err)
			return
		}
		if id > 0 {
			c.registrations[id] = screen
		}
		created = true
	} else {
		wasFullscreen := screen.fullscreen
		screen.SetNotification(n)
		if screen.fullscreen != wasFullscreen {
			c.rerank(ctx, screen)
		}
		if screen.stale() && !c.recreate(ctx, screen) {
			return
		}
	}

	if !screen.created {
		if err := screen.Create(c.resolver); err != nil {
			screen.stopTimer()
			c.logger.Error("process: failed to create screen", "id", id, "error", err)
			if id > 0 {
				c.registrations[id] = nil
			}
			return
		}
		created = true
	}

	if created || !slices.Contains(c.screens, screen) {
		c.insertScreen(ctx, screen)
	}
	c.refresh(ctx, screen)

	first := created
	c.events = append(c.events, func(ctx context.Context, o Observer) {
		o.NotificationShown(ctx, n, first)
	})
}

// insertScreen appends a screen and gives it the next rank.
func (c *Center) insertScreen(ctx context.Context, s *Screen) {
	c.screens = append(c.screens, s)
	pos := len(c.screens) - 1
	if s.fullscreen {
		return
	}
	s.AdjustIndex(c.rankAt(pos), true)
	c.shift(ctx, pos+1, 1)
}

// rankAt counts the non-fullscreen screens before position pos.
func (c *Center) rankAt(pos int) int {
	rank := 0
	for _, s := range c.screens[:pos] {
		if !s.fullscreen {
			rank++
		}
	}
	return rank
}

// rerank fixes the ranks after s changed between fullscreen and stacked.
func (c *Center) rerank(ctx context.Context, s *Screen) {
	pos := slices.Index(c.screens, s)
	if pos < 0 {
		return
	}
	if s.fullscreen {
		s.rank = 0
		c.shift(ctx, pos+1, -1)
		return
	}
	s.AdjustIndex(c.rankAt(pos), true)
	c.shift(ctx, pos+1, 1)
}

// recreate resolves a new layout for a screen whose content no longer fits
// the current one. The host drops the old drawing; refresh draws the new
// one. A screen whose new layout fails is torn down and its registration
// reset.
func (c *Center) recreate(ctx context.Context, s *Screen) bool {
	if err := s.Create(c.resolver); err != nil {
		c.logger.Error("process: failed to recreate screen", "id", s.id, "error", err)
		c.removeScreen(ctx, s, true)
		if s.id > 0 && c.registrations[s.id] == s {
			c.registrations[s.id] = nil
		}
		return false
	}
	if s.added {
		c.presenter.Dismiss(ctx, s.Render())
	}
	s.update = FieldAll
	return true
}

// shift moves every non-fullscreen screen from position from onwards by delta
// ranks, redrawing those that moved.
func (c *Center) shift(ctx context.Context, from, delta int) {
	for _, s := range c.screens[from:] {
		if s.fullscreen {
			continue
		}
		if s.AdjustIndex(delta, false) && s.added {
			c.presenter.Present(ctx, s.Render())
		}
	}
}

// refresh applies pending fields, draws the screen and puts it on the stack
// the first time.
func (c *Center) refresh(ctx context.Context, s *Screen) {
	s.apply()
	if s.detached {
		return
	}
	if !s.added {
		c.stack.Push(s)
		s.added = true
	}
	c.presenter.Present(ctx, s.Render())
}

func (c *Center) purgeDeleted(ctx context.Context) {
	for len(c.deleted) > 0 {
		last := len(c.deleted) - 1
		s := c.deleted[last]
		c.deleted = c.deleted[:last]
		c.removeScreen(ctx, s, true)
	}
}

// removeScreen tears a screen down. A screen still registered that was not
// due for deletion is replaced by an uncreated copy and its id suspended.
func (c *Center) removeScreen(ctx context.Context, s *Screen, due bool) {
	s.stopTimer()

	if i := slices.Index(c.deleted, s); i >= 0 {
		c.deleted = slices.Delete(c.deleted, i, i+1)
		due = true
	}

	shown := false
	if i := slices.Index(c.screens, s); i >= 0 {
		c.screens = slices.Delete(c.screens, i, i+1)
		if !s.fullscreen {
			c.shift(ctx, i, -1)
		}
		shown = true
	}

	if c.stack.Remove(s) {
		c.presenter.Dismiss(ctx, s.Render())
		shown = true
	}
	delete(c.converted, s)

	// suspended replacements were never drawn
	if s.id <= 0 || !shown {
		return
	}
	reg, registered := c.registrations[s.id]
	suspended := false
	if registered && reg == s && !due {
		replacement := s.copy(c.nextHandle.Add(1))
		c.registrations[s.id] = replacement
		c.suspended[s.id] = struct{}{}
		suspended = true
		c.logger.Debug("suspending registered screen", "id", s.id)
	}

	id := s.id
	c.events = append(c.events, func(ctx context.Context, o Observer) {
		o.ScreenClosed(ctx, id, suspended)
	})
}

// expire runs on the timer goroutine.
func (c *Center) expire(s *Screen, gen uint64) {
	if c.dispatcher == nil {
		return
	}
	c.dispatcher.Dispatch(func(ctx context.Context) {
		if !c.owns(ctx, "expire") {
			return
		}
		c.mu.Lock()
		defer c.unlock(ctx)
		if s.timerGen != gen || !c.stack.Contains(s) {
			return
		}
		c.removeScreen(ctx, s, false)
	})
}

// Push puts a non-notification overlay on the stack.
func (c *Center) Push(ctx context.Context, o overlay.Overlay) bool {
	if !c.owns(ctx, "Push") {
		return false
	}
	if _, ok := o.(*Screen); ok {
		c.logger.Error("push: notification screens are managed by the queue")
		return false
	}

	c.mu.Lock()
	defer c.unlock(ctx)

	if c.closed || !c.stack.Push(o) {
		return false
	}
	if p, ok := c.presenter.(OverlayPresenter); ok {
		p.PushOverlay(ctx, o)
	}
	return true
}

// Pop removes an overlay from the stack. Popping a notification screen tears
// it down as if it had expired.
func (c *Center) Pop(ctx context.Context, o overlay.Overlay) bool {
	if !c.owns(ctx, "Pop") {
		return false
	}

	c.mu.Lock()
	defer c.unlock(ctx)

	if s, ok := o.(*Screen); ok {
		if !c.stack.Contains(s) {
			return false
		}
		c.removeScreen(ctx, s, false)
		return true
	}

	if !c.stack.Remove(o) {
		return false
	}
	c.popOverlay(ctx, o)
	return true
}

// popOverlay tells an overlay taken off the stack, and then the host. A
// dialog popping itself has already completed, so Cancel is a no-op there.
func (c *Center) popOverlay(ctx context.Context, o overlay.Overlay) {
	if cl, ok := o.(overlay.Canceler); ok {
		cl.Cancel()
	}
	if p, ok := c.presenter.(OverlayPresenter); ok {
		p.PopOverlay(ctx, o)
	}
}

// PopHandle removes the notification screen with the given handle.
func (c *Center) PopHandle(ctx context.Context, handle uint64) bool {
	c.mu.Lock()
	var target *Screen
	for _, s := range c.screens {
		if s.handle == handle {
			target = s
			break
		}
	}
	c.mu.Unlock()

	if target == nil {
		return false
	}
	return c.Pop(ctx, target)
}

// Top returns the topmost overlay.
func (c *Center) Top() overlay.Overlay {
	return c.stack.Top()
}

// Reload tears down every notification screen so they pick up new layouts.
// Registered ids get suspended replacements; anonymous screens are dropped.
func (c *Center) Reload(ctx context.Context) {
	if !c.owns(ctx, "Reload") {
		return
	}

	c.mu.Lock()
	defer c.unlock(ctx)

	for _, s := range slices.Clone(c.screens) {
		c.removeScreen(ctx, s, false)
	}
}

// GetNotificationScreens returns the overlay stack, bottom first, with each
// notification screen replaced by a detached copy of its current content.
// Copies are reused across calls and dropped when their screen goes away. A
// copy whose content needs another layout reports itself uncreated.
func (c *Center) GetNotificationScreens() []overlay.Overlay {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.stack.List()
	out := make([]overlay.Overlay, 0, len(list))
	for _, o := range list {
		s, ok := o.(*Screen)
		if !ok {
			out = append(out, o)
			continue
		}
		cp, ok := c.converted[s]
		if !ok {
			cp = s.copy(s.handle)
			cp.detached = true
			c.converted[s] = cp
		} else {
			cp.assign(s)
			if cp.stale() {
				// the host lays it out again
				cp.created = false
			}
		}
		out = append(out, cp)
	}
	return out
}

// ScreenExpiryTime returns when a notification screen expires. Other
// overlays and persistent screens return the zero time.
func (c *Center) ScreenExpiryTime(o overlay.Overlay) time.Time {
	s, ok := o.(*Screen)
	if !ok {
		return time.Time{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.expiry
}

// ScreenCreated reports whether a notification screen has resolved its
// layout. Other overlays are always created.
func (c *Center) ScreenCreated(o overlay.Overlay) bool {
	s, ok := o.(*Screen)
	if !ok {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.created
}

// CreateScreen resolves the layout of a detached copy returned by
// GetNotificationScreens.
func (c *Center) CreateScreen(o overlay.Overlay) error {
	s, ok := o.(*Screen)
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.created {
		return nil
	}
	return s.Create(c.resolver)
}

// UpdateScreen applies pending changes to a created notification screen.
// Live screens are only redrawn while they are on the stack.
func (c *Center) UpdateScreen(ctx context.Context, o overlay.Overlay) {
	s, ok := o.(*Screen)
	if !ok {
		return
	}
	if !s.detached && !c.owns(ctx, "UpdateScreen") {
		return
	}

	c.mu.Lock()
	defer c.unlock(ctx)
	if !s.created {
		return
	}
	// a live screen that was popped or expired stays gone
	if !s.detached && !c.stack.Contains(s) {
		return
	}
	c.refresh(ctx, s)
}

// Snapshot describes every overlay on the stack, bottom first.
func (c *Center) Snapshot() []ScreenInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.stack.List()
	out := make([]ScreenInfo, 0, len(list))
	for _, o := range list {
		info := ScreenInfo{Kind: o.Kind().String(), Name: o.Name(), Progress: model.NoProgress}
		if s, ok := o.(*Screen); ok {
			info.Handle = s.handle
			info.ID = s.id
			info.Rank = s.rank
			info.Y = s.y
			info.Fullscreen = s.fullscreen
			info.Style = s.style
			info.Metadata = maps.Clone(s.metadata)
			info.Expiry = s.expiry
			if s.content.Has(FieldDuration) {
				info.Progress = s.playback.Progress
				info.ProgressText = s.playback.Text
			}
		}
		out = append(out, info)
	}
	return out
}

// Close tears down every screen and rejects further submissions. Only the
// first call has any effect.
func (c *Center) Close(ctx context.Context) {
	c.closeOnce.Do(func() {
		if c.owner != nil && !c.owner.Owns(ctx) {
			c.logger.Error("Close not called from the UI owner")
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		c.closed = true
		c.queue = nil
		c.deleted = nil
		// drop registrations first so nothing is replaced
		clear(c.registrations)
		clear(c.clients)
		clear(c.suspended)
		for _, s := range slices.Clone(c.screens) {
			c.removeScreen(ctx, s, true)
		}
		for _, o := range c.stack.List() {
			c.stack.Remove(o)
			c.popOverlay(ctx, o)
		}
		clear(c.converted)
		c.events = nil
	})
}
