// Package tui draws overlay screens in a terminal with Bubble Tea.
//
// The center runs on a uiloop.Loop goroutine. The presenter copies what it
// is given into a frame under a lock, and the Bubble Tea program renders that
// frame. Key presses travel the other way: the program dispatches them onto
// the loop, where the top dialog handles them.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmylchreest/tvoverlay/internal/artwork"
	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/config"
	"github.com/jmylchreest/tvoverlay/internal/dialog"
	"github.com/jmylchreest/tvoverlay/internal/layout"
	"github.com/jmylchreest/tvoverlay/internal/overlay"
	"github.com/jmylchreest/tvoverlay/internal/uiloop"
)

// sweepInterval is how often the host walks the center's screens for
// expiry.
const sweepInterval = time.Second

// Options configures a Host.
type Options struct {
	Config  *config.DaemonConfig
	Artwork *artwork.Cache
	Logger  *slog.Logger

	// ProgramOptions are appended to the Bubble Tea program options.
	ProgramOptions []tea.ProgramOption
}

// Host is the terminal UI backend.
type Host struct {
	loop       *uiloop.Loop
	logger     *slog.Logger
	cache      *artwork.Cache
	dialogKeys dialog.KeyMap
	progOpts   []tea.ProgramOption

	// loop goroutine only
	center *center.Center

	mu       sync.Mutex
	cfg      *config.DaemonConfig
	renderer *artwork.TerminalRenderer
	screens  map[uint64]center.Render
	dialogs  []dialogView
	next     upcoming
	dirty    chan struct{}
}

// upcoming is the notification screen that expires next.
type upcoming struct {
	title string
	at    time.Time
}

// dialogView is a copy of a dialog's visible state.
type dialogView struct {
	box     *dialog.Box
	Title   string
	Text    string
	Buttons []string
	Current int
}

// frame is what the program draws.
type frame struct {
	cfg      *config.DaemonConfig
	renderer *artwork.TerminalRenderer
	screens  []center.Render
	dialogs  []dialogView
	next     upcoming
}

// NewHost creates a terminal host.
func NewHost(opts Options) *Host {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}

	h := &Host{
		loop:       uiloop.NewNamedLoop("tui", logger),
		logger:     logger,
		cache:      opts.Artwork,
		dialogKeys: dialog.DefaultKeyMap(),
		progOpts:   opts.ProgramOptions,
		cfg:        cfg,
		screens:    make(map[uint64]center.Render),
		dirty:      make(chan struct{}, 1),
	}
	h.renderer = h.newRenderer(cfg)
	return h
}

func (h *Host) newRenderer(cfg *config.DaemonConfig) *artwork.TerminalRenderer {
	if h.cache == nil {
		return nil
	}
	return artwork.NewTerminalRenderer(h.cache, cfg.TUI.Artwork)
}

// Owner returns the loop's owner mark.
func (h *Host) Owner() *uiloop.Owner { return h.loop.Owner() }

// Dispatch posts fn to the loop.
func (h *Host) Dispatch(fn func(ctx context.Context)) { h.loop.Dispatch(fn) }

// Presenter returns the host.
func (h *Host) Presenter() center.Presenter { return h }

// Attach hands the host the center.
func (h *Host) Attach(c *center.Center) {
	h.loop.Dispatch(func(context.Context) { h.center = c })
}

// UpdateConfig applies a reloaded configuration.
func (h *Host) UpdateConfig(cfg *config.DaemonConfig) {
	if cfg == nil {
		return
	}
	h.mu.Lock()
	if cfg.TUI.Artwork != h.cfg.TUI.Artwork {
		h.renderer = h.newRenderer(cfg)
	}
	h.cfg = cfg
	h.mu.Unlock()
	h.invalidate()
}

// Present stores the screen for drawing.
func (h *Host) Present(_ context.Context, r center.Render) {
	h.mu.Lock()
	h.screens[r.Handle] = r
	h.mu.Unlock()
	h.invalidate()
}

// Dismiss drops the screen.
func (h *Host) Dismiss(_ context.Context, r center.Render) {
	h.mu.Lock()
	delete(h.screens, r.Handle)
	h.mu.Unlock()
	h.invalidate()
}

// PushOverlay shows dialogs; other overlay kinds have nothing to draw.
func (h *Host) PushOverlay(_ context.Context, o overlay.Overlay) {
	box, ok := o.(*dialog.Box)
	if !ok {
		return
	}
	v := snapshotDialog(box)
	h.mu.Lock()
	h.dialogs = append(h.dialogs, v)
	h.mu.Unlock()
	h.invalidate()
}

// PopOverlay hides a dialog.
func (h *Host) PopOverlay(_ context.Context, o overlay.Overlay) {
	box, ok := o.(*dialog.Box)
	if !ok {
		return
	}
	h.mu.Lock()
	h.dialogs = slices.DeleteFunc(h.dialogs, func(v dialogView) bool { return v.box == box })
	h.mu.Unlock()
	h.invalidate()
}

// refreshDialog copies the dialog's state again after it handled input.
func (h *Host) refreshDialog(box *dialog.Box) {
	v := snapshotDialog(box)
	h.mu.Lock()
	for i := range h.dialogs {
		if h.dialogs[i].box == box {
			h.dialogs[i] = v
		}
	}
	h.mu.Unlock()
	h.invalidate()
}

func snapshotDialog(box *dialog.Box) dialogView {
	v := dialogView{
		box:     box,
		Text:    box.Text(),
		Current: box.Current(),
	}
	if l := box.Layout(); l != nil {
		v.Title = l.Default(layout.ElementTypeTitle)
	}
	for _, b := range box.Buttons() {
		v.Buttons = append(v.Buttons, b.Title)
	}
	return v
}

// frame returns a copy of the drawable state. Screens are ordered by rank.
func (h *Host) frame() frame {
	h.mu.Lock()
	defer h.mu.Unlock()

	f := frame{
		cfg:      h.cfg,
		renderer: h.renderer,
		dialogs:  slices.Clone(h.dialogs),
		next:     h.next,
	}
	for _, r := range h.screens {
		f.screens = append(f.screens, r)
	}
	slices.SortFunc(f.screens, func(a, b center.Render) int {
		if a.Rank != b.Rank {
			return a.Rank - b.Rank
		}
		return int(a.Handle) - int(b.Handle)
	})
	return f
}

func (h *Host) invalidate() {
	select {
	case h.dirty <- struct{}{}:
	default:
	}
}

// sendKey routes a key press to the top dialog on the loop.
func (h *Host) sendKey(box *dialog.Box, msg tea.KeyMsg) {
	h.loop.Dispatch(func(ctx context.Context) {
		if box.HandleKey(ctx, h.dialogKeys, msg) {
			h.refreshDialog(box)
		}
	})
}

// dismiss pops screens by handle on the loop.
func (h *Host) dismiss(handles ...uint64) {
	h.loop.Dispatch(func(ctx context.Context) {
		if h.center == nil {
			return
		}
		for _, handle := range handles {
			h.center.PopHandle(ctx, handle)
		}
	})
}

// sweep walks the center's host view of the stack. Screens whose expiry
// has passed are popped, as their timers stop while the machine sleeps. The
// screen expiring next is kept for the status bar.
func (h *Host) sweep(ctx context.Context, now time.Time) {
	if h.center == nil {
		return
	}
	// wall clock, so time spent suspended counts
	now = now.Round(0)

	var (
		next  upcoming
		stale []uint64
	)
	for _, o := range h.center.GetNotificationScreens() {
		s, ok := o.(*center.Screen)
		if !ok {
			continue
		}
		if !h.center.ScreenCreated(s) {
			if err := h.center.CreateScreen(s); err != nil {
				h.logger.Debug("failed to lay out screen copy", "handle", s.Handle(), "error", err)
				continue
			}
		}
		h.center.UpdateScreen(ctx, s)

		at := h.center.ScreenExpiryTime(s)
		switch {
		case at.IsZero():
		case !at.After(now):
			stale = append(stale, s.Handle())
		case next.at.IsZero() || at.Before(next.at):
			title, _ := s.Element(layout.ElementTypeTitle)
			next = upcoming{title: title.Text, at: at}
		}
	}
	for _, handle := range stale {
		h.logger.Debug("popping overdue screen", "handle", handle)
		h.center.PopHandle(ctx, handle)
	}

	h.mu.Lock()
	changed := next != h.next
	h.next = next
	h.mu.Unlock()
	if changed || !next.at.IsZero() {
		h.invalidate()
	}
}

// Run drives the terminal until ctx is cancelled or the user quits.
func (h *Host) Run(ctx context.Context, shutdown func(ctx context.Context)) error {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go h.loop.Run(loopCtx)

	opts := append([]tea.ProgramOption{tea.WithAltScreen()}, h.progOpts...)
	p := tea.NewProgram(newModel(h), opts...)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-h.dirty:
				p.Send(refreshMsg{})
			case <-done:
				return
			}
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			p.Quit()
		case <-done:
		}
	}()
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				h.loop.Dispatch(func(ctx context.Context) { h.sweep(ctx, now) })
			case <-done:
				return
			}
		}
	}()

	_, err := p.Run()
	close(done)

	if shutdown != nil {
		if derr := h.loop.Do(loopCtx, shutdown); derr != nil {
			h.logger.Warn("shutdown did not run on the loop", "error", derr)
		}
		_ = h.loop.Do(loopCtx, func(context.Context) {})
	}
	stopLoop()
	<-h.loop.Done()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run terminal ui: %w", err)
	}
	return nil
}
