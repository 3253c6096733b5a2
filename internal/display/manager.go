package display

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/gio/v2"
	"github.com/diamondburned/gotk4/pkg/glib/v2"

	"github.com/jmylchreest/tvoverlay/internal/artwork"
	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/config"
	"github.com/jmylchreest/tvoverlay/internal/dialog"
	"github.com/jmylchreest/tvoverlay/internal/overlay"
	"github.com/jmylchreest/tvoverlay/internal/uiloop"
)

// AppID is the GTK application id.
const AppID = "io.github.jmylchreest.tvoverlay"

// Options configures a Host.
type Options struct {
	Config  *config.DaemonConfig
	Artwork *artwork.Cache // nil disables artwork
	Logger  *slog.Logger
}

// Host runs the center on the GTK main thread. Dispatched work runs from
// glib idle callbacks; work dispatched before the application is active is
// held until it is.
type Host struct {
	logger  *slog.Logger
	owner   *uiloop.Owner
	artwork *artwork.Cache

	mu       sync.Mutex
	cfg      *config.DaemonConfig
	ready    bool
	closing  bool
	stopped  bool
	pending  []func(ctx context.Context)
	onTheme  func(name string)
	onThemeE func(err error)

	// GTK thread only
	app      *adw.Application
	center   *center.Center
	theme    *themeLoader
	screens  map[uint64]*popup
	dialogs  map[*dialog.Box]*dialogWindow
	shutOnce sync.Once
}

// NewHost creates a GTK host. Nothing touches GTK until Run.
func NewHost(opts Options) *Host {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}
	return &Host{
		logger:  logger,
		owner:   uiloop.NewOwner("gtk"),
		artwork: opts.Artwork,
		cfg:     cfg,
		screens: make(map[uint64]*popup),
		dialogs: make(map[*dialog.Box]*dialogWindow),
	}
}

// Owner returns the mark carried by contexts on the GTK main thread.
func (h *Host) Owner() *uiloop.Owner { return h.owner }

// Presenter returns the host itself.
func (h *Host) Presenter() center.Presenter { return h }

// Attach gives the host the center that input is routed to.
func (h *Host) Attach(c *center.Center) { h.center = c }

// SetThemeCallbacks sets the functions told about theme hot reloads and
// theme files that fail to load.
func (h *Host) SetThemeCallbacks(onReload func(name string), onError func(err error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onTheme = onReload
	h.onThemeE = onError
}

func (h *Host) config() *config.DaemonConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg
}

// Dispatch posts fn to the GTK main thread. It never blocks.
func (h *Host) Dispatch(fn func(ctx context.Context)) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	if !h.ready || h.closing {
		h.pending = append(h.pending, fn)
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	glib.IdleAdd(func() { h.run(fn) })
}

func (h *Host) run(fn func(ctx context.Context)) {
	h.mu.Lock()
	stopped := h.stopped
	h.mu.Unlock()
	if stopped {
		return
	}
	fn(h.ctx())
}

// ctx returns a context marked as running on the GTK main thread.
func (h *Host) ctx() context.Context {
	return h.owner.Enter(context.Background())
}

// Run runs the GTK application until ctx is cancelled.
func (h *Host) Run(ctx context.Context, shutdown func(ctx context.Context)) error {
	h.app = adw.NewApplication(AppID, gio.ApplicationNonUnique)
	h.app.ConnectActivate(func() { h.activate(ctx) })
	h.app.ConnectShutdown(func() { h.shutdown(shutdown) })

	quit := make(chan struct{})
	defer close(quit)
	go func() {
		select {
		case <-ctx.Done():
			h.logger.Debug("context cancelled, quitting gtk application")
			glib.IdleAdd(func() {
				h.shutdown(shutdown)
				h.app.Quit()
			})
		case <-quit:
		}
	}()

	if status := h.app.Run(os.Args[:1]); status != 0 {
		return fmt.Errorf("gtk application exited with status %d", status)
	}
	return nil
}

func (h *Host) activate(ctx context.Context) {
	h.mu.Lock()
	if h.ready {
		h.mu.Unlock()
		h.logger.Warn("application already active")
		return
	}
	cfg := h.cfg
	onTheme, onThemeE := h.onTheme, h.onThemeE
	h.mu.Unlock()

	// no windows exist between overlays
	h.app.Hold()

	h.theme = newThemeLoader(themeOptions{
		Dir:      cfg.ThemeDir(),
		Dispatch: func(fn func()) { glib.IdleAdd(fn) },
		OnReload: onTheme,
		OnError:  onThemeE,
		Logger:   h.logger.With("component", "theme"),
	})
	if err := h.theme.Load(cfg.Theme.Name); err != nil && onThemeE != nil {
		onThemeE(err)
	}
	h.theme.Apply(nil)
	h.theme.Watch(ctx)
	applyColorScheme(cfg.Theme.ColorScheme)

	h.mu.Lock()
	h.ready = true
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()

	for _, fn := range pending {
		h.run(fn)
	}
	h.logger.Info("gtk host ready", "theme", cfg.Theme.Name, "pending", len(pending))
}

// shutdown runs the center shutdown once, then the work it posted, then
// drops all windows.
func (h *Host) shutdown(shutdown func(ctx context.Context)) {
	h.shutOnce.Do(func() {
		h.mu.Lock()
		h.closing = true
		h.mu.Unlock()

		if shutdown != nil {
			shutdown(h.ctx())
		}

		h.mu.Lock()
		h.stopped = true
		posted := h.pending
		h.pending = nil
		h.mu.Unlock()

		// cancelled dialogs report back through posted work
		for _, fn := range posted {
			fn(h.ctx())
		}

		for handle, p := range h.screens {
			p.Close()
			delete(h.screens, handle)
		}
		for box, d := range h.dialogs {
			d.Close()
			delete(h.dialogs, box)
		}
		if h.theme != nil {
			h.theme.Stop()
		}
	})
}

// UpdateConfig applies a reloaded configuration on the GTK main thread.
func (h *Host) UpdateConfig(cfg *config.DaemonConfig) {
	h.mu.Lock()
	prev := h.cfg
	h.cfg = cfg
	h.mu.Unlock()

	h.Dispatch(func(ctx context.Context) {
		if h.theme != nil && cfg.Theme.Name != prev.Theme.Name {
			h.mu.Lock()
			onThemeE := h.onThemeE
			h.mu.Unlock()
			if err := h.theme.Load(cfg.Theme.Name); err != nil && onThemeE != nil {
				onThemeE(err)
			}
			h.theme.Watch(ctx)
		}
		applyColorScheme(cfg.Theme.ColorScheme)
		for _, p := range h.screens {
			p.Place()
		}
	})
}

// Present shows or redraws a notification screen.
func (h *Host) Present(_ context.Context, r center.Render) {
	p, ok := h.screens[r.Handle]
	if !ok {
		p = newPopup(h, r)
		h.screens[r.Handle] = p
	}
	p.Update(r)
	p.Show()
}

// Dismiss closes a notification screen.
func (h *Host) Dismiss(_ context.Context, r center.Render) {
	if p, ok := h.screens[r.Handle]; ok {
		p.Close()
		delete(h.screens, r.Handle)
	}
}

// PushOverlay opens a window for a dialog. Other overlays are drawn by
// whoever pushed them.
func (h *Host) PushOverlay(_ context.Context, o overlay.Overlay) {
	box, ok := o.(*dialog.Box)
	if !ok {
		h.logger.Debug("overlay has no gtk view", "name", o.Name(), "kind", o.Kind())
		return
	}
	h.dialogs[box] = newDialogWindow(h, box)
}

// PopOverlay closes a dialog window.
func (h *Host) PopOverlay(_ context.Context, o overlay.Overlay) {
	box, ok := o.(*dialog.Box)
	if !ok {
		return
	}
	if d, ok := h.dialogs[box]; ok {
		d.Close()
		delete(h.dialogs, box)
	}
}

// handleClick runs the configured mouse action for a click on a screen.
func (h *Host) handleClick(handle uint64, button uint) {
	if h.center == nil {
		return
	}
	action := mouseAction(h.config().Mouse, button)
	ctx := h.ctx()

	switch action {
	case config.MouseActionDismiss:
		h.center.PopHandle(ctx, handle)
	case config.MouseActionDismissAll:
		handles := make([]uint64, 0, len(h.screens))
		for hd := range h.screens {
			handles = append(handles, hd)
		}
		for _, hd := range handles {
			h.center.PopHandle(ctx, hd)
		}
	}
}

// mouseAction returns the action configured for a mouse button.
func mouseAction(m config.MouseConfig, button uint) config.MouseAction {
	switch button {
	case 1:
		return config.MouseAction(m.Left)
	case 2:
		return config.MouseAction(m.Middle)
	case 3:
		return config.MouseAction(m.Right)
	default:
		return config.MouseActionNone
	}
}

// applyColorScheme forces libadwaita light or dark, or follows the system.
func applyColorScheme(scheme string) {
	sm := adw.StyleManagerGetDefault()
	switch config.ColorScheme(scheme) {
	case config.ColorSchemeLight:
		sm.SetColorScheme(adw.ColorSchemeForceLight)
	case config.ColorSchemeDark:
		sm.SetColorScheme(adw.ColorSchemeForceDark)
	default:
		sm.SetColorScheme(adw.ColorSchemeDefault)
	}
}

// colorSchemeClass returns "dark" or "light" for the effective scheme.
func colorSchemeClass() string {
	if adw.StyleManagerGetDefault().Dark() {
		return "dark"
	}
	return "light"
}
