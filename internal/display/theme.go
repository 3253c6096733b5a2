package display

import (
	"context"
	"log/slog"
	"sync"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/tvoverlay/internal/theme"
)

// themeOptions configures a themeLoader.
type themeOptions struct {
	// Dir is the user theme directory.
	Dir string
	// Dispatch runs fn on the GTK main thread. Hot reloads arrive on a
	// watcher goroutine and go through it.
	Dispatch func(fn func())
	// OnReload is told the theme name after a hot reload.
	OnReload func(name string)
	// OnError is told about theme files that cannot be read.
	OnError func(err error)
	Logger  *slog.Logger
}

// themeLoader owns the CSS provider for the overlay windows. Load and Apply
// must be called on the GTK main thread.
type themeLoader struct {
	mu       sync.Mutex
	opts     themeOptions
	logger   *slog.Logger
	provider *gtk.CSSProvider
	theme    *theme.Theme
	watcher  *theme.Watcher
}

// newThemeLoader creates a loader. Call it after GTK is initialized.
func newThemeLoader(opts themeOptions) *themeLoader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Dispatch == nil {
		opts.Dispatch = func(fn func()) { fn() }
	}
	return &themeLoader{
		opts:     opts,
		logger:   logger,
		provider: gtk.NewCSSProvider(),
	}
}

// Load switches to the named theme. An unknown or unreadable theme falls
// back to the default one and the error is returned for reporting.
func (l *themeLoader) Load(name string) error {
	t, err := theme.Resolve(l.opts.Dir, name)
	if err != nil {
		l.logger.Warn("theme not available, using default", "theme", name, "error", err)
		t, _ = theme.Resolve("", theme.DefaultThemeName)
	}

	l.mu.Lock()
	l.theme = t
	l.mu.Unlock()

	l.provider.LoadFromString(t.CSS)
	l.logger.Info("loaded theme", "name", t.Name, "path", t.Path)
	return err
}

// Apply installs the provider on display, or on the default display.
func (l *themeLoader) Apply(display *gdk.Display) {
	if display == nil {
		display = gdk.DisplayGetDefault()
	}
	if display == nil {
		l.logger.Warn("no display available, theme not applied")
		return
	}
	gtk.StyleContextAddProviderForDisplay(display, l.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
}

// Current returns the loaded theme, or nil.
func (l *themeLoader) Current() *theme.Theme {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.theme
}

// Watch starts reloading the current theme when its file changes. Bundled
// themes are not watched.
func (l *themeLoader) Watch(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher != nil {
		l.watcher.Stop()
		l.watcher = nil
	}
	if l.theme == nil || l.theme.Bundled() {
		return
	}

	name := l.theme.Name
	w := theme.NewWatcher(l.theme, l.logger)
	w.SetChangeCallback(func(css string) {
		l.opts.Dispatch(func() {
			l.provider.LoadFromString(css)
			if l.opts.OnReload != nil {
				l.opts.OnReload(name)
			}
		})
	})
	w.SetErrorCallback(l.opts.OnError)
	if err := w.Start(ctx); err != nil {
		l.logger.Warn("failed to watch theme", "error", err)
		return
	}
	l.watcher = w
}

// Stop stops watching the theme file.
func (l *themeLoader) Stop() {
	l.mu.Lock()
	w := l.watcher
	l.watcher = nil
	l.mu.Unlock()

	if w != nil {
		w.Stop()
	}
}
