package daemon

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/config"
	"github.com/jmylchreest/tvoverlay/internal/layout"
	"github.com/jmylchreest/tvoverlay/internal/uiloop"
)

// Host is a UI backend. It owns the thread the center is driven on and
// draws what the center presents.
type Host interface {
	// Owner returns the mark carried by contexts running on the host's UI
	// thread.
	Owner() *uiloop.Owner
	// Dispatch posts fn to the UI thread without blocking.
	Dispatch(fn func(ctx context.Context))
	// Presenter returns the presenter the center draws through.
	Presenter() center.Presenter
	// Attach hands the host the center once it exists, so input can be
	// routed to the top overlay.
	Attach(c *center.Center)
	// Run drives the UI until ctx is cancelled or the user quits. When it
	// stops, shutdown runs once on the UI thread before Run returns.
	Run(ctx context.Context, shutdown func(ctx context.Context)) error
}

// ThemeHost is implemented by hosts that load CSS themes. The daemon routes
// theme reloads and failures to the overlay.
type ThemeHost interface {
	SetThemeCallbacks(onReload func(name string), onError func(err error))
}

// ConfigurableHost is implemented by hosts that follow config reloads.
type ConfigurableHost interface {
	UpdateConfig(cfg *config.DaemonConfig)
}

// HeadlessHost drives the center on a plain goroutine and draws nothing.
// It is used for tests and for running overlayd as a bus-only service.
type HeadlessHost struct {
	loop      *uiloop.Loop
	logger    *slog.Logger
	presenter *logPresenter
	center    *center.Center
}

// NewHeadlessHost creates a headless host.
func NewHeadlessHost(logger *slog.Logger) *HeadlessHost {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeadlessHost{
		loop:      uiloop.NewLoop(logger),
		logger:    logger,
		presenter: &logPresenter{logger: logger},
	}
}

// Owner implements Host.
func (h *HeadlessHost) Owner() *uiloop.Owner { return h.loop.Owner() }

// Dispatch implements Host.
func (h *HeadlessHost) Dispatch(fn func(ctx context.Context)) { h.loop.Dispatch(fn) }

// Presenter implements Host.
func (h *HeadlessHost) Presenter() center.Presenter { return h.presenter }

// Attach implements Host.
func (h *HeadlessHost) Attach(c *center.Center) { h.center = c }

// Do runs fn on the loop and waits for it.
func (h *HeadlessHost) Do(ctx context.Context, fn func(ctx context.Context)) error {
	return h.loop.Do(ctx, fn)
}

// Run implements Host.
func (h *HeadlessHost) Run(ctx context.Context, shutdown func(ctx context.Context)) error {
	loopCtx, stop := context.WithCancel(context.Background())
	defer stop()

	go func() {
		select {
		case <-ctx.Done():
		case <-h.loop.Done():
			return
		}
		if shutdown != nil {
			if err := h.loop.Do(loopCtx, shutdown); err != nil {
				h.logger.Warn("shutdown did not run on the loop", "error", err)
			}
			// let work posted by the shutdown run, such as dialog completions
			_ = h.loop.Do(loopCtx, func(context.Context) {})
		}
		stop()
	}()

	h.loop.Run(loopCtx)
	return nil
}

// logPresenter logs what would be drawn.
type logPresenter struct {
	logger *slog.Logger
}

func (p *logPresenter) Present(_ context.Context, r center.Render) {
	p.logger.Debug("present screen",
		"handle", r.Handle,
		"id", r.ID,
		"rank", r.Rank,
		"y", r.Y,
		"title", r.Text(layout.ElementTypeTitle))
}

func (p *logPresenter) Dismiss(_ context.Context, r center.Render) {
	p.logger.Debug("dismiss screen", "handle", r.Handle, "id", r.ID)
}
