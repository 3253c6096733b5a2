package center

import (
	"context"
	"time"

	"github.com/jmylchreest/tvoverlay/internal/layout"
	"github.com/jmylchreest/tvoverlay/internal/model"
	"github.com/jmylchreest/tvoverlay/internal/overlay"
)

// Dispatcher posts work to the UI owner. Dispatch must not block; fn runs
// later with a context carrying the owner mark.
type Dispatcher interface {
	Dispatch(fn func(ctx context.Context))
}

// DispatchFunc adapts a function to the Dispatcher interface.
type DispatchFunc func(fn func(ctx context.Context))

// Dispatch calls f(fn).
func (f DispatchFunc) Dispatch(fn func(ctx context.Context)) { f(fn) }

// Resolver finds the layout for a screen name, trying "name-style" first.
type Resolver interface {
	Resolve(name, style string) (*layout.LayoutConfig, error)
}

// Presenter draws notification screens. It is called on the UI owner with
// the center's lock held and must not call back into the center.
type Presenter interface {
	// Present shows a screen, or redraws it if it is already shown.
	Present(ctx context.Context, r Render)
	// Dismiss hides a screen.
	Dismiss(ctx context.Context, r Render)
}

// OverlayPresenter is implemented by presenters that also draw
// non-notification overlays pushed onto the stack.
type OverlayPresenter interface {
	PushOverlay(ctx context.Context, o overlay.Overlay)
	PopOverlay(ctx context.Context, o overlay.Overlay)
}

// Observer is told about screen lifecycle events. Calls happen on the UI
// owner after the center's lock is released.
type Observer interface {
	// NotificationShown is called for each notification drained from the
	// queue; first is true when a new screen was created for it.
	NotificationShown(ctx context.Context, n *model.Notification, first bool)
	// ScreenClosed is called when a screen bound to a positive id is torn
	// down; suspended is true when the id was suspended as a result.
	ScreenClosed(ctx context.Context, id int, suspended bool)
}

type nopPresenter struct{}

func (nopPresenter) Present(context.Context, Render) {}
func (nopPresenter) Dismiss(context.Context, Render) {}

type timer interface {
	Stop() bool
}

type clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// ScreenInfo is a plain description of an overlay on the stack, safe to hand
// to other goroutines.
type ScreenInfo struct {
	Kind         string            `json:"kind" yaml:"kind"`
	Name         string            `json:"name" yaml:"name"`
	Handle       uint64            `json:"handle,omitempty" yaml:"handle,omitempty"`
	ID           int               `json:"id,omitempty" yaml:"id,omitempty"`
	Rank         int               `json:"rank" yaml:"rank"`
	Y            int               `json:"y" yaml:"y"`
	Fullscreen   bool              `json:"fullscreen,omitempty" yaml:"fullscreen,omitempty"`
	Style        string            `json:"style,omitempty" yaml:"style,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Progress     float64           `json:"progress" yaml:"progress"`
	ProgressText string            `json:"progress_text,omitempty" yaml:"progress_text,omitempty"`
	Expiry       time.Time         `json:"expiry" yaml:"expiry"`
}
