// Package dialog implements the dialog box overlay: a message with a list of
// buttons that reports the chosen button to a return target.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/tvoverlay/internal/layout"
	"github.com/jmylchreest/tvoverlay/internal/overlay"
)

// LayoutName is the screen definition dialogs resolve.
const LayoutName = "dialog"

// ErrMissingElement is returned by Create when the layout lacks a required
// element.
var ErrMissingElement = errors.New("dialog layout is missing a required element")

// Action is a navigation action delivered to the dialog.
type Action string

const (
	ActionUp     Action = "UP"
	ActionDown   Action = "DOWN"
	ActionSelect Action = "SELECT"
	ActionLeft   Action = "LEFT"
	ActionRight  Action = "RIGHT"
	ActionEscape Action = "ESCAPE"
	ActionMenu   Action = "MENU"
)

// State is the lifecycle state of a dialog box.
type State int

const (
	StateCreated State = iota
	StateActive
	StateSelected
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateSelected:
		return "selected"
	case StateCancelled:
		return "cancelled"
	default:
		return "created"
	}
}

// Completion is posted to the return target when the dialog closes.
// Result is the chosen button index, or -1 when cancelled.
type Completion struct {
	ResultID string
	Result   int
	Text     string
	Data     any
}

// Cancelled reports whether the dialog was dismissed without a choice.
func (c Completion) Cancelled() bool {
	return c.Result < 0
}

// Target receives dialog completions.
type Target interface {
	DialogCompleted(ctx context.Context, c Completion)
}

// TargetFunc adapts a function to the Target interface.
type TargetFunc func(ctx context.Context, c Completion)

// DialogCompleted calls f.
func (f TargetFunc) DialogCompleted(ctx context.Context, c Completion) { f(ctx, c) }

// Dispatcher posts work to the UI owner.
type Dispatcher interface {
	Dispatch(fn func(ctx context.Context))
}

// Popper removes overlays from the overlay stack.
type Popper interface {
	Pop(ctx context.Context, o overlay.Overlay) bool
}

// Resolver finds screen definitions.
type Resolver interface {
	Resolve(name, style string) (*layout.LayoutConfig, error)
}

// Button is an entry in the dialog's list.
type Button struct {
	Title string
	Data  any
}

// Options configures a Box.
type Options struct {
	Name       string
	Style      string
	Dispatcher Dispatcher
	Popper     Popper
	Logger     *slog.Logger
}

// Box is a dialog box. It is driven on the UI owner.
type Box struct {
	name       string
	style      string
	text       string
	dispatcher Dispatcher
	popper     Popper
	logger     *slog.Logger

	layout   *layout.LayoutConfig
	list     *List
	state    State
	target   Target
	resultID string
}

var (
	_ overlay.Overlay  = (*Box)(nil)
	_ overlay.Canceler = (*Box)(nil)
)

// New creates a dialog box showing text.
func New(text string, opts Options) *Box {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := opts.Name
	if name == "" {
		name = LayoutName
	}
	return &Box{
		name:       name,
		style:      opts.Style,
		text:       text,
		dispatcher: opts.Dispatcher,
		popper:     opts.Popper,
		logger:     logger,
		list:       &List{},
	}
}

// Kind implements overlay.Overlay.
func (b *Box) Kind() overlay.Kind { return overlay.KindDialog }

// Name implements overlay.Overlay.
func (b *Box) Name() string { return b.name }

// Create resolves the dialog layout. The layout must provide a message area
// and a button list.
func (b *Box) Create(r Resolver) error {
	cfg, err := r.Resolve(LayoutName, b.style)
	if err != nil {
		return fmt.Errorf("failed to load dialog layout: %w", err)
	}
	for _, t := range []layout.ElementType{layout.ElementTypeMessageArea, layout.ElementTypeList} {
		if !cfg.Has(t) {
			return fmt.Errorf("%w: %s", ErrMissingElement, t)
		}
	}

	b.layout = cfg
	b.list.active = true
	b.state = StateActive
	return nil
}

// Layout returns the resolved layout, or nil before Create.
func (b *Box) Layout() *layout.LayoutConfig { return b.layout }

// SetReturn sets where completions go and the id they carry.
func (b *Box) SetReturn(target Target, resultID string) {
	b.target = target
	b.resultID = resultID
}

// AddButton appends a button. data is handed back in the completion.
func (b *Box) AddButton(title string, data any) {
	b.list.items = append(b.list.items, Button{Title: title, Data: data})
}

// Text returns the dialog message.
func (b *Box) Text() string { return b.text }

// Buttons returns the dialog's buttons.
func (b *Box) Buttons() []Button { return b.list.items }

// Current returns the highlighted button index, or -1 when empty.
func (b *Box) Current() int { return b.list.Current() }

// State returns the lifecycle state.
func (b *Box) State() State { return b.state }

// HandleAction processes one action and reports whether it was consumed.
func (b *Box) HandleAction(ctx context.Context, a Action) bool {
	if b.state != StateActive {
		return false
	}

	handled, clicked := b.list.HandleAction(a)
	if clicked {
		b.selectCurrent(ctx)
	}
	if handled {
		return true
	}

	switch a {
	case ActionEscape, ActionLeft, ActionMenu:
		b.Cancel()
		b.pop(ctx)
		return true
	case ActionRight:
		b.selectCurrent(ctx)
		return true
	default:
		return false
	}
}

// Cancel closes an active dialog without a choice and posts a cancelled
// completion. It does not pop the dialog.
func (b *Box) Cancel() {
	if b.state != StateActive {
		return
	}
	b.state = StateCancelled
	b.send(Completion{ResultID: b.resultID, Result: -1})
}

func (b *Box) selectCurrent(ctx context.Context) {
	pos := b.list.Current()
	c := Completion{ResultID: b.resultID, Result: pos}
	if pos >= 0 {
		item := b.list.items[pos]
		c.Text = item.Title
		c.Data = item.Data
	}
	b.state = StateSelected
	b.send(c)
	b.pop(ctx)
}

// send posts the completion to the return target, if any.
func (b *Box) send(c Completion) {
	if b.target == nil {
		return
	}
	if b.dispatcher == nil {
		b.logger.Error("dialog has no dispatcher, dropping completion", "result_id", c.ResultID)
		return
	}
	target := b.target
	b.dispatcher.Dispatch(func(ctx context.Context) {
		target.DialogCompleted(ctx, c)
	})
}

func (b *Box) pop(ctx context.Context) {
	if b.popper == nil {
		return
	}
	if !b.popper.Pop(ctx, b) {
		b.logger.Debug("dialog was not on the stack", "name", b.name)
	}
}

// List is the dialog's button list; it has focus while the dialog is active.
type List struct {
	items   []Button
	current int
	active  bool
}

// Current returns the highlighted index, or -1 when the list is empty.
func (l *List) Current() int {
	if len(l.items) == 0 {
		return -1
	}
	return l.current
}

// HandleAction moves the highlight. clicked is true when the highlighted
// item was activated.
func (l *List) HandleAction(a Action) (handled, clicked bool) {
	if !l.active || len(l.items) == 0 {
		return false, false
	}
	switch a {
	case ActionUp:
		if l.current > 0 {
			l.current--
		} else {
			l.current = len(l.items) - 1
		}
		return true, false
	case ActionDown:
		if l.current < len(l.items)-1 {
			l.current++
		} else {
			l.current = 0
		}
		return true, false
	case ActionSelect:
		return true, true
	}
	return false, false
}
