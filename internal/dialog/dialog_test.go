package dialog

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvoverlay/internal/layout"
	"github.com/jmylchreest/tvoverlay/internal/overlay"
)

// queueDispatcher holds posted work until run is called, like a UI loop
// that has not reached its next iteration yet.
type queueDispatcher struct {
	pending []func(ctx context.Context)
}

func (d *queueDispatcher) Dispatch(fn func(ctx context.Context)) {
	d.pending = append(d.pending, fn)
}

func (d *queueDispatcher) run(ctx context.Context) {
	for len(d.pending) > 0 {
		fn := d.pending[0]
		d.pending = d.pending[1:]
		fn(ctx)
	}
}

type stackPopper struct {
	stack *overlay.Stack
}

func (p stackPopper) Pop(_ context.Context, o overlay.Overlay) bool {
	return p.stack.Remove(o)
}

type stringResolver string

func (s stringResolver) Resolve(string, string) (*layout.LayoutConfig, error) {
	return layout.ParseTemplateString(string(s))
}

type fixture struct {
	box        *Box
	dispatcher *queueDispatcher
	stack      *overlay.Stack
	results    []Completion
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{dispatcher: &queueDispatcher{}, stack: overlay.NewStack()}
	f.box = New("Delete recording?", Options{
		Dispatcher: f.dispatcher,
		Popper:     stackPopper{stack: f.stack},
	})
	require.NoError(t, f.box.Create(layout.NewLoader("")))
	f.box.AddButton("Yes", "yes-data")
	f.box.AddButton("No", nil)
	f.box.AddButton("Ask later", 3)
	f.box.SetReturn(TargetFunc(func(_ context.Context, c Completion) {
		f.results = append(f.results, c)
	}), "delete")
	f.stack.Push(f.box)
	return f
}

func TestBox_Create(t *testing.T) {
	tests := []struct {
		name     string
		template string
		wantErr  bool
	}{
		{"both elements", `<overlay><messagearea /><list /></overlay>`, false},
		{"nested elements", `<overlay><box><messagearea /></box><box><list /></box></overlay>`, false},
		{"missing list", `<overlay><messagearea /></overlay>`, true},
		{"missing message area", `<overlay><list /></overlay>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box := New("text", Options{})
			err := box.Create(stringResolver(tt.template))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingElement)
				assert.Equal(t, StateCreated, box.State())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StateActive, box.State())
			assert.NotNil(t, box.Layout())
		})
	}
}

func TestBox_SelectPostsCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.True(t, f.box.HandleAction(ctx, ActionDown))
	assert.True(t, f.box.HandleAction(ctx, ActionDown))
	assert.True(t, f.box.HandleAction(ctx, ActionUp))
	assert.Equal(t, 1, f.box.Current())

	assert.True(t, f.box.HandleAction(ctx, ActionSelect))
	assert.Equal(t, StateSelected, f.box.State())
	assert.False(t, f.stack.Contains(f.box), "dialog pops itself")

	assert.Empty(t, f.results, "completion is posted, not delivered inline")
	f.dispatcher.run(ctx)
	require.Len(t, f.results, 1)
	assert.Equal(t, Completion{ResultID: "delete", Result: 1, Text: "No"}, f.results[0])
}

func TestBox_RightSelects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.True(t, f.box.HandleAction(ctx, ActionRight))
	f.dispatcher.run(ctx)
	require.Len(t, f.results, 1)
	assert.Equal(t, 0, f.results[0].Result)
	assert.Equal(t, "yes-data", f.results[0].Data)
}

func TestBox_CancelActions(t *testing.T) {
	for _, a := range []Action{ActionEscape, ActionLeft, ActionMenu} {
		t.Run(string(a), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			assert.True(t, f.box.HandleAction(ctx, a))
			assert.Equal(t, StateCancelled, f.box.State())
			f.dispatcher.run(ctx)
			require.Len(t, f.results, 1)
			assert.True(t, f.results[0].Cancelled())
			assert.Equal(t, "", f.results[0].Text)
			assert.Equal(t, "delete", f.results[0].ResultID)
		})
	}
}

func TestBox_UnhandledAndFinished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.False(t, f.box.HandleAction(ctx, Action("PLAY")))
	assert.True(t, f.box.HandleAction(ctx, ActionEscape))
	assert.False(t, f.box.HandleAction(ctx, ActionSelect), "closed dialogs ignore input")
	f.dispatcher.run(ctx)
	assert.Len(t, f.results, 1)
}

func TestBox_Cancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.box.Cancel()
	f.box.Cancel()
	assert.Equal(t, StateCancelled, f.box.State())
	assert.True(t, f.stack.Contains(f.box), "whoever cancels pops")
	assert.False(t, f.box.HandleAction(ctx, ActionSelect))

	f.dispatcher.run(ctx)
	assert.Equal(t, []Completion{{ResultID: "delete", Result: -1}}, f.results)

	// an answered dialog has nothing left to cancel
	answered := newFixture(t)
	assert.True(t, answered.box.HandleAction(ctx, ActionSelect))
	answered.box.Cancel()
	answered.dispatcher.run(ctx)
	require.Len(t, answered.results, 1)
	assert.Equal(t, 0, answered.results[0].Result)
}

func TestBox_NoReturnTarget(t *testing.T) {
	d := &queueDispatcher{}
	box := New("hi", Options{Dispatcher: d})
	require.NoError(t, box.Create(layout.NewLoader("")))
	box.AddButton("OK", nil)

	assert.True(t, box.HandleAction(context.Background(), ActionSelect))
	assert.Empty(t, d.pending)
}

func TestList_Wraps(t *testing.T) {
	l := &List{active: true, items: []Button{{Title: "a"}, {Title: "b"}}}
	handled, _ := l.HandleAction(ActionUp)
	assert.True(t, handled)
	assert.Equal(t, 1, l.Current())
	l.HandleAction(ActionDown)
	assert.Equal(t, 0, l.Current())

	empty := &List{active: true}
	handled, _ = empty.HandleAction(ActionDown)
	assert.False(t, handled)
	assert.Equal(t, -1, empty.Current())
}

func TestBox_HandleKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keys := DefaultKeyMap()

	assert.True(t, f.box.HandleKey(ctx, keys, tea.KeyMsg{Type: tea.KeyDown}))
	assert.True(t, f.box.HandleKey(ctx, keys, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")}))
	assert.Equal(t, 2, f.box.Current())
	assert.False(t, f.box.HandleKey(ctx, keys, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}))

	assert.True(t, f.box.HandleKey(ctx, keys, tea.KeyMsg{Type: tea.KeyEnter}))
	f.dispatcher.run(ctx)
	require.Len(t, f.results, 1)
	assert.Equal(t, "Ask later", f.results[0].Text)
	assert.Equal(t, 3, f.results[0].Data)
}

func TestKeyMap_ActionFor(t *testing.T) {
	keys := DefaultKeyMap()
	tests := []struct {
		msg  tea.KeyMsg
		want Action
	}{
		{tea.KeyMsg{Type: tea.KeyUp}, ActionUp},
		{tea.KeyMsg{Type: tea.KeyEscape}, ActionEscape},
		{tea.KeyMsg{Type: tea.KeyLeft}, ActionLeft},
		{tea.KeyMsg{Type: tea.KeyRight}, ActionRight},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")}, ActionMenu},
	}
	for _, tt := range tests {
		t.Run(tt.msg.String(), func(t *testing.T) {
			got, ok := keys.ActionFor(tt.msg)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Len(t, keys.FullHelp(), 2)
}
