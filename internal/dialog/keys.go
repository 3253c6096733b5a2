package dialog

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap maps keys to dialog actions.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Left   key.Binding
	Right  key.Binding
	Escape key.Binding
	Menu   key.Binding
}

// ShortHelp returns a short help message.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Escape}
}

// FullHelp returns a full help message.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Left, k.Right, k.Escape, k.Menu},
	}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "select"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "back"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "choose"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "cancel"),
		),
		Menu: key.NewBinding(
			key.WithKeys("m", "f10"),
			key.WithHelp("m", "menu"),
		),
	}
}

// ActionFor translates a key press into a dialog action.
func (k KeyMap) ActionFor(msg tea.KeyMsg) (Action, bool) {
	switch {
	case key.Matches(msg, k.Up):
		return ActionUp, true
	case key.Matches(msg, k.Down):
		return ActionDown, true
	case key.Matches(msg, k.Select):
		return ActionSelect, true
	case key.Matches(msg, k.Left):
		return ActionLeft, true
	case key.Matches(msg, k.Right):
		return ActionRight, true
	case key.Matches(msg, k.Escape):
		return ActionEscape, true
	case key.Matches(msg, k.Menu):
		return ActionMenu, true
	}
	return "", false
}

// HandleKey translates msg with keys and handles the resulting action.
func (b *Box) HandleKey(ctx context.Context, keys KeyMap, msg tea.KeyMsg) bool {
	a, ok := keys.ActionFor(msg)
	if !ok {
		return false
	}
	return b.HandleAction(ctx, a)
}
