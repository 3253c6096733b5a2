package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// refreshMsg asks the model to copy the host's frame again.
type refreshMsg struct{}

// Model is the Bubble Tea model of the terminal host.
type Model struct {
	host *Host
	keys KeyMap
	help help.Model

	frame    frame
	width    int
	height   int
	showHelp bool
}

func newModel(h *Host) Model {
	return Model{
		host:  h,
		keys:  DefaultKeyMap(),
		help:  help.New(),
		frame: h.frame(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case refreshMsg:
		m.frame = m.host.frame()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	// the top dialog takes every other key
	if n := len(m.frame.dialogs); n > 0 {
		m.host.sendKey(m.frame.dialogs[n-1].box, msg)
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp

	case key.Matches(msg, m.keys.Dismiss):
		if n := len(m.frame.screens); n > 0 {
			m.host.dismiss(m.frame.screens[n-1].Handle)
		}

	case key.Matches(msg, m.keys.DismissAll):
		handles := make([]uint64, 0, len(m.frame.screens))
		for _, r := range m.frame.screens {
			handles = append(handles, r.Handle)
		}
		if len(handles) > 0 {
			m.host.dismiss(handles...)
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	bar := m.viewBar()
	rows := m.height - lipgloss.Height(bar)
	if rows < 1 {
		rows = 1
	}

	c := newCanvas(m.width, rows)
	for _, r := range m.frame.screens {
		block := renderScreen(r, m.frame.renderer, m.width, rows)
		col, row := screenCell(r, m.frame.cfg, m.width, rows, block)
		c.place(block, col, row)
	}
	for _, d := range m.frame.dialogs {
		block := renderDialog(d, m.width)
		col := (m.width - ansi.StringWidth(firstLine(block))) / 2
		row := (rows - lipgloss.Height(block)) / 2
		c.place(block, col, row)
	}
	return c.String() + "\n" + bar
}

func (m Model) viewBar() string {
	if m.showHelp {
		return m.help.View(m.keys)
	}

	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	binds := []keybind{
		{"q", "quit"},
		{"d", "dismiss"},
		{"D", "dismiss all"},
		{"?", "help"},
	}
	if len(m.frame.dialogs) > 0 {
		binds = []keybind{
			{"↑/↓", "choose"},
			{"enter", "select"},
			{"esc", "cancel"},
		}
	}

	const separator = "  "
	result := ""
	for _, b := range binds {
		item := keyStyle.Render(b.key) + " " + b.desc
		next := ansi.StringWidth(result) + ansi.StringWidth(item)
		if result != "" {
			next += len(separator)
		}
		if next > m.width {
			break
		}
		if result != "" {
			result += separator
		}
		result += item
	}

	if next := m.frame.next; !next.at.IsZero() && len(m.frame.dialogs) == 0 {
		left := max(time.Until(next.at).Round(time.Second), 0)
		item := "next: " + firstLine(next.title) + " " + left.String()
		if ansi.StringWidth(result)+len(separator)+ansi.StringWidth(item) <= m.width {
			result += separator + item
		}
	}
	return style.Render(result)
}

type keybind struct {
	key  string
	desc string
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
