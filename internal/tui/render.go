package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jmylchreest/tvoverlay/internal/artwork"
	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/config"
	"github.com/jmylchreest/tvoverlay/internal/layout"
)

// Layout positions are in pixels of a 1080p display and are scaled to the
// terminal.
const (
	referenceWidth  = 1920
	referenceHeight = 1080

	// terminal cell size in display pixels
	cellWidth  = 8
	cellHeight = 16

	defaultScreenCols = 40
	minScreenCols     = 20
	defaultImageSize  = 96
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	originStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	extraStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
	buttonStyle = lipgloss.NewStyle().Padding(0, 1)
	currentBtn  = buttonStyle.Reverse(true)
)

// borderColor maps a screen style to a border colour.
func borderColor(style string) lipgloss.Color {
	switch style {
	case "error":
		return lipgloss.Color("9")
	case "warning":
		return lipgloss.Color("11")
	case "check":
		return lipgloss.Color("10")
	case "busy":
		return lipgloss.Color("12")
	default:
		return lipgloss.Color("8")
	}
}

// screenCols is the screen width in cells.
func screenCols(r center.Render, termWidth int) int {
	if r.Fullscreen {
		return termWidth
	}
	cols := defaultScreenCols
	if r.Width > 0 {
		cols = r.Width * termWidth / referenceWidth
	}
	return max(min(cols, termWidth), min(minScreenCols, termWidth))
}

// renderScreen draws a notification screen as a bordered block.
func renderScreen(r center.Render, renderer *artwork.TerminalRenderer, termWidth, termHeight int) string {
	cols := screenCols(r, termWidth)
	inner := max(cols-4, 1)

	var body string
	if r.Layout != nil {
		body = strings.Join(renderElements(r.Layout.Elements, r, renderer, inner, false), "\n")
	} else {
		body = strings.Join(renderElements(fallbackElements, r, renderer, inner, false), "\n")
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor(r.Style)).
		Padding(0, 1).
		Width(cols - 2)
	if r.Fullscreen {
		style = style.Height(max(termHeight-2, 1))
	}
	return style.Render(body)
}

var fallbackElements = []layout.LayoutElement{
	{Type: layout.ElementTypeTitle},
	{Type: layout.ElementTypeDescription},
	{Type: layout.ElementTypeProgress},
}

// renderElements draws elements in layout order, skipping those with
// nothing to show.
func renderElements(elems []layout.LayoutElement, r center.Render, renderer *artwork.TerminalRenderer, width int, inRow bool) []string {
	var parts []string
	for _, el := range elems {
		if s := renderElement(el, r, renderer, width); s != "" {
			parts = append(parts, s)
		}
	}
	if inRow && len(parts) > 1 {
		return []string{lipgloss.JoinHorizontal(lipgloss.Top, joinWithGap(parts)...)}
	}
	return parts
}

func joinWithGap(parts []string) []string {
	out := make([]string, 0, 2*len(parts)-1)
	for i, p := range parts {
		if i > 0 {
			out = append(out, " ")
		}
		out = append(out, p)
	}
	return out
}

func renderElement(el layout.LayoutElement, r center.Render, renderer *artwork.TerminalRenderer, width int) string {
	switch el.Type {
	case layout.ElementTypeHeader, layout.ElementTypeBox:
		row := el.Type == layout.ElementTypeHeader || el.Attributes["orientation"] == "horizontal"
		return strings.Join(renderElements(el.Children, r, renderer, width, row), "\n")

	case layout.ElementTypeTitle:
		return renderText(r, el.Type, titleStyle, width, false)
	case layout.ElementTypeOrigin:
		return renderText(r, el.Type, originStyle, width, false)
	case layout.ElementTypeDescription:
		return renderText(r, el.Type, lipgloss.NewStyle(), width, true)
	case layout.ElementTypeExtra:
		return renderText(r, el.Type, extraStyle, width, false)
	case layout.ElementTypeProgressText:
		return renderText(r, el.Type, faintStyle, width, false)

	case layout.ElementTypeProgress:
		e, ok := r.Elements[el.Type]
		if !ok || !e.Visible || e.Progress < 0 {
			return ""
		}
		bar := progress.New(
			progress.WithWidth(width),
			progress.WithoutPercentage(),
			progress.WithSolidFill(string(borderColor(r.Style))),
		)
		return bar.ViewAs(min(e.Progress, 1))

	case layout.ElementTypeImage:
		e, ok := r.Elements[el.Type]
		if !ok || !e.Visible || e.Artwork == nil || renderer == nil {
			return ""
		}
		size := defaultImageSize
		if n, err := strconv.Atoi(el.Attributes["size"]); err == nil && n > 0 {
			size = n
		}
		out, err := renderer.Render(e.Artwork, min(size/cellWidth, width), size/cellHeight)
		if err != nil {
			return ""
		}
		return out
	}
	return ""
}

func renderText(r center.Render, t layout.ElementType, style lipgloss.Style, width int, wrap bool) string {
	e, ok := r.Elements[t]
	if !ok || !e.Visible || e.Text == "" {
		return ""
	}
	if wrap {
		return style.Width(width).Render(e.Text)
	}
	return style.Render(ansi.Truncate(e.Text, width, "…"))
}

// screenCell converts a screen's display position into a cell position that
// keeps block on the terminal.
func screenCell(r center.Render, cfg *config.DaemonConfig, termWidth, termHeight int, block string) (col, row int) {
	if r.Fullscreen {
		return 0, 0
	}
	x, y := r.X, r.Y
	if cfg != nil {
		x += cfg.Display.OffsetX
		y += cfg.Display.OffsetY
	}
	col = x * termWidth / referenceWidth
	row = y * termHeight / referenceHeight

	col = min(col, termWidth-lipgloss.Width(block))
	row = min(row, termHeight-lipgloss.Height(block))
	return max(col, 0), max(row, 0)
}

// renderDialog draws a dialog with its message and buttons.
func renderDialog(d dialogView, termWidth int) string {
	width := min(60, termWidth-2)
	inner := max(width-4, 1)

	var lines []string
	if d.Title != "" {
		lines = append(lines, titleStyle.Render(ansi.Truncate(d.Title, inner, "…")))
	}
	if d.Text != "" {
		lines = append(lines, lipgloss.NewStyle().Width(inner).Render(d.Text), "")
	}
	for i, b := range d.Buttons {
		label := ansi.Truncate(b, inner-2, "…")
		if i == d.Current {
			lines = append(lines, currentBtn.Render(label))
		} else {
			lines = append(lines, buttonStyle.Render(label))
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("12")).
		Padding(0, 1).
		Width(width - 2).
		Render(strings.Join(lines, "\n"))
}

// canvas is a fixed grid of terminal lines that blocks are drawn over.
type canvas struct {
	width int
	lines []string
}

func newCanvas(width, height int) *canvas {
	c := &canvas{width: width, lines: make([]string, height)}
	blank := strings.Repeat(" ", width)
	for i := range c.lines {
		c.lines[i] = blank
	}
	return c
}

// place draws block with its top left corner at col, row. Parts that fall
// outside the canvas are clipped.
func (c *canvas) place(block string, col, row int) {
	col = max(col, 0)
	if col >= c.width {
		return
	}
	for i, line := range strings.Split(block, "\n") {
		y := row + i
		if y < 0 || y >= len(c.lines) {
			continue
		}
		if col+ansi.StringWidth(line) > c.width {
			line = ansi.Truncate(line, c.width-col, "")
		}
		w := ansi.StringWidth(line)

		left := ansi.Truncate(c.lines[y], col, "")
		if pad := col - ansi.StringWidth(left); pad > 0 {
			left += strings.Repeat(" ", pad)
		}
		right := ansi.TruncateLeft(c.lines[y], col+w, "")
		c.lines[y] = left + line + right
	}
}

// String returns the canvas lines.
func (c *canvas) String() string {
	return strings.Join(c.lines, "\n")
}
