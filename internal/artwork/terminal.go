package artwork

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/blacktop/go-termimg"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

// Terminal protocols.
const (
	ProtocolHalfblock = "halfblock"
	ProtocolKitty     = "kitty"
	ProtocolITerm2    = "iterm2"
	ProtocolSixel     = "sixel"
	ProtocolNone      = "none"
)

// Terminal cell size used to turn cell budgets into pixel budgets.
const (
	cellWidth  = 8
	cellHeight = 16
)

// TerminalRenderer renders artwork as terminal escape sequences.
type TerminalRenderer struct {
	cache    *Cache
	protocol string
	rendered *lru.Cache[string, string]
}

// NewTerminalRenderer creates a renderer for the given protocol. Unknown
// protocols render as half blocks.
func NewTerminalRenderer(cache *Cache, protocol string) *TerminalRenderer {
	rendered, _ := lru.New[string, string](DefaultCacheSize)
	return &TerminalRenderer{
		cache:    cache,
		protocol: protocol,
		rendered: rendered,
	}
}

// Protocol returns the active protocol.
func (r *TerminalRenderer) Protocol() string {
	return r.protocol
}

// Render draws artwork into a cols x rows cell area. It returns "" when
// rendering is disabled.
func (r *TerminalRenderer) Render(a *model.Artwork, cols, rows int) (string, error) {
	if r.protocol == ProtocolNone || cols <= 0 || rows <= 0 {
		return "", nil
	}

	key := fmt.Sprintf("%s-%s-%dx%d", Key(a), r.protocol, cols, rows)
	if out, ok := r.rendered.Get(key); ok {
		return out, nil
	}

	var out string
	var err error
	switch r.protocol {
	case ProtocolKitty:
		out, err = r.renderTermimg(a, termimg.Kitty, cols, rows)
	case ProtocolITerm2:
		out, err = r.renderTermimg(a, termimg.ITerm2, cols, rows)
	case ProtocolSixel:
		out, err = r.renderTermimg(a, termimg.Sixel, cols, rows)
	default:
		var img image.Image
		img, err = r.cache.Fit(a, cols, rows*2)
		if err == nil {
			out = Halfblocks(img)
		}
	}
	if err != nil {
		return "", err
	}

	r.rendered.Add(key, out)
	return out, nil
}

func (r *TerminalRenderer) renderTermimg(a *model.Artwork, proto termimg.Protocol, cols, rows int) (string, error) {
	img, err := r.cache.Fit(a, cols*cellWidth, rows*cellHeight)
	if err != nil {
		return "", err
	}

	ti := termimg.New(img)
	if ti == nil {
		return "", fmt.Errorf("failed to wrap artwork for %s", r.protocol)
	}
	ti.Protocol(proto).Size(cols, rows).Scale(termimg.ScaleFit)

	return ti.Render()
}

// Halfblocks renders img with upper half block characters: each cell carries
// two vertical pixels, the top as foreground and the bottom as background.
// The image should already be scaled to one pixel per column.
func Halfblocks(img image.Image) string {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return ""
	}

	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			sb.WriteString("\x1b[0m\n")
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			top := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			bot := color.NRGBA{}
			if y+1 < b.Max.Y {
				bot = color.NRGBAModel.Convert(img.At(x, y+1)).(color.NRGBA)
			}

			switch {
			case top.A == 0 && bot.A == 0:
				sb.WriteString("\x1b[0m ")
			case top.A == 0:
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[49m▄", bot.R, bot.G, bot.B)
			case bot.A == 0:
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[49m▀", top.R, top.G, top.B)
			default:
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
					top.R, top.G, top.B, bot.R, bot.G, bot.B)
			}
		}
	}
	sb.WriteString("\x1b[0m")
	return sb.String()
}
