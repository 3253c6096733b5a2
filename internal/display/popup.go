package display

import (
	"slices"
	"strconv"

	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/layout"
)

// defaultImageSize is the artwork size when the layout does not give one.
const defaultImageSize = 96

// popup is the window of one notification screen. Widgets are built from
// the screen's layout once and then updated from each render.
type popup struct {
	host   *Host
	handle uint64
	window *gtk.Window
	root   *gtk.Box

	layout    *layout.LayoutConfig
	labels    map[layout.ElementType][]*gtk.Label
	bars      []*gtk.ProgressBar
	images    []*gtk.Image
	imageSize int

	classes []string
	render  center.Render
	closed  bool
}

func newPopup(h *Host, r center.Render) *popup {
	p := &popup{
		host:   h,
		handle: r.Handle,
		window: h.newLayerWindow("tvoverlay-notification"),
	}

	click := gtk.NewGestureClick()
	click.SetButton(0)
	click.ConnectReleased(func(_ int, _, _ float64) {
		h.handleClick(p.handle, click.CurrentButton())
	})
	p.window.AddController(click)
	return p
}

// build replaces the widget tree with one for l.
func (p *popup) build(l *layout.LayoutConfig) {
	p.layout = l
	p.labels = make(map[layout.ElementType][]*gtk.Label)
	p.bars = nil
	p.images = nil
	p.classes = nil
	p.imageSize = defaultImageSize

	p.root = gtk.NewBox(gtk.OrientationVertical, 6)
	if l != nil {
		for _, elem := range l.Elements {
			if w := p.buildElement(elem); w != nil {
				p.root.Append(w)
			}
		}
	}
	p.window.SetChild(p.root)
}

func (p *popup) buildElement(elem layout.LayoutElement) gtk.Widgetter {
	switch elem.Type {
	case layout.ElementTypeHeader, layout.ElementTypeBox:
		return p.buildBox(elem)

	case layout.ElementTypeTitle, layout.ElementTypeOrigin, layout.ElementTypeDescription,
		layout.ElementTypeExtra, layout.ElementTypeProgressText:
		lbl := gtk.NewLabel("")
		lbl.AddCSSClass(elementClass(elem.Type))
		lbl.SetXAlign(0)
		if elem.Type == layout.ElementTypeDescription {
			lbl.SetWrap(true)
			lbl.SetMaxWidthChars(50)
		} else {
			lbl.SetEllipsize(3) // PANGO_ELLIPSIZE_END
		}
		if elem.Type == layout.ElementTypeTitle {
			lbl.SetHExpand(true)
		}
		p.labels[elem.Type] = append(p.labels[elem.Type], lbl)
		return lbl

	case layout.ElementTypeProgress:
		bar := gtk.NewProgressBar()
		bar.AddCSSClass(elementClass(elem.Type))
		p.bars = append(p.bars, bar)
		return bar

	case layout.ElementTypeImage:
		if size, err := strconv.Atoi(elem.Attributes["size"]); err == nil && size > 0 {
			p.imageSize = size
		}
		img := gtk.NewImage()
		img.AddCSSClass(elementClass(elem.Type))
		img.SetPixelSize(p.imageSize)
		p.images = append(p.images, img)
		return img

	default:
		return nil
	}
}

func (p *popup) buildBox(elem layout.LayoutElement) gtk.Widgetter {
	orientation := gtk.OrientationVertical
	if elem.Type == layout.ElementTypeHeader || elem.Attributes["orientation"] == "horizontal" {
		orientation = gtk.OrientationHorizontal
	}

	box := gtk.NewBox(orientation, 8)
	box.AddCSSClass(elementClass(elem.Type))
	if orientation == gtk.OrientationVertical {
		box.SetHExpand(true)
	}
	for _, child := range elem.Children {
		if w := p.buildElement(child); w != nil {
			box.Append(w)
		}
	}
	return box
}

// Update redraws the popup from r, rebuilding it if the layout changed.
func (p *popup) Update(r center.Render) {
	if p.root == nil || r.Layout != p.layout {
		p.build(r.Layout)
	}
	p.render = r

	for typ, labels := range p.labels {
		e, ok := r.Elements[typ]
		visible := ok && e.Visible && e.Text != ""
		for _, lbl := range labels {
			lbl.SetText(e.Text)
			lbl.SetVisible(visible)
		}
	}

	prog, ok := r.Elements[layout.ElementTypeProgress]
	showBar := ok && prog.Visible && prog.Progress >= 0
	for _, bar := range p.bars {
		if showBar {
			bar.SetFraction(prog.Progress)
		}
		bar.SetVisible(showBar)
	}

	p.updateImages(r)
	p.updateClasses(r)
	p.Place()
}

func (p *popup) updateImages(r center.Render) {
	e, ok := r.Elements[layout.ElementTypeImage]
	path := ""
	if ok && e.Visible && e.Artwork != nil && p.host.artwork != nil {
		var err error
		path, err = p.host.artwork.File(e.Artwork, p.imageSize, p.imageSize)
		if err != nil {
			p.host.logger.Debug("artwork not shown", "handle", p.handle, "error", err)
			path = ""
		}
	}
	for _, img := range p.images {
		if path != "" {
			img.SetFromFile(path)
		}
		img.SetVisible(path != "")
	}
}

func (p *popup) updateClasses(r center.Render) {
	cfg := p.host.config()
	next := screenClasses(r, colorSchemeClass(), cfg.Display.Opacity)
	for _, c := range p.classes {
		if !slices.Contains(next, c) {
			p.root.RemoveCSSClass(c)
		}
	}
	for _, c := range next {
		p.root.AddCSSClass(c)
	}
	p.classes = next
	p.window.SetOpacity(cfg.Display.Opacity)
}

// Place moves the window to the last rendered position.
func (p *popup) Place() {
	cfg := p.host.config()
	if p.render.Fullscreen {
		fillOutput(p.window)
	} else {
		x, y := placement(p.render, cfg.Display)
		anchorAt(p.window, x, y)
	}
	if p.render.Width > 0 {
		p.window.SetDefaultSize(p.render.Width, -1)
		p.window.SetSizeRequest(p.render.Width, p.render.Height)
	}
}

// Show presents the window.
func (p *popup) Show() {
	if !p.closed {
		p.window.Present()
	}
}

// Close closes the window.
func (p *popup) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.window.Close()
}
