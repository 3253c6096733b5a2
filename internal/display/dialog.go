package display

import (
	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/tvoverlay/internal/dialog"
	"github.com/jmylchreest/tvoverlay/internal/layout"
)

// dialogWindow shows a dialog box and feeds it keyboard and mouse input.
// It takes the keyboard while open.
type dialogWindow struct {
	host    *Host
	box     *dialog.Box
	window  *gtk.Window
	buttons []*gtk.Button
	closed  bool
}

func newDialogWindow(h *Host, box *dialog.Box) *dialogWindow {
	d := &dialogWindow{
		host:   h,
		box:    box,
		window: h.newLayerWindow("tvoverlay-dialog"),
	}
	layershell.SetKeyboardMode(d.window, layershell.LayerShellKeyboardModeExclusive)

	root := gtk.NewBox(gtk.OrientationVertical, 8)
	root.AddCSSClass("overlay-screen")
	root.AddCSSClass("overlay-dialog")
	root.AddCSSClass(colorSchemeClass())

	l := box.Layout()
	if l != nil {
		for _, elem := range l.Elements {
			if w := d.buildElement(elem); w != nil {
				root.Append(w)
			}
		}
	}
	d.window.SetChild(root)

	keys := gtk.NewEventControllerKey()
	keys.ConnectKeyPressed(func(keyval, _ uint, _ gdk.ModifierType) bool {
		a, ok := actionForKey(keyval)
		if !ok {
			return false
		}
		d.handle(a)
		return true
	})
	d.window.AddController(keys)

	if l != nil && (l.X != 0 || l.Y != 0) {
		x, y := l.X+h.config().Display.OffsetX, l.Y+h.config().Display.OffsetY
		anchorAt(d.window, x, y)
	} else {
		centered(d.window)
	}
	if l != nil && l.Width > 0 {
		d.window.SetDefaultSize(l.Width, -1)
	}

	d.refresh()
	d.window.Present()
	return d
}

func (d *dialogWindow) buildElement(elem layout.LayoutElement) gtk.Widgetter {
	switch elem.Type {
	case layout.ElementTypeBox, layout.ElementTypeHeader:
		orientation := gtk.OrientationVertical
		if elem.Type == layout.ElementTypeHeader || elem.Attributes["orientation"] == "horizontal" {
			orientation = gtk.OrientationHorizontal
		}
		box := gtk.NewBox(orientation, 8)
		for _, child := range elem.Children {
			if w := d.buildElement(child); w != nil {
				box.Append(w)
			}
		}
		return box

	case layout.ElementTypeMessageArea:
		msg := gtk.NewLabel(d.box.Text())
		msg.AddCSSClass("overlay-message")
		msg.SetWrap(true)
		msg.SetMaxWidthChars(60)
		msg.SetXAlign(0)
		return msg

	case layout.ElementTypeTitle:
		if elem.Default() == "" {
			return nil
		}
		title := gtk.NewLabel(elem.Default())
		title.AddCSSClass(elementClass(elem.Type))
		title.SetXAlign(0)
		return title

	case layout.ElementTypeList:
		list := gtk.NewBox(gtk.OrientationVertical, 4)
		list.AddCSSClass("overlay-buttons")
		for i, b := range d.box.Buttons() {
			btn := gtk.NewButtonWithLabel(b.Title)
			btn.AddCSSClass("overlay-button")
			// keys go to the controller, not the focused button
			btn.SetFocusable(false)
			index := i
			btn.ConnectClicked(func() { d.click(index) })
			d.buttons = append(d.buttons, btn)
			list.Append(btn)
		}
		return list

	default:
		return nil
	}
}

// handle delivers one action to the dialog. A completed dialog is popped
// from the center, which closes this window.
func (d *dialogWindow) handle(a dialog.Action) {
	if d.closed {
		return
	}
	d.box.HandleAction(d.host.ctx(), a)
	if !d.closed {
		d.refresh()
	}
}

// click moves the selection to button i and selects it.
func (d *dialogWindow) click(i int) {
	for range d.buttons {
		cur := d.box.Current()
		if cur == i {
			break
		}
		if cur < i {
			d.box.HandleAction(d.host.ctx(), dialog.ActionDown)
		} else {
			d.box.HandleAction(d.host.ctx(), dialog.ActionUp)
		}
	}
	d.handle(dialog.ActionSelect)
}

// refresh marks the current button.
func (d *dialogWindow) refresh() {
	cur := d.box.Current()
	for i, btn := range d.buttons {
		if i == cur {
			btn.AddCSSClass("selected")
		} else {
			btn.RemoveCSSClass("selected")
		}
	}
}

// Close closes the window.
func (d *dialogWindow) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.window.Close()
}
