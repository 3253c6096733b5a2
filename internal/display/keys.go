package display

import (
	"github.com/diamondburned/gotk4/pkg/gdk/v4"

	"github.com/jmylchreest/tvoverlay/internal/dialog"
)

// actionForKey maps a GDK key to a dialog action, mirroring the terminal
// key map.
func actionForKey(keyval uint) (dialog.Action, bool) {
	switch keyval {
	case gdk.KEY_Up, gdk.KEY_k:
		return dialog.ActionUp, true
	case gdk.KEY_Down, gdk.KEY_j:
		return dialog.ActionDown, true
	case gdk.KEY_Return, gdk.KEY_KP_Enter, gdk.KEY_space:
		return dialog.ActionSelect, true
	case gdk.KEY_Left, gdk.KEY_h:
		return dialog.ActionLeft, true
	case gdk.KEY_Right, gdk.KEY_l:
		return dialog.ActionRight, true
	case gdk.KEY_Escape, gdk.KEY_BackSpace:
		return dialog.ActionEscape, true
	case gdk.KEY_Menu, gdk.KEY_m, gdk.KEY_F10:
		return dialog.ActionMenu, true
	default:
		return "", false
	}
}
