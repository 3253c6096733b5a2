package display

import (
	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/config"
)

// newLayerWindow creates an undecorated overlay-layer window on the
// configured monitor.
func (h *Host) newLayerWindow(namespace string) *gtk.Window {
	win := gtk.NewWindow()
	win.SetApplication(&h.app.Application)
	win.SetDecorated(false)
	win.SetResizable(false)
	win.AddCSSClass("overlay-window")

	layershell.InitForWindow(win)
	layershell.SetLayer(win, layershell.LayerShellLayerOverlay)
	layershell.SetExclusiveZone(win, 0)
	layershell.SetKeyboardMode(win, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(win, namespace)

	if m := h.monitor(); m != nil {
		layershell.SetMonitor(win, m)
	}
	return win
}

// placement returns the window offset for a screen: its layout position
// plus the configured display offsets.
func placement(r center.Render, d config.DisplayConfig) (x, y int) {
	return r.X + d.OffsetX, r.Y + d.OffsetY
}

// anchorAt pins the window's top-left corner at x, y.
func anchorAt(win *gtk.Window, x, y int) {
	layershell.SetAnchor(win, layershell.LayerShellEdgeTop, true)
	layershell.SetAnchor(win, layershell.LayerShellEdgeLeft, true)
	layershell.SetAnchor(win, layershell.LayerShellEdgeBottom, false)
	layershell.SetAnchor(win, layershell.LayerShellEdgeRight, false)
	layershell.SetMargin(win, layershell.LayerShellEdgeTop, y)
	layershell.SetMargin(win, layershell.LayerShellEdgeLeft, x)
}

// centered removes all anchors, which centres the window on the output.
func centered(win *gtk.Window) {
	for _, edge := range allEdges {
		layershell.SetAnchor(win, edge, false)
	}
}

// fillOutput stretches the window over the whole output.
func fillOutput(win *gtk.Window) {
	for _, edge := range allEdges {
		layershell.SetAnchor(win, edge, true)
		layershell.SetMargin(win, edge, 0)
	}
}

var allEdges = []layershell.LayerShellEdge{
	layershell.LayerShellEdgeTop,
	layershell.LayerShellEdgeBottom,
	layershell.LayerShellEdgeLeft,
	layershell.LayerShellEdgeRight,
}

// monitor returns the configured monitor (1-based), or nil for the
// compositor's choice. An unavailable monitor falls back to the first one.
func (h *Host) monitor() *gdk.Monitor {
	n := h.config().Display.Monitor
	if n <= 0 {
		return nil
	}
	display := gdk.DisplayGetDefault()
	if display == nil {
		return nil
	}
	monitors := display.Monitors()
	if monitors == nil || monitors.NItems() == 0 {
		return nil
	}

	index := uint(n - 1)
	if index >= monitors.NItems() {
		h.logger.Warn("configured monitor not available, using the first",
			"configured", n,
			"available", monitors.NItems(),
		)
		index = 0
	}

	obj := monitors.Item(index)
	if obj == nil {
		return nil
	}
	m, _ := obj.Cast().(*gdk.Monitor)
	return m
}
