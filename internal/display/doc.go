// Package display is the GTK4/libadwaita overlay host. Each notification
// screen and dialog is a Wayland layer-shell window placed where its layout
// says; the theme package supplies the CSS.
package display
