// Package dbus puts the notification center on the session bus. It
// implements org.freedesktop.Notifications, the overlay control interface
// io.github.jmylchreest.TVOverlay1, a client for that interface, and a
// monitor that follows bus clients and, optionally, another notification
// daemon's traffic.
package dbus
