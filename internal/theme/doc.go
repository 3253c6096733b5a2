// Package theme loads the CSS themes used by the GTK overlay host.
//
// Themes are looked up in the user theme directory first, then among the
// themes bundled with the binary. A theme may @import partials; imports are
// inlined before the CSS reaches GTK.
package theme
