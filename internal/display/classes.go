package display

import (
	"strings"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/layout"
)

// elementClass returns the CSS class of a layout element, e.g.
// "overlay-progress-text".
func elementClass(t layout.ElementType) string {
	return "overlay-" + strings.ReplaceAll(string(t), "_", "-")
}

// screenClasses returns the CSS classes for a notification screen's root.
func screenClasses(r center.Render, scheme string, opacity float64) []string {
	classes := []string{"overlay-screen", "overlay-notification"}
	if scheme != "" {
		classes = append(classes, scheme)
	}
	if style := sanitizeClassName(r.Style); style != "" {
		classes = append(classes, "style-"+style)
	}
	if r.Layout != nil && r.Layout.Name != "" {
		classes = append(classes, "layout-"+sanitizeClassName(r.Layout.Name))
	}
	if r.Fullscreen {
		classes = append(classes, "fullscreen")
	}
	if opacity < 1.0 {
		classes = append(classes, "translucent")
	}

	e, ok := r.Elements[layout.ElementTypeProgress]
	if ok && e.Visible && e.Progress >= 0 {
		classes = append(classes, "has-progress", progressClass(e.Progress))
	}
	if e, ok := r.Elements[layout.ElementTypeImage]; ok && e.Visible && e.Artwork != nil {
		classes = append(classes, "has-image")
	}
	return classes
}

// progressClass buckets a 0..1 progress value for styling.
func progressClass(p float64) string {
	switch {
	case p >= 1:
		return "progress-complete"
	case p >= 0.75:
		return "progress-high"
	case p >= 0.5:
		return "progress-medium"
	case p >= 0.25:
		return "progress-low"
	default:
		return "progress-minimal"
	}
}

// sanitizeClassName lowercases name and turns runs of separators into
// single hyphens, dropping anything else.
func sanitizeClassName(name string) string {
	var b strings.Builder
	hyphen := false

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			hyphen = false
		case r == '-' || r == '_' || r == ' ' || r == '.' || r == '/':
			if !hyphen && b.Len() > 0 {
				b.WriteRune('-')
				hyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
