package theme

import (
	"embed"
	"io/fs"
	"path"
	"strings"
)

//go:embed themes/*.css
var bundled embed.FS

// DefaultThemeName is the theme used when none is configured.
const DefaultThemeName = "default"

// BundledThemes lists the themes shipped with the binary.
var BundledThemes = []string{"default", "minimal", "catppuccin"}

// Bundled returns the CSS of a bundled theme. Imports are not resolved.
func Bundled(name string) (string, bool) {
	if name == "" || strings.HasPrefix(name, "_") {
		return "", false
	}
	return readBundled(name + ".css")
}

// BundledPartial returns a bundled partial such as "_base.css". The leading
// underscore and extension are optional.
func BundledPartial(name string) (string, bool) {
	if !strings.HasPrefix(name, "_") {
		name = "_" + name
	}
	if !strings.HasSuffix(name, ".css") {
		name += ".css"
	}
	return readBundled(name)
}

func readBundled(file string) (string, bool) {
	data, err := bundled.ReadFile(path.Join("themes", file))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// ListBundled returns the bundled theme names, partials excluded.
func ListBundled() []string {
	entries, err := fs.ReadDir(bundled, "themes")
	if err != nil {
		return BundledThemes
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") || path.Ext(name) != ".css" {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".css"))
	}
	return names
}

// IsBundled reports whether name is a bundled theme.
func IsBundled(name string) bool {
	_, ok := Bundled(name)
	return ok
}
