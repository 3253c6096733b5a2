package theme

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
)

// ErrThemeNotFound is returned by Resolve for unknown theme names.
var ErrThemeNotFound = errors.New("theme not found")

// importRegex matches @import "file.css"; @import 'file.css'; and @import url("file.css");
var importRegex = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// Theme is a loaded CSS theme.
type Theme struct {
	Name    string
	Path    string // empty for bundled themes
	CSS     string // imports inlined
	ModTime time.Time
}

// Bundled reports whether the theme came from the binary.
func (t *Theme) Bundled() bool {
	return t.Path == ""
}

// NewTheme loads a theme file, inlining its imports.
func NewTheme(name, path string) (*Theme, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	css, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return &Theme{
		Name:    name,
		Path:    path,
		CSS:     ProcessImports(string(css), filepath.Dir(path), nil),
		ModTime: info.ModTime(),
	}, nil
}

// newBundledTheme returns a bundled theme with its imports inlined.
func newBundledTheme(name string) (*Theme, bool) {
	css, ok := Bundled(name)
	if !ok {
		return nil, false
	}
	return &Theme{Name: name, CSS: ProcessImports(css, "", nil)}, true
}

// Resolve finds a theme by name: a file in dir overrides a bundled theme of
// the same name.
func Resolve(dir, name string) (*Theme, error) {
	if name == "" {
		name = DefaultThemeName
	}

	if dir != "" {
		path := filepath.Join(dir, name+".css")
		if _, err := os.Stat(path); err == nil {
			t, err := NewTheme(name, path)
			if err != nil {
				return nil, fmt.Errorf("failed to load theme %s: %w", path, err)
			}
			return t, nil
		}
	}

	if t, ok := newBundledTheme(name); ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrThemeNotFound, name)
}

// ProcessImports inlines @import statements. Relative paths resolve against
// baseDir; files that cannot be read fall back to bundled partials and
// themes. seen guards against import cycles.
func ProcessImports(css string, baseDir string, seen map[string]bool) string {
	if seen == nil {
		seen = make(map[string]bool)
	}

	return importRegex.ReplaceAllStringFunc(css, func(match string) string {
		submatch := importRegex.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		importPath := submatch[1]

		fullPath := importPath
		if !filepath.IsAbs(importPath) {
			fullPath = filepath.Join(baseDir, importPath)
		}

		if seen[fullPath] {
			return "/* circular import prevented: " + importPath + " */"
		}
		seen[fullPath] = true

		imported, err := os.ReadFile(fullPath)
		if err != nil {
			base := filepath.Base(importPath)
			if strings.HasPrefix(base, "_") {
				if partial, ok := BundledPartial(base); ok {
					return "/* imported (embedded): " + importPath + " */\n" + partial
				}
			}
			if css, ok := Bundled(strings.TrimSuffix(base, ".css")); ok {
				return "/* imported (embedded): " + importPath + " */\n" + css
			}
			return "/* import failed: " + importPath + " - " + err.Error() + " */"
		}

		return "/* imported: " + importPath + " */\n" +
			ProcessImports(string(imported), filepath.Dir(fullPath), seen)
	})
}

// Reload re-reads a theme file when its modification time moved on. It
// reports whether the CSS changed.
func (t *Theme) Reload() (bool, error) {
	if t.Bundled() {
		return false, nil
	}

	info, err := os.Stat(t.Path)
	if err != nil {
		return false, err
	}
	if !info.ModTime().After(t.ModTime) {
		return false, nil
	}

	css, err := os.ReadFile(t.Path)
	if err != nil {
		return false, err
	}

	prev := t.CSS
	t.CSS = ProcessImports(string(css), filepath.Dir(t.Path), nil)
	t.ModTime = info.ModTime()
	return prev != t.CSS, nil
}

// Info describes an available theme.
type Info struct {
	Name    string `json:"name" yaml:"name"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Bundled bool   `json:"bundled" yaml:"bundled"`
	Default bool   `json:"default,omitempty" yaml:"default,omitempty"`
}

// List returns the bundled themes followed by the user themes in dir. A user
// theme that overrides a bundled one replaces its entry.
func List(dir string) ([]Info, error) {
	var themes []Info
	for _, name := range ListBundled() {
		themes = append(themes, Info{Name: name, Bundled: true, Default: name == DefaultThemeName})
	}
	if dir == "" {
		return themes, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return themes, nil
		}
		return themes, err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") || filepath.Ext(name) != ".css" {
			continue
		}
		info := Info{
			Name:    strings.TrimSuffix(name, ".css"),
			Path:    filepath.Join(dir, name),
			Default: strings.TrimSuffix(name, ".css") == DefaultThemeName,
		}
		if i := slices.IndexFunc(themes, func(t Info) bool { return t.Name == info.Name }); i >= 0 {
			themes[i] = info
			continue
		}
		themes = append(themes, info)
	}
	return themes, nil
}
