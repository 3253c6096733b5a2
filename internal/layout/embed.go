package layout

import (
	"bytes"
	"embed"
	"io/fs"
	"path"
	"strings"
)

// templates holds the bundled layouts, one screen definition per file.
//
//go:embed templates/*.xml
var templates embed.FS

const templateExt = ".xml"

// GetEmbeddedTemplate parses the bundled layout called name (without the
// extension).
func GetEmbeddedTemplate(name string) (*LayoutConfig, bool) {
	data, err := fs.ReadFile(templates, path.Join("templates", name+templateExt))
	if err != nil {
		return nil, false
	}

	config, err := ParseTemplate(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	config.Name = name
	return config, true
}

// ListEmbeddedTemplates returns the bundled layout names in lexical order.
func ListEmbeddedTemplates() []string {
	matches, _ := fs.Glob(templates, "templates/*"+templateExt)

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(path.Base(m), templateExt))
	}
	return names
}
