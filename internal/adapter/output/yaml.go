package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

// YAMLFormatter formats entries and screens as a YAML sequence.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// FormatEntries writes entries as YAML.
func (f *YAMLFormatter) FormatEntries(w io.Writer, entries []model.Entry) error {
	if entries == nil {
		entries = []model.Entry{}
	}
	return f.encode(w, entries)
}

// FormatScreens writes screens as YAML.
func (f *YAMLFormatter) FormatScreens(w io.Writer, screens []center.ScreenInfo) error {
	if screens == nil {
		screens = []center.ScreenInfo{}
	}
	return f.encode(w, screens)
}

func (f *YAMLFormatter) encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
