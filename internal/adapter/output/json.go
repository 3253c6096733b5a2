package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

// JSONFormatter formats entries and screens as indented JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// FormatEntries writes entries as a JSON array.
func (f *JSONFormatter) FormatEntries(w io.Writer, entries []model.Entry) error {
	if entries == nil {
		entries = []model.Entry{}
	}
	return f.encode(w, entries)
}

// FormatScreens writes screens as a JSON array.
func (f *JSONFormatter) FormatScreens(w io.Writer, screens []center.ScreenInfo) error {
	if screens == nil {
		screens = []center.ScreenInfo{}
	}
	return f.encode(w, screens)
}

// FormatSingle writes a single entry as JSON.
func (f *JSONFormatter) FormatSingle(w io.Writer, e *model.Entry) error {
	return f.encode(w, e)
}

func (f *JSONFormatter) encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
