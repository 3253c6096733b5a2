package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

// IDsFormatter outputs bare identifiers, one per line: entry ids for the
// journal, screen handles for the stack. Useful for piping.
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// FormatEntries writes entry ids to the writer, one per line.
func (f *IDsFormatter) FormatEntries(w io.Writer, entries []model.Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, e.EntryID); err != nil {
			return err
		}
	}
	return nil
}

// FormatScreens writes screen handles to the writer, one per line.
func (f *IDsFormatter) FormatScreens(w io.Writer, screens []center.ScreenInfo) error {
	for _, s := range screens {
		if _, err := fmt.Fprintln(w, s.Handle); err != nil {
			return err
		}
	}
	return nil
}
