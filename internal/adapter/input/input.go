// Package input provides input adapters that turn external notification
// sources into overlay notifications for overlayctl.
package input

import (
	"context"
	"os"
	"os/exec"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

// InputAdapter fetches notifications from a source.
type InputAdapter interface {
	// Name returns the adapter identifier (e.g., "dunst", "stdin").
	Name() string

	// Import fetches notifications from the source, oldest first.
	Import(ctx context.Context) ([]*model.Notification, error)
}

// DetectDaemon returns the name of the first notification daemon with a
// readable history, or "" when none is installed.
func DetectDaemon() string {
	if _, err := exec.LookPath("dunstctl"); err == nil {
		return "dunst"
	}
	return ""
}

// stdinPiped reports whether stdin is a pipe or file rather than a terminal.
func stdinPiped() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}

// NewAdapter creates an InputAdapter for source. An empty source picks stdin
// when it is piped, then an installed daemon.
func NewAdapter(source string) (InputAdapter, error) {
	if source == "" {
		if stdinPiped() {
			source = "stdin"
		} else {
			source = DetectDaemon()
		}
	}

	switch source {
	case "dunst":
		return NewDunstAdapter(), nil
	case "stdin":
		return NewStdinAdapter(), nil
	case "":
		return nil, &AdapterError{Message: "no input source found, pipe notifications or install dunst"}
	default:
		return nil, &AdapterError{
			Source:  source,
			Message: "unknown input source " + source,
		}
	}
}

// AdapterError represents an adapter-related error.
type AdapterError struct {
	Source  string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
