package mux

import (
	"fmt"
	"strings"

	"segmux/internal/errs"
)

// ErrToolMissing is returned when the ffmpeg binary cannot be resolved.
var ErrToolMissing = fmt.Errorf("%w: ffmpeg not available", errs.ErrExternalTool)

// ProcessError reports a non-zero ffmpeg exit. Stderr is the tool's
// diagnostic output, unmodified.
type ProcessError struct {
	Binary   string
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Binary, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Binary, e.ExitCode, msg)
}

func (e *ProcessError) Unwrap() error { return errs.ErrExternalTool }
