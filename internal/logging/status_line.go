package logging

import (
	"io"
	"os"
	"sync"
)

// StatusLine shares one terminal stream between a redrawn status line and
// log output. A log write first terminates any status line left open, so
// records never land in the middle of it.
type StatusLine struct {
	mu   sync.Mutex
	out  io.Writer
	open bool
}

// NewStatusLine wraps out.
func NewStatusLine(out io.Writer) *StatusLine {
	return &StatusLine{out: out}
}

// Stderr is the status line over os.Stderr. Console logs written to stderr go
// through it.
var Stderr = NewStatusLine(os.Stderr)

// StatusLineFor returns Stderr for os.Stderr and a new status line otherwise.
func StatusLineFor(f *os.File) *StatusLine {
	if f == nil || f == os.Stderr {
		return Stderr
	}
	return NewStatusLine(f)
}

// Write implements io.Writer for log records.
func (s *StatusLine) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		if _, err := io.WriteString(s.out, "\n"); err != nil {
			return 0, err
		}
		s.open = false
	}
	return s.out.Write(p)
}

// Redraw replaces the current status line with text.
func (s *StatusLine) Redraw(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.out, "\r"+text)
	s.open = true
}

// End terminates the status line if one is open.
func (s *StatusLine) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		_, _ = io.WriteString(s.out, "\n")
		s.open = false
	}
}
