package segment

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

const (
	defaultSampleInterval = 100 * time.Millisecond
	defaultSmoothing      = 0.3
)

// Snapshot is one progress sample.
type Snapshot struct {
	Segments      int64
	TotalSegments int
	Bytes         int64
	// BytesPerSecond is the exponentially smoothed throughput.
	BytesPerSecond float64
}

// Percent returns completion in the range [0, 100].
func (s Snapshot) Percent() float64 {
	if s.TotalSegments <= 0 {
		return 0
	}
	return min(float64(s.Segments)/float64(s.TotalSegments)*100, 100)
}

// String renders "percent | bytes | speed".
func (s Snapshot) String() string {
	return fmt.Sprintf("%5.1f%% | %s | %s/s",
		s.Percent(),
		humanize.Bytes(uint64(max(s.Bytes, 0))),
		humanize.Bytes(uint64(max(s.BytesPerSecond, 0))),
	)
}

// StatusWriter is an output shared with other writers that must know where
// the progress line begins and ends.
type StatusWriter interface {
	Redraw(text string)
	End()
}

// Reporter samples Counters at a fixed interval and renders a progress line.
// It only reads the counters, so disabling it never changes download results.
type Reporter struct {
	Counters      *Counters
	TotalSegments int
	Label         string
	Interval      time.Duration
	// Smoothing is the EMA weight given to the newest sample, in (0, 1].
	Smoothing float64
	// Out receives the progress line. An Out implementing StatusWriter is
	// told when the line is redrawn and when it ends.
	Out io.Writer

	lastBytes int64
	ema       float64
	primed    bool
}

// ShouldReport reports whether progress rendering should run: it must be
// enabled and the output must be a terminal.
func ShouldReport(enabled bool, out *os.File) bool {
	if !enabled || out == nil {
		return false
	}
	fd := out.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Sample reads the counters and updates the smoothed throughput using the
// elapsed time since the previous sample.
func (r *Reporter) Sample(elapsed time.Duration) Snapshot {
	segments := r.Counters.Segments.Load()
	bytes := r.Counters.Bytes.Load()
	if elapsed > 0 {
		instant := float64(bytes-r.lastBytes) / elapsed.Seconds()
		alpha := r.Smoothing
		if alpha <= 0 || alpha > 1 {
			alpha = defaultSmoothing
		}
		if !r.primed {
			r.ema = instant
			r.primed = true
		} else {
			r.ema = alpha*instant + (1-alpha)*r.ema
		}
	}
	r.lastBytes = bytes
	return Snapshot{
		Segments:       segments,
		TotalSegments:  r.TotalSegments,
		Bytes:          bytes,
		BytesPerSecond: r.ema,
	}
}

// Run renders progress until ctx is cancelled, then prints a final line.
func (r *Reporter) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = defaultSampleInterval
	}
	out := r.Out
	if out == nil {
		out = os.Stderr
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			r.render(out, r.Sample(time.Since(last)))
			if sw, ok := out.(StatusWriter); ok {
				sw.End()
			} else {
				fmt.Fprintln(out)
			}
			return
		case now := <-ticker.C:
			snap := r.Sample(now.Sub(last))
			last = now
			r.render(out, snap)
		}
	}
}

func (r *Reporter) render(out io.Writer, snap Snapshot) {
	label := strings.TrimSpace(r.Label)
	if label != "" {
		label += " "
	}
	if sw, ok := out.(StatusWriter); ok {
		sw.Redraw(label + snap.String())
		return
	}
	fmt.Fprintf(out, "\r%s%s", label, snap.String())
}
