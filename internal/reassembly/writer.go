package reassembly

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"segmux/internal/errs"
	"segmux/internal/logging"
	"segmux/internal/segment"
)

// ConsistencyError reports a delivery stream that cannot produce a complete,
// ordered output. It indicates silent data loss or a producer bug.
type ConsistencyError struct {
	// Stranded lists buffered indices that could never be written, ascending.
	Stranded []uint32
	// Missing is the number of segments never received.
	Missing int
	// Duplicate is set when an index arrived twice or after it was written.
	Duplicate *uint32
}

func (e *ConsistencyError) Error() string {
	switch {
	case e.Duplicate != nil:
		return fmt.Sprintf("reassembly: segment %d delivered more than once", *e.Duplicate)
	case len(e.Stranded) > 0:
		parts := make([]string, len(e.Stranded))
		for i, idx := range e.Stranded {
			parts[i] = strconv.FormatUint(uint64(idx), 10)
		}
		return fmt.Sprintf("reassembly: delivery ended with %d stranded segments [%s] (%d missing)",
			len(e.Stranded), strings.Join(parts, ", "), e.Missing)
	default:
		return fmt.Sprintf("reassembly: delivery ended with %d segments missing", e.Missing)
	}
}

func (e *ConsistencyError) Unwrap() error { return errs.ErrConsistency }

// Stats summarizes one Consume call.
type Stats struct {
	Segments int
	Bytes    int64
	// MaxBuffered is the high-water mark of out-of-order segments held in
	// memory. The buffer is bounded only by the speed differential between
	// workers, trading memory for throughput.
	MaxBuffered int
}

// Writer writes out-of-order deliveries to Dest in strict index order. It is
// the only writer to Dest.
type Writer struct {
	Dest   io.Writer
	Logger *slog.Logger

	next    uint32
	pending map[uint32][]byte
	stats   Stats
}

// NewWriter returns a Writer targeting dest.
func NewWriter(dest io.Writer, logger *slog.Logger) *Writer {
	return &Writer{Dest: dest, Logger: logger}
}

// Stats returns the counters collected by the last Consume call.
func (w *Writer) Stats() Stats { return w.stats }

// Consume drains deliveries until total segments have been written. It stops
// early on a poison delivery, on context cancellation, on a write error, or
// when the channel closes before every segment arrived.
func (w *Writer) Consume(ctx context.Context, deliveries <-chan segment.Delivery, total int) error {
	w.next = 0
	w.pending = make(map[uint32][]byte)
	w.stats = Stats{}
	logger := logging.NewComponentLogger(w.Logger, "reassembly")

	for w.stats.Segments < total {
		var (
			d  segment.Delivery
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-deliveries:
		}
		if !ok {
			return w.closedEarly(total)
		}
		if d.Err != nil {
			return d.Err
		}
		if err := w.accept(d); err != nil {
			return err
		}
	}

	logger.Debug("track reassembled",
		logging.Int("segments", w.stats.Segments),
		logging.Int64("bytes", w.stats.Bytes),
		logging.Int("max_buffered", w.stats.MaxBuffered),
	)
	return nil
}

func (w *Writer) accept(d segment.Delivery) error {
	if d.Index < w.next {
		return &ConsistencyError{Duplicate: &d.Index}
	}
	if _, exists := w.pending[d.Index]; exists {
		return &ConsistencyError{Duplicate: &d.Index}
	}
	if d.Index != w.next {
		w.pending[d.Index] = d.Data
		w.stats.MaxBuffered = max(w.stats.MaxBuffered, len(w.pending))
		return nil
	}

	if err := w.write(d.Data); err != nil {
		return err
	}
	for {
		data, ok := w.pending[w.next]
		if !ok {
			return nil
		}
		delete(w.pending, w.next)
		if err := w.write(data); err != nil {
			return err
		}
	}
}

func (w *Writer) write(data []byte) error {
	n, err := w.Dest.Write(data)
	w.stats.Bytes += int64(n)
	if err != nil {
		return fmt.Errorf("reassembly: write segment %d: %w", w.next, err)
	}
	w.next++
	w.stats.Segments++
	return nil
}

func (w *Writer) closedEarly(total int) error {
	stranded := make([]uint32, 0, len(w.pending))
	for idx := range w.pending {
		stranded = append(stranded, idx)
	}
	slices.Sort(stranded)
	return &ConsistencyError{
		Stranded: stranded,
		Missing:  total - w.stats.Segments - len(stranded),
	}
}
