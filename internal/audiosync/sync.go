package audiosync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"segmux/internal/logging"
)

const (
	DefaultTolerance  = 6
	DefaultSweepCount = 16
	// windowPadding widens the refinement window around the coarse match.
	windowPadding = 20 * time.Second
)

// Track is one audio file to align.
type Track struct {
	ID   string
	Path string
}

// Synchronizer aligns audio tracks against the shortest one.
type Synchronizer struct {
	Fingerprinter Fingerprinter
	// Tolerance is the maximum number of differing bits for two tokens to
	// match. Callers normally start from DefaultTolerance.
	Tolerance int
	// SweepCount start points spaced SweepStep apart are tried during
	// refinement. A zero SweepStep spreads them evenly across one token.
	SweepCount int
	SweepStep  time.Duration
	Logger     *slog.Logger
}

type fingerprinted struct {
	Track
	tokens []uint32
}

type window struct {
	start, end time.Duration
}

func (w window) length() time.Duration { return w.end - w.start }

// Sync returns the offset to apply to each track so that it lines up with the
// reference. The offset is the reference time minus the candidate time of the
// same content; the reference maps to zero. Any unmatched track fails the whole
// call with a *NoMatchError.
func (s *Synchronizer) Sync(ctx context.Context, tracks []Track) (map[string]time.Duration, error) {
	if s.Fingerprinter == nil {
		return nil, errors.New("audio sync: fingerprinter not configured")
	}
	if len(tracks) == 0 {
		return map[string]time.Duration{}, nil
	}
	logger := logging.NewComponentLogger(s.Logger, "audiosync")

	prints, err := s.fingerprintAll(ctx, tracks)
	if err != nil {
		return nil, err
	}
	refIdx := 0
	for i, fp := range prints {
		if len(fp.tokens) < len(prints[refIdx].tokens) {
			refIdx = i
		}
	}
	ref := prints[refIdx]
	offsets := map[string]time.Duration{ref.ID: 0}
	if len(prints) == 1 {
		return offsets, nil
	}

	// Coarse pass over whole tracks.
	coarse := make(map[string]match, len(prints)-1)
	var refWindow window
	for i, cand := range prints {
		if i == refIdx {
			continue
		}
		m, ok := bestMatch(ref.tokens, cand.tokens, s.tolerance())
		if !ok {
			return nil, &NoMatchError{Reference: ref.ID, Candidate: cand.ID}
		}
		coarse[cand.ID] = m
		w := paddedWindow(m.Range)
		if len(coarse) == 1 {
			refWindow = w
		} else {
			refWindow.start = min(refWindow.start, w.start)
			refWindow.end = max(refWindow.end, w.end)
		}
		logger.Debug("coarse match",
			logging.String("reference", ref.ID),
			logging.String("candidate", cand.ID),
			logging.Int("shift_tokens", m.Shift),
			logging.Duration("range", m.Range.duration()),
		)
	}

	count, step := s.sweep()

	// Candidate windows keep the reference window's start modulo one token
	// so both sweeps walk the same sub-token grid.
	candWindows := make(map[string]window, len(coarse))
	for i, cand := range prints {
		if i == refIdx {
			continue
		}
		shifted := time.Duration(coarse[cand.ID].Shift) * TokenDuration
		w := window{start: refWindow.start - shifted, end: refWindow.end - shifted}
		if w.start < 0 {
			w.start += (-w.start + TokenDuration - 1) / TokenDuration * TokenDuration
		}
		if w.end <= w.start {
			continue
		}
		candWindows[cand.ID] = w
	}

	refSweep := make([][]uint32, count)
	for m := range count {
		tokens, err := s.Fingerprinter.Fingerprint(ctx, ref.Path, refWindow.start+time.Duration(m)*step, refWindow.length())
		if err != nil {
			return nil, fmt.Errorf("audio sync: fingerprint %s: %w", ref.ID, err)
		}
		refSweep[m] = tokens
	}

	// Refinement: both start points move across one token. Every pair of
	// sweep points yields an integer shift whose rounding depends on where
	// each start falls in its token; the mean over all pairs cancels it.
	sums := make(map[string]time.Duration, len(coarse))
	hits := make(map[string]int, len(coarse))
	for id, w := range candWindows {
		path := pathOf(prints, id)
		for n := range count {
			candStart := w.start + time.Duration(n)*step
			tokens, err := s.Fingerprinter.Fingerprint(ctx, path, candStart, w.length())
			if err != nil {
				return nil, fmt.Errorf("audio sync: fingerprint %s: %w", id, err)
			}
			for m, refTokens := range refSweep {
				r, ok := bestMatch(refTokens, tokens, s.tolerance())
				if !ok {
					continue
				}
				refStart := refWindow.start + time.Duration(m)*step
				sums[id] += refStart - candStart + time.Duration(r.Shift)*TokenDuration
				hits[id]++
			}
		}
	}

	for id, m := range coarse {
		if hits[id] == 0 {
			offsets[id] = time.Duration(m.Shift) * TokenDuration
			logging.WarnWithContext(logger, "refinement found no match; using coarse offset",
				"sync_refine_fallback",
				logging.String("candidate", id),
				logging.String(logging.FieldImpact, "offset precision limited to one token"),
				logging.String(logging.FieldErrorHint, "raise sync.tolerance if tracks are noisy"),
			)
			continue
		}
		offsets[id] = sums[id] / time.Duration(hits[id])
		logger.Info("track aligned",
			logging.String(logging.FieldEventType, "sync_offset"),
			logging.String("reference", ref.ID),
			logging.String("candidate", id),
			logging.Duration("offset", offsets[id]),
			logging.Int("sweep_hits", hits[id]),
		)
	}
	return offsets, nil
}

func (s *Synchronizer) fingerprintAll(ctx context.Context, tracks []Track) ([]fingerprinted, error) {
	prints := make([]fingerprinted, len(tracks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, track := range tracks {
		g.Go(func() error {
			tokens, err := s.Fingerprinter.Fingerprint(gctx, track.Path, 0, 0)
			if err != nil {
				return fmt.Errorf("audio sync: fingerprint %s: %w", track.ID, err)
			}
			prints[i] = fingerprinted{Track: track, tokens: tokens}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return prints, nil
}

func pathOf(prints []fingerprinted, id string) string {
	for _, fp := range prints {
		if fp.ID == id {
			return fp.Path
		}
	}
	return ""
}

func (s *Synchronizer) tolerance() int {
	return max(s.Tolerance, 0)
}

func (s *Synchronizer) sweep() (int, time.Duration) {
	count := s.SweepCount
	if count <= 0 {
		count = DefaultSweepCount
	}
	step := s.SweepStep
	if step <= 0 {
		step = TokenDuration / time.Duration(count)
	}
	return count, step
}

func paddedWindow(r span) window {
	start := time.Duration(r.First)*TokenDuration - windowPadding
	end := time.Duration(r.Last+1)*TokenDuration + windowPadding
	return window{start: max(0, start), end: end}
}
