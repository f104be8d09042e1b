package segment

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"segmux/internal/logging"
)

// Scheduler fetches and decrypts a track's segments across a fixed worker pool.
type Scheduler struct {
	Fetcher   Fetcher
	Decrypter Decrypter
	// Workers is the pool size; zero or negative means runtime.NumCPU().
	Workers  int
	Retry    RetryPolicy
	Counters *Counters
	Logger   *slog.Logger
}

// WorkerCount returns the effective pool size for n segments.
func (s *Scheduler) WorkerCount(n int) int {
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if n > 0 && workers > n {
		workers = n
	}
	return max(workers, 1)
}

// Run partitions segments round-robin (worker w owns positions w, w+W, ...),
// fetches and decrypts each, and sends the plaintext on deliver. deliver must
// have room for len(segments)+1 values; see NewDeliveryChannel. Run closes
// deliver when it returns. On failure the remaining workers are cancelled, a
// poison Delivery carrying the error is sent, and the error is returned.
func (s *Scheduler) Run(ctx context.Context, segments []Segment, deliver chan<- Delivery) error {
	defer close(deliver)
	if s.Fetcher == nil {
		err := errors.New("segment scheduler: no fetcher configured")
		deliver <- Delivery{Err: err}
		return err
	}

	logger := logging.NewComponentLogger(s.Logger, "scheduler")
	counters := s.Counters
	if counters == nil {
		counters = &Counters{}
	}
	workers := s.WorkerCount(len(segments))
	logger.Debug("segment download starting",
		logging.Int("segments", len(segments)),
		logging.Int("workers", workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() error {
			for i := w; i < len(segments); i += workers {
				seg := segments[i]
				data, err := s.process(gctx, logger, seg)
				if err != nil {
					return err
				}
				counters.Segments.Add(1)
				counters.Bytes.Add(int64(len(data)))
				select {
				case deliver <- Delivery{Index: seg.Index, Data: data}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Prefer the caller's cancellation over errgroup's derived one.
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, context.Canceled) {
			err = ctxErr
		}
		select {
		case deliver <- Delivery{Err: err}:
		default:
		}
		return err
	}
	return nil
}

func (s *Scheduler) process(ctx context.Context, logger *slog.Logger, seg Segment) ([]byte, error) {
	policy := s.Retry
	limit := policy.attempts()

	var lastErr error
	for attempt := 1; attempt <= limit; attempt++ {
		if attempt > 1 {
			if err := policy.wait(ctx, attempt-1); err != nil {
				return nil, err
			}
		}
		data, err := s.Fetcher.Fetch(ctx, seg)
		if err == nil {
			return s.decrypt(seg, data)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		logger.Debug("segment fetch failed",
			logging.Int(logging.FieldSegmentIndex, int(seg.Index)),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", limit),
			logging.Error(err),
		)
	}
	return nil, &FetchError{Index: seg.Index, URL: seg.URL, Attempts: limit, Err: lastErr}
}

func (s *Scheduler) decrypt(seg Segment, data []byte) ([]byte, error) {
	if s.Decrypter == nil || seg.KeyRef == "" {
		return data, nil
	}
	plain, err := s.Decrypter.Decrypt(data, seg.KeyRef)
	if err != nil {
		return nil, &DecryptError{Index: seg.Index, URL: seg.URL, KeyRef: seg.KeyRef, Err: err}
	}
	return plain, nil
}
