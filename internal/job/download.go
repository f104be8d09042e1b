package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"segmux/internal/errs"
	"segmux/internal/logging"
	"segmux/internal/media"
	"segmux/internal/reassembly"
	"segmux/internal/segment"
)

// downloadTrack fetches every segment of t and writes the plaintext to path
// in index order. A partial file is removed on failure.
func (r *Runner) downloadTrack(ctx context.Context, logger *slog.Logger, t media.Track, path string) error {
	segs := t.SegmentList()
	if len(segs) == 0 {
		return errs.Wrap(errs.ErrValidation, stageDownload, t.ID, "track has no segments", nil)
	}
	fetcher, err := r.fetcher()
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create track file: %w", err)
	}

	cfg := r.Config.Download
	counters := &segment.Counters{}
	sched := &segment.Scheduler{
		Fetcher:   fetcher,
		Decrypter: r.Decrypter,
		Workers:   cfg.Workers,
		Retry: segment.RetryPolicy{
			MaxAttempts: cfg.MaxAttempts,
			Backoff:     segment.ConstantBackoff(r.Config.RetryBackoff()),
		},
		Counters: counters,
		Logger:   logger,
	}

	dlCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var reporting sync.WaitGroup
	if segment.ShouldReport(cfg.Progress, r.Progress) {
		reporter := &segment.Reporter{
			Counters:      counters,
			TotalSegments: len(segs),
			Label:         t.Label(),
			Interval:      r.Config.ProgressInterval(),
			Out:           logging.StatusLineFor(r.Progress),
		}
		reporting.Go(func() { reporter.Run(dlCtx) })
	}

	started := time.Now()
	deliveries := segment.NewDeliveryChannel(len(segs))
	scheduled := make(chan error, 1)
	go func() { scheduled <- sched.Run(dlCtx, segs, deliveries) }()

	writer := reassembly.NewWriter(file, logger)
	consumeErr := writer.Consume(dlCtx, deliveries, len(segs))
	cancel()
	runErr := <-scheduled
	reporting.Wait()
	closeErr := file.Close()

	err = consumeErr
	if err == nil {
		err = errors.Join(runErr, closeErr)
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}

	stats := writer.Stats()
	logger.Info("track downloaded",
		logging.String(logging.FieldEventType, "track_downloaded"),
		logging.String("track", t.Label()),
		logging.Int("segments", stats.Segments),
		logging.Int64("bytes", stats.Bytes),
		logging.Int("max_buffered", stats.MaxBuffered),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// fetcher returns the injected fetcher or an HTTP fetcher built from config.
func (r *Runner) fetcher() (segment.Fetcher, error) {
	if r.Fetcher != nil {
		return r.Fetcher, nil
	}
	cfg := r.Config.Download
	client, err := segment.NewHTTPClient(segment.HTTPOptions{
		Timeout:        r.Config.RequestTimeout(),
		Proxy:          cfg.Proxy,
		MaxIdlePerHost: (&segment.Scheduler{Workers: cfg.Workers}).WorkerCount(0),
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrConfiguration, stageDownload, "http client", "", err)
	}
	r.Fetcher = &segment.HTTPFetcher{Client: client, UserAgent: cfg.UserAgent, Headers: cfg.Headers}
	return r.Fetcher, nil
}
