package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"segmux/internal/audiosync"
	"segmux/internal/catalog"
	"segmux/internal/config"
	"segmux/internal/errs"
	"segmux/internal/fileutil"
	"segmux/internal/history"
	"segmux/internal/logging"
	"segmux/internal/media"
	"segmux/internal/mux"
	"segmux/internal/policy"
	"segmux/internal/preflight"
	"segmux/internal/segment"
	"segmux/internal/staging"
	"segmux/internal/textutil"
)

// Muxer executes a mux plan. *mux.Runner is the production implementation.
type Muxer interface {
	Run(ctx context.Context, plan mux.Plan, progress func(mux.Progress)) error
}

// Options describes one job request.
type Options struct {
	Ref string
	// Output is the destination file. Empty derives a name from the catalog
	// entry inside the configured output dir; mux.StdioPath streams to Stdout.
	Output    string
	Overwrite bool
	SkipSync  bool
}

// Result summarizes a job.
type Result struct {
	JobID     string
	Title     string
	Output    string
	Bytes     int64
	Selection policy.Selection
	Space     preflight.SpaceReport
	Offsets   map[string]time.Duration
	Plan      mux.Plan
}

// Runner wires the pipeline components together. Only Config and Catalog
// are required; the rest fall back to production implementations built from
// Config.
type Runner struct {
	Config        *config.Config
	Catalog       catalog.Client
	Fetcher       segment.Fetcher
	Decrypter     segment.Decrypter
	Missing       policy.MissingLocale
	Fingerprinter audiosync.Fingerprinter
	Muxer         Muxer
	History       *history.Store
	// Stdout receives the muxed stream for mux.StdioPath outputs.
	Stdout io.Writer
	// Progress is where download progress is drawn when it is a terminal.
	Progress *os.File
	Logger   *slog.Logger
}

// Run downloads every selected track, aligns audio, and muxes the result.
// The workspace is removed on every exit path; a failed or cancelled job
// leaves nothing at the destination.
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	if err := r.validate(); err != nil {
		return Result{}, err
	}
	res := Result{JobID: uuid.NewString()}
	ctx = logging.WithJobID(ctx, res.JobID)
	base := r.baseLogger()
	logger := logging.NewComponentLogger(logging.WithContext(ctx, base), "job")

	episode, err := r.resolve(ctx, base, opts.Ref)
	if err != nil {
		return res, err
	}
	res.Title = episode.Title
	if res.Selection, err = r.selectTracks(ctx, base, episode); err != nil {
		return res, err
	}
	destination := r.destination(episode, opts, res.JobID)

	if r.History != nil {
		if err := r.History.Start(ctx, history.Job{
			ID:     res.JobID,
			Ref:    opts.Ref,
			Title:  episode.Title,
			Output: destination,
			Tracks: len(res.Selection.All()),
		}); err != nil {
			logging.WarnWithContext(logger, "job history unavailable", "history_write",
				logging.Error(err),
				logging.String(logging.FieldImpact, "job will not appear in segmux history"),
			)
		}
	}

	err = r.execute(ctx, base, opts, destination, &res)
	if err != nil {
		res.Output = ""
		res.Bytes = 0
	}
	if r.History != nil {
		if herr := r.History.Finish(context.WithoutCancel(ctx), res.JobID, res.Output, res.Bytes, err); herr != nil {
			logger.Debug("job history finish failed", logging.Error(herr))
		}
	}
	if err != nil {
		return res, err
	}
	logger.Info("job complete",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String("output", res.Output),
		logging.Int64("bytes", res.Bytes),
		logging.Int("tracks", len(res.Selection.All())),
	)
	return res, nil
}

// Plan resolves and selects tracks, then builds the mux plan against the
// workspace paths a real run would use. Nothing is downloaded or written.
func (r *Runner) Plan(ctx context.Context, opts Options) (Result, error) {
	if err := r.validate(); err != nil {
		return Result{}, err
	}
	res := Result{JobID: uuid.NewString()}
	ctx = logging.WithJobID(ctx, res.JobID)
	base := r.baseLogger()

	episode, err := r.resolve(ctx, base, opts.Ref)
	if err != nil {
		return res, err
	}
	res.Title = episode.Title
	if res.Selection, err = r.selectTracks(ctx, base, episode); err != nil {
		return res, err
	}
	res.Output = r.destination(episode, opts, res.JobID)
	dir := filepath.Join(r.Config.Paths.TempDir, staging.Prefix+res.JobID)
	paths := trackPaths(res.Selection, dir)
	res.Plan, err = mux.BuildPlan(r.planRequest(res.Selection, paths, res.Output, nil))
	return res, err
}

func (r *Runner) baseLogger() *slog.Logger {
	if r.Logger == nil {
		return logging.NewNop()
	}
	return r.Logger
}

func (r *Runner) validate() error {
	if r.Config == nil {
		return fmt.Errorf("%w: job runner has no config", errs.ErrConfiguration)
	}
	if r.Catalog == nil {
		return fmt.Errorf("%w: job runner has no catalog client", errs.ErrConfiguration)
	}
	return nil
}

func (r *Runner) resolve(ctx context.Context, logger *slog.Logger, ref string) (catalog.Episode, error) {
	var episode catalog.Episode
	err := runStage(ctx, logger, stageResolve, func(ctx context.Context, logger *slog.Logger) error {
		var err error
		episode, err = r.Catalog.Resolve(ctx, ref)
		if err != nil {
			return err
		}
		logger.Info("catalog entry resolved",
			logging.String("title", episode.Title),
			logging.Int("tracks", len(episode.Tracks)),
			logging.Duration("duration", episode.Duration()),
		)
		return nil
	})
	return episode, err
}

func (r *Runner) selectTracks(ctx context.Context, logger *slog.Logger, episode catalog.Episode) (policy.Selection, error) {
	var sel policy.Selection
	err := runStage(ctx, logger, stageSelect, func(ctx context.Context, logger *slog.Logger) error {
		missing := r.Missing
		if missing == nil {
			missing = policy.Warn{Logger: logger}
		}
		var err error
		sel, err = policy.Select(ctx, episode.Tracks, r.Config.Locale.Audio, r.Config.Locale.Subtitle, missing)
		if err != nil {
			return err
		}
		if len(sel.Videos) == 0 {
			return errs.Wrap(errs.ErrValidation, stageSelect, episode.Ref, "catalog entry has no video track", nil)
		}
		for _, t := range sel.All() {
			logger.Debug("track selected",
				logging.String(logging.FieldTrackID, t.ID),
				logging.String("kind", string(t.Kind)),
				logging.String("locale", t.Locale),
				logging.Int("segments", len(t.SegmentList())),
			)
		}
		return nil
	})
	return sel, err
}

// destination picks the output path. Generated and explicit paths without an
// extension get the configured container; existing files are kept unless
// Overwrite is set.
func (r *Runner) destination(episode catalog.Episode, opts Options, jobID string) string {
	output := strings.TrimSpace(opts.Output)
	if output == mux.StdioPath {
		return output
	}
	if output == "" || isDir(output) {
		dir := output
		if dir == "" {
			dir = r.Config.Paths.OutputDir
		}
		name := textutil.SanitizeFileName(episode.Output)
		if name == "" {
			name = textutil.SanitizeFileName(episode.Title)
		}
		if name == "" {
			name = "segmux-" + jobID
		}
		output = filepath.Join(dir, name)
	}
	if filepath.Ext(output) == "" {
		output += "." + r.Config.Mux.OutputFormat
	}
	if !opts.Overwrite {
		output = fileutil.UniquePath(output)
	}
	return output
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (r *Runner) execute(ctx context.Context, logger *slog.Logger, opts Options, destination string, res *Result) error {
	cfg := r.Config
	tracks := res.Selection.All()

	if err := runStage(ctx, logger, stagePreflight, func(ctx context.Context, logger *slog.Logger) error {
		return r.preflight(ctx, logger, tracks, destination, res)
	}); err != nil {
		return err
	}

	ws, err := staging.NewWorkspace(cfg.Paths.TempDir, res.JobID)
	if err != nil {
		return errs.Wrap(errs.ErrConfiguration, stagePreflight, "workspace", cfg.Paths.TempDir, err)
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			logging.WithContext(ctx, logger).Debug("workspace cleanup failed", logging.String("path", ws.Dir), logging.Error(cerr))
		}
	}()
	paths := trackPaths(res.Selection, ws.Dir)

	if err := runStage(ctx, logger, stageDownload, func(ctx context.Context, logger *slog.Logger) error {
		for _, t := range tracks {
			trackLogger := logger.With(logging.String(logging.FieldTrackID, t.ID))
			if err := r.downloadTrack(ctx, trackLogger, t, paths[t.ID]); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if r.shouldSync(opts, res.Selection) {
		if err := runStage(ctx, logger, stageSync, func(ctx context.Context, logger *slog.Logger) error {
			offsets, err := r.syncAudio(ctx, logger, res.Selection.Audios, paths, ws)
			res.Offsets = offsets
			return err
		}); err != nil {
			return err
		}
	}

	return runStage(ctx, logger, stageMux, func(ctx context.Context, logger *slog.Logger) error {
		req := r.planRequest(res.Selection, paths, destination, res.Offsets)
		for i, in := range req.Videos {
			if in.FrameRate == 0 || in.Duration == 0 {
				req.Videos[i] = mux.ProbeInput(ctx, cfg.Mux.FFprobeBinary, in, logger)
			}
		}
		plan, err := mux.BuildPlan(req)
		if err != nil {
			return errs.Wrap(errs.ErrValidation, stageMux, "plan", "", err)
		}
		res.Plan = plan
		logger.Debug("mux plan built", logging.String("command", plan.CommandLine(cfg.Mux.FFmpegBinary)))

		muxer := r.Muxer
		if muxer == nil {
			muxer = &mux.Runner{
				FFmpeg:  cfg.Mux.FFmpegBinary,
				TempDir: ws.Dir,
				Stdout:  r.Stdout,
				Logger:  logger,
			}
		}
		sampler := logging.NewProgressSampler(10)
		if err := muxer.Run(ctx, plan, func(p mux.Progress) {
			if sampler.ShouldLog(p.Percent, stageMux) {
				logger.Info("mux progress",
					logging.String(logging.FieldEventType, "mux_progress"),
					logging.Float64("percent", p.Percent),
					logging.Int64("frame", p.Frame),
					logging.Int64("total_frames", p.TotalFrames),
				)
			}
		}); err != nil {
			return err
		}

		res.Output = plan.OutputPath
		if plan.OutputPath != mux.StdioPath {
			if info, err := os.Stat(plan.OutputPath); err == nil {
				res.Bytes = info.Size()
			}
		}
		return nil
	})
}

func (r *Runner) preflight(ctx context.Context, logger *slog.Logger, tracks []media.Track, destination string, res *Result) error {
	target := destination
	if target == mux.StdioPath {
		target = r.Config.Paths.TempDir
	}
	if err := os.MkdirAll(r.Config.Paths.TempDir, 0o755); err != nil {
		return errs.Wrap(errs.ErrConfiguration, stagePreflight, "temp dir", r.Config.Paths.TempDir, err)
	}
	report, err := preflight.CheckSpace(ctx, tracks, r.Config.Paths.TempDir, target)
	res.Space = report
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		logging.WarnWithContext(logger, "disk space could not be checked", "space_check",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job continues without a space estimate"),
		)
		return nil
	}
	for _, w := range report.Warnings {
		logging.WarnWithContext(logger, "insufficient disk space", "space_low",
			logging.String("warning", w.String()),
			logging.String("kind", string(w.Kind)),
			logging.Uint64("required_bytes", w.Required),
			logging.Uint64("available_bytes", w.Available),
			logging.String(logging.FieldImpact, "job may fail partway through"),
			logging.String(logging.FieldErrorHint, "free space or point paths.temp_dir elsewhere"),
		)
	}
	logger.Debug("space preflight",
		logging.Uint64("estimated_bytes", report.EstimatedBytes),
		logging.Bool("same_volume", report.SameVolume),
	)
	return nil
}

func (r *Runner) shouldSync(opts Options, sel policy.Selection) bool {
	return r.Config.Sync.Enabled && !opts.SkipSync && len(sel.Audios) > 1
}

func (r *Runner) syncAudio(ctx context.Context, logger *slog.Logger, audios []media.Track, paths map[string]string, ws *staging.Workspace) (map[string]time.Duration, error) {
	fp := r.Fingerprinter
	if fp == nil {
		fp = audiosync.FPcalc{
			FFmpeg:  r.Config.Mux.FFmpegBinary,
			Binary:  r.Config.Sync.FPcalcBinary,
			TempDir: ws.Dir,
		}
	}
	syncer := &audiosync.Synchronizer{
		Fingerprinter: fp,
		Tolerance:     r.Config.Sync.Tolerance,
		SweepCount:    r.Config.Sync.SweepCount,
		SweepStep:     r.Config.SweepStep(),
		Logger:        logger,
	}
	tracks := make([]audiosync.Track, 0, len(audios))
	for _, t := range audios {
		tracks = append(tracks, audiosync.Track{ID: t.ID, Path: paths[t.ID]})
	}
	return syncer.Sync(ctx, tracks)
}

// trackPaths names each track's file inside dir.
func trackPaths(sel policy.Selection, dir string) map[string]string {
	paths := make(map[string]string)
	for i, t := range sel.All() {
		ext := strings.TrimPrefix(t.Extension, ".")
		if ext == "" {
			ext = "bin"
		}
		name := fmt.Sprintf("%02d-%s-%s.%s", i, t.Kind, textutil.SanitizeToken(t.ID), ext)
		paths[t.ID] = filepath.Join(dir, name)
	}
	return paths
}

func (r *Runner) planRequest(sel policy.Selection, paths map[string]string, output string, offsets map[string]time.Duration) mux.PlanRequest {
	cfg := r.Config.Mux
	return mux.PlanRequest{
		Videos:           inputFiles(sel.Videos, paths),
		Audios:           inputFiles(sel.Audios, paths),
		Subtitles:        inputFiles(sel.Subtitles, paths),
		DefaultSubtitle:  cfg.DefaultSubtitle,
		ForceHardsub:     cfg.ForceHardsub,
		Preset:           cfg.Preset,
		OutputPath:       output,
		Offsets:          offsets,
		DefaultFrameRate: cfg.DefaultFrameRate,
	}
}

func inputFiles(tracks []media.Track, paths map[string]string) []mux.InputFile {
	out := make([]mux.InputFile, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, mux.InputFile{
			TrackID:       t.ID,
			Path:          paths[t.ID],
			Locale:        t.Locale,
			Title:         t.Title,
			ClosedCaption: t.ClosedCaption,
			Duration:      t.Duration,
			FrameRate:     t.FrameRate,
		})
	}
	return out
}
