package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"segmux/internal/catalog"
	"segmux/internal/config"
	"segmux/internal/history"
	"segmux/internal/job"
	"segmux/internal/logging"
	"segmux/internal/policy"
	"segmux/internal/segment"
)

// jobFlags are the per-run overrides shared by download, plan and preflight.
type jobFlags struct {
	output    string
	overwrite bool
	noSync    bool
	audio     []string
	subtitles []string
	missing   string
	preset    string
	hardsub   bool
}

func (f *jobFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file or directory; \"-\" streams to stdout")
	cmd.Flags().StringSliceVar(&f.audio, "audio", nil, "Audio locales to keep (overrides locale.audio)")
	cmd.Flags().StringSliceVar(&f.subtitles, "subtitle", nil, "Subtitle locales to keep (overrides locale.subtitle)")
	cmd.Flags().StringVar(&f.missing, "missing", "", "Missing locale policy: fail, warn or prompt")
	cmd.Flags().StringVar(&f.preset, "preset", "", "Video preset (overrides mux.preset)")
	cmd.Flags().BoolVar(&f.hardsub, "hardsub", false, "Burn the default subtitle into the video")
}

// apply returns a copy of cfg with the flag overrides applied.
func (f *jobFlags) apply(cfg *config.Config) *config.Config {
	out := *cfg
	if len(f.audio) > 0 {
		out.Locale.Audio = f.audio
	}
	if len(f.subtitles) > 0 {
		out.Locale.Subtitle = f.subtitles
	}
	if strings.TrimSpace(f.missing) != "" {
		out.Locale.MissingPolicy = f.missing
	}
	if strings.TrimSpace(f.preset) != "" {
		out.Mux.Preset = f.preset
	}
	if f.hardsub {
		out.Mux.ForceHardsub = true
	}
	return &out
}

func (f *jobFlags) options(ref string) job.Options {
	return job.Options{
		Ref:       ref,
		Output:    f.output,
		Overwrite: f.overwrite,
		SkipSync:  f.noSync,
	}
}

// newJobRunner wires the production components for cfg. The history store is
// left for the caller to attach.
func newJobRunner(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*job.Runner, error) {
	client, err := segment.NewHTTPClient(segment.HTTPOptions{
		Timeout:        cfg.RequestTimeout(),
		Proxy:          cfg.Download.Proxy,
		MaxIdlePerHost: (&segment.Scheduler{Workers: cfg.Download.Workers}).WorkerCount(0),
	})
	if err != nil {
		return nil, err
	}
	fetcher := &segment.HTTPFetcher{
		Client:    client,
		UserAgent: cfg.Download.UserAgent,
		Headers:   cfg.Download.Headers,
	}
	manifests := catalog.NewManifestClient(fetcher)

	missing, err := policy.ForName(cfg.Locale.MissingPolicy, logger, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	return &job.Runner{
		Config:    cfg,
		Catalog:   manifests,
		Fetcher:   fetcher,
		Decrypter: manifests.Decrypter,
		Missing:   missing,
		Stdout:    cmd.OutOrStdout(),
		Progress:  os.Stderr,
		Logger:    logger,
	}, nil
}

// openHistory opens the job ledger. A failure only disables history.
func openHistory(cfg *config.Config, logger *slog.Logger) *history.Store {
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "job history unavailable", "history_open",
			logging.String("path", cfg.HistoryPath()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "this job will not be recorded"),
		)
		return nil
	}
	return store
}
