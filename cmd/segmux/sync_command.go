package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"segmux/internal/audiosync"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var tolerance int

	cmd := &cobra.Command{
		Use:   "sync <audio files...>",
		Short: "Report the offsets that align audio files",
		Long: `Fingerprint each audio file and report the offset that lines it up with the
shortest file. A positive offset means the file must be delayed by that much.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("tolerance") {
				tolerance = cfg.Sync.Tolerance
			}

			tracks := make([]audiosync.Track, 0, len(args))
			for _, arg := range args {
				path, err := filepath.Abs(arg)
				if err != nil {
					return err
				}
				tracks = append(tracks, audiosync.Track{ID: arg, Path: path})
			}
			syncer := &audiosync.Synchronizer{
				Fingerprinter: audiosync.FPcalc{
					FFmpeg:  cfg.Mux.FFmpegBinary,
					Binary:  cfg.Sync.FPcalcBinary,
					TempDir: cfg.Paths.TempDir,
				},
				Tolerance:  tolerance,
				SweepCount: cfg.Sync.SweepCount,
				SweepStep:  cfg.SweepStep(),
				Logger:     logger,
			}

			runCtx, stop := signalContext(cmd)
			defer stop()
			offsets, err := syncer.Sync(runCtx, tracks)
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				seconds := make(map[string]float64, len(offsets))
				for id, off := range offsets {
					seconds[id] = off.Seconds()
				}
				return writeJSON(cmd, map[string]any{"offsets_seconds": seconds})
			}
			rows := make([][]string, 0, len(args))
			for _, arg := range args {
				rows = append(rows, []string{arg, formatOffset(offsets[arg])})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"File", "Offset"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().IntVar(&tolerance, "tolerance", audiosync.DefaultTolerance, "Maximum differing bits for two fingerprint tokens to match")
	return cmd
}
