package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"segmux/internal/job"
	"segmux/internal/mux"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var flags jobFlags

	cmd := &cobra.Command{
		Use:   "download <manifest>",
		Short: "Download every selected track and mux them into one file",
		Long: `Download every selected track of a job manifest and mux them with ffmpeg.

The manifest is a local TOML file or an http(s) URL. Tracks are fetched in
parallel and written in order to a workspace under paths.temp_dir, audio is
aligned when sync is enabled, and the result is moved into place only after
ffmpeg succeeds. Interrupting the command removes the workspace and any
partial output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			cfg := flags.apply(base)

			runner, err := newJobRunner(cmd, cfg, logger)
			if err != nil {
				return err
			}
			if store := openHistory(cfg, logger); store != nil {
				defer store.Close()
				runner.History = store
			}

			runCtx, stop := signalContext(cmd)
			defer stop()

			res, err := runner.Run(runCtx, flags.options(args[0]))
			if err != nil {
				return fmt.Errorf("job %s: %w", res.JobID, err)
			}

			out := cmd.OutOrStdout()
			if res.Output == mux.StdioPath {
				out = cmd.ErrOrStderr()
			}
			if ctx.JSONMode() && res.Output != mux.StdioPath {
				return writeJSON(cmd, downloadSummary(res))
			}
			printDownloadSummary(out, res)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.overwrite, "overwrite", false, "Replace an existing output file instead of renaming")
	cmd.Flags().BoolVar(&flags.noSync, "no-sync", false, "Skip audio synchronization for this job")
	return cmd
}

func downloadSummary(res job.Result) map[string]any {
	offsets := make(map[string]float64, len(res.Offsets))
	for id, off := range res.Offsets {
		offsets[id] = off.Seconds()
	}
	return map[string]any{
		"job_id":          res.JobID,
		"title":           res.Title,
		"output":          res.Output,
		"bytes":           res.Bytes,
		"tracks":          len(res.Selection.All()),
		"offsets_seconds": offsets,
		"hardsub":         res.Plan.Hardsub,
	}
}

func printDownloadSummary(out io.Writer, res job.Result) {
	fmt.Fprintf(out, "Job:     %s\n", res.JobID)
	if res.Title != "" {
		fmt.Fprintf(out, "Title:   %s\n", res.Title)
	}
	fmt.Fprintf(out, "Output:  %s\n", res.Output)
	if res.Output != mux.StdioPath {
		fmt.Fprintf(out, "Size:    %s\n", humanize.Bytes(uint64(max(res.Bytes, 0))))
	}
	fmt.Fprintf(out, "Tracks:  %d video, %d audio, %d subtitle\n",
		len(res.Selection.Videos), len(res.Selection.Audios), len(res.Selection.Subtitles))
	if res.Plan.Hardsub {
		fmt.Fprintln(out, "Subtitles burned into video")
	}
	if len(res.Offsets) > 0 {
		ids := make([]string, 0, len(res.Offsets))
		for id := range res.Offsets {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		rows := make([][]string, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, []string{id, formatOffset(res.Offsets[id])})
		}
		fmt.Fprint(out, renderTable([]string{"Audio track", "Offset"}, rows, []columnAlignment{alignLeft, alignRight}))
	}
}
