package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"segmux/internal/mux"
	"segmux/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	var flags jobFlags

	cmd := &cobra.Command{
		Use:   "preflight <manifest>",
		Short: "Check directories and free space for a job",
		Long: `Resolve a job manifest and compare its estimated size against free space.

The estimate is bitrate/8 times duration summed over the selected tracks. When
the temp dir and the destination share a volume the requirement is doubled.
Shortfalls are reported as warnings; they never fail the command.`,
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

			runCtx, stop := signalContext(cmd)
			defer stop()
			res, err := runner.Plan(runCtx, flags.options(args[0]))
			if err != nil {
				return err
			}
			destination := res.Output
			if destination == mux.StdioPath {
				destination = cfg.Paths.TempDir
			}
			report, err := preflight.CheckSpace(runCtx, res.Selection.All(), cfg.Paths.TempDir, destination)
			if err != nil {
				return err
			}
			checks := preflight.RunAll(cfg, res.Output)

			if ctx.JSONMode() {
				warnings := make([]string, 0, len(report.Warnings))
				for _, w := range report.Warnings {
					warnings = append(warnings, w.String())
				}
				return writeJSON(cmd, map[string]any{
					"output":                 res.Output,
					"checks":                 checks,
					"estimated_bytes":        report.EstimatedBytes,
					"temp_free_bytes":        report.Temp.Free,
					"destination_free_bytes": report.Destination.Free,
					"same_volume":            report.SameVolume,
					"warnings":               warnings,
				})
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(checks)+2)
			for _, c := range checks {
				rows = append(rows, []string{c.Name, passLabel(c.Passed), c.Detail})
			}
			rows = append(rows,
				[]string{"Temp space", passLabel(report.Temp.Free >= report.RequiredTemp),
					fmt.Sprintf("%s free, %s needed", humanize.Bytes(report.Temp.Free), humanize.Bytes(report.RequiredTemp))},
				[]string{"Destination space", passLabel(report.Destination.Free >= report.RequiredDestination),
					fmt.Sprintf("%s free, %s needed", humanize.Bytes(report.Destination.Free), humanize.Bytes(report.RequiredDestination))},
			)
			fmt.Fprint(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			fmt.Fprintf(out, "Estimated size: %s (%d tracks, same volume: %s)\n",
				humanize.Bytes(report.EstimatedBytes), len(res.Selection.All()), yesNo(report.SameVolume))
			for _, w := range report.Warnings {
				fmt.Fprintf(out, "Warning: %s\n", w)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func passLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "warn"
}
