package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var flags jobFlags

	cmd := &cobra.Command{
		Use:   "plan <manifest>",
		Short: "Print the ffmpeg invocation a download would run",
		Args:  cobra.ExactArgs(1),
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

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"output":  res.Plan.OutputPath,
					"format":  res.Plan.OutputFormat,
					"hardsub": res.Plan.Hardsub,
					"args":    res.Plan.Args(res.Plan.OutputPath),
				})
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(res.Plan.Inputs))
			for _, in := range res.Plan.Inputs {
				rows = append(rows, []string{
					fmt.Sprintf("%d", in.Index),
					string(in.Kind),
					in.Locale,
					in.Title,
					formatOffset(in.Offset),
					in.Disposition,
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"#", "Kind", "Locale", "Title", "Offset", "Disposition"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintln(out, res.Plan.CommandLine(cfg.Mux.FFmpegBinary))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
