package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"segmux/internal/staging"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration
	var cleanAll bool
	var listOnly bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale temp workspaces",
		Long: `Remove workspaces left in paths.temp_dir by interrupted jobs.

Only entries carrying the segmux prefix are considered. Workspaces locked by a
running job are always skipped. Use --all to ignore age, or --list to only
show what is there.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if listOnly {
				dirs, err := staging.ListWorkspaces(cfg.Paths.TempDir)
				if err != nil {
					return fmt.Errorf("list workspaces: %w", err)
				}
				if ctx.JSONMode() {
					if dirs == nil {
						dirs = []staging.DirInfo{}
					}
					return writeJSON(cmd, map[string]any{"temp_dir": cfg.Paths.TempDir, "workspaces": dirs})
				}
				if len(dirs) == 0 {
					fmt.Fprintln(out, "No workspaces found")
					return nil
				}
				var total int64
				rows := make([][]string, 0, len(dirs))
				for _, dir := range dirs {
					total += dir.Size
					rows = append(rows, []string{
						dir.Name,
						formatDuration(time.Since(dir.ModTime)),
						humanize.Bytes(uint64(max(dir.Size, 0))),
					})
				}
				fmt.Fprintf(out, "Temp directory: %s\n\n", cfg.Paths.TempDir)
				fmt.Fprint(out, renderTable([]string{"Workspace", "Age", "Size"}, rows,
					[]columnAlignment{alignLeft, alignRight, alignRight}))
				fmt.Fprintf(out, "\nTotal: %d workspaces, %s\n", len(dirs), humanize.Bytes(uint64(max(total, 0))))
				return nil
			}

			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			age := maxAge
			if cleanAll {
				age = 0
			}
			result := staging.CleanStale(cmd.Context(), cfg.Paths.TempDir, age, logger)

			if ctx.JSONMode() {
				failures := make([]map[string]string, 0, len(result.Errors))
				for _, e := range result.Errors {
					failures = append(failures, map[string]string{"path": e.Path, "error": e.Error.Error()})
				}
				return writeJSON(cmd, map[string]any{
					"removed": result.Removed,
					"skipped": result.Skipped,
					"errors":  failures,
				})
			}
			fmt.Fprintf(out, "Removed %d workspaces", len(result.Removed))
			if len(result.Skipped) > 0 {
				fmt.Fprintf(out, ", skipped %d in use", len(result.Skipped))
			}
			fmt.Fprintln(out)
			for _, e := range result.Errors {
				fmt.Fprintf(out, "Error: %s: %v\n", e.Path, e.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d workspaces could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 24*time.Hour, "Only remove workspaces older than this")
	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove every unlocked workspace regardless of age")
	cmd.Flags().BoolVar(&listOnly, "list", false, "List workspaces without removing anything")
	return cmd
}
