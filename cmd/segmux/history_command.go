package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"segmux/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var prune time.Duration

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer store.Close()
			out := cmd.OutOrStdout()

			if prune > 0 {
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d jobs older than %s\n", removed, formatDuration(prune))
				return nil
			}

			jobs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				if jobs == nil {
					jobs = []history.Job{}
				}
				return writeJSON(cmd, jobs)
			}
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, j := range jobs {
				size := "-"
				if j.Bytes > 0 {
					size = humanize.Bytes(uint64(j.Bytes))
				}
				detail := j.Output
				if j.Status != history.StatusCompleted && j.ErrorKind != "" {
					detail = j.ErrorKind
				}
				rows = append(rows, []string{
					shortID(j.ID),
					humanize.Time(j.StartedAt),
					string(j.Status),
					fmt.Sprintf("%d", j.Tracks),
					size,
					formatDuration(j.Elapsed()),
					titleOrRef(j),
					detail,
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Job", "Started", "Status", "Tracks", "Size", "Elapsed", "Title", "Output / Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of jobs to show; 0 shows all")
	cmd.Flags().DurationVar(&prune, "prune", 0, "Delete finished jobs older than this instead of listing")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func titleOrRef(j history.Job) string {
	if j.Title != "" {
		return j.Title
	}
	return j.Ref
}
