package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"segmux/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check the external tools segmux runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := preflight.CheckSystemDeps(cfg)
			if ctx.JSONMode() {
				return writeJSON(cmd, statuses)
			}

			missing := 0
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				state := "available"
				if !s.Available {
					state = "missing"
					if !s.Optional {
						missing++
					}
				}
				rows = append(rows, []string{s.Name, s.Command, state, yesNo(!s.Optional), s.Description})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Tool", "Command", "Status", "Required", "Purpose"}, rows, nil))
			if missing > 0 {
				return fmt.Errorf("%d required tools missing", missing)
			}
			return nil
		},
	}
}
