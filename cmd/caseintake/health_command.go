package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"caseintake/internal/config"
	"caseintake/internal/preflight"
	"caseintake/internal/store"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check directories, database, and the optional Redis lease",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				results := preflight.RunAll(cmd.Context(), cfg, st)
				color := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					state := colorize("ok", ansiGreen, color)
					switch {
					case !r.Passed && r.Optional:
						state = colorize("warn", ansiYellow, color)
					case !r.Passed:
						state = colorize("fail", ansiRed, color)
					}
					rows = append(rows, []string{r.Name, state, r.Detail})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(textColumns("Check", "State", "Detail"), rows))
				if failed := preflight.Failed(results); len(failed) > 0 {
					return fmt.Errorf("%d required check(s) failed", len(failed))
				}
				return nil
			})
		},
	}
}
