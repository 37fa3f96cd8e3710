package main

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newOverviewCommand(ctx *commandContext) *cobra.Command {
	var warehouseID string
	var output jsonOutput

	cmd := &cobra.Command{
		Use:   "overview <order-id>",
		Short: "Show stage counts and completion for an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withIntake(cmd, func(c context.Context, env *intakeEnv) error {
				ov, err := env.service.GetOrderMovementOverview(c, args[0], strings.TrimSpace(warehouseID))
				if err != nil {
					return err
				}
				return output.print(cmd, ov, func(w io.Writer) { renderOverview(w, ov) })
			})
		},
	}
	cmd.Flags().StringVarP(&warehouseID, "warehouse", "w", "", "Restrict to one warehouse organization")
	output.bind(cmd, "Emit JSON (null when the order has no cases)")
	return cmd
}
