package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"caseintake/internal/api"
	"caseintake/internal/cases"
	"caseintake/internal/polling"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Batch intake jobs",
	}

	batchCmd.AddCommand(newBatchStartCommand(ctx))
	batchCmd.AddCommand(newBatchTickCommand(ctx))
	batchCmd.AddCommand(newBatchStatusCommand(ctx))
	batchCmd.AddCommand(newBatchResetCommand(ctx))
	batchCmd.AddCommand(newBatchWatchCommand(ctx))

	return batchCmd
}

func newBatchStartCommand(ctx *commandContext) *cobra.Command {
	var output jsonOutput
	cmd := &cobra.Command{
		Use:   "start <batch-id>",
		Short: "Queue a batch for intake",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withIntake(cmd, func(c context.Context, env *intakeEnv) error {
				resp, err := env.service.StartBatchJob(c, args[0])
				if err != nil {
					return err
				}
				return output.print(cmd, resp, func(w io.Writer) {
					fmt.Fprintf(w, "Batch %s: %s (%s)\n", resp.BatchID, resp.Status, resp.Message)
				})
			})
		},
	}
	output.bind(cmd, "")
	return cmd
}

func newBatchTickCommand(ctx *commandContext) *cobra.Command {
	var output jsonOutput
	cmd := &cobra.Command{
		Use:   "tick <batch-id>",
		Short: "Process one slice of a batch job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withIntake(cmd, func(c context.Context, env *intakeEnv) error {
				resp, err := env.service.TickBatchJob(c, args[0])
				if err != nil {
					return err
				}
				return output.print(cmd, resp, func(w io.Writer) {
					fmt.Fprintf(w, "Batch %s: %s, job %s\n", resp.BatchID, resp.Outcome, resp.Status)
					if resp.Handled > 0 {
						fmt.Fprintf(w, "Handled %d, received %d. %s\n", resp.Handled, resp.Resolved, summaryLine(resp.Summary))
					}
				})
			})
		},
	}
	output.bind(cmd, "")
	return cmd
}

func newBatchStatusCommand(ctx *commandContext) *cobra.Command {
	var output jsonOutput
	cmd := &cobra.Command{
		Use:   "status <batch-id>",
		Short: "Show batch job status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withIntake(cmd, func(c context.Context, env *intakeEnv) error {
				resp, err := env.service.GetBatchJobStatus(c, args[0])
				if err != nil {
					return err
				}
				return output.print(cmd, resp, func(w io.Writer) { renderBatchStatus(w, resp) })
			})
		},
	}
	output.bind(cmd, "")
	return cmd
}

func newBatchResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <batch-id>",
		Short: "Return a batch job to idle without touching its cases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withIntake(cmd, func(c context.Context, env *intakeEnv) error {
				resp, err := env.service.ResetBatchJob(c, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Batch %s reset to %s\n", resp.BatchID, resp.Status)
				return nil
			})
		},
	}
}

func newBatchWatchCommand(ctx *commandContext) *cobra.Command {
	var start bool
	cmd := &cobra.Command{
		Use:   "watch <batch-id>",
		Short: "Drive a batch job to completion, ticking and polling status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID := args[0]
			return ctx.withIntake(cmd, func(c context.Context, env *intakeEnv) error {
				out := cmd.OutOrStdout()
				if start {
					resp, err := env.service.StartBatchJob(c, batchID)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Batch %s: %s\n", batchID, resp.Message)
				}

				intervals := polling.FromConfig(env.cfg)
				ticks := &polling.Throttle{Every: intervals.Tick}
				schedule := polling.Schedule[api.BatchStatus]{
					Interval:    intervals.Status,
					MaxAttempts: intervals.MaxAttempts,
					Stop: func(st api.BatchStatus) bool {
						return !cases.JobStatus(st.Status).IsActive()
					},
				}

				poll := func(pc context.Context) (api.BatchStatus, error) {
					st, err := env.service.GetBatchJobStatus(pc, batchID)
					if err != nil {
						return st, err
					}
					if cases.JobStatus(st.Status).IsActive() && ticks.Due(time.Now()) {
						if _, err := env.service.TickBatchJob(pc, batchID); err != nil {
							return st, err
						}
						return env.service.GetBatchJobStatus(pc, batchID)
					}
					return st, nil
				}

				last := ""
				final, err := schedule.Run(c, poll, func(st api.BatchStatus) {
					line := fmt.Sprintf("%s: %s, %d resolved", st.BatchID, st.Status, st.ProgressCount)
					if line != last {
						fmt.Fprintln(out, line)
						last = line
					}
				})
				if errors.Is(err, polling.ErrMaxAttempts) {
					return fmt.Errorf("batch %s still %s after %d polls", batchID, final.Status, intervals.MaxAttempts)
				}
				if err != nil {
					return err
				}
				if final.Status == string(cases.JobFailed) {
					return fmt.Errorf("batch %s failed: %s", batchID, final.LastError)
				}
				fmt.Fprintf(out, "Batch %s %s\n", batchID, final.Status)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&start, "start", false, "Start the job before watching")
	return cmd
}
