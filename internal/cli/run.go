package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dowwie/tasker/internal/supervisor"
	"github.com/Dowwie/tasker/internal/taskerr"
)

var runWatch bool

func init() {
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Keep running batch cycles until the graph is drained or execution halts")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Dispatch one batch cycle of ready tasks to the worker process",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		for {
			outcome, err := supervisor.RunCycle(ctx, engine, layout, appConfig, constraintsPath())
			if err != nil {
				if terr, ok := taskerr.As(err); ok && terr.Code == taskerr.CodeHalted {
					fmt.Fprintln(cmd.OutOrStdout(), "execution halted, stopping")
					return nil
				}
				return err
			}

			if len(outcome.Batch) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no ready tasks, nothing to dispatch")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "batch: %d dispatched, %d succeeded, %d failed\n",
				len(outcome.Batch), len(outcome.Succeeded), len(outcome.Failed))

			if !runWatch {
				return nil
			}
		}
	},
}
