package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dowwie/tasker/internal/recovery"
	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect and manage the active batch checkpoint",
}

func init() {
	checkpointCmd.AddCommand(checkpointStatusCmd, checkpointCreateCmd, checkpointCompleteCmd,
		checkpointClearCmd, checkpointRecoverCmd)
}

var checkpointStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active checkpoint, if any",
	RunE: func(cmd *cobra.Command, args []string) error {
		return engine.View(func(s *state.State) error {
			if s.Checkpoint == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no active checkpoint")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "batch created at %s:\n", s.Checkpoint.CreatedAt.Format("2006-01-02T15:04:05Z"))
			for _, id := range s.Checkpoint.Batch {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", id, s.Checkpoint.PerTaskResult[id])
			}
			return nil
		})
	},
}

var checkpointCreateCmd = &cobra.Command{
	Use:   "create <task-id>...",
	Short: "Open a checkpoint reserving the given task ids as the in-flight batch",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return engine.Mutate(func(s *state.State) error {
			return s.OpenCheckpoint(args)
		})
	},
}

var checkpointCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Close the active checkpoint once every task in its batch is terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return engine.Mutate(func(s *state.State) error {
			return s.CloseCheckpoint()
		})
	},
}

var checkpointClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reconcile orphaned checkpoint entries, resetting their tasks back to ready",
	RunE: func(cmd *cobra.Command, args []string) error {
		var reset []string
		err := engine.Mutate(func(s *state.State) error {
			r, err := recovery.ReconcileOrphans(s, layout)
			reset = r
			return err
		})
		if err != nil {
			return err
		}
		if len(reset) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no orphaned tasks found")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reset %d orphaned task(s):\n", len(reset))
		for _, id := range reset {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var checkpointRecoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Attempt to salvage a corrupted state document from its backing tasks directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := recovery.RecoverCorruptState(layout.StatePath, layout.TasksDir)
		if err != nil {
			return err
		}
		if err := store.WithLock(layout.StatePath, appConfig.Execution.ParseLockTimeout(), func() error {
			return store.WriteJSON(layout.StatePath, s)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "recovered state document with %d tasks\n", len(s.Tasks))
		return nil
	},
}
