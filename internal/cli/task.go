package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dowwie/tasker/internal/graph"
	"github.com/Dowwie/tasker/internal/state"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and mutate individual tasks",
}

func init() {
	taskCmd.AddCommand(taskListCmd, taskReadyCmd, taskGetCmd, taskStartCmd,
		taskCompleteCmd, taskFailCmd, taskSkipCmd, taskRetryCmd, taskLoadCmd)
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every task id and its status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return engine.View(func(s *state.State) error {
			for _, id := range s.SortedTaskIDs() {
				t := s.Tasks[id]
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", id, t.Status, t.Name)
			}
			return nil
		})
	},
}

var taskReadyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List task ids whose dependencies are satisfied",
	RunE: func(cmd *cobra.Command, args []string) error {
		return engine.View(func(s *state.State) error {
			g, err := graph.Build(s.Tasks)
			if err != nil {
				return err
			}
			for _, id := range g.ReadySet() {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		})
	},
}

var taskGetCmd = &cobra.Command{
	Use:   "get <task-id>",
	Short: "Print a task's full JSON record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return engine.View(func(s *state.State) error {
			t, err := s.GetTask(id)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(t, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

var taskStartCmd = &cobra.Command{
	Use:   "start <task-id>",
	Short: "Transition a ready task to running",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return engine.Mutate(func(s *state.State) error {
			return s.StartTask(args[0], false)
		})
	},
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a running task complete",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return engine.Mutate(func(s *state.State) error {
			return s.CompleteTask(args[0], nil, nil, nil)
		})
	},
}

var taskFailReason string

var taskFailCmd = &cobra.Command{
	Use:   "fail <task-id>",
	Short: "Mark a running task failed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return engine.Mutate(func(s *state.State) error {
			return s.FailTask(args[0], "execution", taskFailReason, true)
		})
	},
}

var taskSkipReason string

var taskSkipCmd = &cobra.Command{
	Use:   "skip <task-id>",
	Short: "Mark a task skipped",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return engine.Mutate(func(s *state.State) error {
			return s.SkipTask(args[0], taskSkipReason)
		})
	},
}

var taskRetryCmd = &cobra.Command{
	Use:   "retry <task-id>",
	Short: "Reset a failed, retryable task back to pending",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return engine.Mutate(func(s *state.State) error {
			return s.RetryTask(args[0])
		})
	},
}

var taskLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load every task-definition file under the tasks directory into state",
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := graph.LoadTaskDefinitions(layout.TasksDir)
		if err != nil {
			return err
		}
		g, err := graph.Build(tasks)
		if err != nil {
			return err
		}
		if cyc := g.DetectCycle(); cyc != nil {
			return fmt.Errorf("dependency cycle detected: %v", cyc)
		}

		return engine.Mutate(func(s *state.State) error {
			for _, id := range sortedTaskKeys(tasks) {
				if _, exists := s.Tasks[id]; exists {
					continue
				}
				if err := s.AddTask(tasks[id]); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func sortedTaskKeys(tasks map[string]*state.Task) []string {
	ids := make([]string, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}

func init() {
	taskFailCmd.Flags().StringVar(&taskFailReason, "reason", "failed", "Failure message to record")
	taskSkipCmd.Flags().StringVar(&taskSkipReason, "reason", "skipped", "Skip reason to record")
}
