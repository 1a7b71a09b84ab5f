package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dowwie/tasker/internal/graph"
	"github.com/Dowwie/tasker/internal/phase"
	"github.com/Dowwie/tasker/internal/schema"
	"github.com/Dowwie/tasker/internal/state"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate planning artifacts, task definitions, and the dependency graph",
}

func init() {
	validateCmd.AddCommand(validateArtifactCmd, validateTasksCmd, validateGatesCmd, validateDAGCmd)
}

var validateArtifactCmd = &cobra.Command{
	Use:   "artifact <capability-map|physical-map> <path>",
	Short: "Schema-validate a planning artifact document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name schema.Name
		switch args[0] {
		case "capability-map":
			name = schema.CapabilityMap
		case "physical-map":
			name = schema.PhysicalMap
		default:
			return fmt.Errorf("unknown artifact kind %q (want capability-map or physical-map)", args[0])
		}
		if err := schema.ValidateFile(name, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[1])
		return nil
	},
}

var validateTasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Schema-validate every task-definition file under the tasks directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := graph.LoadTaskDefinitions(layout.TasksDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d task definitions are valid\n", len(tasks))
		return nil
	},
}

var validateGatesCmd = &cobra.Command{
	Use:   "planning-gates",
	Short: "Report the current spec and steel-thread coverage ratios",
	RunE: func(cmd *cobra.Command, args []string) error {
		pm, err := phase.LoadPlanningMetrics(layout)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "spec coverage: %.2f (%d/%d)\n", pm.CoverageRatio(), pm.MappedBehaviors, pm.TotalBehaviors)
		fmt.Fprintf(cmd.OutOrStdout(), "steel-thread coverage: %.2f (%d/%d)\n", pm.SteelThreadRatio(), pm.SteelThreadMapped, pm.SteelThreadBehaviors)
		return nil
	},
}

var validateDAGCmd = &cobra.Command{
	Use:   "dag",
	Short: "Validate the task graph built from current state: cycles, steel-thread closure",
	RunE: func(cmd *cobra.Command, args []string) error {
		return engine.View(func(s *state.State) error {
			g, err := graph.Build(s.Tasks)
			if err != nil {
				return err
			}
			if cyc := g.DetectCycle(); cyc != nil {
				return fmt.Errorf("dependency cycle detected: %v", cyc)
			}
			if err := g.ValidateSteelThread(); err != nil {
				return err
			}
			order, err := g.TopologicalOrder()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "graph is acyclic, %d tasks, topological order:\n", len(order))
			for _, id := range order {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		})
	},
}
