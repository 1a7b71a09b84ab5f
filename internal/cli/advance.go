package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dowwie/tasker/internal/phase"
	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/taskerr"
)

var advanceCmd = &cobra.Command{
	Use:   "advance",
	Short: "Advance to the next phase if its planning gates pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		pm, err := phase.LoadPlanningMetrics(layout)
		if err != nil {
			return err
		}

		var gr phase.GateResult
		var newPhase state.Phase
		mutateErr := engine.Mutate(func(s *state.State) error {
			result, err := phase.Advance(s, appConfig, pm)
			gr = result
			if err == nil {
				newPhase = s.Phase.Current
			}
			return err
		})

		if mutateErr != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), taskerr.Format(mutateErr))
			for _, reason := range gr.Reasons {
				fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", reason)
			}
			return mutateErr
		}

		fmt.Fprintf(cmd.OutOrStdout(), "advanced to phase: %s\n", newPhase)
		return nil
	},
}
