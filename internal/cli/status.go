package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Dowwie/tasker/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current phase and task status counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		var sum state.StatusSummary
		if err := engine.View(func(s *state.State) error {
			sum = s.GetStatus()
			return nil
		}); err != nil {
			return err
		}

		phaseStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
		fmt.Fprintf(cmd.OutOrStdout(), "phase: %s\n\n", phaseStyle.Render(string(sum.Phase)))
		fmt.Fprintf(cmd.OutOrStdout(), "pending=%d ready=%d running=%d complete=%d failed=%d blocked=%d skipped=%d total=%d\n",
			sum.Pending, sum.Ready, sum.Running, sum.Completed, sum.Failed, sum.Blocked, sum.Skipped, sum.Total)
		return nil
	},
}
