package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/verification"
)

var metricsCalibration bool

func init() {
	metricsCmd.Flags().BoolVar(&metricsCalibration, "calibration", false,
		"Include the verification calibration score alongside execution metrics")
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Report execution metrics: success rate, first-attempt rate, cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		var m state.Metrics
		if err := engine.View(func(s *state.State) error {
			m = s.ComputeMetrics()
			return nil
		}); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "tasks: %d total, %d complete, %d failed, %d skipped\n",
			m.TotalTasks, m.CompletedTasks, m.FailedTasks, m.SkippedTasks)
		fmt.Fprintf(cmd.OutOrStdout(), "success rate: %.2f\n", m.SuccessRate)
		fmt.Fprintf(cmd.OutOrStdout(), "first-attempt success: %.2f\n", m.FirstAttemptSuccess)
		fmt.Fprintf(cmd.OutOrStdout(), "average attempts: %.2f\n", m.AverageAttempts)
		fmt.Fprintf(cmd.OutOrStdout(), "average duration (s): %.2f\n", m.AverageDurationSecs)
		fmt.Fprintf(cmd.OutOrStdout(), "tokens: %d, cost: $%.4f\n", m.TotalTokens, m.CumulativeCost)

		if !metricsCalibration {
			return nil
		}

		ledger, err := verification.Open(layout.CalibrationDB)
		if err != nil {
			return err
		}
		defer ledger.Close()

		tally, err := ledger.Tally()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\ncalibration: score=%.2f correct=%d false_positive=%d false_negative=%d\n",
			tally.Score(), tally.Correct, tally.FalsePositive, tally.FalseNegative)
		return nil
	},
}
