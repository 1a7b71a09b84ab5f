package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dowwie/tasker/internal/reports"
	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/verification"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write human-readable markdown reports under the reports directory",
}

func init() {
	reportCmd.AddCommand(reportStatusCmd, reportFailuresCmd, reportCalibrationCmd, reportAllCmd)
}

var reportStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Write reports/status.md",
	RunE: func(cmd *cobra.Command, args []string) error {
		return engine.View(func(s *state.State) error {
			if err := reports.WriteStatusReport(layout, s); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote reports/status.md")
			return nil
		})
	},
}

var reportFailuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Write reports/failures.md",
	RunE: func(cmd *cobra.Command, args []string) error {
		return engine.View(func(s *state.State) error {
			if err := reports.WriteFailureReport(layout, s); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote reports/failures.md")
			return nil
		})
	},
}

var reportCalibrationCmd = &cobra.Command{
	Use:   "calibration",
	Short: "Write reports/calibration.md",
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := verification.Open(layout.CalibrationDB)
		if err != nil {
			return err
		}
		defer ledger.Close()

		tally, err := ledger.Tally()
		if err != nil {
			return err
		}
		if err := reports.WriteCalibrationReport(layout, tally); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "wrote reports/calibration.md")
		return nil
	},
}

var reportAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Write every report",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, sub := range []*cobra.Command{reportStatusCmd, reportFailuresCmd, reportCalibrationCmd} {
			if err := sub.RunE(cmd, nil); err != nil {
				return err
			}
		}
		return nil
	},
}
