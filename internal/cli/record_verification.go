package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/verification"
)

var recordGroundTruthPassed bool

func init() {
	recordVerificationCmd.Flags().BoolVar(&recordGroundTruthPassed, "passed", false,
		"Whether the task's change actually held up (the ground truth used to score calibration)")
}

var recordVerificationCmd = &cobra.Command{
	Use:   "record-verification <task-id>",
	Short: "Derive a verdict from a task's scored criteria and record it against the calibration ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		var t *state.Task
		if err := engine.View(func(s *state.State) error {
			task, err := s.GetTask(id)
			t = task
			return err
		}); err != nil {
			return err
		}
		if t.Verification == nil {
			return fmt.Errorf("task %s has no recorded verification criteria", id)
		}

		verdict, recommendation := verification.DeriveVerdict(t.Verification.Criteria)
		outcome := verification.ClassifyOutcome(verdict, recordGroundTruthPassed)

		ledger, err := verification.Open(layout.CalibrationDB)
		if err != nil {
			return err
		}
		defer ledger.Close()

		if err := ledger.Record(verification.Entry{
			TaskID:  id,
			Attempt: t.Attempts,
			Verdict: verdict,
			Outcome: outcome,
		}); err != nil {
			return err
		}

		if err := engine.Mutate(func(s *state.State) error {
			return s.RecordVerificationEvent(id, verdict, recommendation, outcome)
		}); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "task %s: verdict=%s recommendation=%s outcome=%s\n",
			id, verdict, recommendation, outcome)
		return nil
	},
}
