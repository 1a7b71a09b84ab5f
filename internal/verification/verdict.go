package verification

import "github.com/Dowwie/tasker/internal/state"

// Score is one of the three-valued scores used throughout a verification
// record (§3).
const (
	ScorePass    = "PASS"
	ScorePartial = "PARTIAL"
	ScoreFail    = "FAIL"
)

// DeriveVerdict computes the overall PASS/FAIL/CONDITIONAL verdict and the
// PROCEED/BLOCK recommendation from a set of scored acceptance criteria
// (§4.7): any FAIL criterion blocks outright; any PARTIAL without a FAIL
// downgrades a would-be PASS to CONDITIONAL.
func DeriveVerdict(criteria []state.CriterionScore) (verdict, recommendation string) {
	hasFail := false
	hasPartial := false
	for _, c := range criteria {
		switch c.Score {
		case ScoreFail:
			hasFail = true
		case ScorePartial:
			hasPartial = true
		}
	}

	switch {
	case hasFail:
		return "FAIL", "BLOCK"
	case hasPartial:
		return "CONDITIONAL", "BLOCK"
	default:
		return "PASS", "PROCEED"
	}
}

// ClassifyOutcome compares a recorded verdict against the ground truth that
// later became known (e.g. a human review or a subsequent attempt), yielding
// the calibration outcome to persist.
func ClassifyOutcome(verdict string, groundTruthPassed bool) Outcome {
	predictedPass := verdict == "PASS"
	switch {
	case predictedPass == groundTruthPassed:
		return OutcomeCorrect
	case predictedPass && !groundTruthPassed:
		return OutcomeFalsePositive
	default:
		return OutcomeFalseNegative
	}
}
