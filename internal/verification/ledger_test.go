package verification

import (
	"path/filepath"
	"testing"

	"github.com/Dowwie/tasker/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRecordAndTally(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.db")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Record(Entry{TaskID: "T1", Attempt: 1, Verdict: "PASS", Outcome: OutcomeCorrect}))
	require.NoError(t, l.Record(Entry{TaskID: "T2", Attempt: 1, Verdict: "PASS", Outcome: OutcomeFalsePositive}))

	tally, err := l.Tally()
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Correct)
	assert.Equal(t, 1, tally.FalsePositive)
	assert.InDelta(t, 0.5, tally.Score(), 0.001)
}

func TestLedgerEntriesForTask(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.db")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Record(Entry{TaskID: "T1", Attempt: 1, Verdict: "FAIL", Outcome: OutcomeCorrect}))
	require.NoError(t, l.Record(Entry{TaskID: "T1", Attempt: 2, Verdict: "PASS", Outcome: OutcomeCorrect}))

	entries, err := l.EntriesForTask("T1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestDeriveVerdictFailDominates(t *testing.T) {
	v, rec := DeriveVerdict([]state.CriterionScore{
		{Name: "a", Score: ScorePass},
		{Name: "b", Score: ScoreFail},
	})
	assert.Equal(t, "FAIL", v)
	assert.Equal(t, "BLOCK", rec)
}

func TestDeriveVerdictPartialIsConditional(t *testing.T) {
	v, rec := DeriveVerdict([]state.CriterionScore{
		{Name: "a", Score: ScorePass},
		{Name: "b", Score: ScorePartial},
	})
	assert.Equal(t, "CONDITIONAL", v)
	assert.Equal(t, "BLOCK", rec)
}

func TestDeriveVerdictAllPass(t *testing.T) {
	v, rec := DeriveVerdict([]state.CriterionScore{{Name: "a", Score: ScorePass}})
	assert.Equal(t, "PASS", v)
	assert.Equal(t, "PROCEED", rec)
}

func TestClassifyOutcome(t *testing.T) {
	assert.Equal(t, OutcomeCorrect, ClassifyOutcome("PASS", true))
	assert.Equal(t, OutcomeFalsePositive, ClassifyOutcome("PASS", false))
	assert.Equal(t, OutcomeFalseNegative, ClassifyOutcome("FAIL", true))
	assert.Equal(t, OutcomeCorrect, ClassifyOutcome("FAIL", false))
}
