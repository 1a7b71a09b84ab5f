package state

import (
	"testing"

	"github.com/Dowwie/tasker/internal/taskerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState() *State {
	s := New("/tmp/project")
	_ = s.AddTask(&Task{ID: "T1", Name: "first", DependsOn: nil})
	_ = s.AddTask(&Task{ID: "T2", Name: "second", DependsOn: []string{"T1"}})
	return s
}

func TestAddTaskRejectsDuplicate(t *testing.T) {
	s := newTestState()
	err := s.AddTask(&Task{ID: "T1", Name: "dup"})
	require.Error(t, err)
}

func TestTaskLifecycleHappyPath(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.MarkReady("T1"))
	require.NoError(t, s.StartTask("T1", false))
	require.Equal(t, 1, s.Tasks["T1"].Attempts)
	require.NoError(t, s.CompleteTask("T1", []string{"a.go"}, nil, nil))

	require.NoError(t, Validate(s))
	assert.Equal(t, 1, s.Counters.Completed)
	assert.Equal(t, TaskComplete, s.Tasks["T1"].Status)
	assert.NotNil(t, s.Tasks["T1"].CompletedAt)
}

func TestCompleteBeforeDependencyViolatesInvariant(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.MarkReady("T2"))
	require.NoError(t, s.StartTask("T2", false))
	require.NoError(t, s.CompleteTask("T2", nil, nil, nil))

	err := Validate(s)
	require.Error(t, err)
	te, ok := taskerr.As(err)
	require.True(t, ok)
	assert.Equal(t, taskerr.CodeInvariant, te.Code)
}

func TestFailThenRetry(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.MarkReady("T1"))
	require.NoError(t, s.StartTask("T1", false))
	require.NoError(t, s.FailTask("T1", "execution", "boom", true))
	assert.Equal(t, 1, s.Counters.Failed)

	require.NoError(t, s.RetryTask("T1"))
	assert.Equal(t, TaskPending, s.Tasks["T1"].Status)
	assert.Equal(t, 0, s.Counters.Failed)

	require.NoError(t, s.MarkReady("T1"))
	require.NoError(t, s.StartTask("T1", false))
	assert.Equal(t, 2, s.Tasks["T1"].Attempts)
}

func TestSkipSatisfiesDependency(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.SkipTask("T1", "not needed"))
	require.NoError(t, s.MarkReady("T2"))
	require.NoError(t, s.StartTask("T2", false))
	require.NoError(t, s.CompleteTask("T2", nil, nil, nil))
	assert.NoError(t, Validate(s))
}

func TestCheckpointLifecycle(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.OpenCheckpoint([]string{"T1"}))
	err := s.OpenCheckpoint([]string{"T2"})
	require.Error(t, err)

	require.NoError(t, s.RecordCheckpointResult("T1", CheckpointSuccess))
	require.NoError(t, s.CloseCheckpoint())
	assert.Nil(t, s.Checkpoint)
}

func TestAdvancePhaseAppendsCompleted(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.AdvancePhase(PhaseSpecReview))
	assert.Equal(t, PhaseSpecReview, s.Phase.Current)
	assert.Contains(t, s.Phase.Completed, PhaseIngestion)
	assert.NoError(t, Validate(s))
}

func TestHaltRequestAndResume(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.RequestHalt("manual stop", "operator"))
	require.NotNil(t, s.Halt)
	require.NoError(t, s.ResumeFromHalt())
	assert.Nil(t, s.Halt)
}

func TestComputeMetricsSuccessRate(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.MarkReady("T1"))
	require.NoError(t, s.StartTask("T1", false))
	require.NoError(t, s.CompleteTask("T1", nil, nil, nil))

	require.NoError(t, s.MarkReady("T2"))
	require.NoError(t, s.StartTask("T2", false))
	require.NoError(t, s.FailTask("T2", "execution", "boom", false))

	m := s.ComputeMetrics()
	assert.InDelta(t, 0.5, m.SuccessRate, 0.001)
	assert.InDelta(t, 1.0, m.FirstAttemptSuccess, 0.001)
}
