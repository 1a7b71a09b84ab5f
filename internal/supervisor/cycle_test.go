package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dowwie/tasker/internal/config"
	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
	"github.com/Dowwie/tasker/internal/taskerr"
)

func setupCycleFixture(t *testing.T) (*state.Engine, store.Layout, string) {
	t.Helper()
	root := t.TempDir()
	l := store.NewLayout(root)
	require.NoError(t, l.EnsureDirs())
	require.NoError(t, os.WriteFile(l.CapabilityMap, []byte(`{"behaviors":[]}`), 0644))
	require.NoError(t, os.WriteFile(l.PhysicalMap, []byte(`{"entries":[]}`), 0644))
	constraints := filepath.Join(root, "constraints.md")
	require.NoError(t, os.WriteFile(constraints, []byte("none"), 0644))

	engine := state.NewEngine(l, store.DefaultLockTimeout)
	require.NoError(t, engine.Init(root))

	return engine, l, constraints
}

func TestRunCycleDispatchesReadyBatch(t *testing.T) {
	engine, l, constraints := setupCycleFixture(t)
	worker := fakeWorkerScript(t, l.BundlesDir)

	require.NoError(t, engine.Mutate(func(s *state.State) error {
		return s.AddTask(&state.Task{ID: "T1", Name: "only task"})
	}))
	require.NoError(t, store.WriteJSON(l.TaskPath("T1"), &state.Task{ID: "T1", Name: "only task"}))

	cfg := config.DefaultConfig()
	cfg.Worker.Command = []string{"sh", worker}

	outcome, err := RunCycle(context.Background(), engine, l, &cfg, constraints)
	require.NoError(t, err)
	assert.Equal(t, []string{"T1"}, outcome.Batch)
	assert.Equal(t, []string{"T1"}, outcome.Succeeded)
	assert.Empty(t, outcome.Failed)

	require.NoError(t, engine.View(func(s *state.State) error {
		assert.Equal(t, state.TaskComplete, s.Tasks["T1"].Status)
		assert.Nil(t, s.Checkpoint)
		return nil
	}))
}

func TestRunCycleNoReadyTasksReturnsEmptyBatch(t *testing.T) {
	engine, l, constraints := setupCycleFixture(t)
	cfg := config.DefaultConfig()

	outcome, err := RunCycle(context.Background(), engine, l, &cfg, constraints)
	require.NoError(t, err)
	assert.Empty(t, outcome.Batch)
}

func TestRunCycleRefusesWhenHalted(t *testing.T) {
	engine, l, constraints := setupCycleFixture(t)
	require.NoError(t, RequestHalt(engine, l, "paused", "operator"))

	cfg := config.DefaultConfig()
	_, err := RunCycle(context.Background(), engine, l, &cfg, constraints)
	require.Error(t, err)
	terr, ok := taskerr.As(err)
	require.True(t, ok)
	assert.Equal(t, taskerr.CodeHalted, terr.Code)
}

func TestIngestBatchResultsSkipsAttemptOnDependencyMissing(t *testing.T) {
	engine, l, _ := setupCycleFixture(t)
	require.NoError(t, engine.Mutate(func(s *state.State) error {
		if err := s.AddTask(&state.Task{ID: "T1", Name: "needs a missing dependency"}); err != nil {
			return err
		}
		return s.MarkReady("T1")
	}))
	require.NoError(t, engine.Mutate(func(s *state.State) error {
		return s.OpenCheckpoint([]string{"T1"})
	}))

	missingErr := taskerr.New(taskerr.CategoryBundle, taskerr.CodeDependencyMissing, "dependency task not found", "task", "T1")
	outcome := CycleOutcome{Batch: []string{"T1"}}

	outcome, err := ingestBatchResults(engine, l, outcome, []taskDispatchResult{{taskID: "T1", err: missingErr}})
	require.NoError(t, err)
	assert.Equal(t, []string{"T1"}, outcome.Failed)

	require.NoError(t, engine.View(func(s *state.State) error {
		assert.Equal(t, state.TaskFailed, s.Tasks["T1"].Status)
		assert.Equal(t, 0, s.Tasks["T1"].Attempts)
		return nil
	}))
}

func TestIngestBatchResultsCountsAttemptOnExecutionFailure(t *testing.T) {
	engine, l, _ := setupCycleFixture(t)
	require.NoError(t, engine.Mutate(func(s *state.State) error {
		if err := s.AddTask(&state.Task{ID: "T1", Name: "worker fails"}); err != nil {
			return err
		}
		return s.MarkReady("T1")
	}))
	require.NoError(t, engine.Mutate(func(s *state.State) error {
		return s.OpenCheckpoint([]string{"T1"})
	}))

	workerErr := taskerr.New(taskerr.CategoryExecution, taskerr.CodeWorkerFailed, "worker process timed out", "task", "T1")
	outcome := CycleOutcome{Batch: []string{"T1"}}

	outcome, err := ingestBatchResults(engine, l, outcome, []taskDispatchResult{{taskID: "T1", err: workerErr}})
	require.NoError(t, err)
	assert.Equal(t, []string{"T1"}, outcome.Failed)

	require.NoError(t, engine.View(func(s *state.State) error {
		assert.Equal(t, state.TaskFailed, s.Tasks["T1"].Status)
		assert.Equal(t, 1, s.Tasks["T1"].Attempts)
		return nil
	}))
}
