package recovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotAndValidateRollbackCleanRestore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a"), 0644))

	snaps, err := Snapshot([]string{path})
	require.NoError(t, err)

	violations, err := ValidateRollback(snaps)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestValidateRollbackDetectsLeftoverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.go")

	snaps, err := Snapshot([]string{path})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("leftover"), 0644))

	violations, err := ValidateRollback(snaps)
	require.NoError(t, err)
	require.Len(t, violations, 1)
}

func TestRecoverCorruptStateReseedsFromTasksDir(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(statePath, []byte(`{"target_dir": "/x", "tasks": {`), 0644))

	tasksDir := filepath.Join(dir, "tasks")
	require.NoError(t, os.MkdirAll(tasksDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tasksDir, "T1.json"),
		[]byte(`{"id":"T1","name":"one","phase":1,"depends_on":[],"blocks":[],"behaviors":[],"files":[],"acceptance_criteria":[]}`), 0644))

	recovered, err := RecoverCorruptState(statePath, tasksDir)
	require.NoError(t, err)
	assert.Contains(t, recovered.Tasks, "T1")
	assert.NotEmpty(t, recovered.Events)
	assert.Equal(t, "state_recovered", recovered.Events[len(recovered.Events)-1].Type)
}

func TestReconcileOrphansResetsRunningTasks(t *testing.T) {
	l := store.NewLayout(t.TempDir())
	require.NoError(t, l.EnsureDirs())

	s := state.New("/x")
	require.NoError(t, s.AddTask(&state.Task{ID: "T1", Status: state.TaskPending}))
	require.NoError(t, s.MarkReady("T1"))
	require.NoError(t, s.StartTask("T1", false))
	require.NoError(t, s.OpenCheckpoint([]string{"T1"}))

	reconciled, err := ReconcileOrphans(s, l)
	require.NoError(t, err)
	assert.Equal(t, []string{"T1"}, reconciled)
	assert.Equal(t, state.TaskReady, s.Tasks["T1"].Status)
	assert.Nil(t, s.Checkpoint)
}

func TestReconcileOrphansLeavesResultFileAlone(t *testing.T) {
	l := store.NewLayout(t.TempDir())
	require.NoError(t, l.EnsureDirs())

	s := state.New("/x")
	require.NoError(t, s.AddTask(&state.Task{ID: "T1", Status: state.TaskPending}))
	require.NoError(t, s.MarkReady("T1"))
	require.NoError(t, s.StartTask("T1", false))
	require.NoError(t, s.OpenCheckpoint([]string{"T1"}))

	require.NoError(t, os.WriteFile(l.ResultPath("T1"), []byte(`{}`), 0644))

	reconciled, err := ReconcileOrphans(s, l)
	require.NoError(t, err)
	assert.Empty(t, reconciled)
	assert.Equal(t, state.TaskRunning, s.Tasks["T1"].Status)
}
