package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dowwie/tasker/internal/config"
	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWorkerScript writes a shell script that, given a bundle path argument,
// writes a success result file alongside it, mimicking the external worker
// contract (§6).
func fakeWorkerScript(t *testing.T, bundlesDir string) string {
	t.Helper()
	scriptPath := filepath.Join(t.TempDir(), "worker.sh")
	script := `#!/bin/sh
bundle="$1"
dir=$(dirname "$bundle")
base=$(basename "$bundle" -bundle.json)
cat > "$dir/$base-result.json" <<EOF
{"task_id":"$base","name":"$base","status":"success","started_at":"2024-01-01T00:00:00Z","completed_at":"2024-01-01T00:00:01Z"}
EOF
`
	require.NoError(t, os.WriteFile(scriptPath, []byte(script), 0755))
	return scriptPath
}

func TestDispatchSuccess(t *testing.T) {
	root := t.TempDir()
	l := store.NewLayout(root)
	require.NoError(t, l.EnsureDirs())

	worker := fakeWorkerScript(t, l.BundlesDir)
	cfg := config.DefaultConfig()
	cfg.Worker.Command = []string{"sh", worker}

	bundlePath := l.BundlePath("T1")
	require.NoError(t, os.WriteFile(bundlePath, []byte(`{}`), 0644))

	res, err := Dispatch(context.Background(), &cfg, l, "T1", bundlePath, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.NotEmpty(t, res.ResultPath)
}

func TestDispatchMissingResultFails(t *testing.T) {
	root := t.TempDir()
	l := store.NewLayout(root)
	require.NoError(t, l.EnsureDirs())

	cfg := config.DefaultConfig()
	cfg.Worker.Command = []string{"true"}

	bundlePath := l.BundlePath("T1")
	require.NoError(t, os.WriteFile(bundlePath, []byte(`{}`), 0644))

	_, err := Dispatch(context.Background(), &cfg, l, "T1", bundlePath, 5*time.Second)
	require.Error(t, err)
}

func TestApplySuccessResultCompletesTask(t *testing.T) {
	s := state.New("/tmp")
	require.NoError(t, s.AddTask(&state.Task{ID: "T1", Status: state.TaskPending}))
	require.NoError(t, s.MarkReady("T1"))
	require.NoError(t, s.StartTask("T1", false))

	r := &Result{TaskID: "T1", Status: "success"}
	require.NoError(t, Apply(s, r))
	assert.Equal(t, state.TaskComplete, s.Tasks["T1"].Status)
}

func TestApplyFailedResultFailsTask(t *testing.T) {
	s := state.New("/tmp")
	require.NoError(t, s.AddTask(&state.Task{ID: "T1", Status: state.TaskPending}))
	require.NoError(t, s.MarkReady("T1"))
	require.NoError(t, s.StartTask("T1", false))

	r := &Result{TaskID: "T1", Status: "failed", Error: &state.TaskError{Category: "execution", Message: "boom"}}
	require.NoError(t, Apply(s, r))
	assert.Equal(t, state.TaskFailed, s.Tasks["T1"].Status)
}

func TestHaltWriteAndClear(t *testing.T) {
	root := t.TempDir()
	l := store.NewLayout(root)
	require.NoError(t, l.EnsureDirs())
	engine := state.NewEngine(l, store.DefaultLockTimeout)
	require.NoError(t, engine.Init("/tmp"))

	require.NoError(t, RequestHalt(engine, l, "manual", "operator"))
	halted, reason := CheckHalt(l)
	assert.True(t, halted)
	assert.Equal(t, "manual", reason)

	require.NoError(t, Resume(engine, l))
	halted, _ = CheckHalt(l)
	assert.False(t, halted)
}
