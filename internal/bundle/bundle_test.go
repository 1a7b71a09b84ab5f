package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFixture(t *testing.T) (store.Layout, string) {
	root := t.TempDir()
	l := store.NewLayout(root)
	require.NoError(t, l.EnsureDirs())

	require.NoError(t, os.WriteFile(l.CapabilityMap, []byte(`{"behaviors":[]}`), 0644))
	require.NoError(t, os.WriteFile(l.PhysicalMap, []byte(`{"entries":[]}`), 0644))
	constraintsPath := filepath.Join(root, "constraints.md")
	require.NoError(t, os.WriteFile(constraintsPath, []byte("no constraints"), 0644))

	return l, constraintsPath
}

func TestGenerateAndVerifyRoundTrip(t *testing.T) {
	l, constraints := setupFixture(t)

	depPath := filepath.Join(l.Root, "dep.go")
	dep := &state.Task{ID: "T1", Name: "dep", Status: state.TaskComplete, FilesCreated: []string{depPath}}
	require.NoError(t, os.WriteFile(depPath, []byte("package dep"), 0644))

	target := &state.Task{ID: "T2", Name: "target", DependsOn: []string{"T1"}}
	require.NoError(t, store.WriteJSON(l.TaskPath("T2"), target))

	tasks := map[string]*state.Task{"T1": dep, "T2": target}

	b, err := Generate(target, tasks, l, constraints)
	require.NoError(t, err)
	assert.Equal(t, "T2", b.TaskID)
	assert.Len(t, b.Checksums.DependencyFiles, 1)

	drifts, err := Verify(b, l, constraints)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestVerifyDetectsDependencyChanged(t *testing.T) {
	l, constraints := setupFixture(t)

	depFile := filepath.Join(l.Root, "dep.go")
	require.NoError(t, os.WriteFile(depFile, []byte("package dep"), 0644))
	dep := &state.Task{ID: "T1", Status: state.TaskComplete, FilesCreated: []string{depFile}}
	target := &state.Task{ID: "T2", DependsOn: []string{"T1"}}
	require.NoError(t, store.WriteJSON(l.TaskPath("T2"), target))

	tasks := map[string]*state.Task{"T1": dep, "T2": target}
	b, err := Generate(target, tasks, l, constraints)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(depFile, []byte("package dep\n// changed"), 0644))

	drifts, err := Verify(b, l, constraints)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, "DEPENDENCY_CHANGED", drifts[0].Code)
}

func TestVerifyDetectsDependencyMissing(t *testing.T) {
	l, constraints := setupFixture(t)

	depFile := filepath.Join(l.Root, "dep.go")
	require.NoError(t, os.WriteFile(depFile, []byte("package dep"), 0644))
	dep := &state.Task{ID: "T1", Status: state.TaskComplete, FilesCreated: []string{depFile}}
	target := &state.Task{ID: "T2", DependsOn: []string{"T1"}}
	require.NoError(t, store.WriteJSON(l.TaskPath("T2"), target))

	tasks := map[string]*state.Task{"T1": dep, "T2": target}
	b, err := Generate(target, tasks, l, constraints)
	require.NoError(t, err)

	require.NoError(t, os.Remove(depFile))

	drifts, err := Verify(b, l, constraints)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, "DEPENDENCY_MISSING", drifts[0].Code)
}
