package reports

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
	"github.com/Dowwie/tasker/internal/verification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteStatusReport(t *testing.T) {
	l := store.NewLayout(t.TempDir())
	require.NoError(t, l.EnsureDirs())

	s := state.New("/tmp")
	require.NoError(t, s.AddTask(&state.Task{ID: "T1", Status: state.TaskPending}))

	require.NoError(t, WriteStatusReport(l, s))

	data, err := os.ReadFile(filepath.Join(l.ReportsDir, "status.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Status Report")
}

func TestWriteFailureReportEmpty(t *testing.T) {
	l := store.NewLayout(t.TempDir())
	require.NoError(t, l.EnsureDirs())

	s := state.New("/tmp")
	require.NoError(t, WriteFailureReport(l, s))

	data, err := os.ReadFile(filepath.Join(l.ReportsDir, "failures.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "No failures recorded")
}

func TestWriteCalibrationReport(t *testing.T) {
	l := store.NewLayout(t.TempDir())
	require.NoError(t, l.EnsureDirs())

	tally := verification.Tally{Correct: 3, FalsePositive: 1}
	require.NoError(t, WriteCalibrationReport(l, tally))

	data, err := os.ReadFile(filepath.Join(l.ReportsDir, "calibration.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Calibration Report")
}
