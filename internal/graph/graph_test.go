package graph

import (
	"testing"

	"github.com/Dowwie/tasker/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearTasks() map[string]*state.Task {
	return map[string]*state.Task{
		"T1": {ID: "T1", Status: state.TaskPending},
		"T2": {ID: "T2", Status: state.TaskPending, DependsOn: []string{"T1"}},
		"T3": {ID: "T3", Status: state.TaskPending, DependsOn: []string{"T2"}},
	}
}

func TestTopologicalOrderLinear(t *testing.T) {
	g, err := Build(linearTasks())
	require.NoError(t, err)

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T2", "T3"}, order)
}

func TestDetectCycle(t *testing.T) {
	tasks := map[string]*state.Task{
		"A": {ID: "A", DependsOn: []string{"C"}},
		"B": {ID: "B", DependsOn: []string{"A"}},
		"C": {ID: "C", DependsOn: []string{"B"}},
	}
	g, err := Build(tasks)
	require.NoError(t, err)

	cyc := g.DetectCycle()
	require.NotNil(t, cyc)
	assert.Contains(t, cyc, "A")
	assert.Contains(t, cyc, "B")
	assert.Contains(t, cyc, "C")
}

func TestTopologicalOrderDetectsCycle(t *testing.T) {
	tasks := map[string]*state.Task{
		"A": {ID: "A", DependsOn: []string{"B"}},
		"B": {ID: "B", DependsOn: []string{"A"}},
	}
	g, err := Build(tasks)
	require.NoError(t, err)

	_, err = g.TopologicalOrder()
	require.Error(t, err)
}

func TestBuildRejectsUnknownDependency(t *testing.T) {
	tasks := map[string]*state.Task{
		"A": {ID: "A", DependsOn: []string{"ghost"}},
	}
	_, err := Build(tasks)
	require.Error(t, err)
}

func TestReadySetOnlyPendingWithSatisfiedDeps(t *testing.T) {
	tasks := linearTasks()
	tasks["T1"].Status = state.TaskComplete
	g, err := Build(tasks)
	require.NoError(t, err)

	ready := g.ReadySet()
	assert.Equal(t, []string{"T2"}, ready)
}

func TestReadySetTreatsSkippedAsSatisfying(t *testing.T) {
	tasks := linearTasks()
	tasks["T1"].Status = state.TaskSkipped
	g, err := Build(tasks)
	require.NoError(t, err)

	ready := g.ReadySet()
	assert.Equal(t, []string{"T2"}, ready)
}

func TestValidateSteelThreadRejectsMixedDependency(t *testing.T) {
	tasks := map[string]*state.Task{
		"A": {ID: "A", SteelThread: false},
		"B": {ID: "B", SteelThread: true, DependsOn: []string{"A"}},
	}
	g, err := Build(tasks)
	require.NoError(t, err)

	err = g.ValidateSteelThread()
	require.Error(t, err)
}

func TestValidateSteelThreadAcceptsClosedSubgraph(t *testing.T) {
	tasks := map[string]*state.Task{
		"A": {ID: "A", SteelThread: true},
		"B": {ID: "B", SteelThread: true, DependsOn: []string{"A"}},
	}
	g, err := Build(tasks)
	require.NoError(t, err)

	assert.NoError(t, g.ValidateSteelThread())
}
