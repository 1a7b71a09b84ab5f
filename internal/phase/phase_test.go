package phase

import (
	"strings"
	"testing"

	"github.com/Dowwie/tasker/internal/config"
	"github.com/Dowwie/tasker/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceBlocksOnSpecCoverageGate(t *testing.T) {
	s := state.New("/tmp/p")
	s.Phase.Current = state.PhaseDefinition
	cfg := config.DefaultConfig()

	pm := state.PlanningMetrics{TotalBehaviors: 10, MappedBehaviors: 2, UncoveredBehaviors: []string{"B3"}}
	gr, err := Advance(s, &cfg, pm)

	require.Error(t, err)
	assert.False(t, gr.Passed)
	assert.Contains(t, strings.Join(gr.Reasons, ";"), "GATE_FAILED:spec_coverage")
	assert.Contains(t, strings.Join(gr.Reasons, ";"), "B3")
	assert.Equal(t, state.PhaseDefinition, s.Phase.Current)
}

func TestAdvancePassesWithFullCoverage(t *testing.T) {
	s := state.New("/tmp/p")
	s.Phase.Current = state.PhaseDefinition
	cfg := config.DefaultConfig()

	pm := state.PlanningMetrics{TotalBehaviors: 10, MappedBehaviors: 10}
	gr, err := Advance(s, &cfg, pm)

	require.NoError(t, err)
	assert.True(t, gr.Passed)
	assert.Equal(t, state.PhaseValidation, s.Phase.Current)
}

func TestAdvanceDefinitionGateCatchesPhaseLeakage(t *testing.T) {
	s := state.New("/tmp/p")
	s.Phase.Current = state.PhaseDefinition
	cfg := config.DefaultConfig()

	require.NoError(t, s.AddTask(&state.Task{
		ID:   "T1",
		Name: "t1",
		AcceptanceCrit: []state.AcceptanceCriterion{
			{Criterion: "implement the new endpoint", Verification: "go test ./..."},
		},
	}))

	gr, err := Advance(s, &cfg, state.PlanningMetrics{})
	require.Error(t, err)
	assert.False(t, gr.Passed)
	assert.Contains(t, strings.Join(gr.Reasons, ";"), "implement")
}

func TestAdvanceSequencingGateCatchesCycle(t *testing.T) {
	s := state.New("/tmp/p")
	s.Phase.Current = state.PhaseSequencing
	cfg := config.DefaultConfig()

	require.NoError(t, s.AddTask(&state.Task{ID: "A", DependsOn: []string{"B"}}))
	require.NoError(t, s.AddTask(&state.Task{ID: "B", DependsOn: []string{"A"}}))

	gr, err := Advance(s, &cfg, state.PlanningMetrics{})
	require.Error(t, err)
	assert.False(t, gr.Passed)
}

func TestAdvanceRejectsTerminalPhase(t *testing.T) {
	s := state.New("/tmp/p")
	s.Phase.Current = state.PhaseComplete
	cfg := config.DefaultConfig()

	_, err := Advance(s, &cfg, state.PlanningMetrics{})
	require.Error(t, err)
}
