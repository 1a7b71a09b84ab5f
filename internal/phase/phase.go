// Package phase implements the ordered phase machine (C4): schema-gated
// phase transitions and the planning gates that guard them (§4.4).
package phase

import (
	"fmt"
	"strings"

	"github.com/Dowwie/tasker/internal/config"
	"github.com/Dowwie/tasker/internal/graph"
	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/taskerr"
)

// next returns the phase that canonically follows cur, or "" if cur is terminal.
func next(cur state.Phase) state.Phase {
	for i, p := range state.CanonicalPhaseOrder {
		if p == cur && i+1 < len(state.CanonicalPhaseOrder) {
			return state.CanonicalPhaseOrder[i+1]
		}
	}
	return ""
}

// GateResult is the outcome of evaluating the planning gates for one phase
// transition.
type GateResult struct {
	Passed  bool
	Reasons []string
}

// Advance validates the gates for the current phase and, if they pass,
// transitions s to the next canonical phase. Gate evaluation is phase
// specific: leaving definition applies the planning gates named in §4.4,
// leaving sequencing requires the task graph to be acyclic with a closed
// steel-thread subgraph, and every other transition applies no gate.
func Advance(s *state.State, cfg *config.Config, pm state.PlanningMetrics) (GateResult, error) {
	cur := s.Phase.Current
	target := next(cur)
	if target == "" {
		return GateResult{}, taskerr.New(taskerr.CategoryPhase, taskerr.CodeInvalidTransition,
			"already in the terminal phase", "phase", string(cur))
	}

	gr := evaluateGates(cur, s, cfg, pm)
	if !gr.Passed {
		return gr, taskerr.New(taskerr.CategoryPhase, taskerr.CodeGateFailed,
			"planning gates failed", "phase", string(cur), "reasons", strings.Join(gr.Reasons, "; "))
	}

	if err := s.AdvancePhase(target); err != nil {
		return gr, err
	}
	return gr, nil
}

// minCriterionTextLength is §4.4's floor on an acceptance criterion's text.
const minCriterionTextLength = 10

// recognizedVerificationPrefixes are the executable prefixes §4.4 accepts
// for an acceptance criterion's verification command.
var recognizedVerificationPrefixes = []string{
	"go test", "pytest", "npm test", "make test", "cargo test", "bash", "sh", "./",
}

func evaluateGates(cur state.Phase, s *state.State, cfg *config.Config, pm state.PlanningMetrics) GateResult {
	var reasons []string

	switch cur {
	case state.PhaseDefinition:
		// Advancing into validation runs the three planning gates together
		// (§4.4): spec coverage, phase leakage, and acceptance-criterion
		// quality all gate the same transition.
		reasons = append(reasons, checkSpecCoverage(pm, cfg)...)
		reasons = append(reasons, checkTaskDefinitions(s, cfg)...)
	case state.PhaseSequencing:
		g, err := graph.Build(s.Tasks)
		if err != nil {
			reasons = append(reasons, err.Error())
			break
		}
		if cyc := g.DetectCycle(); cyc != nil {
			reasons = append(reasons, "dependency cycle detected: "+strings.Join(cyc, "->"))
		}
		if err := g.ValidateSteelThread(); err != nil {
			reasons = append(reasons, err.Error())
		}
	}

	return GateResult{Passed: len(reasons) == 0, Reasons: reasons}
}

// checkSpecCoverage applies §4.4's spec-coverage gate: steel-thread
// behaviors are held to cfg.Gates.MinSteelThreadCoverage (default 1.0),
// every other behavior to cfg.Gates.MinSpecCoverage (default 0.9), and any
// uncovered behavior is named by id rather than just reported as a ratio.
func checkSpecCoverage(pm state.PlanningMetrics, cfg *config.Config) []string {
	var reasons []string
	if pm.SteelThreadRatio() < cfg.Gates.MinSteelThreadCoverage {
		reasons = append(reasons, fmt.Sprintf("GATE_FAILED:spec_coverage steel-thread coverage %.2f below minimum %.2f, uncovered: %s",
			pm.SteelThreadRatio(), cfg.Gates.MinSteelThreadCoverage, strings.Join(pm.UncoveredSteelThreadBehaviors, ", ")))
	}
	otherTotal := pm.TotalBehaviors - pm.SteelThreadBehaviors
	otherRatio := 1.0
	if otherTotal > 0 {
		otherRatio = float64(pm.MappedBehaviors-pm.SteelThreadMapped) / float64(otherTotal)
	}
	if otherRatio < cfg.Gates.MinSpecCoverage {
		reasons = append(reasons, fmt.Sprintf("GATE_FAILED:spec_coverage spec coverage %.2f below minimum %.2f, uncovered: %s",
			otherRatio, cfg.Gates.MinSpecCoverage, strings.Join(pm.UncoveredBehaviors, ", ")))
	}
	return reasons
}

// checkTaskDefinitions applies the acceptance-criterion quality gate and the
// phase-leakage keyword scan (§4.4's planning gates) to every task.
func checkTaskDefinitions(s *state.State, cfg *config.Config) []string {
	var reasons []string
	for _, id := range s.SortedTaskIDs() {
		t := s.Tasks[id]
		if len(t.AcceptanceCrit) < cfg.Gates.MinAcceptanceCriteria {
			reasons = append(reasons, fmt.Sprintf("task %s has %d acceptance criteria, need at least %d",
				id, len(t.AcceptanceCrit), cfg.Gates.MinAcceptanceCriteria))
		}
		for i, c := range t.AcceptanceCrit {
			if len(strings.TrimSpace(c.Criterion)) < minCriterionTextLength {
				reasons = append(reasons, fmt.Sprintf("task %s criterion %d text is shorter than %d characters",
					id, i, minCriterionTextLength))
			}
			if !hasRecognizedVerificationPrefix(c.Verification) {
				reasons = append(reasons, fmt.Sprintf("task %s criterion %d has no recognized verification command", id, i))
			}
		}
		if kw, ok := findPhaseLeakage(t, cfg.Gates.PhaseLeakageKeywords); ok {
			reasons = append(reasons, fmt.Sprintf("task %s description mentions execution-phase keyword %q", id, kw))
		}
	}
	return reasons
}

// hasRecognizedVerificationPrefix reports whether cmd starts with one of the
// executable prefixes §4.4 accepts for an acceptance criterion's
// verification command.
func hasRecognizedVerificationPrefix(cmd string) bool {
	trimmed := strings.TrimSpace(cmd)
	if trimmed == "" {
		return false
	}
	for _, prefix := range recognizedVerificationPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// findPhaseLeakage scans a task's name, context and acceptance criteria for
// keywords that describe execution work rather than a design decision
// (planning artifacts must describe WHAT, not HOW).
func findPhaseLeakage(t *state.Task, keywords []string) (string, bool) {
	haystacks := []string{strings.ToLower(t.Name), strings.ToLower(t.Context)}
	for _, c := range t.AcceptanceCrit {
		haystacks = append(haystacks, strings.ToLower(c.Criterion))
	}
	for _, h := range haystacks {
		for _, kw := range keywords {
			if strings.Contains(h, strings.ToLower(kw)) {
				return kw, true
			}
		}
	}
	return "", false
}
