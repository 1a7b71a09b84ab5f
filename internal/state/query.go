package state

import "sort"

// GetTask returns the task record for id, or a taskerr.CodeUnknownID error.
func (s *State) GetTask(id string) (*Task, error) {
	return s.getTask(id)
}

// StatusSummary is the counts-by-status view returned by GetStatus.
type StatusSummary struct {
	Phase      Phase
	Pending    int
	Ready      int
	Running    int
	Completed  int
	Failed     int
	Blocked    int
	Skipped    int
	Total      int
}

// GetStatus tallies task counts by status alongside the current phase.
func (s *State) GetStatus() StatusSummary {
	sum := StatusSummary{Phase: s.Phase.Current}
	for _, t := range s.Tasks {
		sum.Total++
		switch t.Status {
		case TaskPending:
			sum.Pending++
		case TaskReady:
			sum.Ready++
		case TaskRunning:
			sum.Running++
		case TaskComplete:
			sum.Completed++
		case TaskFailed:
			sum.Failed++
		case TaskBlocked:
			sum.Blocked++
		case TaskSkipped:
			sum.Skipped++
		}
	}
	return sum
}

// FailureBreakdown groups failed tasks by error category.
func (s *State) FailureBreakdown() map[string][]string {
	out := map[string][]string{}
	for id, t := range s.Tasks {
		if t.Status != TaskFailed {
			continue
		}
		cat := t.ErrorCategory
		if cat == "" {
			cat = "uncategorized"
		}
		out[cat] = append(out[cat], id)
	}
	for cat := range out {
		sort.Strings(out[cat])
	}
	return out
}

// Metrics is the execution-level rollup returned by the metrics command.
type Metrics struct {
	TotalTasks           int
	CompletedTasks       int
	FailedTasks          int
	SkippedTasks         int
	SuccessRate          float64
	FirstAttemptSuccess  float64
	AverageAttempts      float64
	TotalTokens          int64
	CumulativeCost       float64
	AverageDurationSecs  float64
}

// ComputeMetrics derives the aggregate execution metrics from task state (§4.7).
func (s *State) ComputeMetrics() Metrics {
	m := Metrics{TotalTokens: s.Counters.TotalTokens, CumulativeCost: s.Counters.CumulativeCost}
	var attempts, firstAttemptWins int
	var durationSum float64
	var durationCount int

	for _, t := range s.Tasks {
		m.TotalTasks++
		switch t.Status {
		case TaskComplete:
			m.CompletedTasks++
			if t.Attempts == 1 {
				firstAttemptWins++
			}
		case TaskFailed:
			m.FailedTasks++
		case TaskSkipped:
			m.SkippedTasks++
		}
		if t.Attempts > 0 {
			attempts += t.Attempts
		}
		if t.Status == TaskComplete && t.DurationSeconds > 0 {
			durationSum += t.DurationSeconds
			durationCount++
		}
	}

	attempted := m.CompletedTasks + m.FailedTasks
	if attempted > 0 {
		m.SuccessRate = float64(m.CompletedTasks) / float64(attempted)
		m.AverageAttempts = float64(attempts) / float64(attempted)
	}
	if m.CompletedTasks > 0 {
		m.FirstAttemptSuccess = float64(firstAttemptWins) / float64(m.CompletedTasks)
	}
	if durationCount > 0 {
		m.AverageDurationSecs = durationSum / float64(durationCount)
	}
	return m
}

// PlanningMetrics summarizes the planning-phase artifacts for the gates
// evaluated in phase.Advance (spec coverage, steel-thread coverage).
type PlanningMetrics struct {
	TotalBehaviors       int
	MappedBehaviors      int
	SteelThreadBehaviors int
	SteelThreadMapped    int
	// UncoveredBehaviors and UncoveredSteelThreadBehaviors name every
	// behavior id that no physical-map entry names, split by steel-thread status since
	// the two pools are held to different coverage thresholds (§4.4).
	UncoveredBehaviors            []string
	UncoveredSteelThreadBehaviors []string
}

// CoverageRatio returns MappedBehaviors/TotalBehaviors, or 1.0 if there are
// no behaviors to map.
func (p PlanningMetrics) CoverageRatio() float64 {
	if p.TotalBehaviors == 0 {
		return 1.0
	}
	return float64(p.MappedBehaviors) / float64(p.TotalBehaviors)
}

// SteelThreadRatio returns SteelThreadMapped/SteelThreadBehaviors, or 1.0 if
// there are no steel-thread behaviors.
func (p PlanningMetrics) SteelThreadRatio() float64 {
	if p.SteelThreadBehaviors == 0 {
		return 1.0
	}
	return float64(p.SteelThreadMapped) / float64(p.SteelThreadBehaviors)
}

// ReadyTaskIDs returns the sorted ids of every task currently in ready status.
func (s *State) ReadyTaskIDs() []string {
	var ids []string
	for id, t := range s.Tasks {
		if t.Status == TaskReady {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// SortedTaskIDs returns every task id in sorted order, for deterministic
// iteration (listing, reporting).
func (s *State) SortedTaskIDs() []string {
	ids := make([]string, 0, len(s.Tasks))
	for id := range s.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
