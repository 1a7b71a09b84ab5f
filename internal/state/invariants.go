package state

import (
	"fmt"
	"sort"

	"github.com/Dowwie/tasker/internal/taskerr"
)

// Validate checks the structural invariants the engine must never violate
// (§4.2's I-1..I-9), returning a taskerr.Error naming the first violation
// found. Invariants are checked in a fixed order; when several tasks violate
// the same invariant, which of them is named is not defined.
func Validate(s *State) error {
	if err := validateReferentialIntegrity(s); err != nil {
		return err
	}
	if err := validateAcyclic(s); err != nil {
		return err
	}
	if err := validateDependencyCompletionOrder(s); err != nil {
		return err
	}
	if err := validateCountersConsistent(s); err != nil {
		return err
	}
	if err := validateHaltBlocksNewRunning(s); err != nil {
		return err
	}
	if err := validateRunningMatchesCheckpoint(s); err != nil {
		return err
	}
	if err := validateAttempts(s); err != nil {
		return err
	}
	if err := validateSteelThreadClosure(s); err != nil {
		return err
	}
	if err := validatePhaseMonotonic(s); err != nil {
		return err
	}
	if err := validateEventsMonotonic(s); err != nil {
		return err
	}
	return nil
}

// I-1: every task id referenced in depends_on, blocks, or the checkpoint
// batch exists in s.Tasks.
func validateReferentialIntegrity(s *State) error {
	var missing []string
	for id, t := range s.Tasks {
		for _, dep := range t.DependsOn {
			if _, ok := s.Tasks[dep]; !ok {
				missing = append(missing, fmt.Sprintf("%s->depends_on->%s", id, dep))
			}
		}
		for _, b := range t.Blocks {
			if _, ok := s.Tasks[b]; !ok {
				missing = append(missing, fmt.Sprintf("%s->blocks->%s", id, b))
			}
		}
	}
	if s.Checkpoint != nil {
		for _, id := range s.Checkpoint.Batch {
			if _, ok := s.Tasks[id]; !ok {
				missing = append(missing, fmt.Sprintf("checkpoint->%s", id))
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return taskerr.New(taskerr.CategoryState, taskerr.CodeInvariant,
			"a task id is referenced but does not exist", "references", fmt.Sprint(missing))
	}
	return nil
}

// I-2: the dependency relation is acyclic, including self-loops.
func validateAcyclic(s *State) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(s.Tasks))
	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		t, ok := s.Tasks[id]
		if ok {
			for _, dep := range t.DependsOn {
				if dep == id {
					return []string{id, dep}
				}
				switch color[dep] {
				case gray:
					return []string{id, dep}
				case white:
					if cyc := visit(dep); cyc != nil {
						return append([]string{id}, cyc...)
					}
				}
			}
		}
		color[id] = black
		return nil
	}
	for _, id := range s.SortedTaskIDs() {
		if color[id] == white {
			if cyc := visit(id); cyc != nil {
				return taskerr.New(taskerr.CategoryState, taskerr.CodeInvariant,
					"dependency relation contains a cycle", "cycle", fmt.Sprint(cyc))
			}
		}
	}
	return nil
}

// validateDependencyCompletionOrder is not one of the numbered I-1..I-9
// invariants, but it is a consequence the engine must never violate: a task
// cannot be complete while any of its dependencies are not themselves
// complete or skipped.
func validateDependencyCompletionOrder(s *State) error {
	for id, t := range s.Tasks {
		if t.Status != TaskComplete {
			continue
		}
		for _, dep := range t.DependsOn {
			d, ok := s.Tasks[dep]
			if !ok {
				continue
			}
			if d.Status != TaskComplete && d.Status != TaskSkipped {
				return taskerr.New(taskerr.CategoryState, taskerr.CodeInvariant,
					"completed task depends on an incomplete dependency",
					"task", id, "depends_on", dep, "dependency_status", string(d.Status))
			}
		}
	}
	return nil
}

// I-3: counters.completed/failed/skipped equal the count of tasks in the
// corresponding terminal status.
func validateCountersConsistent(s *State) error {
	var completed, failed, skipped int
	for _, t := range s.Tasks {
		switch t.Status {
		case TaskComplete:
			completed++
		case TaskFailed:
			failed++
		case TaskSkipped:
			skipped++
		}
	}
	if completed != s.Counters.Completed || failed != s.Counters.Failed || skipped != s.Counters.Skipped {
		return taskerr.New(taskerr.CategoryState, taskerr.CodeInvariant,
			"counters do not match task status tally",
			"completed_want", itoa(completed), "completed_have", itoa(s.Counters.Completed),
			"failed_want", itoa(failed), "failed_have", itoa(s.Counters.Failed),
			"skipped_want", itoa(skipped), "skipped_have", itoa(s.Counters.Skipped))
	}
	return nil
}

// I-4: if halt.requested is true, no task may be running that started after
// the halt was requested.
func validateHaltBlocksNewRunning(s *State) error {
	if s.Halt == nil || !s.Halt.Requested {
		return nil
	}
	for id, t := range s.Tasks {
		if t.Status != TaskRunning {
			continue
		}
		if t.StartedAt != nil && t.StartedAt.After(s.Halt.RequestedAt) {
			return taskerr.New(taskerr.CategoryState, taskerr.CodeInvariant,
				"task started running after halt was requested", "task", id)
		}
	}
	return nil
}

// I-5: a task may hold running only while exactly one checkpoint lists it as
// unresolved (pending-dispatch).
func validateRunningMatchesCheckpoint(s *State) error {
	for id, t := range s.Tasks {
		if t.Status != TaskRunning {
			continue
		}
		if s.Checkpoint == nil {
			return taskerr.New(taskerr.CategoryState, taskerr.CodeInvariant,
				"task is running with no open checkpoint", "task", id)
		}
		result, ok := s.Checkpoint.PerTaskResult[id]
		if !ok || result != CheckpointPendingDispatch {
			return taskerr.New(taskerr.CategoryState, taskerr.CodeInvariant,
				"running task is not listed as unresolved on the open checkpoint", "task", id)
		}
	}
	return nil
}

// I-6: attempts >= 1 whenever status is running, complete, or failed; never
// negative for any task.
func validateAttempts(s *State) error {
	for id, t := range s.Tasks {
		if t.Attempts < 0 {
			return taskerr.New(taskerr.CategoryState, taskerr.CodeInvariant,
				"task attempts is negative", "task", id)
		}
		if (t.Status == TaskRunning || t.Status == TaskComplete || t.Status == TaskFailed) && t.Attempts < 1 {
			return taskerr.New(taskerr.CategoryState, taskerr.CodeInvariant,
				"task has reached a dispatched status with zero attempts", "task", id, "status", string(t.Status))
		}
	}
	return nil
}

// I-7: every steel-thread task's transitive dependencies are themselves
// steel-thread.
func validateSteelThreadClosure(s *State) error {
	for id, t := range s.Tasks {
		if !t.SteelThread {
			continue
		}
		for _, dep := range t.DependsOn {
			d, ok := s.Tasks[dep]
			if ok && !d.SteelThread {
				return taskerr.New(taskerr.CategoryState, taskerr.CodeInvariant,
					"steel-thread task depends on a non-steel-thread task", "task", id, "depends_on", dep)
			}
		}
	}
	return nil
}

// I-8: phase.current and phase.completed are disjoint, and completed is a
// prefix of the canonical phase order.
func validatePhaseMonotonic(s *State) error {
	idx := map[Phase]int{}
	for i, p := range CanonicalPhaseOrder {
		idx[p] = i
	}
	cur, ok := idx[s.Phase.Current]
	if !ok {
		return taskerr.New(taskerr.CategoryState, taskerr.CodeInvariant,
			"current phase is not a canonical phase", "phase", string(s.Phase.Current))
	}
	for i, p := range s.Phase.Completed {
		pidx, ok := idx[p]
		if !ok {
			return taskerr.New(taskerr.CategoryState, taskerr.CodeInvariant,
				"completed phase is not a canonical phase", "phase", string(p))
		}
		if pidx != i {
			return taskerr.New(taskerr.CategoryState, taskerr.CodeInvariant,
				"completed phases are not a prefix of the canonical phase order", "phase", string(p))
		}
		if p == s.Phase.Current {
			return taskerr.New(taskerr.CategoryState, taskerr.CodeInvariant,
				"current phase also appears in completed phases", "phase", string(p))
		}
		if pidx > cur {
			return taskerr.New(taskerr.CategoryState, taskerr.CodeInvariant,
				"completed phase is later than current phase",
				"phase", string(p), "current", string(s.Phase.Current))
		}
	}
	return nil
}

// I-9: the event log is monotonic in timestamp.
func validateEventsMonotonic(s *State) error {
	for i := 1; i < len(s.Events); i++ {
		if s.Events[i].Timestamp.Before(s.Events[i-1].Timestamp) {
			return taskerr.New(taskerr.CategoryState, taskerr.CodeInvariant,
				"event log timestamps are not monotonic", "index", itoa(i))
		}
	}
	return nil
}

func itoa(n int) string { return fmt.Sprintf("%d", n) }
