package recovery

import (
	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
)

// ReconcileOrphans scans the active checkpoint (if any) for tasks still
// marked pending-dispatch or running with no result file on disk: these are
// orphans left behind by a crash mid-batch (§4.6/§4.8). Each is reset to
// ready so the next batch cycle re-dispatches it, and its checkpoint entry
// is marked orphaned.
func ReconcileOrphans(s *state.State, l store.Layout) ([]string, error) {
	if s.Checkpoint == nil {
		return nil, nil
	}

	var reconciled []string
	for _, id := range s.Checkpoint.Batch {
		result := s.Checkpoint.PerTaskResult[id]
		if result != state.CheckpointPendingDispatch {
			continue
		}
		if store.Exists(l.ResultPath(id)) {
			// A result file landed after the crash but before restart; leave
			// it for the supervisor to ingest on its next pass.
			continue
		}

		t, ok := s.Tasks[id]
		if !ok {
			continue
		}
		if t.Status == state.TaskRunning {
			t.Status = state.TaskReady
			t.StartedAt = nil
		}
		if err := s.RecordCheckpointResult(id, state.CheckpointOrphaned); err != nil {
			return nil, err
		}
		reconciled = append(reconciled, id)
	}

	if len(reconciled) > 0 {
		// With every batch member now terminal (orphaned counts as terminal
		// for the purpose of closing out a dead batch), the checkpoint can close.
		allTerminal := true
		for _, r := range s.Checkpoint.PerTaskResult {
			if r == state.CheckpointPendingDispatch {
				allTerminal = false
				break
			}
		}
		if allTerminal {
			if err := s.ClearCheckpoint(); err != nil {
				return nil, err
			}
		}
	}

	return reconciled, nil
}
