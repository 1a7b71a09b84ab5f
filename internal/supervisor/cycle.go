package supervisor

import (
	"context"
	"sort"
	"sync"

	"github.com/Dowwie/tasker/internal/bundle"
	"github.com/Dowwie/tasker/internal/config"
	"github.com/Dowwie/tasker/internal/graph"
	"github.com/Dowwie/tasker/internal/recovery"
	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
	"github.com/Dowwie/tasker/internal/taskerr"
)

// CycleOutcome summarizes one batch cycle for CLI reporting.
type CycleOutcome struct {
	Batch     []string
	Succeeded []string
	Failed    []string
	Halted    bool
}

// RunCycle executes exactly one batch cycle (§4.6):
//  1. refuse to start if the STOP sentinel is present
//  2. reconcile any orphaned tasks left by a prior crash
//  3. compute the ready set, add every task already in ready status (such as
//     a reconciled orphan), and cap the batch at MaxParallelTasks
//  4. open a checkpoint reserving that batch
//  5. generate each task's bundle and verify its integrity
//  6. dispatch each task's bundle to the worker process, bounded in parallel
//  7. ingest each worker's result file and commit it to state
//  8. record each task's outcome on the checkpoint
//  9. close the checkpoint once every batch member is terminal
//  10. re-check the halt sentinel before returning and report it in the outcome
//
// No file snapshot is taken and nothing is rolled back.
func RunCycle(ctx context.Context, engine *state.Engine, l store.Layout, cfg *config.Config, constraintsPath string) (CycleOutcome, error) {
	if l.IsHalted() {
		return CycleOutcome{Halted: true}, taskerr.New(taskerr.CategoryHalt, taskerr.CodeHalted,
			"execution halted", "reason", l.ReadStopReason())
	}

	var outcome CycleOutcome

	err := engine.Mutate(func(s *state.State) error {
		if s.Halt != nil && s.Halt.Requested {
			outcome.Halted = true
			return taskerr.New(taskerr.CategoryHalt, taskerr.CodeHalted, "execution halted", "reason", s.Halt.Reason)
		}

		if _, err := recovery.ReconcileOrphans(s, l); err != nil {
			return err
		}

		g, err := graph.Build(s.Tasks)
		if err != nil {
			return err
		}
		ready := append(s.ReadyTaskIDs(), g.ReadySet()...)
		sort.Strings(ready)
		if len(ready) > cfg.Execution.MaxParallelTasks {
			ready = ready[:cfg.Execution.MaxParallelTasks]
		}
		for _, id := range ready {
			if s.Tasks[id].Status == state.TaskReady {
				continue
			}
			if err := s.MarkReady(id); err != nil {
				return err
			}
		}
		if len(ready) == 0 {
			return nil
		}
		return s.OpenCheckpoint(ready)
	})
	if err != nil {
		return outcome, err
	}

	s, err := engine.Load()
	if err != nil {
		return outcome, err
	}
	if s.Checkpoint == nil {
		return outcome, nil
	}
	outcome.Batch = append([]string(nil), s.Checkpoint.Batch...)

	results := dispatchBatch(ctx, s, l, cfg, constraintsPath, outcome.Batch)

	outcome, err = ingestBatchResults(engine, l, outcome, results)
	if l.IsHalted() {
		outcome.Halted = true
	}
	return outcome, err
}

type taskDispatchResult struct {
	taskID string
	result *Result
	err    error
}

// dispatchBatch generates bundles and dispatches workers for every task in
// batch, bounded by MaxParallelTasks concurrent workers.
func dispatchBatch(ctx context.Context, s *state.State, l store.Layout, cfg *config.Config, constraintsPath string, batch []string) []taskDispatchResult {
	sem := make(chan struct{}, max(1, cfg.Execution.MaxParallelTasks))
	var wg sync.WaitGroup
	out := make([]taskDispatchResult, len(batch))

	for i, id := range batch {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			out[i] = dispatchOne(ctx, s, l, cfg, constraintsPath, id)
		}(i, id)
	}
	wg.Wait()
	return out
}

func dispatchOne(ctx context.Context, s *state.State, l store.Layout, cfg *config.Config, constraintsPath, id string) taskDispatchResult {
	t, ok := s.Tasks[id]
	if !ok {
		return taskDispatchResult{taskID: id, err: taskerr.New(taskerr.CategoryTask, taskerr.CodeUnknownID, "unknown task", "task", id)}
	}

	b, err := bundle.Generate(t, s.Tasks, l, constraintsPath)
	if err != nil {
		return taskDispatchResult{taskID: id, err: err}
	}
	if err := bundle.Write(b, l); err != nil {
		return taskDispatchResult{taskID: id, err: err}
	}

	// Integrity verification (§4.5): a dependency file that vanished or
	// changed since the dependency completed is fatal for this attempt.
	// Artifact drift (capability-map/physical-map/constraints changed) is
	// not fatal; the bundle is regenerated once and re-verified.
	drifts, err := bundle.Verify(b, l, constraintsPath)
	if err != nil {
		return taskDispatchResult{taskID: id, err: err}
	}
	if driftErr := bundle.FirstDriftError(id, drifts); driftErr != nil {
		if !isArtifactDriftOnly(drifts) {
			return taskDispatchResult{taskID: id, err: driftErr}
		}
		b, err = bundle.Generate(t, s.Tasks, l, constraintsPath)
		if err != nil {
			return taskDispatchResult{taskID: id, err: err}
		}
		if err := bundle.Write(b, l); err != nil {
			return taskDispatchResult{taskID: id, err: err}
		}
		drifts, err = bundle.Verify(b, l, constraintsPath)
		if err != nil {
			return taskDispatchResult{taskID: id, err: err}
		}
		if driftErr := bundle.FirstDriftError(id, drifts); driftErr != nil {
			return taskDispatchResult{taskID: id, err: driftErr}
		}
	}

	if _, err := Dispatch(ctx, cfg, l, id, l.BundlePath(id), cfg.Execution.ParseTaskTimeout()); err != nil {
		return taskDispatchResult{taskID: id, err: err}
	}

	res, err := LoadResult(l, id)
	if err != nil {
		return taskDispatchResult{taskID: id, err: err}
	}
	return taskDispatchResult{taskID: id, result: res}
}

// ingestBatchResults commits every dispatch outcome into state under a
// single mutation, records checkpoint results, and closes the checkpoint.
func ingestBatchResults(engine *state.Engine, l store.Layout, outcome CycleOutcome, results []taskDispatchResult) (CycleOutcome, error) {
	err := engine.Mutate(func(s *state.State) error {
		for _, r := range results {
			skipAttempt := r.err != nil && isUndispatchable(r.err)
			if err := startIfReady(s, r.taskID, skipAttempt); err != nil {
				return err
			}

			if r.err != nil {
				category := "execution"
				if te, ok := taskerr.As(r.err); ok {
					category = string(te.Category)
				}
				if category == string(taskerr.CategoryBundle) {
					// Bundle-integrity failures (§4.6 step 4) are reported
					// under the task-error category "dependency", not the
					// internal taskerr category that produced them.
					category = "dependency"
				}
				if err := s.FailTask(r.taskID, category, r.err.Error(), true); err != nil {
					return err
				}
				if err := s.RecordCheckpointResult(r.taskID, state.CheckpointFailedResult); err != nil {
					return err
				}
				outcome.Failed = append(outcome.Failed, r.taskID)
				continue
			}

			if err := Apply(s, r.result); err != nil {
				return err
			}
			checkpointResult := state.CheckpointSuccess
			if r.result.Status == "failed" {
				checkpointResult = state.CheckpointFailedResult
				outcome.Failed = append(outcome.Failed, r.taskID)
			} else {
				outcome.Succeeded = append(outcome.Succeeded, r.taskID)
			}
			if err := s.RecordCheckpointResult(r.taskID, checkpointResult); err != nil {
				return err
			}
		}
		return s.CloseCheckpoint()
	})
	return outcome, err
}

func startIfReady(s *state.State, id string, skipAttemptIncrement bool) error {
	t, ok := s.Tasks[id]
	if !ok {
		return taskerr.New(taskerr.CategoryTask, taskerr.CodeUnknownID, "unknown task", "task", id)
	}
	if t.Status == state.TaskReady {
		return s.StartTask(id, skipAttemptIncrement)
	}
	return nil
}

// isArtifactDriftOnly reports whether every drift found is a non-fatal
// artifact drift, meaning the bundle is worth regenerating once rather than
// failing the attempt outright (§4.5).
func isArtifactDriftOnly(drifts []bundle.Drift) bool {
	for _, d := range drifts {
		if d.Code != taskerr.CodeArtifactDrift {
			return false
		}
	}
	return len(drifts) > 0
}

// isUndispatchable reports whether err came from bundle generation/integrity
// checking rather than the worker process itself, meaning no attempt was
// actually spent (the resolved Open Question on DEPENDENCY_MISSING/DEPENDENCY_CHANGED).
func isUndispatchable(err error) bool {
	te, ok := taskerr.As(err)
	if !ok || te.Category != taskerr.CategoryBundle {
		return false
	}
	switch te.Code {
	case taskerr.CodeDependencyMissing, taskerr.CodeDependencyChanged, taskerr.CodeArtifactDrift:
		return true
	default:
		return false
	}
}
