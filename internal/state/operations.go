package state

import (
	"fmt"
	"time"

	"github.com/Dowwie/tasker/internal/taskerr"
)

// AddTask registers a new task definition, leaving it pending.
func (s *State) AddTask(t *Task) error {
	if t.ID == "" {
		return taskerr.New(taskerr.CategoryTask, taskerr.CodeUnknownID, "task id is empty")
	}
	if _, exists := s.Tasks[t.ID]; exists {
		return taskerr.New(taskerr.CategoryTask, taskerr.CodeInvalidTransition,
			"task already registered", "task", t.ID)
	}
	if t.Status == "" {
		t.Status = TaskPending
	}
	s.Tasks[t.ID] = t
	recordEvent(s, "task_loaded", map[string]any{"task": t.ID, "phase": t.Phase})
	return nil
}

func (s *State) getTask(id string) (*Task, error) {
	t, ok := s.Tasks[id]
	if !ok {
		return nil, taskerr.New(taskerr.CategoryTask, taskerr.CodeUnknownID,
			"unknown task", "task", id)
	}
	return t, nil
}

// MarkReady transitions a pending task to ready once its dependencies clear.
func (s *State) MarkReady(id string) error {
	t, err := s.getTask(id)
	if err != nil {
		return err
	}
	if t.Status != TaskPending && t.Status != TaskBlocked {
		return taskerr.New(taskerr.CategoryTask, taskerr.CodeInvalidTransition,
			"task is not pending or blocked", "task", id, "status", string(t.Status))
	}
	t.Status = TaskReady
	recordEvent(s, "task_ready", map[string]any{"task": id})
	return nil
}

// MarkBlocked transitions a task to blocked (a dependency failed or was skipped
// in a way that cannot satisfy it).
func (s *State) MarkBlocked(id, reason string) error {
	t, err := s.getTask(id)
	if err != nil {
		return err
	}
	t.Status = TaskBlocked
	recordEvent(s, "task_blocked", map[string]any{"task": id, "reason": reason})
	return nil
}

// StartTask transitions a ready (or failed) task to running, incrementing its
// attempt counter and stamping started_at. When skipAttemptIncrement is set
// the attempt counter is left unchanged; the supervisor sets it for a task
// whose bundle failed integrity verification before any worker ran.
func (s *State) StartTask(id string, skipAttemptIncrement bool) error {
	t, err := s.getTask(id)
	if err != nil {
		return err
	}
	if t.Status != TaskReady && t.Status != TaskFailed {
		return taskerr.New(taskerr.CategoryTask, taskerr.CodeInvalidTransition,
			"task is not ready or retryable", "task", id, "status", string(t.Status))
	}
	now := time.Now().UTC()
	t.Status = TaskRunning
	t.StartedAt = &now
	t.CompletedAt = nil
	t.Error = ""
	t.ErrorCategory = ""
	if !skipAttemptIncrement {
		t.Attempts++
	}
	recordEvent(s, "task_started", map[string]any{"task": id, "attempt": t.Attempts})
	return nil
}

// CompleteTask transitions a running task to complete, recording duration,
// touched files, and an optional verification verdict.
func (s *State) CompleteTask(id string, filesCreated, filesModified []string, verification *Verification) error {
	t, err := s.getTask(id)
	if err != nil {
		return err
	}
	if t.Status != TaskRunning {
		return taskerr.New(taskerr.CategoryTask, taskerr.CodeInvalidTransition,
			"task is not running", "task", id, "status", string(t.Status))
	}
	now := time.Now().UTC()
	t.Status = TaskComplete
	t.CompletedAt = &now
	if t.StartedAt != nil {
		t.DurationSeconds = now.Sub(*t.StartedAt).Seconds()
	}
	t.FilesCreated = filesCreated
	t.FilesModified = filesModified
	t.Verification = verification
	s.Counters.Completed++
	recordEvent(s, "task_completed", map[string]any{"task": id, "duration_seconds": t.DurationSeconds})
	return nil
}

// FailTask transitions a running task to failed, recording the error and
// whether it is retryable.
func (s *State) FailTask(id, category, message string, retryable bool) error {
	t, err := s.getTask(id)
	if err != nil {
		return err
	}
	if t.Status != TaskRunning {
		return taskerr.New(taskerr.CategoryTask, taskerr.CodeInvalidTransition,
			"task is not running", "task", id, "status", string(t.Status))
	}
	t.Status = TaskFailed
	t.Error = message
	t.ErrorCategory = category
	t.Retryable = retryable
	s.Counters.Failed++
	recordEvent(s, "task_failed", map[string]any{"task": id, "category": category, "retryable": retryable})
	return nil
}

// SkipTask marks a task as deliberately skipped; dependents treat a skipped
// dependency as satisfying their completion-order requirement.
func (s *State) SkipTask(id, reason string) error {
	t, err := s.getTask(id)
	if err != nil {
		return err
	}
	if t.Status == TaskComplete {
		return taskerr.New(taskerr.CategoryTask, taskerr.CodeInvalidTransition,
			"cannot skip a completed task", "task", id)
	}
	t.Status = TaskSkipped
	s.Counters.Skipped++
	recordEvent(s, "task_skipped", map[string]any{"task": id, "reason": reason})
	return nil
}

// RetryTask resets a failed, retryable task back to pending, clearing its
// start and completion times.
func (s *State) RetryTask(id string) error {
	t, err := s.getTask(id)
	if err != nil {
		return err
	}
	if t.Status != TaskFailed {
		return taskerr.New(taskerr.CategoryTask, taskerr.CodeInvalidTransition,
			"task is not failed", "task", id, "status", string(t.Status))
	}
	if !t.Retryable {
		return taskerr.New(taskerr.CategoryTask, taskerr.CodeInvalidTransition,
			"task is not marked retryable", "task", id)
	}
	s.Counters.Failed--
	t.Status = TaskPending
	t.StartedAt = nil
	t.CompletedAt = nil
	recordEvent(s, "task_retried", map[string]any{"task": id, "attempts": t.Attempts})
	return nil
}

// AddTokensAndCost accumulates per-attempt token/cost usage into the running totals.
func (s *State) AddTokensAndCost(tokens int64, cost float64) {
	s.Counters.TotalTokens += tokens
	s.Counters.CumulativeCost += cost
	recordEvent(s, "tokens_logged", map[string]any{"tokens": tokens, "cost": cost})
}

// RecordVerificationEvent appends a verification_recorded event for a task
// whose criteria were scored against the calibration ledger. The ledger
// entry itself lives in the separate sqlite-backed calibration store; this
// only notes the event in the state document's own audit trail.
func (s *State) RecordVerificationEvent(id, verdict, recommendation, outcome string) error {
	if _, err := s.getTask(id); err != nil {
		return err
	}
	recordEvent(s, "verification_recorded", map[string]any{
		"task": id, "verdict": verdict, "recommendation": recommendation, "outcome": outcome,
	})
	return nil
}

// AdvancePhase moves phase.current forward, appending the previous phase to
// phase.completed. Schema/gate checks are performed by the phase package
// before calling this; this method only performs the mechanical transition.
func (s *State) AdvancePhase(next Phase) error {
	s.Phase.Completed = append(s.Phase.Completed, s.Phase.Current)
	prev := s.Phase.Current
	s.Phase.Current = next
	recordEvent(s, "phase_advanced", map[string]any{"from": string(prev), "to": string(next)})
	return nil
}

// RequestHalt sets the halt block, recording who asked and why.
func (s *State) RequestHalt(reason, requestedBy string) error {
	s.Halt = &Halt{Requested: true, Reason: reason, RequestedAt: time.Now().UTC(), RequestedBy: requestedBy}
	recordEvent(s, "halt_requested", map[string]any{"reason": reason, "requested_by": requestedBy})
	return nil
}

// ResumeFromHalt clears the halt block.
func (s *State) ResumeFromHalt() error {
	if s.Halt == nil || !s.Halt.Requested {
		return taskerr.New(taskerr.CategoryHalt, taskerr.CodeInvalidTransition, "engine is not halted")
	}
	s.Halt = nil
	recordEvent(s, "execution_resumed", nil)
	return nil
}

// OpenCheckpoint reserves batch as the in-flight set, failing if one is
// already open (only one checkpoint may be active at a time, §3).
func (s *State) OpenCheckpoint(batch []string) error {
	if s.Checkpoint != nil {
		return taskerr.New(taskerr.CategoryState, taskerr.CodeAlreadyRunning,
			"a checkpoint is already active", "batch", fmt.Sprint(s.Checkpoint.Batch))
	}
	perTask := make(map[string]CheckpointTaskResult, len(batch))
	for _, id := range batch {
		perTask[id] = CheckpointPendingDispatch
	}
	s.Checkpoint = &Checkpoint{Batch: batch, CreatedAt: time.Now().UTC(), PerTaskResult: perTask}
	recordEvent(s, "checkpoint_created", map[string]any{"batch": batch})
	return nil
}

// RecordCheckpointResult updates one task's outcome within the active checkpoint.
func (s *State) RecordCheckpointResult(id string, result CheckpointTaskResult) error {
	if s.Checkpoint == nil {
		return taskerr.New(taskerr.CategoryState, taskerr.CodeInvalidTransition, "no active checkpoint")
	}
	if _, ok := s.Checkpoint.PerTaskResult[id]; !ok {
		return taskerr.New(taskerr.CategoryTask, taskerr.CodeUnknownID,
			"task is not part of the active checkpoint batch", "task", id)
	}
	s.Checkpoint.PerTaskResult[id] = result
	recordEvent(s, "checkpoint_updated", map[string]any{"task": id, "result": string(result)})
	return nil
}

// CloseCheckpoint clears the active checkpoint once every task in its batch
// has reached a terminal result, recording checkpoint_completed.
func (s *State) CloseCheckpoint() error {
	if s.Checkpoint == nil {
		return taskerr.New(taskerr.CategoryState, taskerr.CodeInvalidTransition, "no active checkpoint")
	}
	for id, r := range s.Checkpoint.PerTaskResult {
		if r == CheckpointPendingDispatch {
			return taskerr.New(taskerr.CategoryState, taskerr.CodeInvalidTransition,
				"checkpoint still has a pending-dispatch task", "task", id)
		}
	}
	recordEvent(s, "checkpoint_completed", map[string]any{"batch": s.Checkpoint.Batch})
	s.Checkpoint = nil
	return nil
}

// ClearCheckpoint discards the active checkpoint once orphan reconciliation
// has forced every remaining entry to a terminal result (§4.8), recording
// checkpoint_cleared rather than checkpoint_completed since this batch never
// reached a normal dispatch-and-ingest close.
func (s *State) ClearCheckpoint() error {
	if s.Checkpoint == nil {
		return taskerr.New(taskerr.CategoryState, taskerr.CodeInvalidTransition, "no active checkpoint")
	}
	for id, r := range s.Checkpoint.PerTaskResult {
		if r == CheckpointPendingDispatch {
			return taskerr.New(taskerr.CategoryState, taskerr.CodeInvalidTransition,
				"checkpoint still has a pending-dispatch task", "task", id)
		}
	}
	recordEvent(s, "checkpoint_cleared", map[string]any{"batch": s.Checkpoint.Batch})
	s.Checkpoint = nil
	return nil
}
