// Package state holds the in-memory state document (C2): phases, tasks, the
// append-only event log, and aggregate counters. Every mutating method
// records an event for the change it makes; Engine.Mutate validates
// invariants I-1..I-9 before committing (§4.2); side-effect-free query methods may be called
// without holding the storage lock.
package state

import "time"

// SchemaVersion is the current on-disk schema version written by Init.
const SchemaVersion = "1"

// TaskStatus is one of the lifecycle states from §3.
type TaskStatus string

const (
	TaskPending  TaskStatus = "pending"
	TaskReady    TaskStatus = "ready"
	TaskRunning  TaskStatus = "running"
	TaskComplete TaskStatus = "complete"
	TaskFailed   TaskStatus = "failed"
	TaskBlocked  TaskStatus = "blocked"
	TaskSkipped  TaskStatus = "skipped"
)

// Phase is one of the canonical phase tags from §4.4.
type Phase string

const (
	PhaseIngestion  Phase = "ingestion"
	PhaseSpecReview Phase = "spec_review"
	PhaseLogical    Phase = "logical"
	PhasePhysical   Phase = "physical"
	PhaseDefinition Phase = "definition"
	PhaseValidation Phase = "validation"
	PhaseSequencing Phase = "sequencing"
	PhaseReady      Phase = "ready"
	PhaseExecuting  Phase = "executing"
	PhaseComplete   Phase = "complete"
)

// CanonicalPhaseOrder is the ordered phase sequence from §4.4.
var CanonicalPhaseOrder = []Phase{
	PhaseIngestion, PhaseSpecReview, PhaseLogical, PhasePhysical,
	PhaseDefinition, PhaseValidation, PhaseSequencing, PhaseReady,
	PhaseExecuting, PhaseComplete,
}

// PhaseState is the { current, completed } phase block from §3.
type PhaseState struct {
	Current   Phase   `json:"current"`
	Completed []Phase `json:"completed"`
}

// Counters holds the execution aggregate counters from §3.
type Counters struct {
	TotalTokens    int64   `json:"total_tokens"`
	CumulativeCost float64 `json:"cumulative_cost"`
	Completed      int     `json:"completed"`
	Failed         int     `json:"failed"`
	Skipped        int     `json:"skipped"`
}

// Halt is the optional halt block from §3.
type Halt struct {
	Requested   bool      `json:"requested"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at,omitempty"`
	RequestedBy string    `json:"requested_by,omitempty"`
}

// FileEntry is one entry of a task's declared files (§6).
type FileEntry struct {
	Path    string `json:"path"`
	Action  string `json:"action"`
	Layer   string `json:"layer,omitempty"`
	Purpose string `json:"purpose,omitempty"`
}

// AcceptanceCriterion is one criterion entry from a task definition (§6).
type AcceptanceCriterion struct {
	Criterion    string `json:"criterion"`
	Verification string `json:"verification"`
}

// CriterionScore is one scored criterion in a Verification record (§3).
type CriterionScore struct {
	Name     string `json:"name"`
	Score    string `json:"score"` // PASS | PARTIAL | FAIL
	Evidence string `json:"evidence,omitempty"`
}

// QualityScore holds the quality sub-scores of a Verification record (§3).
type QualityScore struct {
	Types    string `json:"types"`
	Docs     string `json:"docs"`
	Patterns string `json:"patterns"`
	Errors   string `json:"errors"`
}

// TestScore holds the test sub-scores of a Verification record (§3).
type TestScore struct {
	Coverage   string `json:"coverage"`
	Assertions string `json:"assertions"`
	EdgeCases  string `json:"edge_cases"`
}

// Verification is the structured verdict attached to a task attempt (§3).
type Verification struct {
	Verdict        string           `json:"verdict"`       // PASS | FAIL | CONDITIONAL
	Recommendation string           `json:"recommendation"` // PROCEED | BLOCK
	Criteria       []CriterionScore `json:"criteria"`
	Quality        QualityScore     `json:"quality"`
	Tests          TestScore        `json:"tests"`
	VerifiedAt     time.Time        `json:"verified_at"`
}

// TaskError captures a failed attempt's error payload (§3/§6).
type TaskError struct {
	Category  string `json:"category"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Task is a single node of the task graph (§3).
type Task struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	Phase           int                   `json:"phase"`
	Status          TaskStatus            `json:"status"`
	DependsOn       []string              `json:"depends_on"`
	Blocks          []string              `json:"blocks"`
	SteelThread     bool                  `json:"steel_thread"`
	Behaviors       []string              `json:"behaviors,omitempty"`
	Files           []FileEntry           `json:"files,omitempty"`
	AcceptanceCrit  []AcceptanceCriterion `json:"acceptance_criteria,omitempty"`
	Context         string                `json:"context,omitempty"`
	Attempts        int                   `json:"attempts"`
	StartedAt       *time.Time            `json:"started_at,omitempty"`
	CompletedAt     *time.Time            `json:"completed_at,omitempty"`
	DurationSeconds float64               `json:"duration_seconds,omitempty"`
	FilesCreated    []string              `json:"files_created,omitempty"`
	FilesModified   []string              `json:"files_modified,omitempty"`
	Error           string                `json:"error,omitempty"`
	ErrorCategory   string                `json:"error_category,omitempty"`
	Retryable       bool                  `json:"retryable,omitempty"`
	Verification    *Verification         `json:"verification,omitempty"`
	File            string                `json:"file,omitempty"`
}

// CheckpointTaskResult is the per-task outcome recorded on a checkpoint (§3).
type CheckpointTaskResult string

const (
	CheckpointPendingDispatch CheckpointTaskResult = "pending-dispatch"
	CheckpointSuccess         CheckpointTaskResult = "success"
	CheckpointFailedResult    CheckpointTaskResult = "failed"
	CheckpointOrphaned        CheckpointTaskResult = "orphaned"
)

// Checkpoint is the single active batch-reservation record from §3.
type Checkpoint struct {
	Batch         []string                        `json:"batch"`
	CreatedAt     time.Time                        `json:"created_at"`
	PerTaskResult map[string]CheckpointTaskResult `json:"per_task_result"`
}

// Event is one append-only event-log entry (§3).
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Details   map[string]any `json:"details,omitempty"`
}

// State is the root state document (§3).
type State struct {
	SchemaVersion string               `json:"schema_version"`
	TargetDir     string               `json:"target_dir"`
	Phase         PhaseState           `json:"phase"`
	Tasks         map[string]*Task     `json:"tasks"`
	Counters      Counters             `json:"counters"`
	Halt          *Halt                `json:"halt,omitempty"`
	Checkpoint    *Checkpoint          `json:"checkpoint,omitempty"`
	Events        []Event              `json:"events"`
	Artifacts     map[string]any       `json:"artifacts,omitempty"`
}

// New returns a freshly initialized state document for targetDir.
func New(targetDir string) *State {
	return &State{
		SchemaVersion: SchemaVersion,
		TargetDir:     targetDir,
		Phase:         PhaseState{Current: PhaseIngestion, Completed: nil},
		Tasks:         make(map[string]*Task),
		Events:        nil,
		Artifacts:     make(map[string]any),
	}
}
