package supervisor

import (
	"time"

	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
	"github.com/Dowwie/tasker/internal/taskerr"
)

// Result mirrors the worker result-file schema (§6): the sole artifact a
// worker process produces to report what it did.
type Result struct {
	TaskID    string    `json:"task_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"` // success | failed
	StartedAt time.Time `json:"started_at"`
	Completed time.Time `json:"completed_at"`
	Files     struct {
		Created  []string `json:"created"`
		Modified []string `json:"modified"`
	} `json:"files"`
	Verification *state.Verification `json:"verification,omitempty"`
	Error        *state.TaskError    `json:"error,omitempty"`
	Notes        string               `json:"notes,omitempty"`
}

// LoadResult reads and parses the worker result file for taskID.
func LoadResult(l store.Layout, taskID string) (*Result, error) {
	path := l.ResultPath(taskID)
	var r Result
	if err := store.ReadJSON(path, &r); err != nil {
		return nil, taskerr.Wrap(taskerr.CategoryExecution, taskerr.CodeReadFail, err, "path", path)
	}
	return &r, nil
}

// Apply commits a worker result into the state document by invoking the
// matching state.Engine operation: CompleteTask on success, FailTask on
// failure.
func Apply(s *state.State, r *Result) error {
	switch r.Status {
	case "success":
		return s.CompleteTask(r.TaskID, r.Files.Created, r.Files.Modified, r.Verification)
	case "failed":
		category, message, retryable := "execution", "worker reported failure", false
		if r.Error != nil {
			category = r.Error.Category
			message = r.Error.Message
			retryable = r.Error.Retryable
		}
		return s.FailTask(r.TaskID, category, message, retryable)
	default:
		return taskerr.New(taskerr.CategoryExecution, taskerr.CodeWorkerFailed,
			"worker result has an unrecognized status", "task", r.TaskID, "status", r.Status)
	}
}
