// Package supervisor runs the batch execution cycle (C6): selecting a ready
// batch, dispatching each task's bundle to an external worker process, and
// ingesting the worker's result file (§4.6). The cycle takes no file
// snapshots and rolls nothing back.
//
// The worker contract is deliberately opaque: the supervisor invokes a
// single external process per task, passing the bundle path as its sole
// argument, and the process's only commit boundary is writing a result file
// next to the bundle. The supervisor never talks to a worker in-process.
package supervisor

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"github.com/Dowwie/tasker/internal/config"
	"github.com/Dowwie/tasker/internal/schema"
	"github.com/Dowwie/tasker/internal/store"
	"github.com/Dowwie/tasker/internal/taskerr"
)

// DispatchResult is what a single worker invocation produced.
type DispatchResult struct {
	TaskID string
	// DispatchID correlates this invocation's stdout/stderr/exit code across
	// logs and reports, independent of retry attempt number.
	DispatchID string
	ExitCode   int
	Stdout     string
	Stderr     string
	// ResultPath is populated only if the worker wrote a result file; its
	// absence (with a non-error exit code) is itself a WORKER_MISSING_RESULT
	// failure, since the result file is the sole commit boundary.
	ResultPath string
}

// Dispatch runs the configured worker command against bundlePath, bounded by
// timeout, and confirms the worker left a result file behind.
func Dispatch(ctx context.Context, cfg *config.Config, l store.Layout, taskID, bundlePath string, timeout time.Duration) (*DispatchResult, error) {
	if len(cfg.Worker.Command) == 0 {
		return nil, taskerr.New(taskerr.CategoryExecution, taskerr.CodeWorkerFailed,
			"no worker command configured", "task", taskID)
	}

	dispatchID := uuid.New().String()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string(nil), cfg.Worker.Command[1:]...), bundlePath)
	cmd := exec.CommandContext(runCtx, cfg.Worker.Command[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	res := &DispatchResult{
		TaskID:     taskID,
		DispatchID: dispatchID,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	resultPath := l.ResultPath(taskID)
	if store.Exists(resultPath) {
		res.ResultPath = resultPath
	}

	if runErr != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return res, taskerr.New(taskerr.CategoryExecution, taskerr.CodeWorkerFailed,
				"worker process timed out", "task", taskID, "timeout", timeout.String())
		}
		return res, taskerr.Wrap(taskerr.CategoryExecution, taskerr.CodeWorkerFailed, runErr,
			"task", taskID, "stderr", stderr.String())
	}

	if res.ResultPath == "" {
		return res, taskerr.New(taskerr.CategoryExecution, taskerr.CodeWorkerMissingResult,
			"worker exited without writing a result file", "task", taskID)
	}

	if err := schema.ValidateFile(schema.Result, res.ResultPath); err != nil {
		return res, err
	}

	return res, nil
}
