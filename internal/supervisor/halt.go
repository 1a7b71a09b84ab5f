package supervisor

import (
	"os"

	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
	"github.com/Dowwie/tasker/internal/taskerr"
)

// RequestHalt writes the STOP sentinel file (its body is the halt reason,
// per the supplemented STOP-file-body convention) and records the halt in
// state, so both the file-presence check and the state-document view agree.
func RequestHalt(engine *state.Engine, l store.Layout, reason, requestedBy string) error {
	if err := store.WriteBody(l.StopPath, reason); err != nil {
		return taskerr.Wrap(taskerr.CategoryIO, taskerr.CodeWriteFail, err, "path", l.StopPath)
	}
	return engine.Mutate(func(s *state.State) error {
		return s.RequestHalt(reason, requestedBy)
	})
}

// Resume removes the STOP sentinel and clears the halt block in state.
func Resume(engine *state.Engine, l store.Layout) error {
	if store.Exists(l.StopPath) {
		if err := os.Remove(l.StopPath); err != nil {
			return taskerr.Wrap(taskerr.CategoryIO, taskerr.CodeWriteFail, err, "path", l.StopPath)
		}
	}
	return engine.Mutate(func(s *state.State) error {
		if s.Halt == nil || !s.Halt.Requested {
			return nil
		}
		return s.ResumeFromHalt()
	})
}

// CheckHalt reports whether execution is currently halted, and why.
func CheckHalt(l store.Layout) (bool, string) {
	if !l.IsHalted() {
		return false, ""
	}
	return true, l.ReadStopReason()
}
