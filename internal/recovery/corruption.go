package recovery

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Dowwie/tasker/internal/graph"
	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
	"github.com/Dowwie/tasker/internal/taskerr"
)

// RecoverCorruptState handles a state document that failed to parse
// (§4.8): the original file is preserved under a timestamped backup name,
// whatever fields can still be salvaged from a partial parse are kept, and
// any task missing from the salvage is reseeded from its definition file
// under tasksDir. A state_recovered event records exactly what could not be
// recovered, under its data_lost detail.
func RecoverCorruptState(statePath, tasksDir string) (*state.State, error) {
	raw, err := os.ReadFile(statePath)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.CategoryIO, taskerr.CodeReadFail, err, "path", statePath)
	}

	backupPath := fmt.Sprintf("%s.corrupted.%s", statePath, time.Now().UTC().Format("20060102T150405"))
	if err := store.AtomicWriteFile(backupPath, raw, 0644); err != nil {
		return nil, taskerr.Wrap(taskerr.CategoryIO, taskerr.CodeWriteFail, err, "path", backupPath)
	}

	salvaged := salvagePartial(raw)

	seeded, err := graph.LoadTaskDefinitions(tasksDir)
	if err != nil {
		return nil, err
	}

	lostFields := []string{}
	for id, t := range seeded {
		if _, ok := salvaged.Tasks[id]; !ok {
			salvaged.Tasks[id] = t
			lostFields = append(lostFields, id)
		}
	}

	recomputeCounters(salvaged)

	salvaged.Events = append(salvaged.Events, state.Event{
		Timestamp: time.Now().UTC(),
		Type:      "state_recovered",
		Details: map[string]any{
			"backup_path":    backupPath,
			"data_lost":      lostFields,
			"reseeded_tasks": lostFields,
		},
	})

	return salvaged, nil
}

// recomputeCounters retallies Completed/Failed/Skipped from the salvaged
// tasks' statuses so a reseeded document cannot disagree with I-3's
// counter-consistency invariant on the next mutation.
func recomputeCounters(s *state.State) {
	s.Counters.Completed = 0
	s.Counters.Failed = 0
	s.Counters.Skipped = 0
	for _, t := range s.Tasks {
		switch t.Status {
		case state.TaskComplete:
			s.Counters.Completed++
		case state.TaskFailed:
			s.Counters.Failed++
		case state.TaskSkipped:
			s.Counters.Skipped++
		}
	}
}

// salvagePartial attempts to decode as much of a corrupt JSON document as
// possible, falling back to an empty state document if nothing can be
// salvaged at all.
func salvagePartial(raw []byte) *state.State {
	var s state.State
	if err := json.Unmarshal(raw, &s); err == nil {
		if s.Tasks == nil {
			s.Tasks = make(map[string]*state.Task)
		}
		return &s
	}

	// Best-effort: decode the document as a map of top-level fields and keep
	// each known field that decodes cleanly. A document that is not valid
	// JSON at all yields a fresh state.
	fresh := state.New("")
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fresh
	}
	if v, ok := generic["target_dir"]; ok {
		_ = json.Unmarshal(v, &fresh.TargetDir)
	}
	if v, ok := generic["phase"]; ok {
		_ = json.Unmarshal(v, &fresh.Phase)
	}
	if v, ok := generic["tasks"]; ok {
		var tasks map[string]*state.Task
		if err := json.Unmarshal(v, &tasks); err == nil {
			fresh.Tasks = tasks
		}
	}
	if v, ok := generic["counters"]; ok {
		_ = json.Unmarshal(v, &fresh.Counters)
	}
	if v, ok := generic["events"]; ok {
		_ = json.Unmarshal(v, &fresh.Events)
	}
	return fresh
}
