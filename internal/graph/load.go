package graph

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Dowwie/tasker/internal/schema"
	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
	"github.com/Dowwie/tasker/internal/taskerr"
)

// LoadTaskDefinitions reads every *.json file under dir, schema-validates
// each against the task-definition schema, and returns the parsed tasks
// keyed by id (§4.4, §6).
func LoadTaskDefinitions(dir string) (map[string]*state.Task, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*state.Task{}, nil
		}
		return nil, taskerr.Wrap(taskerr.CategoryIO, taskerr.CodeReadFail, err, "dir", dir)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	tasks := make(map[string]*state.Task, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := schema.ValidateFile(schema.TaskDefinition, path); err != nil {
			return nil, err
		}
		var t state.Task
		if err := store.ReadJSON(path, &t); err != nil {
			return nil, taskerr.Wrap(taskerr.CategoryIO, taskerr.CodeReadFail, err, "path", path)
		}
		if t.Status == "" {
			t.Status = state.TaskPending
		}
		t.File = path
		tasks[t.ID] = &t
	}
	return tasks, nil
}
