package state

import (
	"time"

	"github.com/Dowwie/tasker/internal/store"
	"github.com/Dowwie/tasker/internal/taskerr"
)

// Engine loads, mutates, and persists the state document under a Layout,
// serializing every mutation behind the storage lock (§4.2).
type Engine struct {
	layout      store.Layout
	lockTimeout time.Duration
}

// NewEngine returns an Engine bound to layout, using timeout for the storage lock.
func NewEngine(layout store.Layout, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = store.DefaultLockTimeout
	}
	return &Engine{layout: layout, lockTimeout: timeout}
}

// Init writes a fresh state document, failing if one already exists.
func (e *Engine) Init(targetDir string) error {
	return store.WithLock(e.layout.StatePath, e.lockTimeout, func() error {
		if store.Exists(e.layout.StatePath) {
			return taskerr.New(taskerr.CategoryState, taskerr.CodeInvalidTransition,
				"state already initialized", "path", e.layout.StatePath)
		}
		s := New(targetDir)
		s.Events = append(s.Events, newEvent("state_initialized", map[string]any{"target_dir": targetDir}))
		return store.WriteJSON(e.layout.StatePath, s)
	})
}

// Load reads the state document without acquiring a lock. Callers that mutate
// must use Mutate instead, which takes the lock around load-modify-save.
func (e *Engine) Load() (*State, error) {
	if !store.Exists(e.layout.StatePath) {
		return nil, taskerr.New(taskerr.CategoryState, taskerr.CodeNotExists,
			"state document does not exist", "path", e.layout.StatePath)
	}
	var s State
	if err := store.ReadJSON(e.layout.StatePath, &s); err != nil {
		return nil, taskerr.Wrap(taskerr.CategoryState, taskerr.CodeCorrupt, err, "path", e.layout.StatePath)
	}
	if s.Tasks == nil {
		s.Tasks = make(map[string]*Task)
	}
	return &s, nil
}

// Mutate runs fn against the loaded state under the storage lock, validating
// invariants and persisting the result if fn returns nil.
func (e *Engine) Mutate(fn func(s *State) error) error {
	return store.WithLock(e.layout.StatePath, e.lockTimeout, func() error {
		s, err := e.Load()
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		if err := Validate(s); err != nil {
			return err
		}
		return store.WriteJSON(e.layout.StatePath, s)
	})
}

// View runs fn against the loaded state under a shared read lock, for
// read-only queries that must not race a concurrent mutation.
func (e *Engine) View(fn func(s *State) error) error {
	return store.WithReadLock(e.layout.StatePath, e.lockTimeout, func() error {
		s, err := e.Load()
		if err != nil {
			return err
		}
		return fn(s)
	})
}

func newEvent(typ string, details map[string]any) Event {
	return Event{Timestamp: time.Now().UTC(), Type: typ, Details: details}
}

// recordEvent appends an event entry to s, per the append-only event log
// convention (§3/§4.1).
func recordEvent(s *State, typ string, details map[string]any) {
	s.Events = append(s.Events, newEvent(typ, details))
}
