// Package graph implements the task dependency graph (C3): loading task
// definitions from disk, cycle detection, topological ordering, ready-set
// computation, and steel-thread subgraph validation (§4.3).
package graph

import (
	"sort"

	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/taskerr"
)

// Graph is an adjacency-list view over a set of tasks, built from the
// authoritative state document.
type Graph struct {
	nodes map[string]*state.Task
	// edges[a] = tasks that depend on a (a blocks them)
	edges map[string][]string
}

// Build constructs a Graph from tasks, validating that every depends_on
// reference resolves to a known task id.
func Build(tasks map[string]*state.Task) (*Graph, error) {
	g := &Graph{nodes: tasks, edges: make(map[string][]string)}
	ids := sortedIDs(tasks)
	for _, id := range ids {
		t := tasks[id]
		for _, dep := range t.DependsOn {
			if _, ok := tasks[dep]; !ok {
				return nil, taskerr.New(taskerr.CategoryGraph, taskerr.CodeMissingDependency,
					"task depends on an unknown task", "task", id, "depends_on", dep)
			}
			g.edges[dep] = append(g.edges[dep], id)
		}
	}
	for _, deps := range g.edges {
		sort.Strings(deps)
	}
	return g, nil
}

func sortedIDs(tasks map[string]*state.Task) []string {
	ids := make([]string, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DetectCycle runs DFS with a recursion stack over the dependency edges,
// returning the first cycle found as an ordered slice of task ids, or nil if
// the graph is acyclic. Node iteration is sorted so the result is
// deterministic across runs (§4.3).
func (g *Graph) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		stack = append(stack, id)

		deps := g.nodes[id].DependsOn
		sorted := append([]string(nil), deps...)
		sort.Strings(sorted)

		for _, dep := range sorted {
			switch color[dep] {
			case white:
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			case gray:
				// found a back edge to dep; extract the cycle from stack
				for i, s := range stack {
					if s == dep {
						cyc := append([]string(nil), stack[i:]...)
						return append(cyc, dep)
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, id := range sortedIDs(g.nodes) {
		if color[id] == white {
			if cyc := visit(id); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

// TopologicalOrder runs Kahn's algorithm over the dependency edges, breaking
// ties by task id for a deterministic result. Returns a graph error if a
// cycle is present.
func (g *Graph) TopologicalOrder() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	for id, t := range g.nodes {
		indegree[id] = len(t.DependsOn)
	}

	var ready []string
	for _, id := range sortedIDs(g.nodes) {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		for _, next := range g.edges[id] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(order) != len(g.nodes) {
		if cyc := g.DetectCycle(); cyc != nil {
			return nil, taskerr.New(taskerr.CategoryGraph, taskerr.CodeCycleDetected,
				"dependency cycle detected", "cycle", joinIDs(cyc))
		}
		return nil, taskerr.New(taskerr.CategoryGraph, taskerr.CodeCycleDetected,
			"topological sort could not order all tasks")
	}
	return order, nil
}

func joinIDs(ids []string) string {
	out := ids[0]
	for _, id := range ids[1:] {
		out += "->" + id
	}
	return out
}

// ReadySet returns the ids of every task whose dependencies are all complete
// or skipped and which is itself pending or blocked, sorted. Tasks already in
// ready status are not included.
func (g *Graph) ReadySet() []string {
	var ready []string
	for _, id := range sortedIDs(g.nodes) {
		t := g.nodes[id]
		if t.Status != state.TaskPending && t.Status != state.TaskBlocked {
			continue
		}
		if g.dependenciesSatisfied(t) {
			ready = append(ready, id)
		}
	}
	return ready
}

func (g *Graph) dependenciesSatisfied(t *state.Task) bool {
	for _, dep := range t.DependsOn {
		d, ok := g.nodes[dep]
		if !ok {
			return false
		}
		if d.Status != state.TaskComplete && d.Status != state.TaskSkipped {
			return false
		}
	}
	return true
}

// ValidateSteelThread checks that the subgraph of tasks flagged SteelThread
// is itself closed under dependency: a steel-thread task may only depend on
// other steel-thread tasks, per §4.3's reduced critical-path validation.
func (g *Graph) ValidateSteelThread() error {
	for _, id := range sortedIDs(g.nodes) {
		t := g.nodes[id]
		if !t.SteelThread {
			continue
		}
		for _, dep := range t.DependsOn {
			d, ok := g.nodes[dep]
			if !ok || !d.SteelThread {
				return taskerr.New(taskerr.CategoryGraph, taskerr.CodeSteelThreadBroken,
					"steel-thread task depends on a non-steel-thread task",
					"task", id, "depends_on", dep)
			}
		}
	}
	return nil
}
