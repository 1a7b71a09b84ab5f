package phase

import (
	"sort"

	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
	"github.com/Dowwie/tasker/internal/taskerr"
)

type behaviorEntry struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	SteelThread bool   `json:"steel_thread"`
}

type capabilityMap struct {
	Behaviors []behaviorEntry `json:"behaviors"`
}

type physicalMapEntry struct {
	BehaviorID string `json:"behavior_id"`
}

type physicalMap struct {
	Entries []physicalMapEntry `json:"entries"`
}

// LoadPlanningMetrics derives coverage ratios by cross-referencing the
// capability map's declared behaviors against the physical map's mapped
// entries (§4.4's spec-coverage and steel-thread-coverage gates). A behavior
// counts as covered when some physical-map entry names it; the behavior
// lists of task definitions are not consulted.
func LoadPlanningMetrics(l store.Layout) (state.PlanningMetrics, error) {
	var cm capabilityMap
	if store.Exists(l.CapabilityMap) {
		if err := store.ReadJSON(l.CapabilityMap, &cm); err != nil {
			return state.PlanningMetrics{}, taskerr.Wrap(taskerr.CategoryIO, taskerr.CodeReadFail, err, "path", l.CapabilityMap)
		}
	}

	var pm physicalMap
	if store.Exists(l.PhysicalMap) {
		if err := store.ReadJSON(l.PhysicalMap, &pm); err != nil {
			return state.PlanningMetrics{}, taskerr.Wrap(taskerr.CategoryIO, taskerr.CodeReadFail, err, "path", l.PhysicalMap)
		}
	}

	mapped := make(map[string]bool, len(pm.Entries))
	for _, e := range pm.Entries {
		mapped[e.BehaviorID] = true
	}

	var metrics state.PlanningMetrics
	for _, b := range cm.Behaviors {
		metrics.TotalBehaviors++
		covered := mapped[b.ID]
		if covered {
			metrics.MappedBehaviors++
		}
		if b.SteelThread {
			metrics.SteelThreadBehaviors++
			if covered {
				metrics.SteelThreadMapped++
			} else {
				metrics.UncoveredSteelThreadBehaviors = append(metrics.UncoveredSteelThreadBehaviors, b.ID)
			}
		} else if !covered {
			metrics.UncoveredBehaviors = append(metrics.UncoveredBehaviors, b.ID)
		}
	}
	sort.Strings(metrics.UncoveredBehaviors)
	sort.Strings(metrics.UncoveredSteelThreadBehaviors)
	return metrics, nil
}
