// Package reports renders human-readable markdown summaries of execution
// state under reports/, using the store.Document frontmatter convention the
// rest of the engine uses for artifact documents.
package reports

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
	"github.com/Dowwie/tasker/internal/verification"
)

// WriteStatusReport renders the current status summary and task table to
// reports/status.md.
func WriteStatusReport(l store.Layout, s *state.State) error {
	sum := s.GetStatus()
	m := s.ComputeMetrics()

	fm := map[string]any{
		"generated_at": store.Now(),
		"phase":        string(sum.Phase),
		"total_tasks":  sum.Total,
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Status Report\n\n")
	fmt.Fprintf(&b, "Phase: **%s**\n\n", sum.Phase)
	fmt.Fprintf(&b, "| status | count |\n|---|---|\n")
	fmt.Fprintf(&b, "| pending | %d |\n", sum.Pending)
	fmt.Fprintf(&b, "| ready | %d |\n", sum.Ready)
	fmt.Fprintf(&b, "| running | %d |\n", sum.Running)
	fmt.Fprintf(&b, "| complete | %d |\n", sum.Completed)
	fmt.Fprintf(&b, "| failed | %d |\n", sum.Failed)
	fmt.Fprintf(&b, "| blocked | %d |\n", sum.Blocked)
	fmt.Fprintf(&b, "| skipped | %d |\n\n", sum.Skipped)

	fmt.Fprintf(&b, "## Metrics\n\n")
	fmt.Fprintf(&b, "- success rate: %.1f%%\n", m.SuccessRate*100)
	fmt.Fprintf(&b, "- first-attempt success: %.1f%%\n", m.FirstAttemptSuccess*100)
	fmt.Fprintf(&b, "- average attempts: %.2f\n", m.AverageAttempts)
	fmt.Fprintf(&b, "- total tokens: %d\n", m.TotalTokens)
	fmt.Fprintf(&b, "- cumulative cost: $%.2f\n", m.CumulativeCost)

	doc := &store.Document{Frontmatter: fm, Body: b.String()}
	return store.WriteDocument(filepath.Join(l.ReportsDir, "status.md"), doc)
}

// WriteFailureReport renders failures grouped by error category to
// reports/failures.md.
func WriteFailureReport(l store.Layout, s *state.State) error {
	breakdown := s.FailureBreakdown()

	fm := map[string]any{"generated_at": store.Now(), "categories": len(breakdown)}

	var b strings.Builder
	fmt.Fprintf(&b, "# Failure Report\n\n")
	if len(breakdown) == 0 {
		b.WriteString("No failures recorded.\n")
	}
	for _, cat := range sortedKeys(breakdown) {
		fmt.Fprintf(&b, "## %s\n\n", cat)
		for _, id := range breakdown[cat] {
			t := s.Tasks[id]
			fmt.Fprintf(&b, "- **%s**: %s\n", id, t.Error)
		}
		b.WriteString("\n")
	}

	doc := &store.Document{Frontmatter: fm, Body: b.String()}
	return store.WriteDocument(filepath.Join(l.ReportsDir, "failures.md"), doc)
}

// WriteCalibrationReport renders calibration tally and score to
// reports/calibration.md.
func WriteCalibrationReport(l store.Layout, tally verification.Tally) error {
	fm := map[string]any{"generated_at": store.Now(), "score": tally.Score()}

	var b strings.Builder
	fmt.Fprintf(&b, "# Calibration Report\n\n")
	fmt.Fprintf(&b, "- correct: %d\n", tally.Correct)
	fmt.Fprintf(&b, "- false positives: %d\n", tally.FalsePositive)
	fmt.Fprintf(&b, "- false negatives: %d\n", tally.FalseNegative)
	fmt.Fprintf(&b, "- calibration score: %.2f\n", tally.Score())

	doc := &store.Document{Frontmatter: fm, Body: b.String()}
	return store.WriteDocument(filepath.Join(l.ReportsDir, "calibration.md"), doc)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
