// Package verification records per-attempt verdicts and maintains the
// calibration ledger (C7) that tracks how often a PASS/FAIL verdict actually
// matched what later turned out to be true (§4.7).
package verification

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Dowwie/tasker/internal/taskerr"
)

// Outcome is the eventual ground truth recorded against a verdict, once
// known (a later attempt, human review, or downstream test run confirms it).
type Outcome string

const (
	OutcomeCorrect       Outcome = "correct"
	OutcomeFalsePositive Outcome = "false_positive"
	OutcomeFalseNegative Outcome = "false_negative"
)

// Entry is one row of the calibration ledger.
type Entry struct {
	TaskID     string
	Attempt    int
	Verdict    string
	Outcome    Outcome
	RecordedAt time.Time
}

// Ledger wraps a sqlite-backed calibration store, kept deliberately separate
// from the JSON state document (§3) since it accumulates one row per
// verification rather than per task.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if necessary) the calibration database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.CategoryIO, taskerr.CodeReadFail, err, "path", path)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, taskerr.Wrap(taskerr.CategoryIO, taskerr.CodeWriteFail, err, "path", path)
	}
	return &Ledger{db: db}, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS calibration (
	task_id     TEXT NOT NULL,
	attempt     INTEGER NOT NULL,
	verdict     TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);
`

// Close releases the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record appends one calibration entry.
func (l *Ledger) Record(e Entry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	_, err := l.db.Exec(
		`INSERT INTO calibration (task_id, attempt, verdict, outcome, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		e.TaskID, e.Attempt, e.Verdict, string(e.Outcome), e.RecordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return taskerr.Wrap(taskerr.CategoryIO, taskerr.CodeWriteFail, err, "task", e.TaskID)
	}
	return nil
}

// Tally is the aggregate count of each outcome in the ledger.
type Tally struct {
	Correct       int
	FalsePositive int
	FalseNegative int
}

// Score returns the calibration score: the fraction of recorded verdicts
// that were correct, per §4.7's calibration metric.
func (t Tally) Score() float64 {
	total := t.Correct + t.FalsePositive + t.FalseNegative
	if total == 0 {
		return 1.0
	}
	return float64(t.Correct) / float64(total)
}

// Tally aggregates outcome counts across every recorded entry.
func (l *Ledger) Tally() (Tally, error) {
	rows, err := l.db.Query(`SELECT outcome, COUNT(*) FROM calibration GROUP BY outcome`)
	if err != nil {
		return Tally{}, taskerr.Wrap(taskerr.CategoryIO, taskerr.CodeReadFail, err)
	}
	defer rows.Close()

	var t Tally
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return Tally{}, taskerr.Wrap(taskerr.CategoryIO, taskerr.CodeReadFail, err)
		}
		switch Outcome(outcome) {
		case OutcomeCorrect:
			t.Correct = count
		case OutcomeFalsePositive:
			t.FalsePositive = count
		case OutcomeFalseNegative:
			t.FalseNegative = count
		}
	}
	return t, rows.Err()
}

// EntriesForTask returns every calibration entry recorded for taskID, most
// recent first.
func (l *Ledger) EntriesForTask(taskID string) ([]Entry, error) {
	rows, err := l.db.Query(
		`SELECT task_id, attempt, verdict, outcome, recorded_at FROM calibration WHERE task_id = ? ORDER BY recorded_at DESC`,
		taskID,
	)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.CategoryIO, taskerr.CodeReadFail, err, "task", taskID)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var recordedAt string
		if err := rows.Scan(&e.TaskID, &e.Attempt, &e.Verdict, (*string)(&e.Outcome), &recordedAt); err != nil {
			return nil, taskerr.Wrap(taskerr.CategoryIO, taskerr.CodeReadFail, err)
		}
		e.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing recorded_at for %s: %w", taskID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
