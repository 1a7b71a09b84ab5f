// Package recovery implements crash recovery and rollback (C8): pre-change
// snapshots of files a task is about to touch, rollback validation, state
// document corruption recovery, and orphaned-task reconciliation on restart
// (§4.8).
package recovery

import (
	"github.com/Dowwie/tasker/internal/store"
)

// FileSnapshot records a file's existence and checksum before a task begins
// touching it, so a failed or rolled-back attempt can verify it left no
// partial writes behind.
type FileSnapshot struct {
	Path     string
	Existed  bool
	Checksum string
}

// Snapshot captures the pre-change state of every path in paths.
func Snapshot(paths []string) ([]FileSnapshot, error) {
	snaps := make([]FileSnapshot, 0, len(paths))
	for _, p := range paths {
		sum, err := store.ChecksumFile(p)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, FileSnapshot{Path: p, Existed: store.Exists(p), Checksum: sum})
	}
	return snaps, nil
}

// Violation describes one way a rollback failed to fully undo a change.
type Violation struct {
	Path   string
	Detail string
}

// ValidateRollback re-checksums every snapshotted path and reports any that
// still differ from their pre-change state, meaning the rollback did not
// fully restore the working tree.
func ValidateRollback(snaps []FileSnapshot) ([]Violation, error) {
	var violations []Violation
	for _, s := range snaps {
		exists := store.Exists(s.Path)
		if s.Existed && !exists {
			violations = append(violations, Violation{Path: s.Path, Detail: "file was deleted during rollback"})
			continue
		}
		if !s.Existed && exists {
			violations = append(violations, Violation{Path: s.Path, Detail: "file was left behind after rollback"})
			continue
		}
		if !exists {
			continue
		}
		sum, err := store.ChecksumFile(s.Path)
		if err != nil {
			return nil, err
		}
		if sum != s.Checksum {
			violations = append(violations, Violation{Path: s.Path, Detail: "file content differs from pre-change snapshot"})
		}
	}
	return violations, nil
}
