// Package bundle builds and verifies the self-contained, checksum-sealed
// per-task execution contexts (C5) that the supervisor hands to external
// worker processes (§4.5).
package bundle

import (
	"time"

	"github.com/Dowwie/tasker/internal/schema"
	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
	"github.com/Dowwie/tasker/internal/taskerr"
)

// ArtifactChecksums fingerprints the shared planning artifacts a bundle
// depends on (§4.5 step 5).
type ArtifactChecksums struct {
	CapabilityMap  string `json:"capability_map"`
	PhysicalMap    string `json:"physical_map"`
	Constraints    string `json:"constraints"`
	TaskDefinition string `json:"task_definition"`
}

// Checksums is the sealed fingerprint block of a bundle (§3, §4.5).
type Checksums struct {
	Artifacts        ArtifactChecksums `json:"artifacts"`
	DependencyFiles  map[string]string `json:"dependency_files"`
}

// Bundle is the self-contained execution context handed to a worker process.
type Bundle struct {
	Version          string       `json:"version"`
	BundleCreatedAt  time.Time    `json:"bundle_created_at"`
	TaskID           string       `json:"task_id"`
	Name             string       `json:"name"`
	Phase            int          `json:"phase"`
	TargetDir        string       `json:"target_dir"`
	DependsOn        []string     `json:"depends_on,omitempty"`
	Behaviors        []string     `json:"behaviors,omitempty"`
	Files            []state.FileEntry `json:"files,omitempty"`
	AcceptanceCrit   []state.AcceptanceCriterion `json:"acceptance_criteria,omitempty"`
	Context          string       `json:"context,omitempty"`
	Checksums        Checksums    `json:"checksums"`
}

const bundleVersion = "1"

// Generate builds the bundle for task t (§4.5 steps 1-6):
//  1. expand the behaviors this task implements
//  2. collect declared files
//  3. fingerprint the capability map, physical map, constraints doc, and the
//     task-definition file itself
//  4. collect and fingerprint every dependency's reported output files
//     (FilesCreated/FilesModified)
//  5. assemble the bundle document
//  6. seal it with a version marker so later verification can detect drift
func Generate(t *state.Task, tasks map[string]*state.Task, l store.Layout, constraintsPath string) (*Bundle, error) {
	capSum, err := store.ChecksumFile(l.CapabilityMap)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.CategoryBundle, taskerr.CodeReadFail, err, "path", l.CapabilityMap)
	}
	physSum, err := store.ChecksumFile(l.PhysicalMap)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.CategoryBundle, taskerr.CodeReadFail, err, "path", l.PhysicalMap)
	}
	constraintsSum, err := store.ChecksumFile(constraintsPath)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.CategoryBundle, taskerr.CodeReadFail, err, "path", constraintsPath)
	}
	taskDefSum, err := store.ChecksumFile(l.TaskPath(t.ID))
	if err != nil {
		return nil, taskerr.Wrap(taskerr.CategoryBundle, taskerr.CodeReadFail, err, "path", l.TaskPath(t.ID))
	}

	depFiles := map[string]string{}
	for _, depID := range t.DependsOn {
		dep, ok := tasks[depID]
		if !ok {
			return nil, taskerr.New(taskerr.CategoryBundle, taskerr.CodeDependencyMissing,
				"dependency task not found", "task", t.ID, "depends_on", depID)
		}
		// Per §4.5 step 4, the dependency's *reported* output files (its most
		// recent completed attempt), not its declared file list, are what get
		// fingerprinted: a task can declare files it never ends up writing.
		for _, path := range dep.FilesCreated {
			sum, err := store.ChecksumFile(path)
			if err != nil {
				return nil, taskerr.Wrap(taskerr.CategoryBundle, taskerr.CodeReadFail, err, "path", path)
			}
			depFiles[path] = sum
		}
		for _, path := range dep.FilesModified {
			sum, err := store.ChecksumFile(path)
			if err != nil {
				return nil, taskerr.Wrap(taskerr.CategoryBundle, taskerr.CodeReadFail, err, "path", path)
			}
			depFiles[path] = sum
		}
	}

	b := &Bundle{
		Version:         bundleVersion,
		BundleCreatedAt: time.Now().UTC(),
		TaskID:          t.ID,
		Name:            t.Name,
		Phase:           t.Phase,
		TargetDir:       l.Root,
		DependsOn:       t.DependsOn,
		Behaviors:       t.Behaviors,
		Files:           t.Files,
		AcceptanceCrit:  t.AcceptanceCrit,
		Context:         t.Context,
		Checksums: Checksums{
			Artifacts: ArtifactChecksums{
				CapabilityMap:  capSum,
				PhysicalMap:    physSum,
				Constraints:    constraintsSum,
				TaskDefinition: taskDefSum,
			},
			DependencyFiles: depFiles,
		},
	}
	return b, nil
}

// Write schema-validates and persists a bundle to its canonical path.
func Write(b *Bundle, l store.Layout) error {
	path := l.BundlePath(b.TaskID)
	if err := store.WriteJSON(path, b); err != nil {
		return taskerr.Wrap(taskerr.CategoryBundle, taskerr.CodeWriteFail, err, "path", path)
	}
	if err := schema.ValidateFile(schema.Bundle, path); err != nil {
		return err
	}
	return nil
}

// Load reads a previously written bundle from disk.
func Load(l store.Layout, taskID string) (*Bundle, error) {
	path := l.BundlePath(taskID)
	var b Bundle
	if err := store.ReadJSON(path, &b); err != nil {
		return nil, taskerr.Wrap(taskerr.CategoryBundle, taskerr.CodeReadFail, err, "path", path)
	}
	return &b, nil
}
