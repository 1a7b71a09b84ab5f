package bundle

import (
	"sort"

	"github.com/Dowwie/tasker/internal/store"
	"github.com/Dowwie/tasker/internal/taskerr"
)

// Drift describes a single integrity violation found during Verify.
type Drift struct {
	Code   string
	Detail string
	Path   string
}

// Verify re-checksums everything a bundle references and reports any drift
// since it was generated (§4.5/§4.8):
//   - DEPENDENCY_MISSING: a dependency file the bundle recorded no longer exists
//   - DEPENDENCY_CHANGED: a dependency file's checksum no longer matches
//   - ARTIFACT_DRIFT: the capability map, physical map, or constraints doc changed
func Verify(b *Bundle, l store.Layout, constraintsPath string) ([]Drift, error) {
	var drifts []Drift

	capSum, err := store.ChecksumFile(l.CapabilityMap)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.CategoryBundle, taskerr.CodeReadFail, err, "path", l.CapabilityMap)
	}
	if capSum != b.Checksums.Artifacts.CapabilityMap {
		drifts = append(drifts, Drift{Code: taskerr.CodeArtifactDrift, Detail: "capability map changed", Path: l.CapabilityMap})
	}

	physSum, err := store.ChecksumFile(l.PhysicalMap)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.CategoryBundle, taskerr.CodeReadFail, err, "path", l.PhysicalMap)
	}
	if physSum != b.Checksums.Artifacts.PhysicalMap {
		drifts = append(drifts, Drift{Code: taskerr.CodeArtifactDrift, Detail: "physical map changed", Path: l.PhysicalMap})
	}

	constraintsSum, err := store.ChecksumFile(constraintsPath)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.CategoryBundle, taskerr.CodeReadFail, err, "path", constraintsPath)
	}
	if constraintsSum != b.Checksums.Artifacts.Constraints {
		drifts = append(drifts, Drift{Code: taskerr.CodeArtifactDrift, Detail: "constraints changed", Path: constraintsPath})
	}

	paths := make([]string, 0, len(b.Checksums.DependencyFiles))
	for p := range b.Checksums.DependencyFiles {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		want := b.Checksums.DependencyFiles[path]
		got, err := store.ChecksumFile(path)
		if err != nil {
			return nil, taskerr.Wrap(taskerr.CategoryBundle, taskerr.CodeReadFail, err, "path", path)
		}
		if got == "" {
			drifts = append(drifts, Drift{Code: taskerr.CodeDependencyMissing, Detail: "dependency file no longer exists", Path: path})
			continue
		}
		if got != want {
			drifts = append(drifts, Drift{Code: taskerr.CodeDependencyChanged, Detail: "dependency file checksum changed", Path: path})
		}
	}

	return drifts, nil
}

// FirstDriftError converts the first Drift into a taskerr.Error, or nil if
// drifts is empty. Callers use this to fail fast at dispatch time while
// still exposing the complete drift list for diagnostic reporting.
func FirstDriftError(taskID string, drifts []Drift) error {
	if len(drifts) == 0 {
		return nil
	}
	d := drifts[0]
	return taskerr.New(taskerr.CategoryBundle, d.Code, d.Detail, "task", taskID, "path", d.Path)
}
