package store

import (
	"os"
	"path/filepath"
)

// Layout enumerates every path the core owns inside a working directory
// (conventionally .tasker/), per §6.
type Layout struct {
	Root           string
	StatePath      string
	InputsDir      string
	SpecPath       string
	ArtifactsDir   string
	CapabilityMap  string
	PhysicalMap    string
	TasksDir       string
	BundlesDir     string
	ReportsDir     string
	StopPath       string
	CalibrationDB  string
}

// DefaultDirName is the conventional working-directory name.
const DefaultDirName = ".tasker"

// NewLayout populates every path under root (typically resolved from
// TASKER_DIR or DefaultDirName in the current directory).
func NewLayout(root string) Layout {
	return Layout{
		Root:          root,
		StatePath:     filepath.Join(root, "state.json"),
		InputsDir:     filepath.Join(root, "inputs"),
		SpecPath:      filepath.Join(root, "inputs", "spec.md"),
		ArtifactsDir:  filepath.Join(root, "artifacts"),
		CapabilityMap: filepath.Join(root, "artifacts", "capability-map.json"),
		PhysicalMap:   filepath.Join(root, "artifacts", "physical-map.json"),
		TasksDir:      filepath.Join(root, "tasks"),
		BundlesDir:    filepath.Join(root, "bundles"),
		ReportsDir:    filepath.Join(root, "reports"),
		StopPath:      filepath.Join(root, "STOP"),
		CalibrationDB: filepath.Join(root, "calibration.db"),
	}
}

// EnsureDirs creates every directory the layout references.
func (l Layout) EnsureDirs() error {
	for _, d := range []string{l.Root, l.InputsDir, l.ArtifactsDir, l.TasksDir, l.BundlesDir, l.ReportsDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// ArtifactPath returns the path for an arbitrary artifact by file name.
func (l Layout) ArtifactPath(name string) string {
	return filepath.Join(l.ArtifactsDir, name)
}

// TaskPath returns the path for a task-definition file by task id.
func (l Layout) TaskPath(id string) string {
	return filepath.Join(l.TasksDir, id+".json")
}

// BundlePath returns the bundle path for a task id.
func (l Layout) BundlePath(id string) string {
	return filepath.Join(l.BundlesDir, id+"-bundle.json")
}

// ResultPath returns the result-file path for a task id.
func (l Layout) ResultPath(id string) string {
	return filepath.Join(l.BundlesDir, id+"-result.json")
}

// IsHalted reports whether the STOP sentinel file is present.
func (l Layout) IsHalted() bool {
	return Exists(l.StopPath)
}

// ReadStopReason reads the STOP file's body as the halt reason, if any.
func (l Layout) ReadStopReason() string {
	data, err := os.ReadFile(l.StopPath)
	if err != nil {
		return ""
	}
	return string(data)
}

// ResolveRoot resolves the working directory from an explicit override (e.g.
// the TASKER_DIR env var or a --dir flag), falling back to DefaultDirName
// under the current directory.
func ResolveRoot(override string) (string, error) {
	if override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", err
		}
		return abs, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDirName), nil
}
