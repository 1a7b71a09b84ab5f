package config

import "time"

// Config is the top-level tasker configuration.
type Config struct {
	Execution ExecutionConfig `json:"execution"`
	Gates     GatesConfig     `json:"gates"`
	Logging   LoggingConfig   `json:"logging"`
	Worker    WorkerConfig    `json:"worker"`
}

// ExecutionConfig controls the supervisor's batch cycle (§4.6).
type ExecutionConfig struct {
	MaxParallelTasks int    `json:"max_parallel_tasks"`
	TaskTimeout      string `json:"task_timeout"`
	MaxTaskRetries   int    `json:"max_task_retries"`
	LockTimeout      string `json:"lock_timeout"`
}

// ParseTaskTimeout returns the task timeout as a time.Duration.
func (e ExecutionConfig) ParseTaskTimeout() time.Duration {
	d, err := time.ParseDuration(e.TaskTimeout)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// ParseLockTimeout returns the storage lock timeout as a time.Duration.
func (e ExecutionConfig) ParseLockTimeout() time.Duration {
	d, err := time.ParseDuration(e.LockTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GatesConfig controls the planning gates evaluated by phase.Advance (§4.4).
type GatesConfig struct {
	MinSpecCoverage        float64  `json:"min_spec_coverage"`
	MinSteelThreadCoverage float64  `json:"min_steel_thread_coverage"`
	PhaseLeakageKeywords   []string `json:"phase_leakage_keywords"`
	MinAcceptanceCriteria  int      `json:"min_acceptance_criteria"`
}

// LoggingConfig controls the slog/charmbracelet-log façade (internal/logging).
type LoggingConfig struct {
	Level string `json:"level"`
}

// WorkerConfig controls how the supervisor dispatches the external worker
// process for each task (§4.6, §6).
type WorkerConfig struct {
	Command []string `json:"command"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Execution: ExecutionConfig{
			MaxParallelTasks: 3,
			TaskTimeout:      "30m",
			MaxTaskRetries:   3,
			LockTimeout:      "30s",
		},
		Gates: GatesConfig{
			MinSpecCoverage:        0.9,
			MinSteelThreadCoverage: 1.0,
			MinAcceptanceCriteria:  1,
			PhaseLeakageKeywords: []string{
				"implement", "write code", "refactor", "deploy",
				"database schema", "api endpoint", "unit test",
			},
		},
		Logging: LoggingConfig{Level: "info"},
		Worker:  WorkerConfig{Command: []string{"tasker-worker"}},
	}
}
