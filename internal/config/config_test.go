package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.Execution.MaxParallelTasks)
	assert.Equal(t, 3, cfg.Execution.MaxTaskRetries)
	assert.Equal(t, 30*time.Minute, cfg.Execution.ParseTaskTimeout())
	assert.Equal(t, 30*time.Second, cfg.Execution.ParseLockTimeout())
	assert.InDelta(t, 0.9, cfg.Gates.MinSpecCoverage, 0.001)
	assert.NotEmpty(t, cfg.Gates.PhaseLeakageKeywords)
}

func TestLoadJSONC(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.jsonc")

	content := []byte(`{
  // This is a JSONC comment
  "execution": {
    "max_parallel_tasks": 8
  }
}`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	m, err := loadJSONC(path)
	require.NoError(t, err)

	exec, ok := m["execution"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(8), exec["max_parallel_tasks"])
}

func TestLoadJSONCFileNotFound(t *testing.T) {
	_, err := loadJSONC("/nonexistent/path/config.jsonc")
	assert.Error(t, err)
}

func TestMergeIntoConfigOverridesNested(t *testing.T) {
	cfg := DefaultConfig()

	src := map[string]any{
		"execution": map[string]any{
			"max_parallel_tasks": float64(16),
		},
	}
	require.NoError(t, mergeIntoConfig(&cfg, src))

	assert.Equal(t, 16, cfg.Execution.MaxParallelTasks)
	// Untouched fields survive the merge.
	assert.Equal(t, 3, cfg.Execution.MaxTaskRetries)
	assert.InDelta(t, 0.9, cfg.Gates.MinSpecCoverage, 0.001)
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()

	t.Setenv("TASKER_LOG_LEVEL", "debug")
	t.Setenv("TASKER_LOCK_TIMEOUT", "10s")

	applyEnvOverrides(&cfg)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "10s", cfg.Execution.LockTimeout)
}

func TestParseTaskTimeoutInvalidFallsBack(t *testing.T) {
	e := ExecutionConfig{TaskTimeout: "not-a-duration"}
	assert.Equal(t, 30*time.Minute, e.ParseTaskTimeout())
}

func TestLoadJSONCMalformedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"execution": {`), 0644))

	_, err := loadJSONC(path)
	assert.Error(t, err)
}

func TestLoadMergesUserAndRepo(t *testing.T) {
	userConfigDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", userConfigDir)
	t.Setenv("TASKER_LOG_LEVEL", "")
	t.Setenv("TASKER_LOCK_TIMEOUT", "")

	taskerDir := filepath.Join(userConfigDir, "tasker")
	require.NoError(t, os.MkdirAll(taskerDir, 0755))
	userConfig := []byte(`{"execution":{"max_parallel_tasks":2}}`)
	require.NoError(t, os.WriteFile(filepath.Join(taskerDir, "tasker.jsonc"), userConfig, 0644))

	repoDir := t.TempDir()
	repoConfig := []byte(`{"execution":{"max_task_retries":9}}`)
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "tasker.jsonc"), repoConfig, 0644))

	cfg, err := Load(repoDir)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Execution.MaxParallelTasks)
	assert.Equal(t, 9, cfg.Execution.MaxTaskRetries)
	assert.InDelta(t, 0.9, cfg.Gates.MinSpecCoverage, 0.001)
}
