package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.GitHub.Token = "ghp_test"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.GitHub.Timeout)
	assert.Equal(t, 5, cfg.Run.Workers)
	assert.Equal(t, 100, cfg.Run.MaxOpsPerRun)
	assert.Equal(t, "balanced", cfg.Run.Strategy)
	assert.Equal(t, "timestamped", cfg.Storage.BackupStrategy)
	assert.True(t, cfg.Storage.Autosave)
	assert.False(t, cfg.Filter.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing_token", func(c *Config) { c.GitHub.Token = "" }, "token is required"},
		{"tiny_timeout", func(c *Config) { c.GitHub.Timeout = time.Second }, "timeout"},
		{"zero_workers", func(c *Config) { c.Run.Workers = 0 }, "workers"},
		{"too_many_workers", func(c *Config) { c.Run.Workers = 100 }, "workers"},
		{"bad_strategy", func(c *Config) { c.Run.Strategy = "turbo" }, "strategy"},
		{"bad_backup", func(c *Config) { c.Storage.BackupStrategy = "zip" }, "backup"},
		{"no_output", func(c *Config) { c.Storage.OutputFile = "" }, "output"},
		{"bad_log_level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
		{"inverted_repo_range", func(c *Config) {
			c.Filter.Enabled = true
			c.Filter.MinRepos = 10
			c.Filter.MaxRepos = 5
		}, "repos"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := validConfig()
			test.mutate(cfg)
			err := cfg.Validate()
			if test.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), test.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
github:
  timeout: 45s
run:
  workers: 3
  strategy: comprehensive
filter:
  enabled: true
  whitelist:
    - friend
storage:
  output_file: data/run.ndjson
`
	path := filepath.Join(t.TempDir(), "ghsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, 45*time.Second, cfg.GitHub.Timeout)
	assert.Equal(t, 3, cfg.Run.Workers)
	assert.Equal(t, "comprehensive", cfg.Run.Strategy)
	assert.True(t, cfg.Filter.Enabled)
	assert.Equal(t, []string{"friend"}, cfg.Filter.Whitelist)
	assert.Equal(t, "data/run.ndjson", cfg.Storage.OutputFile)
	// Untouched values keep their defaults.
	assert.Equal(t, 100, cfg.Run.MaxOpsPerRun)
}

func TestLoadFromFileMissingPath(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_env")
	t.Setenv("GHSYNC_MAX_WORKERS", "7")
	t.Setenv("GHSYNC_DRY_RUN", "true")
	t.Setenv("GHSYNC_STRATEGY", "fast")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "ghp_env", cfg.GitHub.Token)
	assert.Equal(t, 7, cfg.Run.Workers)
	assert.True(t, cfg.Run.DryRun)
	assert.Equal(t, "fast", cfg.Run.Strategy)
}

func TestMergeCommandLineFlagsWinOverEnv(t *testing.T) {
	t.Setenv("GHSYNC_MAX_WORKERS", "7")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"workers": 2,
		"dry-run": true,
		"output":  "other.json",
	})

	assert.Equal(t, 2, cfg.Run.Workers)
	assert.True(t, cfg.Run.DryRun)
	assert.Equal(t, "other.json", cfg.Storage.OutputFile)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := validConfig()
	cfg.Run.Workers = 4

	path := filepath.Join(t.TempDir(), "nested", "ghsync.yaml")
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 4, loaded.Run.Workers)
}
