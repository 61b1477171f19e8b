package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"wotcache/internal/reputation"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "wotcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// isolate runs the test from an empty directory so no stray .env or
// wotcache.yaml is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_PATH", "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/wotcache.db", cfg.Database.Path)
	assert.Equal(t, 180, cfg.Cache.ExpirationDays)
	assert.Equal(t, 180*24*time.Hour, cfg.Cache.Expiration())
	assert.False(t, cfg.Cache.RegistrableOnly)
	assert.Equal(t, "http://api.mywot.com/0.4/public_query2", cfg.Fetcher.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Fetcher.Timeout)
	assert.Equal(t, 0, cfg.Purge.RetentionDays)
	assert.Equal(t, "02:00", cfg.Purge.RunAt)
	assert.True(t, cfg.Prewarm.Watch)
	assert.Equal(t, "info", cfg.Log.Level)

	tables, err := cfg.Scoring.Tables()
	require.NoError(t, err)
	assert.Equal(t, []int{80, 60, 40, 20, 1}, tables.ReputationThresholds)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("WOT_EXPIRATION_DAYS", "30")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SCORING_CONFIDENCE_THRESHOLDS", "50,40,30,20,10")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Cache.ExpirationDays)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []int{50, 40, 30, 20, 10}, cfg.Scoring.ConfidenceThresholds)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PURGE_RETENTION_DAYS=400\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("PURGE_RETENTION_DAYS") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Purge.RetentionDays)
}

func TestLoad_YAML(t *testing.T) {
	dir := isolate(t)
	path := writeYAML(t, dir, `
server:
  port: 9191
database:
  path: "/var/lib/wotcache/wot.db"
cache:
  expiration_days: 7
  registrable_only: true
scoring:
  category_labels:
    0: "Trust"
  reputation_labels:
    5: "Top"
  asset_template: "/img/{kind}/{score}.svg"
purge:
  retention_days: 365
  run_at: "04:15"
`)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "/var/lib/wotcache/wot.db", cfg.Database.Path)
	assert.Equal(t, 7, cfg.Cache.ExpirationDays)
	assert.True(t, cfg.Cache.RegistrableOnly)
	assert.Equal(t, 365, cfg.Purge.RetentionDays)
	assert.Equal(t, "04:15", cfg.Purge.RunAt)
	// Defaults still apply to sections the file does not mention.
	assert.Equal(t, 10*time.Second, cfg.Fetcher.Timeout)

	tables, err := cfg.Scoring.Tables()
	require.NoError(t, err)
	assert.Equal(t, "Trust", tables.CategoryLabels[reputation.Trustworthiness])
	assert.Equal(t, "Privacy", tables.CategoryLabels[reputation.Privacy])
	assert.Equal(t, "Top", tables.ReputationLabels[5])
	assert.Equal(t, "Good", tables.ReputationLabels[4])
	assert.Equal(t, "/img/{kind}/{score}.svg", tables.AssetTemplate)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		errMsg string
	}{
		{name: "zero expiration", env: map[string]string{"WOT_EXPIRATION_DAYS": "0"}, errMsg: "cache.expiration_days"},
		{name: "bad port", env: map[string]string{"SERVER_PORT": "70000"}, errMsg: "server.port"},
		{name: "bad run_at", env: map[string]string{"PURGE_RUN_AT": "25:99"}, errMsg: "purge.run_at"},
		{name: "negative retention", env: map[string]string{"PURGE_RETENTION_DAYS": "-1"}, errMsg: "purge.retention_days"},
		{name: "unknown log level", env: map[string]string{"LOG_LEVEL": "verbose"}, errMsg: "log.level"},
		{name: "short thresholds", env: map[string]string{"SCORING_REPUTATION_THRESHOLDS": "80,60"}, errMsg: "reputation_thresholds"},
		{name: "zero concurrency", env: map[string]string{"PREWARM_CONCURRENCY": "0"}, errMsg: "prewarm.concurrency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestScoringTables_RejectsReservedCategory(t *testing.T) {
	_, err := ScoringConfig{CategoryLabels: map[int]string{3: "Reserved"}}.Tables()
	assert.Error(t, err)
}

func TestLogConfig_NewLogger(t *testing.T) {
	logger := LogConfig{Level: "debug", Format: "json"}.NewLogger()
	assert.Equal(t, pterm.LogLevelDebug, logger.Level)
	assert.Equal(t, pterm.LogFormatterJSON, logger.Formatter)

	assert.Equal(t, pterm.LogLevelInfo, LogConfig{Level: "other"}.NewLogger().Level)
}
