package config

import (
	"fmt"
	"slices"
	"time"

	"wotcache/internal/reputation"
	"wotcache/internal/scoring"
)

var (
	logLevels  = []string{"trace", "debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Cache.ExpirationDays <= 0 {
		return fmt.Errorf("cache.expiration_days must be > 0 (got %d)", c.Cache.ExpirationDays)
	}
	if c.Fetcher.BaseURL == "" {
		return fmt.Errorf("fetcher.base_url must not be empty")
	}
	if c.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be > 0 (got %s)", c.Fetcher.Timeout)
	}
	if c.Prewarm.Concurrency <= 0 {
		return fmt.Errorf("prewarm.concurrency must be > 0 (got %d)", c.Prewarm.Concurrency)
	}
	if c.Purge.RetentionDays < 0 {
		return fmt.Errorf("purge.retention_days must be >= 0 (got %d)", c.Purge.RetentionDays)
	}
	if _, err := time.Parse("15:04", c.Purge.RunAt); err != nil {
		return fmt.Errorf("purge.run_at must be HH:MM (got %q)", c.Purge.RunAt)
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of %v (got %q)", logLevels, c.Log.Level)
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		return fmt.Errorf("log.format must be one of %v (got %q)", logFormats, c.Log.Format)
	}
	if _, err := c.Scoring.Tables(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	return nil
}

// Tables merges the overrides onto scoring.DefaultTables and validates the result.
func (s ScoringConfig) Tables() (scoring.Tables, error) {
	tables := scoring.DefaultTables()
	if len(s.ReputationThresholds) > 0 {
		tables.ReputationThresholds = s.ReputationThresholds
	}
	if len(s.ConfidenceThresholds) > 0 {
		tables.ConfidenceThresholds = s.ConfidenceThresholds
	}
	for score, label := range s.ReputationLabels {
		tables.ReputationLabels[score] = label
	}
	for score, label := range s.ConfidenceLabels {
		tables.ConfidenceLabels[score] = label
	}
	for category, label := range s.CategoryLabels {
		tables.CategoryLabels[reputation.Category(category)] = label
	}
	if s.AssetTemplate != "" {
		tables.AssetTemplate = s.AssetTemplate
	}
	return tables, tables.Validate()
}
