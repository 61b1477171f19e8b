package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"wotcache/internal/database/repositories"
	"wotcache/internal/reputation"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := NewConnection(&Config{Path: filepath.Join(t.TempDir(), "data", "wot.db")}, pterm.DefaultLogger.WithLevel(pterm.LogLevelWarn))
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })
	return db
}

func TestNewConnection_CreatesSchema(t *testing.T) {
	db := openTestDB(t)

	assert.True(t, db.Migrator().HasTable("domain_reputation"))
	assert.True(t, db.Migrator().HasIndex("domain_reputation", domainIndex))

	size, err := FileSize(db)
	require.NoError(t, err)
	assert.Positive(t, size)
}

func TestPurgeService_RunNow(t *testing.T) {
	db := openTestDB(t)
	repo := repositories.NewDomainReputationRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	for i, age := range []int{500, 400, 30, 0} {
		record := &reputation.Record{
			Domain:     []string{"a.com", "b.com", "c.com", "d.com"}[i],
			LastUpdate: now.AddDate(0, 0, -age),
		}
		require.NoError(t, repo.Insert(ctx, record))
	}

	svc := NewPurgeService(db, repo, pterm.DefaultLogger.WithLevel(pterm.LogLevelWarn), PurgeConfig{
		RetentionDays: 365,
		BatchSize:     1,
		Vacuum:        true,
	})
	svc.now = func() time.Time { return now }

	deleted, err := svc.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	stats := svc.Stats()
	assert.True(t, stats.Enabled)
	assert.Equal(t, int64(2), stats.RecordsDeleted)
	assert.Equal(t, now, stats.LastRunTime)
	assert.Equal(t, time.Date(2024, 6, 2, 2, 0, 0, 0, time.UTC), stats.NextScheduledRun)
}

func TestPurgeService_Disabled(t *testing.T) {
	db := openTestDB(t)
	repo := repositories.NewDomainReputationRepository(db)

	svc := NewPurgeService(db, repo, pterm.DefaultLogger.WithLevel(pterm.LogLevelWarn), PurgeConfig{})
	svc.Start()
	svc.Stop()

	_, err := svc.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrPurgeDisabled)
	assert.False(t, svc.Stats().Enabled)
}

func TestPurgeService_NextRun(t *testing.T) {
	svc := NewPurgeService(nil, nil, pterm.DefaultLogger.WithLevel(pterm.LogLevelError), PurgeConfig{RetentionDays: 1, RunAt: "03:30"})

	before := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 1, 3, 30, 0, 0, time.UTC), svc.nextRun(before))

	after := time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 30, 0, 0, time.UTC), svc.nextRun(after))

	svc.cfg.RunAt = "bogus"
	assert.Equal(t, time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC), svc.nextRun(after))
}
