package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"wotcache/internal/database/models"
	"wotcache/internal/reputation"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "wot.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.DomainReputation{}))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newRecord(domain string, updated time.Time) *reputation.Record {
	return &reputation.Record{
		Domain:     domain,
		LastUpdate: updated,
		Metrics: reputation.Metrics{
			reputation.Trustworthiness: {Reputation: reputation.IntPtr(93), Confidence: reputation.IntPtr(71)},
			reputation.ChildSafety:     {Reputation: reputation.IntPtr(0)},
		},
	}
}

func TestDomainReputationRepository_InsertAndFind(t *testing.T) {
	repo := NewDomainReputationRepository(openTestDB(t))
	ctx := context.Background()
	updated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	record := newRecord("example.com", updated)
	record.Host = reputation.HostInfo{IP: "93.184.216.34", Country: "US", ASN: 15133, ASNOrg: "EDGECAST"}
	require.NoError(t, repo.Insert(ctx, record))
	assert.NotZero(t, record.ID)

	got, err := repo.FindByDomain(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.True(t, got.LastUpdate.Equal(updated), "last update %v", got.LastUpdate)
	assert.Equal(t, record.Host, got.Host)

	trust := got.Metric(reputation.Trustworthiness)
	require.NotNil(t, trust.Reputation)
	assert.Equal(t, 93, *trust.Reputation)
	assert.Equal(t, 71, *trust.Confidence)

	// Zero is a value, not "not rated".
	child := got.Metric(reputation.ChildSafety)
	require.NotNil(t, child.Reputation)
	assert.Equal(t, 0, *child.Reputation)
	assert.Nil(t, child.Confidence)

	_, ok := got.Metrics[reputation.Privacy]
	assert.False(t, ok)
}

func TestDomainReputationRepository_FindMissing(t *testing.T) {
	repo := NewDomainReputationRepository(openTestDB(t))

	_, err := repo.FindByDomain(context.Background(), "missing.org")
	assert.ErrorIs(t, err, reputation.ErrNotFound)
}

func TestDomainReputationRepository_DuplicateInsert(t *testing.T) {
	repo := NewDomainReputationRepository(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newRecord("example.com", time.Now())))
	err := repo.Insert(ctx, newRecord("example.com", time.Now()))
	assert.ErrorIs(t, err, reputation.ErrDuplicateKey)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDomainReputationRepository_Update(t *testing.T) {
	repo := NewDomainReputationRepository(openTestDB(t))
	ctx := context.Background()

	record := newRecord("example.com", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Insert(ctx, record))

	refreshed := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	record.LastUpdate = refreshed
	record.Metrics = reputation.Metrics{
		reputation.Privacy: {Reputation: reputation.IntPtr(40), Confidence: reputation.IntPtr(12)},
	}
	require.NoError(t, repo.Update(ctx, record))

	got, err := repo.FindByDomain(ctx, "example.com")
	require.NoError(t, err)
	assert.True(t, got.LastUpdate.Equal(refreshed))
	assert.Len(t, got.Metrics, 1, "old categories are cleared")
	assert.Equal(t, 40, *got.Metric(reputation.Privacy).Reputation)
}

func TestDomainReputationRepository_UpdateRejectsDomainChange(t *testing.T) {
	repo := NewDomainReputationRepository(openTestDB(t))
	ctx := context.Background()

	record := newRecord("example.com", time.Now())
	require.NoError(t, repo.Insert(ctx, record))

	renamed := record.Clone()
	renamed.Domain = "example.org"
	assert.ErrorIs(t, repo.Update(ctx, renamed), reputation.ErrDomainImmutable)

	got, err := repo.FindByDomain(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
}

func TestDomainReputationRepository_UpdateMissing(t *testing.T) {
	repo := NewDomainReputationRepository(openTestDB(t))

	record := newRecord("example.com", time.Now())
	record.ID = 42
	assert.ErrorIs(t, repo.Update(context.Background(), record), reputation.ErrNotFound)
}

func TestDomainReputationRepository_DeleteOlderThan(t *testing.T) {
	repo := NewDomainReputationRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, newRecord("old-1.com", now.AddDate(0, 0, -400))))
	require.NoError(t, repo.Insert(ctx, newRecord("old-2.com", now.AddDate(0, 0, -370))))
	require.NoError(t, repo.Insert(ctx, newRecord("fresh.com", now.AddDate(0, 0, -3))))

	cutoff := now.AddDate(0, 0, -365)
	deleted, err := repo.DeleteOlderThan(ctx, cutoff, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = repo.DeleteOlderThan(ctx, cutoff, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByDomain(ctx, "fresh.com")
	assert.NoError(t, err)
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
