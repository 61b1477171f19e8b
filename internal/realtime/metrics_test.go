package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"wotcache/internal/reputation"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollector_Counts(t *testing.T) {
	m := NewMetricsCollector(pterm.DefaultLogger.WithLevel(pterm.LogLevelError))

	for range 4 {
		m.Observe(reputation.EventLookup)
	}
	m.Observe(reputation.EventHit)
	m.Observe(reputation.EventHit)
	m.Observe(reputation.EventHit)
	m.Observe(reputation.EventCreated)
	m.Observe(reputation.EventFetchFailed)
	m.Observe(reputation.EventStaleServed)
	m.Observe(reputation.Event(99))

	got := m.GetMetrics()
	assert.Equal(t, int64(4), got.Lookups)
	assert.Equal(t, int64(3), got.Hits)
	assert.Equal(t, int64(1), got.Created)
	assert.Equal(t, int64(1), got.FetchFailed)
	assert.Equal(t, int64(1), got.StaleServed)
	assert.Zero(t, got.Refreshed)
	assert.InDelta(t, 0.75, got.HitRatio, 1e-9)
}

func TestMetricsCollector_LookupRateWindow(t *testing.T) {
	m := NewMetricsCollector(pterm.DefaultLogger.WithLevel(pterm.LogLevelError))
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	for range 10 {
		m.Observe(reputation.EventLookup)
	}
	m.collectMetrics()
	assert.InDelta(t, 2.0, m.GetMetrics().LookupRate, 1e-9)

	var snapshot CacheMetrics
	require.NoError(t, json.Unmarshal(m.GetCachedJSON(), &snapshot))
	assert.Equal(t, int64(10), snapshot.Lookups)

	now = now.Add(10 * time.Second)
	m.collectMetrics()
	assert.Zero(t, m.GetMetrics().LookupRate)
	assert.Equal(t, int64(10), m.GetMetrics().Lookups, "totals survive the window")
}

func TestMetricsCollector_StartStop(t *testing.T) {
	m := NewMetricsCollector(pterm.DefaultLogger.WithLevel(pterm.LogLevelError))
	m.Start(time.Hour)
	assert.NotNil(t, m.GetCachedJSON())

	m.Stop()
	m.Stop()
}
