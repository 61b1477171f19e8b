package realtime

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"wotcache/internal/reputation"

	"github.com/pterm/pterm"
)

const rateWindow = 5 * time.Second

// MetricsCollector counts cache events and keeps a periodically refreshed
// snapshot for the stats endpoints. It implements reputation.Recorder.
type MetricsCollector struct {
	logger *pterm.Logger
	now    func() time.Time

	counters [eventCount]atomic.Int64

	// Lookup timestamps inside the rate window.
	lookupBuffer []time.Time
	bufferMu     sync.Mutex

	mu                sync.RWMutex
	activeConnections int
	lookupRate        float64
	lastLookupTime    time.Time
	cachedJSON        []byte

	startedAt time.Time
	stopChan  chan struct{}
	stopped   bool
}

const eventCount = int(reputation.EventDuplicateRecovered) + 1

// CacheMetrics is a point-in-time view of cache activity since start.
type CacheMetrics struct {
	Lookups            int64     `json:"lookups"`
	Hits               int64     `json:"hits"`
	Created            int64     `json:"created"`
	Refreshed          int64     `json:"refreshed"`
	StaleServed        int64     `json:"stale_served"`
	FetchFailed        int64     `json:"fetch_failed"`
	DuplicateRecovered int64     `json:"duplicate_recovered"`
	HitRatio           float64   `json:"hit_ratio"`
	LookupRate         float64   `json:"lookup_rate"` // lookups/sec over the last 5s
	ActiveConnections  int       `json:"active_connections"`
	LastLookup         time.Time `json:"last_lookup,omitzero"`
	Uptime             string    `json:"uptime"`
	Timestamp          time.Time `json:"timestamp"`
}

// NewMetricsCollector creates a collector. Call Start to refresh snapshots.
func NewMetricsCollector(logger *pterm.Logger) *MetricsCollector {
	return &MetricsCollector{
		logger:       logger,
		now:          time.Now,
		lookupBuffer: make([]time.Time, 0, 1024),
		startedAt:    time.Now(),
		stopChan:     make(chan struct{}),
	}
}

// Observe records one cache event.
func (m *MetricsCollector) Observe(event reputation.Event) {
	if int(event) < 0 || int(event) >= eventCount {
		return
	}
	m.counters[event].Add(1)

	if event == reputation.EventLookup {
		now := m.now()
		m.bufferMu.Lock()
		m.lookupBuffer = append(m.lookupBuffer, now)
		m.bufferMu.Unlock()

		m.mu.Lock()
		m.lastLookupTime = now
		m.mu.Unlock()
	}
}

// Start begins refreshing the snapshot at regular intervals.
func (m *MetricsCollector) Start(interval time.Duration) {
	m.collectMetrics()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.collectMetrics()
			case <-m.stopChan:
				m.logger.Info("Cache metrics collector stopped")
				return
			}
		}
	}()
	m.logger.Info("Cache metrics collector started",
		m.logger.Args("interval", interval.String()))
}

// Stop gracefully stops the collector.
func (m *MetricsCollector) Stop() {
	m.mu.Lock()
	if !m.stopped {
		m.stopped = true
		close(m.stopChan)
	}
	m.mu.Unlock()
}

// SetActiveConnections updates the number of connected stream clients.
func (m *MetricsCollector) SetActiveConnections(n int) {
	m.mu.Lock()
	m.activeConnections = n
	m.mu.Unlock()
}

// GetCachedJSON returns the JSON form of the last collected snapshot.
func (m *MetricsCollector) GetCachedJSON() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cachedJSON
}

// collectMetrics prunes the lookup window and refreshes the cached snapshot.
func (m *MetricsCollector) collectMetrics() {
	now := m.now()
	windowStart := now.Add(-rateWindow)

	m.bufferMu.Lock()
	firstValid := len(m.lookupBuffer)
	for i, ts := range m.lookupBuffer {
		if ts.After(windowStart) {
			firstValid = i
			break
		}
	}
	kept := make([]time.Time, len(m.lookupBuffer)-firstValid, cap(m.lookupBuffer))
	copy(kept, m.lookupBuffer[firstValid:])
	m.lookupBuffer = kept
	inWindow := len(kept)
	m.bufferMu.Unlock()

	m.mu.Lock()
	m.lookupRate = float64(inWindow) / rateWindow.Seconds()
	m.mu.Unlock()

	data, err := json.Marshal(m.GetMetrics())
	if err != nil {
		m.logger.Error("Failed to marshal cache metrics", m.logger.Args("error", err))
		return
	}

	m.mu.Lock()
	m.cachedJSON = data
	m.mu.Unlock()
}

// GetMetrics returns the current counters and the last computed rate.
func (m *MetricsCollector) GetMetrics() *CacheMetrics {
	now := m.now()

	m.mu.RLock()
	metrics := &CacheMetrics{
		LookupRate:        m.lookupRate,
		ActiveConnections: m.activeConnections,
		LastLookup:        m.lastLookupTime,
		Uptime:            now.Sub(m.startedAt).Round(time.Second).String(),
		Timestamp:         now,
	}
	m.mu.RUnlock()

	metrics.Lookups = m.counters[reputation.EventLookup].Load()
	metrics.Hits = m.counters[reputation.EventHit].Load()
	metrics.Created = m.counters[reputation.EventCreated].Load()
	metrics.Refreshed = m.counters[reputation.EventRefreshed].Load()
	metrics.StaleServed = m.counters[reputation.EventStaleServed].Load()
	metrics.FetchFailed = m.counters[reputation.EventFetchFailed].Load()
	metrics.DuplicateRecovered = m.counters[reputation.EventDuplicateRecovered].Load()

	if metrics.Lookups > 0 {
		metrics.HitRatio = float64(metrics.Hits) / float64(metrics.Lookups)
	}
	return metrics
}
