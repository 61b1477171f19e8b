package reputation

import (
	"context"
	"time"
)

// Store persists reputation records. Implementations must enforce one record
// per domain and report a second insert with ErrDuplicateKey.
type Store interface {
	FindByDomain(ctx context.Context, domain string) (*Record, error)
	Insert(ctx context.Context, record *Record) error
	Update(ctx context.Context, record *Record) error
}

// Fetcher retrieves raw metrics for a canonical domain from the remote service.
type Fetcher interface {
	Fetch(ctx context.Context, domain string) (Metrics, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, domain string) (Metrics, error)

func (f FetcherFunc) Fetch(ctx context.Context, domain string) (Metrics, error) {
	return f(ctx, domain)
}

// Enricher adds optional host information to a freshly fetched record.
type Enricher interface {
	Enrich(ctx context.Context, record *Record) error
}

// Event is a cache outcome reported to a Recorder.
type Event int

const (
	EventLookup Event = iota
	EventHit
	EventCreated
	EventRefreshed
	EventStaleServed
	EventFetchFailed
	EventDuplicateRecovered
)

func (e Event) String() string {
	switch e {
	case EventLookup:
		return "lookup"
	case EventHit:
		return "hit"
	case EventCreated:
		return "created"
	case EventRefreshed:
		return "refreshed"
	case EventStaleServed:
		return "stale_served"
	case EventFetchFailed:
		return "fetch_failed"
	case EventDuplicateRecovered:
		return "duplicate_recovered"
	}
	return "unknown"
}

// Recorder observes cache events.
type Recorder interface {
	Observe(event Event)
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.Metrics != nil {
		out.Metrics = make(Metrics, len(r.Metrics))
		for c, m := range r.Metrics {
			out.Metrics[c] = Metric{
				Reputation: cloneInt(m.Reputation),
				Confidence: cloneInt(m.Confidence),
			}
		}
	}
	return &out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// days truncates d to whole days.
func days(d time.Duration) int64 {
	return int64(d / (24 * time.Hour))
}
