// MIT License
//
// # Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
package reputation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultExpiration is the age after which a record is refetched.
	DefaultExpiration = 180 * 24 * time.Hour
	// DefaultFetchTimeout bounds a single remote lookup.
	DefaultFetchTimeout = 10 * time.Second
)

// Options tunes a Cache. Zero values fall back to the defaults.
type Options struct {
	Expiration   time.Duration
	FetchTimeout time.Duration
	Normalizer   Normalizer
	Enricher     Enricher
	Recorder     Recorder
	Now          func() time.Time
}

// Cache returns fresh reputation records, fetching them from the remote service
// when they are missing or stale.
type Cache struct {
	store        Store
	fetcher      Fetcher
	logger       *pterm.Logger
	normalizer   Normalizer
	enricher     Enricher
	recorder     Recorder
	expiration   time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	flight       singleflight.Group
}

// NewCache creates a cache over store and fetcher.
func NewCache(store Store, fetcher Fetcher, logger *pterm.Logger, opts Options) *Cache {
	if opts.Expiration <= 0 {
		opts.Expiration = DefaultExpiration
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Cache{
		store:        store,
		fetcher:      fetcher,
		logger:       logger,
		normalizer:   opts.Normalizer,
		enricher:     opts.Enricher,
		recorder:     opts.Recorder,
		expiration:   opts.Expiration,
		fetchTimeout: opts.FetchTimeout,
		now:          opts.Now,
	}
}

// Expiration returns the configured expiration period.
func (c *Cache) Expiration() time.Duration {
	return c.expiration
}

// Normalize canonicalises input with the cache's normaliser.
func (c *Cache) Normalize(input string) (string, error) {
	return c.normalizer.Normalize(input)
}

// GetOrRefresh returns the record for the domain behind urlOrDomain.
//
// A missing record is fetched and stored; a fetch failure is returned as a
// *FetchError and nothing is stored. A stale record is refetched in place; if
// that fetch fails the stale record is returned unchanged. Concurrent calls for
// the same domain share one lookup.
func (c *Cache) GetOrRefresh(ctx context.Context, urlOrDomain string) (*Record, error) {
	domain, err := c.normalizer.Normalize(urlOrDomain)
	if err != nil {
		return nil, err
	}
	c.observe(EventLookup)

	// The shared lookup must not die with whichever caller started it.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(domain, func() (any, error) {
		return c.resolve(flightCtx, domain)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		record := res.Val.(*Record)
		if res.Shared {
			record = record.Clone()
		}
		return record, nil
	}
}

// Peek returns the stored record without contacting the remote service.
func (c *Cache) Peek(ctx context.Context, urlOrDomain string) (*Record, error) {
	domain, err := c.normalizer.Normalize(urlOrDomain)
	if err != nil {
		return nil, err
	}
	return c.store.FindByDomain(ctx, domain)
}

// IsStale reports whether record has outlived the expiration period.
// Ages are compared in whole days.
func (c *Cache) IsStale(record *Record) bool {
	return days(record.Age(c.now())) > days(c.expiration)
}

func (c *Cache) resolve(ctx context.Context, domain string) (*Record, error) {
	record, err := c.store.FindByDomain(ctx, domain)
	if errors.Is(err, ErrNotFound) {
		return c.create(ctx, domain)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", domain, err)
	}

	if !c.IsStale(record) {
		c.logger.Trace("Reputation cache hit", c.logger.Args("domain", domain))
		c.observe(EventHit)
		return record, nil
	}

	return c.refresh(ctx, record)
}

func (c *Cache) create(ctx context.Context, domain string) (*Record, error) {
	c.logger.Debug("Reputation cache miss, fetching", c.logger.Args("domain", domain))

	metrics, err := c.fetch(ctx, domain)
	if err != nil {
		c.observe(EventFetchFailed)
		c.logger.Warn("Reputation fetch failed for new domain", c.logger.Args("domain", domain, "error", err))
		return nil, err
	}

	record := &Record{
		Domain:     domain,
		Metrics:    metrics,
		LastUpdate: c.now(),
	}
	c.enrich(ctx, record)

	if err := c.store.Insert(ctx, record); err != nil {
		if !errors.Is(err, ErrDuplicateKey) {
			return nil, fmt.Errorf("insert %s: %w", domain, err)
		}

		// Another writer created the record first; theirs wins.
		existing, ferr := c.store.FindByDomain(ctx, domain)
		if ferr != nil {
			return nil, fmt.Errorf("re-read %s after duplicate insert: %w", domain, ferr)
		}
		c.observe(EventDuplicateRecovered)
		c.logger.Debug("Reputation record created concurrently, using stored copy", c.logger.Args("domain", domain))
		return existing, nil
	}

	c.observe(EventCreated)
	c.logger.Info("Reputation record created", c.logger.Args("domain", domain, "categories", len(metrics)))
	return record, nil
}

func (c *Cache) refresh(ctx context.Context, stale *Record) (*Record, error) {
	c.logger.Debug("Reputation record expired, refreshing",
		c.logger.Args("domain", stale.Domain, "last_update", stale.LastUpdate))

	metrics, err := c.fetch(ctx, stale.Domain)
	if err != nil {
		c.observe(EventFetchFailed)
		c.observe(EventStaleServed)
		c.logger.Warn("Reputation refresh failed, serving stale record",
			c.logger.Args("domain", stale.Domain, "last_update", stale.LastUpdate, "error", err))
		return stale, nil
	}

	updated := stale.Clone()
	updated.Metrics = metrics
	updated.LastUpdate = c.now()
	c.enrich(ctx, updated)

	if err := c.store.Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("update %s: %w", stale.Domain, err)
	}

	c.observe(EventRefreshed)
	c.logger.Info("Reputation record refreshed", c.logger.Args("domain", updated.Domain))
	return updated, nil
}

func (c *Cache) fetch(ctx context.Context, domain string) (Metrics, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	raw, err := c.fetcher.Fetch(ctx, domain)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &FetchError{Domain: domain, Err: err}
	}

	metrics := make(Metrics, len(raw))
	for category, m := range raw {
		if !category.Valid() {
			continue
		}
		metrics[category] = m
	}
	return metrics, nil
}

func (c *Cache) enrich(ctx context.Context, record *Record) {
	if c.enricher == nil {
		return
	}
	if err := c.enricher.Enrich(ctx, record); err != nil {
		c.logger.Debug("Host enrichment failed", c.logger.Args("domain", record.Domain, "error", err))
	}
}

func (c *Cache) observe(event Event) {
	if c.recorder != nil {
		c.recorder.Observe(event)
	}
}
