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
package ingestion

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"wotcache/internal/reputation"

	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"
)

// Warmer is the part of the cache the prewarmer drives.
type Warmer interface {
	GetOrRefresh(ctx context.Context, input string) (*reputation.Record, error)
}

// PrewarmResult summarises one pass over a domain list.
type PrewarmResult struct {
	Total    int           `json:"total"`
	Warmed   int           `json:"warmed"`
	Invalid  int           `json:"invalid"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Prewarmer loads every entry of a domain list through the cache so that
// later lookups are served locally.
type Prewarmer struct {
	cache       Warmer
	logger      *pterm.Logger
	concurrency int
	debounce    time.Duration
}

func NewPrewarmer(cache Warmer, logger *pterm.Logger, concurrency int) *Prewarmer {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Prewarmer{
		cache:       cache,
		logger:      logger,
		concurrency: concurrency,
		debounce:    500 * time.Millisecond,
	}
}

// Warm looks up every input with at most concurrency lookups in flight.
// Individual failures are counted, not returned; only cancellation aborts.
func (p *Prewarmer) Warm(ctx context.Context, inputs []string) (PrewarmResult, error) {
	start := time.Now()
	var warmed, invalid, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, input := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			_, err := p.cache.GetOrRefresh(gctx, input)
			switch {
			case err == nil:
				warmed.Add(1)
			case reputation.IsInvalidDomain(err):
				invalid.Add(1)
				p.logger.Debug("Skipping invalid domain list entry", p.logger.Args("entry", input))
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failed.Add(1)
			default:
				failed.Add(1)
				p.logger.Debug("Prewarm lookup failed", p.logger.Args("entry", input, "error", err))
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	result := PrewarmResult{
		Total:    len(inputs),
		Warmed:   int(warmed.Load()),
		Invalid:  int(invalid.Load()),
		Failed:   int(failed.Load()),
		Duration: time.Since(start),
	}
	return result, err
}

// WarmFile reads path and warms its entries.
func (p *Prewarmer) WarmFile(ctx context.Context, path string) (PrewarmResult, error) {
	inputs, err := ReadDomainList(path)
	if err != nil {
		return PrewarmResult{}, err
	}

	p.logger.Info("Prewarming reputation cache", p.logger.Args("path", path, "entries", len(inputs)))
	result, err := p.Warm(ctx, inputs)
	p.logger.Info("Prewarm completed",
		p.logger.Args(
			"total", result.Total,
			"warmed", result.Warmed,
			"invalid", result.Invalid,
			"failed", result.Failed,
			"duration", result.Duration.Round(time.Millisecond),
		))
	return result, err
}

// Watch warms path once, then again after each change, until ctx ends.
func (p *Prewarmer) Watch(ctx context.Context, path string) error {
	watcher, err := NewFileWatcher(path, p.logger)
	if err != nil {
		return err
	}
	defer watcher.Close()

	if _, err := p.WarmFile(ctx, path); err != nil && ctx.Err() == nil {
		p.logger.Warn("Initial prewarm failed", p.logger.Args("path", path, "error", err))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			// Let the writer finish before re-reading.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.debounce):
			}
			if _, err := p.WarmFile(ctx, path); err != nil && ctx.Err() == nil {
				p.logger.Warn("Prewarm after change failed", p.logger.Args("path", path, "error", err))
			}
		case err, ok := <-watcher.Errors():
			if !ok {
				return nil
			}
			p.logger.Debug("Watcher error during prewarm", p.logger.Args("error", err))
		}
	}
}
