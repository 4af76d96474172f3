// Package crawler orchestrates the per-marketplace adapters: it fans a
// search query out to every enabled adapter concurrently, paces outbound
// requests per host, and merges partial results.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"souqsearch/internal/marketplace"
	"souqsearch/pkg/types"
)

// Orchestrator runs all enabled adapters for one query and merges their
// output. One adapter failing, or even panicking, never takes down the
// others; its errors are collected and the run continues.
type Orchestrator struct {
	adapters []marketplace.Adapter
	logger   *slog.Logger
}

func NewOrchestrator(adapters []marketplace.Adapter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{adapters: adapters, logger: logger}
}

// Result carries the merged crawl output plus every error observed along
// the way. Errors are advisory: listings presence is the success signal.
type Result struct {
	Listings []types.RawListing
	Errors   []error
}

// CrawlAll fans the query out to every adapter in its own goroutine and
// blocks until all complete or the context is cancelled. Listings are
// deduplicated by canonical product link across adapters and pages.
func (o *Orchestrator) CrawlAll(ctx context.Context, query string, opts types.CrawlOptions) Result {
	var (
		mu     sync.Mutex
		merged Result
		wg     sync.WaitGroup
	)
	seen := newSeenSet()

	for _, adapter := range o.adapters {
		wg.Add(1)
		go func(a marketplace.Adapter) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("adapter panicked", "marketplace", a.Name(), "panic", r)
					mu.Lock()
					merged.Errors = append(merged.Errors, fmt.Errorf("%s: panic: %v", a.Name(), r))
					mu.Unlock()
				}
			}()

			listings, errs := a.Crawl(ctx, query, opts)
			o.logger.Info("adapter finished",
				"marketplace", a.Name(), "listings", len(listings), "errors", len(errs))

			mu.Lock()
			defer mu.Unlock()
			for _, listing := range listings {
				if seen.add(listing.ProductLink) {
					merged.Listings = append(merged.Listings, listing)
				}
			}
			merged.Errors = append(merged.Errors, errs...)
		}(adapter)
	}

	wg.Wait()
	if len(merged.Listings) == 0 {
		o.logger.Warn("no listings collected from any marketplace", "query", query)
	}
	return merged
}
