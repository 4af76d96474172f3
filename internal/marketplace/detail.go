package marketplace

import (
	"context"
	"sync"
)

// detailJob enriches the listing at the given index in place, usually by
// fetching its product page.
type detailJob func(ctx context.Context, idx int) error

// runDetailPool fans listing indices out to a bounded set of workers and
// collects per-listing errors. A listing whose enrichment fails keeps its
// search-page values; the pool never drops entries.
func runDetailPool(ctx context.Context, concurrency, total int, fn detailJob) []error {
	if total == 0 {
		return nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > total {
		concurrency = total
	}

	jobs := make(chan int, total)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case idx, ok := <-jobs:
					if !ok {
						return
					}
					if err := fn(ctx, idx); err != nil {
						errCh <- err
					}
				}
			}
		}()
	}

	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errs
}
