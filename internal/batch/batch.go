// Package batch implements the Batch Executor (C2): a generic
// bounded-parallelism scheduler over a sequence with inter-batch pacing,
// grounded on the teacher's fixed-size worker-goroutine fan-out in
// datasync/chaindatafetcher/chaindata_fetcher.go (numHandlers goroutines
// draining a shared channel), generalized into a reusable batching helper
// that preserves input order in its output.
package batch

import (
	"context"
	"sync"
	"time"
)

// Run processes items in fixed-size batches of size b. Within a batch all
// invocations of w run concurrently; the next batch starts only after every
// invocation in the current batch has settled and delay d has elapsed.
// Output preserves the input order. A single worker failure does not cancel
// its siblings; failures are reported per-index via the err slice.
func Run[T any, U any](ctx context.Context, items []T, b int, d time.Duration, w func(ctx context.Context, item T) (U, error)) ([]U, []error) {
	if b <= 0 {
		b = 1
	}
	results := make([]U, len(items))
	errs := make([]error, len(items))

	for start := 0; start < len(items); start += b {
		end := start + b
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				if ctx.Err() != nil {
					errs[idx] = ctx.Err()
					return
				}
				res, err := w(ctx, items[idx])
				results[idx] = res
				errs[idx] = err
			}(i)
		}
		wg.Wait()

		if end < len(items) && d > 0 {
			select {
			case <-ctx.Done():
				return results, errs
			case <-time.After(d):
			}
		}
	}
	return results, errs
}
