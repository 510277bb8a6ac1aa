package partition_orchestra

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

// ThreadPerBatch starts one goroutine per runnable & waits for all of them.
// Concurrency is unbounded, prefer Pooled for large inputs.
func ThreadPerBatch() domain.RunBatchesFunc {
	return func(ctx context.Context, runnables []domain.Runnable) error {
		errs := make([]error, len(runnables))

		var wg sync.WaitGroup
		for i, run := range runnables {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = runSafely(ctx, i, run)
			}()
		}
		wg.Wait()

		return multierr.Combine(errs...)
	}
}

// Pooled runs runnables on at most limit concurrent workers, in submission order.
// A limit <= 0 uses GOMAXPROCS. A failing runnable never cancels the others.
func Pooled(limit int) domain.RunBatchesFunc {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	return func(ctx context.Context, runnables []domain.Runnable) error {
		errs := make([]error, len(runnables))

		var g errgroup.Group
		g.SetLimit(limit)
		for i, run := range runnables {
			g.Go(func() error {
				errs[i] = runSafely(ctx, i, run)
				return nil
			})
		}
		_ = g.Wait()

		return multierr.Combine(errs...)
	}
}

// runSafely runs one batch, converting a panic into ErrBatchPanic.
// Runnables not yet started when ctx is done are skipped.
func runSafely(ctx context.Context, idx int, run domain.Runnable) (err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("batch %d not started: %w", idx+1, ctxErr)
	}
	if run == nil {
		return fmt.Errorf("batch %d: %w", idx+1, ErrNilRunnable)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("batch %d: %w: %v", idx+1, ErrBatchPanic, r)
		}
	}()

	return run(ctx)
}
