package partition_orchestra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/log"

	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

// Error messages used by the executor
const (
	ERR_NIL_LIST          = "partition executor: list is nil"
	ERR_EMPTY_LIST        = domain.ERR_EMPTY_LIST
	ERR_NIL_BUILDER       = "partition executor: batch builder is nil"
	ERR_NON_POSITIVE_SIZE = domain.ERR_NON_POSITIVE_SIZE
	ERR_NIL_RUNNABLE      = "partition executor: batch builder returned nil runnable"
	ERR_BATCH_PANIC       = "partition executor: batch panicked"
	ERR_ELEMENT_PANIC     = "partition executor: element handler panicked"
	ERR_BATCH_NOT_STARTED = "partition executor: batch not started"
)

var (
	ErrNilList         = errors.New(ERR_NIL_LIST)
	ErrEmptyList       = domain.ErrEmptyList
	ErrNilBuilder      = errors.New(ERR_NIL_BUILDER)
	ErrNonPositiveSize = domain.ErrNonPositiveSize
	ErrNilRunnable     = errors.New(ERR_NIL_RUNNABLE)
	ErrBatchPanic      = errors.New(ERR_BATCH_PANIC)
	ErrElementPanic    = errors.New(ERR_ELEMENT_PANIC)
)

// Validate checks executor inputs, returning the first violated precondition.
func Validate[T any](list []T, eachSize int, builder *domain.NamedBuilder[T]) error {
	if list == nil {
		return ErrNilList
	}
	if len(list) == 0 {
		return ErrEmptyList
	}
	if builder == nil || builder.Build == nil {
		return ErrNilBuilder
	}
	if eachSize <= 0 {
		return ErrNonPositiveSize
	}
	return nil
}

// Execute splits list into batches of eachSize elements, builds one runnable per batch
// with builder & hands them to the configured runner. It waits for every batch.
//
// Precondition failures are returned before any builder call. Batch level failures
// (returned errors, panics) are joined into the returned error; per-element failures
// are isolated by the element handler & only show up in logs & batch results.
func Execute[T any](
	ctx context.Context,
	list []T,
	eachSize int,
	params domain.ParamsMap,
	builder *domain.NamedBuilder[T],
	opts ...Option,
) (*domain.ExecutionReport, error) {
	o := buildExecutorOptions(ctx, opts)
	l := o.logger
	logKey := params.LogKey(domain.DefaultLogKey)

	if err := Validate(list, eachSize, builder); err != nil {
		l.Error(logKey+" - invalid execution request", "error", err.Error(), "list-size", len(list), "each-size", eachSize)
		return nil, err
	}

	batches, err := domain.Partition(list, eachSize)
	if err != nil {
		return nil, err
	}

	report := &domain.ExecutionReport{
		RunID:      o.runID,
		Builder:    builder.Name,
		Total:      len(list),
		EachSize:   eachSize,
		BatchCount: len(batches),
	}

	l.Info(
		logKey+" - execution started",
		"run-id", o.runID,
		"builder", builder.Name,
		"list-size", len(list),
		"each-size", eachSize,
		"batch-count", len(batches),
	)
	start := time.Now()
	ctx = domain.WithRunProgress(ctx, &domain.RunProgress{Counter: domain.NewCounter(), Started: start})

	results := make([]domain.BatchResult, len(batches))
	runnables := make([]domain.Runnable, len(batches))
	for i, b := range batches {
		runnables[i] = trackBatch(o.runID, logKey, b.Entity, builder.Build(b.Elements, b.Entity, params), &results[i], o.recorder, l)
	}

	runErr := o.runner(ctx, runnables)

	for i, b := range batches {
		if results[i].BatchNo == 0 {
			// skipped by the runner, e.g. cancelled before start
			results[i] = domain.NewBatchResult(o.runID, b.Entity)
			results[i].Error = ERR_BATCH_NOT_STARTED
			recordBatch(ctx, o.recorder, results[i], logKey, l)
		}
		if results[i].Error != "" {
			report.FailedCount++
		}
	}
	report.Batches = results
	report.Elapsed = time.Since(start)

	if runErr != nil {
		report.Error = runErr.Error()
		l.Error(
			logKey+" - execution completed with errors",
			"run-id", o.runID,
			"builder", builder.Name,
			"failed-batches", report.FailedCount,
			"elapsed", report.Elapsed.String(),
			"error", runErr.Error(),
		)
		return report, runErr
	}

	l.Info(
		logKey+" - execution completed",
		"run-id", o.runID,
		"builder", builder.Name,
		"list-size", len(list),
		"batch-count", len(batches),
		"elapsed", report.Elapsed.String(),
	)
	return report, nil
}

// trackBatch wraps run with timing, stats collection & panic recovery, storing the outcome in out.
// Each out slot is written by exactly one runnable.
func trackBatch(
	runID, logKey string,
	entity domain.PartitionEntity,
	run domain.Runnable,
	out *domain.BatchResult,
	recorder domain.Recorder,
	l log.Logger,
) domain.Runnable {
	return func(ctx context.Context) (err error) {
		res := domain.NewBatchResult(runID, entity)
		stats := &domain.BatchStats{}
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s: %w: %v", entity.Name(), ErrBatchPanic, r)
			}
			res.Processed, res.Failed = stats.Processed(), stats.Failed()
			res.Elapsed = time.Since(start)
			if err != nil {
				res.Error = err.Error()
				l.Error(logKey+" - batch failed", append([]any{"run-id", runID, "error", err.Error()}, entity.LogAttrs()...)...)
			}
			*out = res
			recordBatch(ctx, recorder, res, logKey, l)
		}()

		if run == nil {
			return fmt.Errorf("%s: %w", entity.Name(), ErrNilRunnable)
		}
		return run(domain.WithBatchStats(ctx, stats))
	}
}

// recordBatch sends res to recorder. Results of cancelled batches are still recorded.
func recordBatch(ctx context.Context, recorder domain.Recorder, res domain.BatchResult, logKey string, l log.Logger) {
	if recorder == nil {
		return
	}
	if err := recorder.Record(context.WithoutCancel(ctx), res); err != nil {
		l.Error(
			logKey+" - error recording batch result",
			"run-id", res.RunID,
			"recorder", recorder.Name(),
			"batch-no", res.BatchNo,
			"error", err.Error(),
		)
	}
}
