package partition_orchestra

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/log"

	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

// DefaultProgressEvery is the number of processed elements between progress logs.
const DefaultProgressEvery = 1000

// Observer is notified of element & batch outcomes, e.g. for metrics.
// Calls arrive concurrently from all running batches.
type Observer interface {
	ElementProcessed(entity domain.PartitionEntity)
	ElementFailed(entity domain.PartitionEntity, err error)
	BatchCompleted(entity domain.PartitionEntity, processed, failed int, elapsed time.Duration)
}

// HandlerOption configures the per-element builder.
type HandlerOption func(*handlerOptions)

type handlerOptions struct {
	counter       *domain.Counter
	progressEvery int64
	observer      Observer
	logger        log.Logger
}

// WithCounter shares counter across batches & runs for progress logs. By default each
// executor run counts from zero.
func WithCounter(counter *domain.Counter) HandlerOption {
	return func(o *handlerOptions) {
		o.counter = counter
	}
}

// WithProgressEvery logs progress every n processed elements, 0 disables progress logs.
func WithProgressEvery(n int) HandlerOption {
	return func(o *handlerOptions) {
		if n >= 0 {
			o.progressEvery = int64(n)
		}
	}
}

// WithObserver registers an outcome observer.
func WithObserver(observer Observer) HandlerOption {
	return func(o *handlerOptions) {
		o.observer = observer
	}
}

// WithHandlerLogger overrides the context logger.
func WithHandlerLogger(l log.Logger) HandlerOption {
	return func(o *handlerOptions) {
		o.logger = l
	}
}

func buildHandlerOptions(opts []HandlerOption) *handlerOptions {
	o := &handlerOptions{progressEvery: DefaultProgressEvery}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// runProgress resolves progress for a batch: the run progress set by Execute, else a batch
// local one. An injected counter replaces the run counter.
func (o *handlerOptions) runProgress(ctx context.Context) *domain.RunProgress {
	p := domain.RunProgressFromContext(ctx)
	if p == nil {
		p = domain.NewRunProgress()
	}
	if o.counter != nil && o.counter != p.Counter {
		return &domain.RunProgress{Counter: o.counter, Started: p.Started}
	}
	return p
}

// PerElementBuilder returns a batch builder running handler once per element, in order.
// An element failure (error or panic) is logged with the element & batch metadata and the
// batch moves on to the next element. Returns nil when handler is nil.
func PerElementBuilder[T any](name string, handler domain.ElementHandler[T], opts ...HandlerOption) *domain.NamedBuilder[T] {
	if handler == nil {
		return nil
	}
	o := buildHandlerOptions(opts)

	return domain.NewNamedBuilder(name, func(elements []T, entity domain.PartitionEntity, params domain.ParamsMap) domain.Runnable {
		return func(ctx context.Context) error {
			l := o.logger
			if l == nil {
				l = loggerFromContext(ctx)
			}
			_, _, err := handleElements(ctx, l, elements, entity, params, handler, o, o.runProgress(ctx))
			return err
		}
	})
}

// handleElements runs handler over elements. It only returns an error when ctx is done mid batch.
func handleElements[T any](
	ctx context.Context,
	l log.Logger,
	elements []T,
	entity domain.PartitionEntity,
	params domain.ParamsMap,
	handler domain.ElementHandler[T],
	o *handlerOptions,
	progress *domain.RunProgress,
) (processed, failed int, err error) {
	logKey := params.LogKey(domain.DefaultLogKey)

	if len(elements) == 0 {
		l.Warn(logKey+" - empty batch, nothing to process", entity.LogAttrs()...)
		return 0, 0, nil
	}

	stats := domain.BatchStatsFromContext(ctx)
	batchStart := time.Now()
	l.Debug(logKey+" - batch started", entity.LogAttrs()...)

	for i, el := range elements {
		if ctxErr := ctx.Err(); ctxErr != nil {
			l.Warn(
				logKey+" - batch interrupted",
				append([]any{"processed", processed, "failed", failed, "error", ctxErr.Error()}, entity.LogAttrs()...)...,
			)
			return processed, failed, ctxErr
		}

		if hErr := invokeHandler(ctx, handler, el, entity, params); hErr != nil {
			failed++
			stats.AddFailed()
			if o.observer != nil {
				o.observer.ElementFailed(entity, hErr)
			}
			l.Error(
				logKey+" - error processing element",
				append([]any{"element", el, "element-index", entity.Start() + i, "error", hErr.Error()}, entity.LogAttrs()...)...,
			)
			continue
		}

		processed++
		stats.AddProcessed()
		if o.observer != nil {
			o.observer.ElementProcessed(entity)
		}

		count := progress.Counter.IncrementAndGet()
		if o.progressEvery > 0 && count%o.progressEvery == 0 {
			l.Info(
				logKey+" - progress",
				"processed", count,
				"total", entity.Total(),
				"batch-no", entity.BatchNo(),
				"elapsed", time.Since(progress.Started).String(),
			)
		}
	}

	elapsed := time.Since(batchStart)
	if o.observer != nil {
		o.observer.BatchCompleted(entity, processed, failed, elapsed)
	}
	l.Debug(
		logKey+" - batch completed",
		append([]any{"processed", processed, "failed", failed, "elapsed", elapsed.String()}, entity.LogAttrs()...)...,
	)
	return processed, failed, nil
}

func invokeHandler[T any](
	ctx context.Context,
	handler domain.ElementHandler[T],
	el T,
	entity domain.PartitionEntity,
	params domain.ParamsMap,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrElementPanic, r)
		}
	}()
	return handler(ctx, el, entity, params)
}
