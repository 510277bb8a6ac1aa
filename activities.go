package partition_orchestra

import (
	"context"
	"errors"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

/**
 * activities used by the partition workflow.
 */

const (
	ElementHandlerContextKey  = domain.ContextKey("element-handler")
	ProgressCounterContextKey = domain.ContextKey("progress-counter")
	ObserverContextKey        = domain.ContextKey("observer")
)

const (
	ERR_MISSING_ELEMENT_HANDLER = "error missing element handler"
	ERR_MISSING_PARTITION_INPUT = "error missing partition input"
)

var (
	ErrMissingElementHandler = errors.New(ERR_MISSING_ELEMENT_HANDLER)
	ErrMissingPartitionInput = errors.New(ERR_MISSING_PARTITION_INPUT)
)

var (
	ErrorMissingElementHandler = temporal.NewNonRetryableApplicationError(ERR_MISSING_ELEMENT_HANDLER, ERR_MISSING_ELEMENT_HANDLER, ErrMissingElementHandler)
	ErrorMissingPartitionInput = temporal.NewNonRetryableApplicationError(ERR_MISSING_PARTITION_INPUT, ERR_MISSING_PARTITION_INPUT, ErrMissingPartitionInput)
)

// PartitionInput is the serializable form of one batch, the input for ProcessPartitionActivity.
type PartitionInput[T any] struct {
	RunID      string
	BatchNo    int
	BatchCount int
	Start      int
	Total      int
	Elements   []T
	Params     domain.ParamsMap
}

// NewPartitionInput converts a batch into activity input.
func NewPartitionInput[T any](runID string, b domain.Batch[T], params domain.ParamsMap) *PartitionInput[T] {
	return &PartitionInput[T]{
		RunID:      runID,
		BatchNo:    b.Entity.BatchNo(),
		BatchCount: b.Entity.BatchCount(),
		Start:      b.Entity.Start(),
		Total:      b.Entity.Total(),
		Elements:   b.Elements,
		Params:     params,
	}
}

// Entity rebuilds the batch metadata.
func (in *PartitionInput[T]) Entity() domain.PartitionEntity {
	return domain.NewPartitionEntity(in.BatchNo, in.BatchCount, in.Start, len(in.Elements), in.Total)
}

// ProcessPartitionActivity runs the worker's element handler over one batch.
// The handler is resolved from the worker background context under ElementHandlerContextKey,
// an optional *domain.Counter under ProgressCounterContextKey is shared for progress logs.
func ProcessPartitionActivity[T any](ctx context.Context, in *PartitionInput[T]) (*domain.BatchResult, error) {
	l := activity.GetLogger(ctx)

	if in == nil {
		l.Error(ERR_MISSING_PARTITION_INPUT)
		return nil, ErrorMissingPartitionInput
	}

	handler, ok := ctx.Value(ElementHandlerContextKey).(domain.ElementHandler[T])
	if !ok || handler == nil {
		l.Error(ERR_MISSING_ELEMENT_HANDLER, "run-id", in.RunID, "batch-no", in.BatchNo)
		return nil, ErrorMissingElementHandler
	}

	opts := []HandlerOption{WithHandlerLogger(l)}
	if counter, ok := ctx.Value(ProgressCounterContextKey).(*domain.Counter); ok {
		opts = append(opts, WithCounter(counter))
	}
	if observer, ok := ctx.Value(ObserverContextKey).(Observer); ok {
		opts = append(opts, WithObserver(observer))
	}
	o := buildHandlerOptions(opts)

	entity := in.Entity()
	res := domain.NewBatchResult(in.RunID, entity)
	start := time.Now()

	processed, failed, err := handleElements(ctx, l, in.Elements, entity, in.Params, handler, o, o.runProgress(ctx))
	res.Processed, res.Failed = processed, failed
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return &res, err
	}

	return &res, nil
}
