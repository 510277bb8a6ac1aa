package partition_orchestra

import (
	"container/list"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

const (
	ProcessPartitionsWorkflowAlias string = "process-partitions-workflow-alias"
	ProcessPartitionActivityAlias  string = "process-partition-activity-alias"
)

const (
	FAILED_REMOVE_FUTURE = "failed to remove future from queue"
)

var (
	ErrFailedRemoveFuture = errors.New(FAILED_REMOVE_FUTURE)
)

const MinimumInProcessBatches = 1
const DefaultInProcessBatches = 2

// PartitionRequest is the workflow input & output state.
type PartitionRequest[T any] struct {
	RunID               string
	Builder             string
	Elements            []T
	EachSize            int
	MaxInProcessBatches int
	Params              domain.ParamsMap
	Results             []domain.BatchResult
	FailedBatches       int
	StartedAt           time.Time
	CompletedAt         time.Time
	Done                bool
}

type pendingBatch struct {
	future workflow.Future
	entity domain.PartitionEntity
}

// ProcessPartitionsWorkflow partitions the request's elements & processes every batch
// with ProcessPartitionActivity, keeping at most MaxInProcessBatches activities in flight.
// Batch failures are recorded in the results, they do not fail the workflow.
func ProcessPartitionsWorkflow[T any](ctx workflow.Context, req *PartitionRequest[T]) (*PartitionRequest[T], error) {
	l := workflow.GetLogger(ctx)
	wkflname := workflow.GetInfo(ctx).WorkflowType.Name

	if req == nil {
		return nil, temporal.NewNonRetryableApplicationError(ERR_NIL_LIST, ERR_NIL_LIST, ErrNilList)
	}
	if req.Elements == nil {
		return req, temporal.NewNonRetryableApplicationError(ERR_NIL_LIST, ERR_NIL_LIST, ErrNilList)
	}
	batches, err := domain.Partition(req.Elements, req.EachSize)
	if err != nil {
		l.Error("ProcessPartitionsWorkflow - invalid request", "workflow", wkflname, "error", err.Error())
		return req, temporal.NewNonRetryableApplicationError(err.Error(), err.Error(), err)
	}

	if req.MaxInProcessBatches < MinimumInProcessBatches {
		req.MaxInProcessBatches = DefaultInProcessBatches
	}
	if req.RunID == "" {
		req.RunID = workflow.GetInfo(ctx).WorkflowExecution.RunID
	}
	logKey := req.Params.LogKey(domain.DefaultLogKey)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute * 10,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
			NonRetryableErrorTypes: []string{
				ERR_MISSING_ELEMENT_HANDLER,
				ERR_MISSING_PARTITION_INPUT,
			},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	req.StartedAt = workflow.Now(ctx)
	l.Info(
		logKey+" - execution started",
		"workflow", wkflname,
		"run-id", req.RunID,
		"builder", req.Builder,
		"list-size", len(req.Elements),
		"each-size", req.EachSize,
		"batch-count", len(batches),
		"max-in-process", req.MaxInProcessBatches,
	)

	results := make([]domain.BatchResult, 0, len(batches))
	q := list.New()
	next := 0
	for next < len(batches) || q.Len() > 0 {
		if next < len(batches) && q.Len() < req.MaxInProcessBatches {
			b := batches[next]
			next++
			future := workflow.ExecuteActivity(ctx, ProcessPartitionActivityAlias, NewPartitionInput(req.RunID, b, req.Params))
			q.PushBack(&pendingBatch{future: future, entity: b.Entity})
			continue
		}

		pending, ok := q.Remove(q.Front()).(*pendingBatch)
		if !ok {
			return req, temporal.NewApplicationErrorWithCause(FAILED_REMOVE_FUTURE, FAILED_REMOVE_FUTURE, ErrFailedRemoveFuture)
		}

		var res domain.BatchResult
		if err := pending.future.Get(ctx, &res); err != nil {
			l.Error(
				logKey+" - batch failed",
				append([]any{"workflow", wkflname, "run-id", req.RunID, "error", err.Error()}, pending.entity.LogAttrs()...)...,
			)
			res = domain.NewBatchResult(req.RunID, pending.entity)
			res.Error = err.Error()
		}
		if res.Error != "" {
			req.FailedBatches++
		}
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].BatchNo < results[j].BatchNo })
	req.Results = results
	req.CompletedAt = workflow.Now(ctx)
	req.Done = true

	l.Info(
		logKey+" - execution completed",
		"workflow", wkflname,
		"run-id", req.RunID,
		"batch-count", len(batches),
		"failed-batches", req.FailedBatches,
		"elapsed", req.CompletedAt.Sub(req.StartedAt).String(),
	)
	return req, nil
}

// ExecutionReport converts the workflow state into an executor report. Elapsed is the
// workflow clock time from start to completion.
func (r *PartitionRequest[T]) ExecutionReport() *domain.ExecutionReport {
	rep := &domain.ExecutionReport{
		RunID:       r.RunID,
		Builder:     r.Builder,
		Total:       len(r.Elements),
		EachSize:    r.EachSize,
		BatchCount:  len(r.Results),
		Batches:     r.Results,
		FailedCount: r.FailedBatches,
	}
	if r.Done {
		rep.Elapsed = r.CompletedAt.Sub(r.StartedAt)
	}
	if r.FailedBatches > 0 {
		rep.Error = fmt.Sprintf("%d of %d batches failed", r.FailedBatches, len(r.Results))
	}
	return rep
}
