package partition_orchestra

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/workflow"
)

const ERR_MISSING_TASK_QUEUE = "error missing task queue"

var ErrMissingTaskQueue = errors.New(ERR_MISSING_TASK_QUEUE)

// Registerer is satisfied by worker.Worker & the temporal test environment.
type Registerer interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// RegisterPartitionWorkflow registers the partition workflow & activity for element type T
// under their aliases. A worker serves one element type.
func RegisterPartitionWorkflow[T any](r Registerer) {
	r.RegisterWorkflowWithOptions(
		ProcessPartitionsWorkflow[T],
		workflow.RegisterOptions{
			Name: ProcessPartitionsWorkflowAlias,
		},
	)
	r.RegisterActivityWithOptions(
		ProcessPartitionActivity[T],
		activity.RegisterOptions{
			Name: ProcessPartitionActivityAlias,
		},
	)
}

// PartitionWorkflowID is the workflow id used for a run.
func PartitionWorkflowID(runID string) string {
	return fmt.Sprintf("partitions-%s", runID)
}

// StartProcessPartitions starts the partition workflow for req on taskQueue.
// A run id is rejected while a previous run with the same id is open or completed successfully.
func StartProcessPartitions[T any](ctx context.Context, c client.Client, taskQueue string, req *PartitionRequest[T]) (client.WorkflowRun, error) {
	if taskQueue == "" {
		return nil, ErrMissingTaskQueue
	}
	if req == nil || req.Elements == nil {
		return nil, ErrNilList
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	opts := client.StartWorkflowOptions{
		ID:                    PartitionWorkflowID(req.RunID),
		TaskQueue:             taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}
	return c.ExecuteWorkflow(ctx, opts, ProcessPartitionsWorkflowAlias, req)
}
