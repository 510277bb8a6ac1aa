package domain

import (
	"context"
	"fmt"
	"time"
)

// Domain "record" type loaded by element sources.
type CSVRow map[string]string

// LogKeyParam is the reserved params entry customizing the log line prefix.
const LogKeyParam = "log-key"

// DefaultLogKey is the log prefix used when params carry no log key.
const DefaultLogKey = "partition"

// ParamsMap is caller supplied context threaded through to builders & handlers.
// The executor only reads LogKeyParam, everything else is opaque.
type ParamsMap map[string]any

// Get returns the value for key, nil map safe.
func (p ParamsMap) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p[key]
	return v, ok
}

// LogKey returns the string value of LogKeyParam or def.
func (p ParamsMap) LogKey(def string) string {
	if v, ok := p.Get(LogKeyParam); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// PartitionEntity describes the execution context of one batch.
// Values are created by Partition & never mutated afterwards.
type PartitionEntity struct {
	batchNo    int
	batchCount int
	start      int
	size       int
	total      int
}

// NewPartitionEntity builds batch metadata. batchNo is 1-based, start is the 0-based input index.
func NewPartitionEntity(batchNo, batchCount, start, size, total int) PartitionEntity {
	return PartitionEntity{
		batchNo:    batchNo,
		batchCount: batchCount,
		start:      start,
		size:       size,
		total:      total,
	}
}

func (e PartitionEntity) BatchNo() int    { return e.batchNo }
func (e PartitionEntity) BatchCount() int { return e.batchCount }
func (e PartitionEntity) Start() int      { return e.start }
func (e PartitionEntity) Size() int       { return e.size }
func (e PartitionEntity) Total() int      { return e.total }

// End returns the exclusive end index of the batch in the input.
func (e PartitionEntity) End() int { return e.start + e.size }

// Name returns a display name for the batch, e.g. "batch-3-of-10".
func (e PartitionEntity) Name() string {
	return fmt.Sprintf("batch-%d-of-%d", e.batchNo, e.batchCount)
}

// LogAttrs returns the entity as slog key/value pairs.
func (e PartitionEntity) LogAttrs() []any {
	return []any{
		"batch-no", e.batchNo,
		"batch-count", e.batchCount,
		"batch-start", e.start,
		"batch-size", e.size,
		"total", e.total,
	}
}

// Batch is a contiguous, non-overlapping slice of the input assigned to one unit of work.
type Batch[T any] struct {
	Entity   PartitionEntity
	Elements []T
}

// Runnable is the unit of work executing one batch.
type Runnable func(ctx context.Context) error

// RunnableBuilder builds the unit of work for an entire batch.
type RunnableBuilder[T any] func(elements []T, entity PartitionEntity, params ParamsMap) Runnable

// ElementHandler is the action taken for one element of a batch.
type ElementHandler[T any] func(ctx context.Context, element T, entity PartitionEntity, params ParamsMap) error

// RunBatchesFunc is a concurrency backend, it runs all runnables & joins them.
type RunBatchesFunc func(ctx context.Context, runnables []Runnable) error

// NamedBuilder pairs a RunnableBuilder with its display name.
type NamedBuilder[T any] struct {
	Name  string
	Build RunnableBuilder[T]
}

// NewNamedBuilder returns a named builder, nil when build is nil.
func NewNamedBuilder[T any](name string, build RunnableBuilder[T]) *NamedBuilder[T] {
	if build == nil {
		return nil
	}
	return &NamedBuilder[T]{Name: name, Build: build}
}

// BatchResult is the outcome of one batch.
type BatchResult struct {
	RunID      string        `json:"run_id"`
	BatchNo    int           `json:"batch_no"`
	BatchCount int           `json:"batch_count"`
	Start      int           `json:"start"`
	Size       int           `json:"size"`
	Processed  int           `json:"processed"`
	Failed     int           `json:"failed"`
	Elapsed    time.Duration `json:"elapsed"`
	Error      string        `json:"error,omitempty"`
}

// NewBatchResult returns an empty result for entity.
func NewBatchResult(runID string, entity PartitionEntity) BatchResult {
	return BatchResult{
		RunID:      runID,
		BatchNo:    entity.BatchNo(),
		BatchCount: entity.BatchCount(),
		Start:      entity.Start(),
		Size:       entity.Size(),
	}
}

// ExecutionReport summarizes a single executor invocation.
type ExecutionReport struct {
	RunID       string        `json:"run_id"`
	Builder     string        `json:"builder"`
	Total       int           `json:"total"`
	EachSize    int           `json:"each_size"`
	BatchCount  int           `json:"batch_count"`
	Elapsed     time.Duration `json:"elapsed"`
	Batches     []BatchResult `json:"batches,omitempty"`
	FailedCount int           `json:"failed_batches"`
	Error       string        `json:"error,omitempty"`
}

// Recorder receives batch outcomes as they complete. Implementations must be safe
// for concurrent use since batches complete in any order.
type Recorder interface {
	Record(ctx context.Context, result BatchResult) error
	Name() string
	Close(context.Context) error
}

// RecorderConfig is a config that *knows how to build* a Recorder.
type RecorderConfig interface {
	BuildRecorder(ctx context.Context) (Recorder, error)
	Name() string
}

// Snapshotter persists an execution report under a key.
type Snapshotter interface {
	Snapshot(ctx context.Context, key string, report *ExecutionReport) error
	Name() string
	Close(context.Context) error
}

// SnapshotterConfig is a config that *knows how to build* a Snapshotter.
type SnapshotterConfig interface {
	BuildSnapshotter(ctx context.Context) (Snapshotter, error)
	Name() string
}

// ElementSource loads the full input list for an executor run.
type ElementSource[T any] interface {
	Load(ctx context.Context) ([]T, error)
	Name() string
	Close(context.Context) error
}

// SourceConfig[T any] is a config that *knows how to build* an ElementSource for a specific T.
type SourceConfig[T any] interface {
	BuildSource(ctx context.Context) (ElementSource[T], error)
	Name() string
}

type CloudFileConfig struct {
	Name   string
	Path   string
	Bucket string
}
