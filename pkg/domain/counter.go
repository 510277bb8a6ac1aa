package domain

import (
	"context"
	"sync/atomic"
	"time"
)

type ContextKey string

func (c ContextKey) String() string {
	return string(c)
}

const (
	BatchStatsContextKey  = ContextKey("batch-stats")
	RunProgressContextKey = ContextKey("run-progress")
)

// Counter is a lock-free counter shared by concurrently running batches.
type Counter struct {
	n atomic.Int64
}

func NewCounter() *Counter {
	return &Counter{}
}

// IncrementAndGet adds one & returns the new value.
func (c *Counter) IncrementAndGet() int64 {
	return c.n.Add(1)
}

// Get returns the current value.
func (c *Counter) Get() int64 {
	return c.n.Load()
}

// BatchStats tracks per-batch processed & failed element counts.
// A nil *BatchStats ignores updates.
type BatchStats struct {
	processed atomic.Int64
	failed    atomic.Int64
}

func (s *BatchStats) AddProcessed() {
	if s != nil {
		s.processed.Add(1)
	}
}

func (s *BatchStats) AddFailed() {
	if s != nil {
		s.failed.Add(1)
	}
}

func (s *BatchStats) Processed() int {
	if s == nil {
		return 0
	}
	return int(s.processed.Load())
}

func (s *BatchStats) Failed() int {
	if s == nil {
		return 0
	}
	return int(s.failed.Load())
}

// WithBatchStats returns a copy of ctx carrying stats.
func WithBatchStats(ctx context.Context, stats *BatchStats) context.Context {
	return context.WithValue(ctx, BatchStatsContextKey, stats)
}

// BatchStatsFromContext returns the stats in ctx or nil.
func BatchStatsFromContext(ctx context.Context) *BatchStats {
	stats, _ := ctx.Value(BatchStatsContextKey).(*BatchStats)
	return stats
}

// RunProgress is the progress state of one executor run, shared by its batches.
type RunProgress struct {
	Counter *Counter
	Started time.Time
}

// NewRunProgress returns progress starting now with a zero counter.
func NewRunProgress() *RunProgress {
	return &RunProgress{
		Counter: NewCounter(),
		Started: time.Now(),
	}
}

// WithRunProgress returns a copy of ctx carrying progress.
func WithRunProgress(ctx context.Context, progress *RunProgress) context.Context {
	return context.WithValue(ctx, RunProgressContextKey, progress)
}

// RunProgressFromContext returns the run progress in ctx or nil.
func RunProgressFromContext(ctx context.Context) *RunProgress {
	progress, _ := ctx.Value(RunProgressContextKey).(*RunProgress)
	return progress
}
