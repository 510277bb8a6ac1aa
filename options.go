package partition_orchestra

import (
	"context"

	"github.com/comfforts/logger"
	"github.com/google/uuid"
	"go.temporal.io/sdk/log"

	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

// Option configures a single Execute call.
type Option func(*executorOptions)

type executorOptions struct {
	runner   domain.RunBatchesFunc
	recorder domain.Recorder
	runID    string
	logger   log.Logger
}

// WithRunner sets the concurrency backend. Default is ThreadPerBatch.
func WithRunner(runner domain.RunBatchesFunc) Option {
	return func(o *executorOptions) {
		if runner != nil {
			o.runner = runner
		}
	}
}

// WithMaxConcurrency runs batches on a pool of at most n workers.
func WithMaxConcurrency(n int) Option {
	return func(o *executorOptions) {
		o.runner = Pooled(n)
	}
}

// WithRecorder sends every batch outcome to recorder.
func WithRecorder(recorder domain.Recorder) Option {
	return func(o *executorOptions) {
		o.recorder = recorder
	}
}

// WithRunID overrides the generated run id.
func WithRunID(runID string) Option {
	return func(o *executorOptions) {
		if runID != "" {
			o.runID = runID
		}
	}
}

// WithLogger overrides the context logger.
func WithLogger(l log.Logger) Option {
	return func(o *executorOptions) {
		o.logger = l
	}
}

func buildExecutorOptions(ctx context.Context, opts []Option) *executorOptions {
	o := &executorOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.runner == nil {
		o.runner = ThreadPerBatch()
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	if o.logger == nil {
		o.logger = loggerFromContext(ctx)
	}
	return o
}

// loggerFromContext returns the context logger, falling back to the default slog logger.
func loggerFromContext(ctx context.Context) log.Logger {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil || l == nil {
		return logger.GetSlogLogger()
	}
	return l
}
