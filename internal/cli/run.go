package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/comfforts/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.temporal.io/sdk/log"

	po "github.com/hankgalt/partition-orchestra"
	sqllite "github.com/hankgalt/partition-orchestra/internal/clients/sql_lite"
	"github.com/hankgalt/partition-orchestra/internal/metrics"
	"github.com/hankgalt/partition-orchestra/internal/sinks"
	"github.com/hankgalt/partition-orchestra/internal/snapshotters"
	"github.com/hankgalt/partition-orchestra/internal/sources"
	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

const (
	RowImportBuilder = "csv-row-import"
	MetricsNamespace = "partition_runner"
)

// NewRunCmd returns the run subcommand. It loads CSV rows, imports them into the
// sqlite element table batch by batch, records batch results & snapshots the report.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import CSV rows through the partitioned executor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(viper.New(), cmd.Flags())
			if err != nil {
				return err
			}

			report, err := Run(cmd.Context(), cfg, nil)
			if report != nil {
				fmt.Fprintf(
					cmd.OutOrStdout(),
					"run %s: %d elements, %d batches, %d failed batches, elapsed %s\n",
					report.RunID, report.Total, report.BatchCount, report.FailedCount, report.Elapsed,
				)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.String("source", SourceLocal, "element source: local or gcs")
	f.String("file", "", "CSV file path, or object path for gcs")
	f.String("bucket", "", "GCS bucket")
	f.String("delimiter", ",", "CSV delimiter")
	f.Bool("header", true, "first CSV row names the columns")
	f.String("key-column", "id", "column used as the element key")
	f.Int("size", 0, "elements per batch")
	f.Int("max-concurrency", 0, "max batches in flight, 0 for one goroutine per batch")
	f.Int("progress-every", 0, "log progress every n elements, 0 disables")
	f.String("db-file", "partitions.db", "sqlite database file")
	f.String("report-dir", "reports", "execution report directory")
	f.String("log-key", "", "log line prefix")
	f.String("run-id", "", "run id, generated when empty")
	f.String("metrics-addr", "", "serve prometheus metrics on this address during the run, e.g. :9090")

	return cmd
}

// Run executes a row import as configured. A nil logger falls back to the context logger.
// Metrics are served on cfg.MetricsAddr while the run lasts & written next to the report.
func Run(ctx context.Context, cfg *Config, l log.Logger) (*domain.ExecutionReport, error) {
	if l == nil {
		l = loggerFromContext(ctx)
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	srcCfg := buildSourceConfig(cfg)
	src, err := srcCfg.BuildSource(ctx)
	if err != nil {
		return nil, err
	}
	defer closeAndLog(ctx, l, src.Name(), src.Close)

	rows, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.Name(), err)
	}

	dbClient, err := sqllite.NewSQLLiteDBClient(cfg.DBFile)
	if err != nil {
		return nil, err
	}
	defer closeAndLog(ctx, l, "sql-lite-db", dbClient.Close)
	dbClient.ExecuteSchema(sqllite.BatchResultSchema)
	dbClient.ExecuteSchema(sqllite.ElementSchema)

	rowSink, err := sinks.NewSQLLiteRowSink(dbClient, runID, cfg.KeyColumn)
	if err != nil {
		return nil, err
	}

	obs, err := metrics.NewPrometheusObserver(metrics.ObserverConfig{Namespace: MetricsNamespace, Builder: RowImportBuilder})
	if err != nil {
		return nil, err
	}
	if cfg.MetricsAddr != "" {
		srv, err := obs.Serve(cfg.MetricsAddr)
		if err != nil {
			return nil, err
		}
		l.Info("partition-runner - serving metrics", "run-id", runID, "addr", srv.Addr())
		defer closeAndLog(ctx, l, "metrics-server", func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	hOpts := []po.HandlerOption{
		po.WithProgressEvery(cfg.ProgressEvery),
		po.WithObserver(obs),
		po.WithHandlerLogger(l),
	}
	opts := []po.Option{
		po.WithRunID(runID),
		po.WithRecorder(sinks.NewSQLLiteRecorder(dbClient)),
		po.WithLogger(l),
	}
	if cfg.MaxConcurrency > 0 {
		opts = append(opts, po.WithMaxConcurrency(cfg.MaxConcurrency))
	}

	params := domain.ParamsMap{}
	if cfg.LogKey != "" {
		params[domain.LogKeyParam] = cfg.LogKey
	}

	builder := po.PerElementBuilder(RowImportBuilder, rowSink.Handler(), hOpts...)
	report, execErr := po.Execute(ctx, rows, cfg.Size, params, builder, opts...)
	if report == nil {
		return nil, execErr
	}

	snapCfg := snapshotters.LocalFileSnapshotterConfig{Path: cfg.ReportDir}
	snap, err := snapCfg.BuildSnapshotter(ctx)
	if err != nil {
		return report, err
	}
	defer closeAndLog(ctx, l, snap.Name(), snap.Close)

	key := fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405"), runID)
	if err := snap.Snapshot(ctx, key, report); err != nil {
		return report, err
	}
	if err := obs.WriteTextfile(filepath.Join(cfg.ReportDir, key+".prom")); err != nil {
		return report, err
	}

	return report, execErr
}

// closeAndLog runs a deferred close, logging its failure.
func closeAndLog(ctx context.Context, l log.Logger, name string, closeFn func(context.Context) error) {
	if err := closeFn(ctx); err != nil {
		l.Error("partition-runner - error closing "+name, "error", err.Error())
	}
}

// loggerFromContext returns the context logger, falling back to the default slog logger.
func loggerFromContext(ctx context.Context) log.Logger {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil || l == nil {
		return logger.GetSlogLogger()
	}
	return l
}

func buildSourceConfig(cfg *Config) domain.SourceConfig[domain.CSVRow] {
	if cfg.Source == SourceGCS {
		return sources.CloudCSVConfig{
			Provider:  string(sources.CloudSourceGCS),
			Bucket:    cfg.Bucket,
			Path:      cfg.File,
			Delimiter: cfg.Delimiter,
			HasHeader: cfg.HasHeader,
		}
	}
	return sources.LocalCSVConfig{
		Path:      cfg.File,
		Delimiter: cfg.Delimiter,
		HasHeader: cfg.HasHeader,
	}
}
