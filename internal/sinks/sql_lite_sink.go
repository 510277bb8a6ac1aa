package sinks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sqllite "github.com/hankgalt/partition-orchestra/internal/clients/sql_lite"
	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

// Error constants and variables
const (
	ERR_SQLLITE_SINK_NIL              = "sql-lite sink is nil"
	ERR_SQLLITE_SINK_NIL_CLIENT       = "sql-lite sink: nil client"
	ERR_SQLLITE_SINK_DB_FILE_REQUIRED = "sql-lite sink: DB file is required"
	ERR_SQLLITE_SINK_KEY_REQUIRED     = "sql-lite sink: key column is required"
	ERR_SQLLITE_SINK_MISSING_KEY      = "sql-lite sink: row is missing key column"
)

var (
	ErrSQLLiteSinkNil            = errors.New(ERR_SQLLITE_SINK_NIL)
	ErrSQLLiteSinkNilClient      = errors.New(ERR_SQLLITE_SINK_NIL_CLIENT)
	ErrSQLLiteSinkDBFileRequired = errors.New(ERR_SQLLITE_SINK_DB_FILE_REQUIRED)
	ErrSQLLiteSinkKeyRequired    = errors.New(ERR_SQLLITE_SINK_KEY_REQUIRED)
	ErrSQLLiteSinkMissingKey     = errors.New(ERR_SQLLITE_SINK_MISSING_KEY)
)

const (
	SQLLiteRecorder = "sql-lite-recorder"
	SQLLiteRowSink  = "sql-lite-row-sink"
)

// BatchResultWriter is the ledger capability the recorder needs.
type BatchResultWriter interface {
	InsertBatchResult(ctx context.Context, row *sqllite.BatchResultRow) (sql.Result, error)
	Close(ctx context.Context) error
}

// ElementWriter is the capability the row sink needs.
type ElementWriter interface {
	InsertElement(ctx context.Context, row *sqllite.ElementRow) (sql.Result, error)
}

// sqlLiteRecorder persists batch results into the batch_result ledger.
type sqlLiteRecorder struct {
	client BatchResultWriter
	owned  bool // close the client on Close
}

// NewSQLLiteRecorder wraps an already open client. Close leaves the client open.
func NewSQLLiteRecorder(client BatchResultWriter) domain.Recorder {
	return &sqlLiteRecorder{client: client}
}

// Name returns the name of the recorder.
func (r *sqlLiteRecorder) Name() string { return SQLLiteRecorder }

// Close closes the underlying client if the recorder opened it.
func (r *sqlLiteRecorder) Close(ctx context.Context) error {
	if r == nil || r.client == nil || !r.owned {
		return nil
	}
	return r.client.Close(ctx)
}

// Record writes one batch result.
func (r *sqlLiteRecorder) Record(ctx context.Context, result domain.BatchResult) error {
	if r == nil {
		return ErrSQLLiteSinkNil
	}
	if r.client == nil {
		return ErrSQLLiteSinkNilClient
	}

	_, err := r.client.InsertBatchResult(ctx, toBatchResultRow(result))
	if err != nil {
		return fmt.Errorf("record batch %d: %w", result.BatchNo, err)
	}
	return nil
}

// SQLLiteRecorderConfig opens its own ledger database.
type SQLLiteRecorderConfig struct {
	DBFile string // e.g., "ledger.db"
}

// Name of the recorder.
func (c *SQLLiteRecorderConfig) Name() string { return SQLLiteRecorder }

// BuildRecorder opens the DB file, ensures the ledger schema & returns a recorder.
func (c *SQLLiteRecorderConfig) BuildRecorder(ctx context.Context) (domain.Recorder, error) {
	if c.DBFile == "" {
		return nil, ErrSQLLiteSinkDBFileRequired
	}

	dbClient, err := sqllite.NewSQLLiteDBClient(c.DBFile)
	if err != nil {
		return nil, err
	}
	dbClient.ExecuteSchema(sqllite.BatchResultSchema)

	return &sqlLiteRecorder{
		client: dbClient,
		owned:  true,
	}, nil
}

// RowSink stores CSV rows as element rows keyed by a column value.
type RowSink struct {
	client    ElementWriter
	runID     string
	keyColumn string
}

// NewSQLLiteRowSink returns a row sink writing into client for runID.
func NewSQLLiteRowSink(client ElementWriter, runID, keyColumn string) (*RowSink, error) {
	if client == nil {
		return nil, ErrSQLLiteSinkNilClient
	}
	if keyColumn == "" {
		return nil, ErrSQLLiteSinkKeyRequired
	}
	return &RowSink{
		client:    client,
		runID:     runID,
		keyColumn: keyColumn,
	}, nil
}

// Name returns the name of the row sink.
func (s *RowSink) Name() string { return SQLLiteRowSink }

// Handle inserts a single row. It is shaped as an element handler.
func (s *RowSink) Handle(ctx context.Context, row domain.CSVRow, entity domain.PartitionEntity, params domain.ParamsMap) error {
	key := row[s.keyColumn]
	if key == "" {
		return fmt.Errorf("%w: %s", ErrSQLLiteSinkMissingKey, s.keyColumn)
	}

	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal row %s: %w", key, err)
	}

	_, err = s.client.InsertElement(ctx, &sqllite.ElementRow{
		ElementKey: key,
		RunID:      s.runID,
		BatchNo:    entity.BatchNo(),
		Payload:    string(payload),
	})
	if err != nil {
		return fmt.Errorf("insert row %s: %w", key, err)
	}
	return nil
}

// Handler returns Handle as an element handler.
func (s *RowSink) Handler() domain.ElementHandler[domain.CSVRow] {
	return s.Handle
}

func toBatchResultRow(res domain.BatchResult) *sqllite.BatchResultRow {
	return &sqllite.BatchResultRow{
		RunID:      res.RunID,
		BatchNo:    res.BatchNo,
		BatchCount: res.BatchCount,
		StartIdx:   res.Start,
		Size:       res.Size,
		Processed:  res.Processed,
		Failed:     res.Failed,
		ElapsedMs:  res.Elapsed.Milliseconds(),
		Error:      res.Error,
	}
}
