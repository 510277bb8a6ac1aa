package sqllite

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	ERR_SQLITE_DB_CONNECTION    = "sql-lite: error connecting to database"
	ERR_SQLITE_DB_DISCONNECTION = "sql-lite: error disconnecting from database"
	ERR_SQLITE_EMPTY_KEY        = "sql-lite: element key is required"
)

var (
	ErrSqlLiteDBConn    = errors.New(ERR_SQLITE_DB_CONNECTION)
	ErrSqlLiteDBDisconn = errors.New(ERR_SQLITE_DB_DISCONNECTION)
	ErrSqlLiteEmptyKey  = errors.New(ERR_SQLITE_EMPTY_KEY)
)

const busyTimeoutParam = "_busy_timeout=5000"

type SQLLiteDBClient struct {
	store *sqlx.DB
}

// NewSQLLiteDBClient opens dbFile. Writes are serialized over a single connection
// since batches record concurrently.
func NewSQLLiteDBClient(dbFile string) (*SQLLiteDBClient, error) {
	dsn := dbFile
	if !strings.Contains(dsn, "?") {
		dsn = dsn + "?" + busyTimeoutParam
	}

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		log.Println("sql-lite: error connecting to database:", err)
		return nil, ErrSqlLiteDBConn
	}
	db.SetMaxOpenConns(1)

	return &SQLLiteDBClient{
		store: db,
	}, nil
}

func (db *SQLLiteDBClient) ExecuteSchema(schema string) sql.Result {
	// exec the schema or fail; multi-statement Exec behavior varies between drivers
	return db.store.MustExec(schema)
}

func (db *SQLLiteDBClient) Close(ctx context.Context) error {
	if err := db.store.Close(); err != nil {
		log.Println("sql-lite: error closing database:", err)
		return ErrSqlLiteDBDisconn
	}
	return nil
}

// InsertBatchResult upserts a batch outcome keyed by run id & batch no.
func (db *SQLLiteDBClient) InsertBatchResult(ctx context.Context, row *BatchResultRow) (sql.Result, error) {
	qryStr := `INSERT INTO batch_result
		(run_id, batch_no, batch_count, start_idx, size, processed, failed, elapsed_ms, error)
		VALUES (:run_id, :batch_no, :batch_count, :start_idx, :size, :processed, :failed, :elapsed_ms, :error)
		ON CONFLICT (run_id, batch_no) DO UPDATE SET
		processed = excluded.processed,
		failed = excluded.failed,
		elapsed_ms = excluded.elapsed_ms,
		error = excluded.error`
	return db.store.NamedExecContext(ctx, qryStr, row)
}

// FetchBatchResults returns the recorded batches of a run, ordered by batch no.
func (db *SQLLiteDBClient) FetchBatchResults(ctx context.Context, runID string) ([]BatchResultRow, error) {
	rows := []BatchResultRow{}
	err := db.store.SelectContext(ctx, &rows, "SELECT * FROM batch_result WHERE run_id = ? ORDER BY batch_no", runID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertElement inserts an element row, failing on duplicate keys.
func (db *SQLLiteDBClient) InsertElement(ctx context.Context, row *ElementRow) (sql.Result, error) {
	if row.ElementKey == "" {
		return nil, ErrSqlLiteEmptyKey
	}
	qryStr := `INSERT INTO element_row (element_key, run_id, batch_no, payload)
		VALUES (:element_key, :run_id, :batch_no, :payload)`
	return db.store.NamedExecContext(ctx, qryStr, row)
}

// FetchElements pages through element rows ordered by key.
func (db *SQLLiteDBClient) FetchElements(ctx context.Context, offset, limit int) ([]ElementRow, error) {
	rows := []ElementRow{}
	err := db.store.SelectContext(ctx, &rows, "SELECT * FROM element_row ORDER BY element_key LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
