package sinks_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	sqllite "github.com/hankgalt/partition-orchestra/internal/clients/sql_lite"
	"github.com/hankgalt/partition-orchestra/internal/sinks"
	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

func TestSQLLiteRecorderConfig_Validation(t *testing.T) {
	cfg := &sinks.SQLLiteRecorderConfig{}
	_, err := cfg.BuildRecorder(context.Background())
	require.ErrorIs(t, err, sinks.ErrSQLLiteSinkDBFileRequired)
	require.Equal(t, sinks.SQLLiteRecorder, cfg.Name())
}

func TestSQLLiteRecorder_ConcurrentRecords(t *testing.T) {
	ctx := context.Background()
	dbFile := filepath.Join(t.TempDir(), "ledger.db")

	cfg := &sinks.SQLLiteRecorderConfig{DBFile: dbFile}
	rec, err := cfg.BuildRecorder(ctx)
	require.NoError(t, err)
	require.Equal(t, sinks.SQLLiteRecorder, rec.Name())

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := domain.NewPartitionEntity(i+1, 20, i*5, 5, 100)
			res := domain.NewBatchResult("run-rec", e)
			res.Processed = 5
			res.Elapsed = 12 * time.Millisecond
			errs[i] = rec.Record(ctx, res)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	require.NoError(t, rec.Close(ctx))

	dbClient, err := sqllite.NewSQLLiteDBClient(dbFile)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, dbClient.Close(ctx))
	}()

	rows, err := dbClient.FetchBatchResults(ctx, "run-rec")
	require.NoError(t, err)
	require.Len(t, rows, 20)
	require.Equal(t, 20, rows[19].BatchNo)
	require.Equal(t, 95, rows[19].StartIdx)
	require.Equal(t, int64(12), rows[0].ElapsedMs)
}

func TestSQLLiteRowSink(t *testing.T) {
	ctx := context.Background()
	dbClient, err := sqllite.NewSQLLiteDBClient(filepath.Join(t.TempDir(), "rows.db"))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, dbClient.Close(ctx))
	}()
	dbClient.ExecuteSchema(sqllite.ElementSchema)

	_, err = sinks.NewSQLLiteRowSink(nil, "run", "id")
	require.ErrorIs(t, err, sinks.ErrSQLLiteSinkNilClient)
	_, err = sinks.NewSQLLiteRowSink(dbClient, "run", "")
	require.ErrorIs(t, err, sinks.ErrSQLLiteSinkKeyRequired)

	sink, err := sinks.NewSQLLiteRowSink(dbClient, "run-rows", "id")
	require.NoError(t, err)
	handle := sink.Handler()

	entity := domain.NewPartitionEntity(2, 3, 10, 10, 25)
	for i := range 3 {
		err := handle(ctx, domain.CSVRow{"id": fmt.Sprintf("a-%d", i), "name": "agent"}, entity, nil)
		require.NoError(t, err)
	}

	err = handle(ctx, domain.CSVRow{"name": "no key"}, entity, nil)
	require.ErrorIs(t, err, sinks.ErrSQLLiteSinkMissingKey)

	err = handle(ctx, domain.CSVRow{"id": "a-1"}, entity, nil)
	require.Error(t, err)

	els, err := dbClient.FetchElements(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, els, 3)
	require.Equal(t, 2, els[0].BatchNo)
	require.Equal(t, "run-rows", els[0].RunID)
	require.JSONEq(t, `{"id":"a-0","name":"agent"}`, els[0].Payload)

	// shared client stays open after the recorder closes
	rec := sinks.NewSQLLiteRecorder(dbClient)
	require.NoError(t, rec.Close(ctx))
	_, err = dbClient.FetchElements(ctx, 0, 1)
	require.NoError(t, err)
}
