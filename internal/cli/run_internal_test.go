package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type errorLog struct {
	msgs    []string
	keyvals [][]any
}

func (e *errorLog) Debug(msg string, keyvals ...interface{}) {}
func (e *errorLog) Info(msg string, keyvals ...interface{})  {}
func (e *errorLog) Warn(msg string, keyvals ...interface{})  {}
func (e *errorLog) Error(msg string, keyvals ...interface{}) {
	e.msgs = append(e.msgs, msg)
	e.keyvals = append(e.keyvals, keyvals)
}

func TestCloseAndLog(t *testing.T) {
	l := &errorLog{}

	closeAndLog(context.Background(), l, "sql-lite-db", func(ctx context.Context) error { return nil })
	require.Empty(t, l.msgs)

	closeAndLog(context.Background(), l, "sql-lite-db", func(ctx context.Context) error {
		return errors.New("database is locked")
	})
	require.Equal(t, []string{"partition-runner - error closing sql-lite-db"}, l.msgs)
	require.Equal(t, []any{"error", "database is locked"}, l.keyvals[0])
}

func TestLoggerFromContext_Fallback(t *testing.T) {
	require.NotNil(t, loggerFromContext(context.Background()))
}
