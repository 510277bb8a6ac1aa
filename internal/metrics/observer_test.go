package metrics_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	po "github.com/hankgalt/partition-orchestra"
	"github.com/hankgalt/partition-orchestra/internal/metrics"
	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

func TestNewPrometheusObserver_NamespaceRequired(t *testing.T) {
	_, err := metrics.NewPrometheusObserver(metrics.ObserverConfig{})
	require.ErrorIs(t, err, metrics.ErrMetricsNamespaceRequired)
}

func TestPrometheusObserver_Counts(t *testing.T) {
	obs, err := metrics.NewPrometheusObserver(metrics.ObserverConfig{Namespace: "test", Builder: "unit"})
	require.NoError(t, err)

	e := domain.NewPartitionEntity(1, 1, 0, 3, 3)
	obs.ElementProcessed(e)
	obs.ElementProcessed(e)
	obs.ElementFailed(e, errors.New("bad"))
	obs.BatchCompleted(e, 2, 1, 20*time.Millisecond)

	n, err := testutil.GatherAndCount(obs.Registry(), "test_elements_processed_total", "test_elements_failed_total", "test_batches_completed_total", "test_batch_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 4, n)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	obs.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, `test_elements_processed_total{builder="unit"} 2`)
	require.Contains(t, body, `test_elements_failed_total{builder="unit"} 1`)
	require.Contains(t, body, `test_batch_duration_seconds_count{builder="unit"} 1`)
}

func TestPrometheusObserver_WithExecutor(t *testing.T) {
	obs, err := metrics.NewPrometheusObserver(metrics.ObserverConfig{Namespace: "exec", Builder: "odd-fails"})
	require.NoError(t, err)

	list := make([]int, 100)
	for i := range list {
		list[i] = i
	}
	handler := func(ctx context.Context, el int, entity domain.PartitionEntity, params domain.ParamsMap) error {
		if el%10 == 0 {
			return errors.New("tenth")
		}
		return nil
	}

	builder := po.PerElementBuilder("odd-fails", handler, po.WithObserver(obs), po.WithProgressEvery(0))
	report, err := po.Execute(context.Background(), list, 30, nil, builder, po.WithMaxConcurrency(2))
	require.NoError(t, err)
	require.Equal(t, 4, report.BatchCount)

	body := scrape(t, obs)
	require.Contains(t, body, `exec_elements_processed_total{builder="odd-fails"} 90`)
	require.Contains(t, body, `exec_elements_failed_total{builder="odd-fails"} 10`)
	require.Contains(t, body, `exec_batches_completed_total{builder="odd-fails"} 4`)
}

func TestPrometheusObserver_Serve(t *testing.T) {
	obs, err := metrics.NewPrometheusObserver(metrics.ObserverConfig{Namespace: "served", Builder: "unit"})
	require.NoError(t, err)
	obs.ElementProcessed(domain.NewPartitionEntity(1, 1, 0, 1, 1))

	srv, err := obs.Serve("127.0.0.1:0")
	require.NoError(t, err)

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `served_elements_processed_total{builder="unit"} 1`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	_, err = http.Get("http://" + srv.Addr() + "/metrics")
	require.Error(t, err)

	_, err = obs.Serve("not-an-address")
	require.Error(t, err)
}

func TestPrometheusObserver_WriteTextfile(t *testing.T) {
	obs, err := metrics.NewPrometheusObserver(metrics.ObserverConfig{Namespace: "textfile", Builder: "unit"})
	require.NoError(t, err)
	e := domain.NewPartitionEntity(1, 1, 0, 2, 2)
	obs.ElementFailed(e, errors.New("bad"))
	obs.BatchCompleted(e, 0, 1, time.Millisecond)

	fp := filepath.Join(t.TempDir(), "run.prom")
	require.NoError(t, obs.WriteTextfile(fp))

	b, err := os.ReadFile(fp)
	require.NoError(t, err)
	require.Contains(t, string(b), `textfile_elements_failed_total{builder="unit"} 1`)
	require.Contains(t, string(b), `textfile_batches_completed_total{builder="unit"} 1`)
}

func scrape(t *testing.T, obs *metrics.PrometheusObserver) string {
	t.Helper()
	w := httptest.NewRecorder()
	obs.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}
