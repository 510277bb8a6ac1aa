package metrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

const ERR_METRICS_NAMESPACE_REQUIRED = "metrics: namespace is required"

var ErrMetricsNamespaceRequired = errors.New(ERR_METRICS_NAMESPACE_REQUIRED)

const BuilderLabel = "builder"

// ObserverConfig holds configuration for the prometheus observer.
type ObserverConfig struct {
	Namespace        string
	Builder          string
	HistogramBuckets []float64
}

// PrometheusObserver counts element outcomes & times batches.
type PrometheusObserver struct {
	registry  *prometheus.Registry
	processed prometheus.Counter
	failed    prometheus.Counter
	batches   prometheus.Counter
	duration  prometheus.Observer
}

// NewPrometheusObserver registers the executor metrics on a fresh registry.
func NewPrometheusObserver(cfg ObserverConfig) (*PrometheusObserver, error) {
	if cfg.Namespace == "" {
		return nil, ErrMetricsNamespaceRequired
	}
	if cfg.HistogramBuckets == nil {
		cfg.HistogramBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	}

	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "elements_processed_total",
		Help:      "Elements handled without error.",
	}, []string{BuilderLabel})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "elements_failed_total",
		Help:      "Elements whose handler returned an error or panicked.",
	}, []string{BuilderLabel})
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "batches_completed_total",
		Help:      "Batches that ran to completion.",
	}, []string{BuilderLabel})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Name:      "batch_duration_seconds",
		Help:      "Wall time per batch.",
		Buckets:   cfg.HistogramBuckets,
	}, []string{BuilderLabel})

	registry := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{processed, failed, batches, duration} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &PrometheusObserver{
		registry:  registry,
		processed: processed.WithLabelValues(cfg.Builder),
		failed:    failed.WithLabelValues(cfg.Builder),
		batches:   batches.WithLabelValues(cfg.Builder),
		duration:  duration.WithLabelValues(cfg.Builder),
	}, nil
}

func (o *PrometheusObserver) ElementProcessed(entity domain.PartitionEntity) {
	o.processed.Inc()
}

func (o *PrometheusObserver) ElementFailed(entity domain.PartitionEntity, err error) {
	o.failed.Inc()
}

func (o *PrometheusObserver) BatchCompleted(entity domain.PartitionEntity, processed, failed int, elapsed time.Duration) {
	o.batches.Inc()
	o.duration.Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry, e.g. for gathering in tests.
func (o *PrometheusObserver) Registry() *prometheus.Registry { return o.registry }

// Handler serves the registry in the text exposition format.
func (o *PrometheusObserver) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current metrics to path in the text exposition format, for the
// node exporter textfile collector.
func (o *PrometheusObserver) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, o.registry)
}

// Server exposes an observer's registry over HTTP on /metrics.
type Server struct {
	srv      *http.Server
	listener net.Listener
}

// Serve starts serving the observer's metrics on addr, e.g. ":9090" or "127.0.0.1:0".
func (o *PrometheusObserver) Serve(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics: listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", o.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Println("metrics: server stopped:", err)
		}
	}()

	return &Server{srv: srv, listener: ln}, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Shutdown stops the server, waiting for in flight scrapes until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
