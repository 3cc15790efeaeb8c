package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// CreateCustomRegistry returns a registry with the Go and process collectors
func CreateCustomRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return registry
}

// PrometheusExporter serves a registry over HTTP
type PrometheusExporter struct {
	server   *http.Server
	registry *prometheus.Registry
	metrics  *PrometheusMetrics
	logger   *logrus.Logger
	port     string
}

// NewPrometheusExporter creates a custom registry, registers the engine metrics on it
// and prepares, but does not start, the HTTP server
func NewPrometheusExporter(port string, logger *logrus.Logger) *PrometheusExporter {
	registry := CreateCustomRegistry()
	metrics := NewPrometheusMetrics(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(registry))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`
			<h1>Charge Sentinel Prometheus Exporter</h1>
			<p><a href="/metrics">Metrics</a></p>
			<p><a href="/health">Health Check</a></p>
		`))
	})

	return &PrometheusExporter{
		server: &http.Server{
			Addr:              ":" + port,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		registry: registry,
		metrics:  metrics,
		logger:   logger,
		port:     port,
	}
}

// Handler serves the given registry in the exposition format
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Start serves until ctx is cancelled, then shuts the server down
func (e *PrometheusExporter) Start(ctx context.Context) error {
	e.logger.Infof("Starting Prometheus exporter on port %s", e.port)
	e.logger.Infof("Metrics available at: http://localhost:%s/metrics", e.port)

	errCh := make(chan error, 1)
	go func() {
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Errorf("Failed to start Prometheus exporter: %v", err)
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e.logger.Info("Shutting down Prometheus exporter...")
	return e.server.Shutdown(shutdownCtx)
}

func (e *PrometheusExporter) Handler() http.Handler {
	return e.server.Handler
}

func (e *PrometheusExporter) Registry() *prometheus.Registry {
	return e.registry
}

func (e *PrometheusExporter) GetMetrics() *PrometheusMetrics {
	return e.metrics
}
