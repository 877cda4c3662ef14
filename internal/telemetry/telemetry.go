// Package telemetry mounts astindex's Prometheus collectors behind an
// HTTP /metrics endpoint, grounded on the teacher's optional metrics
// listener in cmd/cie/index.go (a goroutine-run http.Server serving
// promhttp.Handler(), started only when an address is configured).
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves a fixed set of Prometheus collectors over HTTP.
type Server struct {
	http *http.Server
}

// Registerer is implemented by components that expose their own
// Prometheus collectors, such as vectorstore.Metrics for C7's
// search/insert latency histograms.
type Registerer interface {
	Collectors() []prometheus.Collector
}

// NewServer builds a Server for addr exposing every component's
// collectors at /metrics, alongside the standard process and Go
// runtime collectors promhttp recommends registering next to
// application metrics.
func NewServer(addr string, components ...Registerer) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	reg.MustRegister(prometheus.NewGoCollector())
	for _, c := range components {
		reg.MustRegister(c.Collectors()...)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe blocks serving /metrics until Shutdown is called or
// the listener fails. Returns nil on a clean shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the metrics listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
