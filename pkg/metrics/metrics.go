// Package metrics exposes Prometheus instrumentation for API traffic and
// batch runs, plus an optional HTTP endpoint serving them.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ghsync/pkg/logger"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ghsync",
		Name:      "api_request_duration_seconds",
		Help:      "Duration of GitHub API requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	apiRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ghsync",
		Name:      "api_retries_total",
		Help:      "Number of retried API requests.",
	}, []string{"endpoint"})

	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ghsync",
		Name:      "operations_total",
		Help:      "Batch operations by outcome.",
	}, []string{"operation", "outcome"})

	accountsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ghsync",
		Name:      "accounts_processed_total",
		Help:      "Accounts handed to workers.",
	})

	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ghsync",
		Name:      "rate_limit_remaining",
		Help:      "Remaining calls in the current rate limit window.",
	})
)

// ObserveRequestDuration records the latency of one API request.
func ObserveRequestDuration(method string, d time.Duration) {
	requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// IncAPIRetry counts a retried request against its endpoint.
func IncAPIRetry(endpoint string) {
	apiRetries.WithLabelValues(endpoint).Inc()
}

// IncOperation counts a batch operation outcome ("success", "failed",
// "skipped", "dry_run").
func IncOperation(operation, outcome string) {
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}

// IncAccountsProcessed counts accounts dispatched to workers.
func IncAccountsProcessed() {
	accountsProcessed.Inc()
}

// SetRateLimitRemaining publishes the latest quota snapshot.
func SetRateLimitRemaining(remaining int) {
	rateLimitRemaining.Set(float64(remaining))
}

// Server serves /metrics and /health on a dedicated listener.
type Server struct {
	srv *http.Server
	log logger.Logger
}

// NewServer creates a metrics server bound to addr.
func NewServer(addr string, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return &Server{
		srv: &http.Server{Addr: addr, Handler: mux},
		log: log,
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	s.log.InfoWithFields("metrics server listening", map[string]interface{}{
		"addr": s.srv.Addr,
	})
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.ErrorWithFields("metrics server stopped", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()
}

// Shutdown stops the server, waiting for in-flight scrapes.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
