package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "numdox_queries_total",
			Help: "Total number of search queries executed",
		},
		[]string{"kind", "outcome"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "numdox_query_duration_seconds",
			Help:    "Duration of search queries in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"kind"},
	)

	HitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "numdox_hits_total",
			Help: "Total deduplicated hits kept across all reports",
		},
	)

	NumbersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "numdox_numbers_total",
			Help: "Total phone numbers scanned, by report status",
		},
		[]string{"status"},
	)
)

// Query outcome labels.
const (
	OutcomeOK           = "ok"
	OutcomeBackendError = "backend_error"
	OutcomeParseError   = "parse_error"
	OutcomeBlocked      = "blocked"
)

// RecordQuery updates the per-query metrics.
func RecordQuery(kind, outcome string, duration time.Duration) {
	QueriesTotal.WithLabelValues(kind, outcome).Inc()
	QueryDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordNumber updates the per-number counter once a report is finalized.
func RecordNumber(status string, hits int) {
	NumbersTotal.WithLabelValues(status).Inc()
	HitsTotal.Add(float64(hits))
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
