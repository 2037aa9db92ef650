package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	conflictChecks  *prometheus.CounterVec
	snapshotHits    prometheus.Counter
	snapshotMisses  prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	conflictChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_conflict_checks_total",
		Help: "Total schedule conflict checks by outcome",
	}, []string{"outcome"})

	snapshotHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_snapshot_cache_hits_total",
		Help: "Total snapshot cache hits",
	})

	snapshotMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_snapshot_cache_misses_total",
		Help: "Total snapshot cache misses",
	})

	registry.MustRegister(requestDuration, requestTotal, conflictChecks, snapshotHits, snapshotMisses)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		conflictChecks:  conflictChecks,
		snapshotHits:    snapshotHits,
		snapshotMisses:  snapshotMisses,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records a completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	s.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveConflictCheck records a conflict-check outcome: clean, advisory or blocking.
func (s *MetricsService) ObserveConflictCheck(outcome string) {
	s.conflictChecks.WithLabelValues(outcome).Inc()
}

// ObserveSnapshotCache records a snapshot cache lookup result.
func (s *MetricsService) ObserveSnapshotCache(hit bool) {
	if hit {
		s.snapshotHits.Inc()
		return
	}
	s.snapshotMisses.Inc()
}
