package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the gateway.
// It doubles as the remote-call observer and the stale-fetch counter used
// by the session store.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	remoteDuration  *prometheus.HistogramVec
	remoteTotal     *prometheus.CounterVec
	staleDropped    prometheus.Counter
	exportJobs      *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// NewMetricsService registers the gateway collectors.
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

	remoteDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "remote_request_duration_seconds",
		Help:    "Duration of calls to the legacy papeletas controller",
		Buckets: prometheus.DefBuckets,
	}, []string{"accion", "outcome"})

	remoteTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_requests_total",
		Help: "Total calls to the legacy papeletas controller",
	}, []string{"accion", "outcome"})

	staleDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "listing_stale_responses_dropped_total",
		Help: "Listing responses discarded because a newer fetch superseded them",
	})

	exportJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "export_jobs_total",
		Help: "Export jobs by terminal status",
	}, []string{"status"})

	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "active_sessions",
		Help: "Number of live gateway sessions",
	})

	registry.MustRegister(requestDuration, requestTotal, remoteDuration, remoteTotal, staleDropped, exportJobs, activeSessions)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		remoteDuration:  remoteDuration,
		remoteTotal:     remoteTotal,
		staleDropped:    staleDropped,
		exportJobs:      exportJobs,
		activeSessions:  activeSessions,
	}
}

// Handler serves the Prometheus exposition endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one handled HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveRemoteCall records one call to the legacy controller.
func (s *MetricsService) ObserveRemoteCall(accion, outcome string, duration time.Duration) {
	s.remoteDuration.WithLabelValues(accion, outcome).Observe(duration.Seconds())
	s.remoteTotal.WithLabelValues(accion, outcome).Inc()
}

// IncStaleFetchDropped counts a discarded superseded listing response.
func (s *MetricsService) IncStaleFetchDropped() {
	s.staleDropped.Inc()
}

// IncExportJob counts a terminal export job status.
func (s *MetricsService) IncExportJob(status string) {
	s.exportJobs.WithLabelValues(status).Inc()
}

// SetActiveSessions reports the current session count.
func (s *MetricsService) SetActiveSessions(n int) {
	s.activeSessions.Set(float64(n))
}
