package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported by the ASN service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	WorkflowOperationsTotal   *prometheus.CounterVec
	WorkflowOperationDuration *prometheus.HistogramVec
	ConnectionsActive         *prometheus.GaugeVec
	ConnectionsDroppedTotal   *prometheus.CounterVec
	EventsPublishedTotal      *prometheus.CounterVec
	RelayMessagesTotal        *prometheus.CounterVec
	HTTPRequestsTotal         *prometheus.CounterVec
	HTTPRequestDuration       *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		WorkflowOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asn_workflow_operations_total",
				Help: "Workflow operations by operation and result code",
			},
			[]string{"operation", "code"},
		),
		WorkflowOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "asn_workflow_operation_duration_seconds",
				Help:    "Workflow operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ConnectionsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "asn_realtime_connections",
				Help: "Currently registered realtime connections",
			},
			[]string{"transport"},
		),
		ConnectionsDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asn_realtime_connections_dropped_total",
				Help: "Realtime connections removed by the hub, by reason",
			},
			[]string{"reason"},
		),
		EventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asn_realtime_events_published_total",
				Help: "Events fanned out by the hub, by event type",
			},
			[]string{"type"},
		),
		RelayMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asn_relay_messages_total",
				Help: "Events mirrored to Kafka, by result",
			},
			[]string{"result"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asn_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "asn_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		m.WorkflowOperationsTotal,
		m.WorkflowOperationDuration,
		m.ConnectionsActive,
		m.ConnectionsDroppedTotal,
		m.EventsPublishedTotal,
		m.RelayMessagesTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveOperation(operation, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.WorkflowOperationsTotal.WithLabelValues(operation, code).Inc()
	m.WorkflowOperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) ConnectionOpened(transport string) {
	if m == nil {
		return
	}
	m.ConnectionsActive.WithLabelValues(transport).Inc()
}

func (m *Metrics) ConnectionClosed(transport, reason string) {
	if m == nil {
		return
	}
	m.ConnectionsActive.WithLabelValues(transport).Dec()
	m.ConnectionsDroppedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) EventPublished(eventType string) {
	if m == nil {
		return
	}
	m.EventsPublishedTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) RelayResult(result string) {
	if m == nil {
		return
	}
	m.RelayMessagesTotal.WithLabelValues(result).Inc()
}

// InstrumentHandler wraps an http.Handler to record request count and latency
// under a fixed route label.
func (m *Metrics) InstrumentHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
