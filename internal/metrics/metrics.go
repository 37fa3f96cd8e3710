package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "caseintake"

// Metrics holds every collector exported by the daemon.
type Metrics struct {
	registry *prometheus.Registry

	ReceiveOutcomes *prometheus.CounterVec
	ReceiveDuration *prometheus.HistogramVec
	BatchTicks      *prometheus.CounterVec
	BatchProgress   *prometheus.CounterVec
	BreakerState    *prometheus.GaugeVec
	BreakerTrips    *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.ReceiveOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receive_outcomes_total",
			Help:      "Receive outcomes by type and source (manual or batch)",
		},
		[]string{"source", "outcome"},
	)
	m.ReceiveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "receive_call_duration_seconds",
			Help:      "Duration of one classifier call",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)
	m.BatchTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_ticks_total",
			Help:      "Batch ticks by result (processed, completed, failed, busy, idle, error)",
		},
		[]string{"result"},
	)
	m.BatchProgress = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_cases_resolved_total",
			Help:      "Master cases resolved by batch ticks",
		},
		[]string{"outcome"},
	)
	m.BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
	m.BreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_trips_total",
			Help:      "Times a circuit breaker opened",
		},
		[]string{"name"},
	)
	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	registry.MustRegister(
		m.ReceiveOutcomes,
		m.ReceiveDuration,
		m.BatchTicks,
		m.BatchProgress,
		m.BreakerState,
		m.BreakerTrips,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordOutcome counts one receive outcome.
func (m *Metrics) RecordOutcome(source, outcome string) {
	if m == nil {
		return
	}
	m.ReceiveOutcomes.WithLabelValues(source, outcome).Inc()
}

// ObserveReceive records how long one classifier call took.
func (m *Metrics) ObserveReceive(source string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ReceiveDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// RecordTick counts one batch tick by its result.
func (m *Metrics) RecordTick(result string) {
	if m == nil {
		return
	}
	m.BatchTicks.WithLabelValues(result).Inc()
}

// RecordBatchResolved counts cases a tick resolved, by outcome.
func (m *Metrics) RecordBatchResolved(outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.BatchProgress.WithLabelValues(outcome).Add(float64(count))
}

// SetBreakerState publishes a breaker state transition.
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
	if state == 2 {
		m.BreakerTrips.WithLabelValues(name).Inc()
	}
}

// RecordHTTPRequest counts one served request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
