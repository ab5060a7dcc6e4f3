// Package metrics provides Prometheus metrics collection
package metrics

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/R3E-Network/service_layer/infrastructure/runtime"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Error metrics
	ErrorsTotal *prometheus.CounterVec

	// Lottery domain metrics
	DrawsTotal          *prometheus.CounterVec
	DrawDuration        *prometheus.HistogramVec
	AdmissionsTotal     *prometheus.CounterVec
	NotificationsTotal  *prometheus.CounterVec
	CascadeOpsTotal     *prometheus.CounterVec
	SweeperRunsTotal    *prometheus.CounterVec
	SweeperExpiredTotal prometheus.Counter

	// Database metrics
	DatabaseQueriesTotal    *prometheus.CounterVec
	DatabaseQueryDuration   *prometheus.HistogramVec
	DatabaseConnectionsOpen prometheus.Gauge

	// Service health
	ServiceUptime prometheus.Gauge
	ServiceInfo   *prometheus.GaugeVec
}

// New creates a new Metrics instance with all collectors registered
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance with a custom registry
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP metrics
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		// Error metrics
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errors_total",
				Help: "Total number of errors",
			},
			[]string{"service", "type", "operation"},
		),

		// Lottery domain metrics
		DrawsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_draws_total",
				Help: "Total number of lottery draws executed, by kind and outcome",
			},
			[]string{"kind", "status"}, // kind: initial|replacement
		),
		DrawDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lottery_draw_duration_seconds",
				Help:    "Lottery draw commit duration in seconds, including lock contention",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"kind"},
		),
		AdmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_admissions_total",
				Help: "Total number of waiting-list admission attempts, by outcome",
			},
			[]string{"outcome"}, // admitted|full|closed|duplicate
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Total number of notification deliveries attempted, by type and outcome",
			},
			[]string{"type", "outcome"}, // outcome: sent|failed|excluded
		),
		CascadeOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cascade_operations_total",
				Help: "Total number of cascade deletions performed, by target kind",
			},
			[]string{"target"}, // profile|organizer
		),
		SweeperRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deadline_sweeper_runs_total",
				Help: "Total number of deadline sweeper runs, by outcome",
			},
			[]string{"status"},
		),
		SweeperExpiredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "deadline_sweeper_expired_total",
				Help: "Total number of responsePending entries moved to cancelled by the sweeper",
			},
		),

		// Database metrics
		DatabaseQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_queries_total",
				Help: "Total number of database queries",
			},
			[]string{"service", "operation", "status"},
		),
		DatabaseQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "database_query_duration_seconds",
				Help:    "Database query duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"service", "operation"},
		),
		DatabaseConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "database_connections_open",
				Help: "Current number of open database connections",
			},
		),

		// Service health
		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "service_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "service_info",
				Help: "Service information",
			},
			[]string{"service", "version", "environment"},
		),
	}

	// Register all collectors
	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.RequestsInFlight,
			m.ErrorsTotal,
			m.DrawsTotal,
			m.DrawDuration,
			m.AdmissionsTotal,
			m.NotificationsTotal,
			m.CascadeOpsTotal,
			m.SweeperRunsTotal,
			m.SweeperExpiredTotal,
			m.DatabaseQueriesTotal,
			m.DatabaseQueryDuration,
			m.DatabaseConnectionsOpen,
			m.ServiceUptime,
			m.ServiceInfo,
		)
	}

	// Set service info
	m.ServiceInfo.WithLabelValues(serviceName, "1.0.0", getEnvironment()).Set(1)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(service, method, path, status).Inc()
	m.RequestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordError records an error
func (m *Metrics) RecordError(service, errorType, operation string) {
	m.ErrorsTotal.WithLabelValues(service, errorType, operation).Inc()
}

// RecordDraw records a lottery draw commit.
func (m *Metrics) RecordDraw(kind, status string, duration time.Duration) {
	m.DrawsTotal.WithLabelValues(kind, status).Inc()
	m.DrawDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordAdmission records a waiting-list admission attempt outcome.
func (m *Metrics) RecordAdmission(outcome string) {
	m.AdmissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordNotification records a single recipient's notification delivery
// outcome.
func (m *Metrics) RecordNotification(notificationType, outcome string) {
	m.NotificationsTotal.WithLabelValues(notificationType, outcome).Inc()
}

// RecordCascadeOp records a completed cascade deletion.
func (m *Metrics) RecordCascadeOp(target string) {
	m.CascadeOpsTotal.WithLabelValues(target).Inc()
}

// RecordSweeperRun records a deadline sweeper run and how many entries it
// expired.
func (m *Metrics) RecordSweeperRun(status string, expiredCount int) {
	m.SweeperRunsTotal.WithLabelValues(status).Inc()
	m.SweeperExpiredTotal.Add(float64(expiredCount))
}

// RecordDatabaseQuery records a database query
func (m *Metrics) RecordDatabaseQuery(service, operation, status string, duration time.Duration) {
	m.DatabaseQueriesTotal.WithLabelValues(service, operation, status).Inc()
	m.DatabaseQueryDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// SetDatabaseConnections sets the number of open database connections
func (m *Metrics) SetDatabaseConnections(count int) {
	m.DatabaseConnectionsOpen.Set(float64(count))
}

// UpdateUptime updates the service uptime
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.ServiceUptime.Set(time.Since(startTime).Seconds())
}

// IncrementInFlight increments the in-flight requests counter
func (m *Metrics) IncrementInFlight() {
	m.RequestsInFlight.Inc()
}

// DecrementInFlight decrements the in-flight requests counter
func (m *Metrics) DecrementInFlight() {
	m.RequestsInFlight.Dec()
}

// Helper functions

func getEnvironment() string {
	return string(runtime.Env())
}

// Enabled returns whether Prometheus metrics should be exposed.
//
// Defaults:
// - production: disabled unless explicitly enabled via METRICS_ENABLED
// - non-production: enabled unless explicitly disabled via METRICS_ENABLED
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	if raw == "" {
		return !runtime.IsProduction()
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Global metrics instance
var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes the global metrics instance
func Init(serviceName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New(serviceName)
	}
	return globalMetrics
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New("unknown")
	}
	return globalMetrics
}
