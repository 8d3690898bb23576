package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vozsegura/vozsegura-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides
// lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	loginAttempts   *prometheus.CounterVec
	lockoutsArmed   prometheus.Counter
	recoveryCodes   *prometheus.CounterVec
	complaintsFiled *prometheus.CounterVec
	assignments     *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec

	requestCount         uint64
	requestDurationTotal uint64
	loginSuccessCount    uint64
	loginFailureCount    uint64
	lockoutCount         uint64
	complaintCount       uint64
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

	loginAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	lockoutsArmed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lockouts_armed_total",
		Help: "Accounts temporarily locked after repeated failures",
	})

	recoveryCodes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recovery_codes_total",
		Help: "Recovery codes by lifecycle event",
	}, []string{"event"})

	complaintsFiled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "complaints_filed_total",
		Help: "Complaints filed by category",
	}, []string{"category"})

	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "case_assignments_total",
		Help: "Supervisor assignments by resolution path",
	}, []string{"path"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, loginAttempts, lockoutsArmed, recoveryCodes, complaintsFiled, assignments, dbQueryDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		loginAttempts:   loginAttempts,
		lockoutsArmed:   lockoutsArmed,
		recoveryCodes:   recoveryCodes,
		complaintsFiled: complaintsFiled,
		assignments:     assignments,
		dbQueryDuration: dbQueryDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordLoginAttempt counts a login by outcome.
func (m *MetricsService) RecordLoginAttempt(success bool) {
	if m == nil {
		return
	}
	if success {
		m.loginAttempts.WithLabelValues("success").Inc()
		atomic.AddUint64(&m.loginSuccessCount, 1)
	} else {
		m.loginAttempts.WithLabelValues("failure").Inc()
		atomic.AddUint64(&m.loginFailureCount, 1)
	}
}

// RecordLockout counts a lockout window being armed.
func (m *MetricsService) RecordLockout() {
	if m == nil {
		return
	}
	m.lockoutsArmed.Inc()
	atomic.AddUint64(&m.lockoutCount, 1)
}

// RecordRecoveryCode counts recovery code lifecycle events, "issued" or "redeemed".
func (m *MetricsService) RecordRecoveryCode(event string) {
	if m == nil {
		return
	}
	m.recoveryCodes.WithLabelValues(event).Inc()
}

// RecordComplaintFiled counts a filed case by category.
func (m *MetricsService) RecordComplaintFiled(category models.Category) {
	if m == nil {
		return
	}
	m.complaintsFiled.WithLabelValues(string(category)).Inc()
	atomic.AddUint64(&m.complaintCount, 1)
}

// RecordAssignment counts how a case was routed: "rule", "fallback" or "unassigned".
func (m *MetricsService) RecordAssignment(path string) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(path).Inc()
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// Snapshot returns aggregated metrics for the admin dashboard.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		LoginSuccessTotal:        atomic.LoadUint64(&m.loginSuccessCount),
		LoginFailureTotal:        atomic.LoadUint64(&m.loginFailureCount),
		LockoutsArmedTotal:       atomic.LoadUint64(&m.lockoutCount),
		ComplaintsFiledTotal:     atomic.LoadUint64(&m.complaintCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
