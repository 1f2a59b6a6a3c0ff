// Package metrics provides Prometheus metrics for the sportsmeet service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the sportsmeet service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Results
	scoreSubmissions     *prometheus.CounterVec
	scoreSlotsWritten    prometheus.Counter
	scorePartialFailures prometheus.Counter
	winnerEdits          *prometheus.CounterVec
	winnerDeletes        *prometheus.CounterVec

	// Attendance and identity
	attendanceUpdates     *prometheus.CounterVec
	chestNumberAssigned   *prometheus.CounterVec
	identityLookups       *prometheus.CounterVec
	schoolChanges         *prometheus.CounterVec
	scoreboardLatency     prometheus.Histogram
	scoreboardRecords     prometheus.Gauge
	scoreboardSchools     prometheus.Gauge
	storeOperations       *prometheus.CounterVec
	storeOperationLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     *prometheus.CounterVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sportsmeet",
		subsystem:        "admin",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.scoreSubmissions = m.counterVec("score_submissions_total",
		"Score submissions by event type and outcome", "event_type", "outcome")
	m.scoreSlotsWritten = m.counter("score_slots_written_total",
		"Score store items written, metadata included")
	m.scorePartialFailures = m.counter("score_partial_failures_total",
		"Submissions where the store left items unprocessed")
	m.winnerEdits = m.counterVec("winner_edits_total", "Winner edits by outcome", "outcome")
	m.winnerDeletes = m.counterVec("winner_deletes_total", "Winner deletions by outcome", "outcome")

	m.attendanceUpdates = m.counterVec("attendance_updates_total",
		"Registration attendance writes by direction and result", "direction", "result")
	m.chestNumberAssigned = m.counterVec("chest_number_assignments_total",
		"Chest number assignments by outcome", "outcome")
	m.identityLookups = m.counterVec("identity_lookups_total",
		"Identity lookups by outcome", "outcome")
	m.schoolChanges = m.counterVec("school_changes_total",
		"School creations and deletions by outcome", "action", "outcome")

	m.scoreboardLatency = m.histogram("scoreboard_compute_milliseconds",
		"Scoreboard recompute latency in milliseconds, store read included", m.histogramBuckets)
	m.scoreboardRecords = m.gauge("scoreboard_records",
		"Score records folded into the last scoreboard")
	m.scoreboardSchools = m.gauge("scoreboard_schools",
		"Schools present in the last scoreboard")

	m.storeOperations = m.counterVec("store_operations_total",
		"Document store operations by driver, operation and status", "driver", "operation", "status")
	m.storeOperationLatency = m.histogramVec("store_operation_milliseconds",
		"Document store operation latency in milliseconds", "driver", "operation")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.httpRateLimited = m.counterVec("http_rate_limited_total",
		"Requests rejected by the write rate limiter", "endpoint")

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Total errors by component and type", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total",
		"Total errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Total errors by endpoint, method and type", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds",
		"Latency of operations that resulted in errors", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds",
		"GC pause time in milliseconds", []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50})
}

// RecordScoreSubmission counts one submission and the items it wrote.
func (m *Manager) RecordScoreSubmission(eventType, outcome string, itemsWritten int) {
	if !m.enabled {
		return
	}
	m.scoreSubmissions.WithLabelValues(eventType, outcome).Inc()
	if itemsWritten > 0 {
		m.scoreSlotsWritten.Add(float64(itemsWritten))
	}
}

// RecordScorePartialFailure counts a batch that left items unprocessed.
func (m *Manager) RecordScorePartialFailure() {
	if m.enabled {
		m.scorePartialFailures.Inc()
	}
}

// RecordWinnerEdit counts a winner edit by outcome.
func (m *Manager) RecordWinnerEdit(outcome string) {
	if m.enabled {
		m.winnerEdits.WithLabelValues(outcome).Inc()
	}
}

// RecordWinnerDelete counts a winner deletion by outcome.
func (m *Manager) RecordWinnerDelete(outcome string) {
	if m.enabled {
		m.winnerDeletes.WithLabelValues(outcome).Inc()
	}
}

// RecordAttendance counts the updated and failed writes of one fan-out.
func (m *Manager) RecordAttendance(direction string, updated, failed int) {
	if !m.enabled {
		return
	}
	if updated > 0 {
		m.attendanceUpdates.WithLabelValues(direction, "updated").Add(float64(updated))
	}
	if failed > 0 {
		m.attendanceUpdates.WithLabelValues(direction, "failed").Add(float64(failed))
	}
}

// RecordChestNumberAssignment counts an assignment by outcome.
func (m *Manager) RecordChestNumberAssignment(outcome string) {
	if m.enabled {
		m.chestNumberAssigned.WithLabelValues(outcome).Inc()
	}
}

// RecordIdentityLookup counts a lookup by outcome.
func (m *Manager) RecordIdentityLookup(outcome string) {
	if m.enabled {
		m.identityLookups.WithLabelValues(outcome).Inc()
	}
}

// RecordSchoolChange counts a create or delete by outcome.
func (m *Manager) RecordSchoolChange(action, outcome string) {
	if m.enabled {
		m.schoolChanges.WithLabelValues(action, outcome).Inc()
	}
}

// RecordScoreboard records one recompute.
func (m *Manager) RecordScoreboard(latencyMs float64, records, schools int) {
	if !m.enabled {
		return
	}
	m.scoreboardLatency.Observe(latencyMs)
	m.scoreboardRecords.Set(float64(records))
	m.scoreboardSchools.Set(float64(schools))
}

// RecordStoreOperation records one document store call.
func (m *Manager) RecordStoreOperation(driver, operation, status string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.storeOperations.WithLabelValues(driver, operation, status).Inc()
	m.storeOperationLatency.WithLabelValues(driver, operation).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordRateLimited counts a throttled request.
func (m *Manager) RecordRateLimited(endpoint string) {
	if m.enabled {
		m.httpRateLimited.WithLabelValues(endpoint).Inc()
	}
}

// RecordError records an error on every error dimension at once.
func (m *Manager) RecordError(component, endpoint, method, errorType, severity string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	m.errorRateByType.WithLabelValues(errorType, severity).Inc()
	if endpoint != "" {
		m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
	m.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystem sets the runtime gauges.
func (m *Manager) UpdateSystem(heapBytes uint64, goroutines int, lastGCPauseMs float64) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(heapBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
	if lastGCPauseMs > 0 {
		m.systemGCPauseTime.Observe(lastGCPauseMs)
	}
}

// Package-level helpers delegate to the global manager.

func RecordScoreSubmission(eventType, outcome string, itemsWritten int) {
	globalManager.RecordScoreSubmission(eventType, outcome, itemsWritten)
}

func RecordScorePartialFailure()           { globalManager.RecordScorePartialFailure() }
func RecordWinnerEdit(outcome string)      { globalManager.RecordWinnerEdit(outcome) }
func RecordWinnerDelete(outcome string)    { globalManager.RecordWinnerDelete(outcome) }
func RecordIdentityLookup(outcome string)  { globalManager.RecordIdentityLookup(outcome) }
func RecordRateLimited(endpoint string)    { globalManager.RecordRateLimited(endpoint) }
func RecordChestNumberAssignment(o string) { globalManager.RecordChestNumberAssignment(o) }

func RecordAttendance(direction string, updated, failed int) {
	globalManager.RecordAttendance(direction, updated, failed)
}

func RecordSchoolChange(action, outcome string) {
	globalManager.RecordSchoolChange(action, outcome)
}

func RecordScoreboard(latencyMs float64, records, schools int) {
	globalManager.RecordScoreboard(latencyMs, records, schools)
}

func RecordStoreOperation(driver, operation, status string, latencyMs float64) {
	globalManager.RecordStoreOperation(driver, operation, status, latencyMs)
}

func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

func RecordError(component, endpoint, method, errorType, severity string, latencyMs float64) {
	globalManager.RecordError(component, endpoint, method, errorType, severity, latencyMs)
}

func UpdateSystem(heapBytes uint64, goroutines int, lastGCPauseMs float64) {
	globalManager.UpdateSystem(heapBytes, goroutines, lastGCPauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
