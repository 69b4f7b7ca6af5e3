// Package metrics provides Prometheus metrics for the livemap service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Engine
	reconciliations  prometheus.Counter
	markersActive    prometheus.Gauge
	entitiesSkipped  prometheus.Counter
	cameraCommands   *prometheus.CounterVec
	selectionChanges prometheus.Counter
	staleSelections  prometheus.Counter
	deferredOps      prometheus.Counter
	renderLatency    *prometheus.HistogramVec
	surfaceErrors    *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Snapshot sources
	fetches       *prometheus.CounterVec
	fetchLatency  prometheus.Histogram
	fetchEntities prometheus.Gauge
	lastRefresh   prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton used by the Record* helpers

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // shared exposition registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "livemap",
		subsystem:        "",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.reconciliations = m.counter("reconciliations_total", "Marker registry rebuilds")
	m.markersActive = m.gauge("markers_active", "Markers currently placed on the map")
	m.entitiesSkipped = m.counter("entities_skipped_total", "Entities skipped from placement because of an invalid coordinate")
	m.cameraCommands = m.counterVec("camera_commands_total", "Camera commands issued by kind", "kind")
	m.selectionChanges = m.counter("selection_changes_total", "Selection slot changes")
	m.staleSelections = m.counter("stale_selections_total", "Selections that did not resolve to a placed entity")
	m.deferredOps = m.counter("deferred_operations_total", "Operations deferred until the map was ready")
	m.renderLatency = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "render_latency_milliseconds",
		Help:        "Latency of render passes by event kind",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"kind"})
	m.surfaceErrors = m.counterVec("surface_errors_total", "Map surface operation failures", "op")

	m.queueSize = m.gauge("queue_size", "Events waiting for the render loop")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the render loop queue")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Events accepted by the queue")
	m.queueDequeued = m.counter("queue_dequeued_total", "Events handed to the render loop")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Rejected enqueue attempts", "reason")

	m.fetches = m.counterVec("snapshot_fetches_total", "Snapshot fetches by source and result", "source", "result")
	m.fetchLatency = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_fetch_latency_milliseconds",
		Help:        "Latency of snapshot fetches including retries",
		Buckets:     []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		ConstLabels: m.constLabels,
	})
	m.fetchEntities = m.gauge("snapshot_entities", "Entities in the latest fetched snapshot")
	m.lastRefresh = m.gauge("snapshot_last_refresh_unix", "Unix time of the latest successful refresh")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordReconciliation counts one registry rebuild and sets the marker gauge.
func RecordReconciliation(markers int) {
	globalManager.reconciliations.Inc()
	globalManager.markersActive.Set(float64(markers))
}

// UpdateMarkersActive sets the active marker gauge.
func UpdateMarkersActive(markers int) {
	globalManager.markersActive.Set(float64(markers))
}

// RecordEntitySkipped counts an entity left off the map.
func RecordEntitySkipped() {
	globalManager.entitiesSkipped.Inc()
}

// RecordCameraCommand counts a camera command ("fit" or "center").
func RecordCameraCommand(kind string) {
	globalManager.cameraCommands.WithLabelValues(kind).Inc()
}

// RecordSelectionChange counts a selection slot change.
func RecordSelectionChange() {
	globalManager.selectionChanges.Inc()
}

// RecordStaleSelection counts a selection that did not resolve.
func RecordStaleSelection() {
	globalManager.staleSelections.Inc()
}

// RecordDeferredOperation counts an operation held back until ready.
func RecordDeferredOperation() {
	globalManager.deferredOps.Inc()
}

// RecordRenderLatency records a render pass duration in milliseconds.
func RecordRenderLatency(kind string, latencyMs float64) {
	globalManager.renderLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordSurfaceError counts a failed surface operation.
func RecordSurfaceError(op string) {
	globalManager.surfaceErrors.WithLabelValues(op).Inc()
}

// UpdateQueueSize sets the queue depth gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted event.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts an event handed to the render loop.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordFetch counts a snapshot fetch outcome and its latency.
func RecordFetch(source, result string, latencyMs float64) {
	globalManager.fetches.WithLabelValues(source, result).Inc()
	globalManager.fetchLatency.Observe(latencyMs)
}

// UpdateSnapshotEntities sets the size of the latest snapshot.
func UpdateSnapshotEntities(count int) {
	globalManager.fetchEntities.Set(float64(count))
}

// UpdateLastRefresh records the time of the latest successful refresh.
func UpdateLastRefresh(unix int64) {
	globalManager.lastRefresh.Set(float64(unix))
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage updates system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
