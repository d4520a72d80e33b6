// Package metrics provides Prometheus metrics for the TasteID service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the TasteID service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// TasteID computation
	computations     *prometheus.CounterVec
	computeLatency   prometheus.Histogram
	snapshotsWritten prometheus.Counter
	tasteIDsTotal    prometheus.Gauge

	// Compatibility and similarity
	matchCacheHits    prometheus.Counter
	matchCacheMisses  prometheus.Counter
	matchTypes        *prometheus.CounterVec
	compareLatency    prometheus.Histogram
	similarityLatency prometheus.Histogram

	// Batch recompute
	recomputeJobs      *prometheus.CounterVec
	recomputeDuplicate prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Storage
	storeLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tasteid",
		subsystem:        "engine",
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

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: labels,
		})
	}
	counterVec := func(name, help string, l ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: labels,
		}, l)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: labels,
		})
	}
	histogram := func(name, help string) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: labels,
			Buckets: m.histogramBuckets,
		})
	}
	histogramVec := func(name, help string, l ...string) *prometheus.HistogramVec {
		return auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: labels,
			Buckets: m.histogramBuckets,
		}, l)
	}

	m.computations = counterVec("taste_computations_total", "TasteID computations by outcome", "outcome")
	m.computeLatency = histogram("taste_compute_latency_milliseconds", "TasteID computation latency in milliseconds")
	m.snapshotsWritten = counter("taste_snapshots_written_total", "TasteID snapshots appended")
	m.tasteIDsTotal = gauge("taste_ids", "Number of stored TasteIDs")

	m.matchCacheHits = counter("match_cache_hits_total", "Compatibility lookups served from a fresh cached match")
	m.matchCacheMisses = counter("match_cache_misses_total", "Compatibility lookups that recomputed the match")
	m.matchTypes = counterVec("match_types_total", "Computed matches by match type", "match_type")
	m.compareLatency = histogram("compare_latency_milliseconds", "Compatibility computation latency in milliseconds")
	m.similarityLatency = histogram("similarity_latency_milliseconds", "Similarity search latency in milliseconds")

	m.recomputeJobs = counterVec("recompute_jobs_total", "Batch recompute jobs by outcome", "outcome")
	m.recomputeDuplicate = counter("recompute_duplicate_total", "User ids skipped because a recompute was already in flight")

	m.queueSize = gauge("queue_size", "Current size of the recompute queue")
	m.queueCapacity = gauge("queue_capacity", "Capacity of the recompute queue")
	m.queueEnqueue = counter("queue_enqueue_total", "Jobs enqueued")
	m.queueDequeue = counter("queue_dequeue_total", "Jobs dequeued")
	m.queueEnqueueErrors = counter("queue_enqueue_errors_total", "Jobs rejected by the queue")

	m.workerActiveCount = gauge("worker_active_count", "Workers currently processing a job")
	m.workerProcessingLatency = histogram("worker_processing_latency_milliseconds", "Per-job worker latency in milliseconds")
	m.workerErrors = counter("worker_errors_total", "Jobs that failed in a worker")

	m.storeLatency = histogramVec("store_latency_milliseconds", "Store operation latency in milliseconds", "operation")

	m.httpRequests = counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")
	m.rateLimited = counterVec("rate_limited_total", "Requests rejected by the rate limiter", "scope")

	m.errorRateByComponent = counterVec("errors_by_component_total", "Total number of errors by component",
		"component", "error_type")

	m.systemMemoryUsage = gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = gauge("system_goroutine_count", "Number of goroutines")
}

func active() bool { return globalManager != nil && globalManager.enabled }

// RecordComputation counts a TasteID computation outcome (ok, insufficient_data, failed).
func RecordComputation(outcome string) {
	if active() {
		globalManager.computations.WithLabelValues(outcome).Inc()
	}
}

// RecordComputeLatency records TasteID computation latency in milliseconds.
func RecordComputeLatency(latencyMs float64) {
	if active() {
		globalManager.computeLatency.Observe(latencyMs)
	}
}

// RecordSnapshotWritten increments the snapshot counter.
func RecordSnapshotWritten() {
	if active() {
		globalManager.snapshotsWritten.Inc()
	}
}

// UpdateTasteIDsTotal sets the number of stored TasteIDs.
func UpdateTasteIDsTotal(count int) {
	if active() {
		globalManager.tasteIDsTotal.Set(float64(count))
	}
}

// RecordMatchCacheHit increments the fresh match counter.
func RecordMatchCacheHit() {
	if active() {
		globalManager.matchCacheHits.Inc()
	}
}

// RecordMatchCacheMiss increments the recomputed match counter.
func RecordMatchCacheMiss() {
	if active() {
		globalManager.matchCacheMisses.Inc()
	}
}

// RecordMatchType counts a computed match by type.
func RecordMatchType(matchType string) {
	if active() {
		globalManager.matchTypes.WithLabelValues(matchType).Inc()
	}
}

// RecordCompareLatency records compatibility latency in milliseconds.
func RecordCompareLatency(latencyMs float64) {
	if active() {
		globalManager.compareLatency.Observe(latencyMs)
	}
}

// RecordSimilarityLatency records similarity search latency in milliseconds.
func RecordSimilarityLatency(latencyMs float64) {
	if active() {
		globalManager.similarityLatency.Observe(latencyMs)
	}
}

// RecordRecomputeJob counts a batch recompute job outcome.
func RecordRecomputeJob(outcome string) {
	if active() {
		globalManager.recomputeJobs.WithLabelValues(outcome).Inc()
	}
}

// RecordRecomputeDuplicate counts a user id skipped as already in flight.
func RecordRecomputeDuplicate() {
	if active() {
		globalManager.recomputeDuplicate.Inc()
	}
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if active() {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if active() {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if active() {
		globalManager.queueEnqueue.Inc()
	}
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if active() {
		globalManager.queueDequeue.Inc()
	}
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if active() {
		globalManager.queueEnqueueErrors.Inc()
	}
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	if active() {
		globalManager.workerActiveCount.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if active() {
		globalManager.workerProcessingLatency.Observe(latencyMs)
	}
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if active() {
		globalManager.workerErrors.Inc()
	}
}

// RecordStoreLatency records a store operation latency.
func RecordStoreLatency(operation string, latencyMs float64) {
	if active() {
		globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if active() {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if active() {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited(scope string) {
	if active() {
		globalManager.rateLimited.WithLabelValues(scope).Inc()
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if active() {
		globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if active() {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if active() {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// SetEnabled toggles recording on the global manager.
func SetEnabled(enabled bool) {
	if globalManager != nil {
		globalManager.enabled = enabled
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
