// Package metrics provides Prometheus metrics for the scentd prediction service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the scentd service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Core Pipeline Metrics - What really matters for a prediction service
	predictionsServed  prometheus.Counter
	predictionFailures prometheus.Counter
	pipelineLatency    prometheus.Histogram

	// Cache Metrics - Hit rate drives cost and latency
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheStale         prometheus.Counter
	cacheEvictions     prometheus.Counter
	cacheEntries       prometheus.Gauge
	cacheCapacity      prometheus.Gauge
	singleflightShared prometheus.Counter

	// AI Adapter Metrics - Upstream model health
	aiRequests prometheus.Counter
	aiLatency  prometheus.Histogram
	aiErrors   *prometheus.CounterVec
	aiRetries  prometheus.Counter
	aiInFlight prometheus.Gauge

	// Device Channel Metrics - Actuator delivery health
	deviceDeliveries     prometheus.Counter
	deviceDeliveryErrors prometheus.Counter
	deviceLatency        prometheus.Histogram

	// Push Channel Metrics - Frontend fan-out health
	pushSubscribers prometheus.Gauge
	pushBroadcasts  prometheus.Counter
	pushDelivered   prometheus.Counter
	pushDropped     prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Enhanced Error Metrics - Detailed error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "scentd",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Core Pipeline Metrics
	m.predictionsServed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "predictions_served_total",
		Help:      "Total number of predictions returned to callers (hits and misses)",
	})

	m.predictionFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "prediction_failures_total",
		Help:      "Total number of requests failed after exhausting model retries",
	})

	m.pipelineLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pipeline_latency_milliseconds",
		Help:      "End-to-end latency of the prediction pipeline in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Cache Metrics
	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Total number of predictions served from the cache",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_misses_total",
		Help:      "Total number of cache misses requiring a model call",
	})

	m.cacheStale = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_stale_total",
		Help:      "Total number of entries found expired and recomputed",
	})

	m.cacheEvictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_evictions_total",
		Help:      "Total number of entries evicted by the capacity policy",
	})

	m.cacheEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_entries",
		Help:      "Current number of completed entries in the prediction cache",
	})

	m.cacheCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_capacity",
		Help:      "Configured capacity of the prediction cache",
	})

	m.singleflightShared = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "singleflight_shared_total",
		Help:      "Total number of callers that joined an in-flight computation",
	})

	// AI Adapter Metrics
	m.aiRequests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ai_requests_total",
		Help:      "Total number of requests issued to the vision model",
	})

	m.aiLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ai_request_latency_milliseconds",
		Help:      "Round-trip latency of vision model calls in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.aiErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "ai_errors_total",
			Help:      "Total number of vision model failures by kind",
		},
		[]string{"kind"},
	)

	m.aiRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ai_retries_total",
		Help:      "Total number of model call retries performed by the orchestrator",
	})

	m.aiInFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ai_inflight_requests",
		Help:      "Current number of in-flight vision model calls",
	})

	// Device Channel Metrics
	m.deviceDeliveries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "device_deliveries_total",
		Help:      "Total number of scent commands delivered to the actuator",
	})

	m.deviceDeliveryErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "device_delivery_errors_total",
		Help:      "Total number of failed actuator deliveries (never fail the pipeline)",
	})

	m.deviceLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "device_delivery_latency_milliseconds",
		Help:      "Latency of actuator deliveries in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Push Channel Metrics
	m.pushSubscribers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "push_subscribers",
		Help:      "Current number of connected frontend subscribers",
	})

	m.pushBroadcasts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "push_broadcasts_total",
		Help:      "Total number of predictions broadcast to the push channel",
	})

	m.pushDelivered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "push_delivered_total",
		Help:      "Total number of per-subscriber deliveries",
	})

	m.pushDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "push_dropped_total",
		Help:      "Total number of subscribers dropped for slow or broken connections",
	})

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Enhanced Error Metrics
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total errors by component and error type",
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_type_total",
			Help:      "Total errors by type and severity",
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Total errors by endpoint, method and error type",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "error_latency_milliseconds",
			Help:      "Latency of operations that resulted in an error",
			Buckets:   m.histogramBuckets,
		},
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Pipeline Metrics Functions.

// RecordPredictionServed increments the served predictions counter.
func RecordPredictionServed() {
	globalManager.predictionsServed.Inc()
}

// RecordPredictionFailure increments the failed predictions counter.
func RecordPredictionFailure() {
	globalManager.predictionFailures.Inc()
}

// RecordPipelineLatency records end-to-end pipeline latency in milliseconds.
func RecordPipelineLatency(latencyMs float64) {
	globalManager.pipelineLatency.Observe(latencyMs)
}

// Cache Metrics Functions.

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordCacheStale increments the stale-entry counter.
func RecordCacheStale() {
	globalManager.cacheStale.Inc()
}

// RecordCacheEviction increments the eviction counter.
func RecordCacheEviction() {
	globalManager.cacheEvictions.Inc()
}

// UpdateCacheEntries sets the current number of cache entries.
func UpdateCacheEntries(count int) {
	globalManager.cacheEntries.Set(float64(count))
}

// UpdateCacheCapacity sets the configured cache capacity.
func UpdateCacheCapacity(capacity int) {
	globalManager.cacheCapacity.Set(float64(capacity))
}

// RecordSingleflightShared increments the shared-computation counter.
func RecordSingleflightShared() {
	globalManager.singleflightShared.Inc()
}

// AI Adapter Metrics Functions.

// RecordAIRequest increments the model request counter.
func RecordAIRequest() {
	globalManager.aiRequests.Inc()
}

// RecordAILatency records model round-trip latency in milliseconds.
func RecordAILatency(latencyMs float64) {
	globalManager.aiLatency.Observe(latencyMs)
}

// RecordAIError increments the model error counter for the given kind.
func RecordAIError(kind string) {
	globalManager.aiErrors.WithLabelValues(kind).Inc()
}

// RecordAIRetry increments the retry counter.
func RecordAIRetry() {
	globalManager.aiRetries.Inc()
}

// UpdateAIInFlight sets the number of in-flight model calls.
func UpdateAIInFlight(count int) {
	globalManager.aiInFlight.Set(float64(count))
}

// Device Channel Metrics Functions.

// RecordDeviceDelivery increments the successful delivery counter.
func RecordDeviceDelivery() {
	globalManager.deviceDeliveries.Inc()
}

// RecordDeviceDeliveryError increments the failed delivery counter.
func RecordDeviceDeliveryError() {
	globalManager.deviceDeliveryErrors.Inc()
}

// RecordDeviceLatency records actuator delivery latency in milliseconds.
func RecordDeviceLatency(latencyMs float64) {
	globalManager.deviceLatency.Observe(latencyMs)
}

// Push Channel Metrics Functions.

// UpdatePushSubscribers sets the current subscriber count.
func UpdatePushSubscribers(count int) {
	globalManager.pushSubscribers.Set(float64(count))
}

// RecordPushBroadcast increments the broadcast counter.
func RecordPushBroadcast() {
	globalManager.pushBroadcasts.Inc()
}

// RecordPushDelivered increments the per-subscriber delivery counter.
func RecordPushDelivered() {
	globalManager.pushDelivered.Inc()
}

// RecordPushDropped increments the dropped-subscriber counter.
func RecordPushDropped() {
	globalManager.pushDropped.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Enhanced Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
