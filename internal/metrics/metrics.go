package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlet_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playlet_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Task Metrics
	TasksCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlet_tasks_created_total",
			Help: "Total number of clip tasks created",
		},
		[]string{"style"},
	)

	TasksCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlet_tasks_completed_total",
			Help: "Total number of finished clip tasks",
		},
		[]string{"status"},
	)

	TasksInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "playlet_tasks_in_progress",
			Help: "Number of tasks currently being processed",
		},
	)

	TasksQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "playlet_tasks_queue_depth",
			Help: "Number of tasks waiting in queue",
		},
	)

	// Pipeline Metrics
	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "playlet_pipeline_duration_seconds",
			Help:    "End-to-end pipeline duration in seconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10s to ~3 hours
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playlet_stage_duration_seconds",
			Help:    "Per-stage pipeline duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		},
		[]string{"stage"},
	)

	SegmentsAssembledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlet_segments_assembled_total",
			Help: "Total number of timeline segments rendered",
		},
		[]string{"kind"},
	)

	NarrationRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playlet_narration_retries_total",
			Help: "Total number of rejected narration scripts sent back for correction",
		},
	)

	VideoDurationProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playlet_video_duration_processed_seconds_total",
			Help: "Total duration of source video processed in seconds",
		},
	)

	// External Service Metrics
	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playlet_external_call_duration_seconds",
			Help:    "Latency of external service calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	ExternalCallErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlet_external_call_errors_total",
			Help: "Total number of failed external service calls",
		},
		[]string{"service", "operation"},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlet_storage_operations_total",
			Help: "Total number of object storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageBytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlet_storage_bytes_transferred_total",
			Help: "Total bytes moved to and from object storage",
		},
		[]string{"direction"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlet_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordTaskCreated records a task creation
func RecordTaskCreated(style string) {
	TasksCreatedTotal.WithLabelValues(style).Inc()
}

// RecordTaskCompleted records a finished task and its total runtime
func RecordTaskCompleted(status string, duration float64) {
	TasksCompletedTotal.WithLabelValues(status).Inc()
	PipelineDuration.Observe(duration)
}

// UpdateTaskMetrics updates current task gauges
func UpdateTaskMetrics(inProgress, queueDepth int) {
	TasksInProgress.Set(float64(inProgress))
	TasksQueueDepth.Set(float64(queueDepth))
}

// RecordStageDuration records how long one pipeline stage took
func RecordStageDuration(stage string, duration float64) {
	StageDuration.WithLabelValues(stage).Observe(duration)
}

// RecordSegmentAssembled records one rendered timeline segment
func RecordSegmentAssembled(kind string) {
	SegmentsAssembledTotal.WithLabelValues(kind).Inc()
}

// RecordExternalCall records an external service call
func RecordExternalCall(service, operation string, duration float64, failed bool) {
	ExternalCallDuration.WithLabelValues(service, operation).Observe(duration)
	if failed {
		ExternalCallErrors.WithLabelValues(service, operation).Inc()
	}
}

// RecordStorageOperation records an object storage operation
func RecordStorageOperation(operation, status string, bytes int64, direction string) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	if bytes > 0 {
		StorageBytesTransferred.WithLabelValues(direction).Add(float64(bytes))
	}
}

// RecordError records an error by component
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
