// Package metrics provides Prometheus metrics for the vault pulse service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Activity pipeline
	activityProcessed prometheus.Counter
	activityDuplicate prometheus.Counter
	levelUps          prometheus.Counter

	// Ledger activity
	vouchesRecorded  prometheus.Counter
	ticketsCreated   prometheus.Counter
	ticketsCompleted prometheus.Counter
	ticketsCancelled prometheus.Counter

	// Store health
	storeErrors     prometheus.Counter
	storeOpDuration *prometheus.HistogramVec

	// Queue and workers
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueRejects     prometheus.Counter
	workerCount      prometheus.Gauge

	// Population gauges
	trackedMembers prometheus.Gauge
	activeTickets  prometheus.Gauge

	// Dashboard refresher
	dashboardRefreshes       prometheus.Counter
	dashboardRefreshDuration prometheus.Histogram

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Process health
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional singleton

// Custom registry to avoid the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional singleton

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vault",
		subsystem:        "pulse",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.activityProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "activity_events_total",
		Help:      "Total number of activity events recorded against the experience ledger",
	})
	m.activityDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "activity_events_duplicate_total",
		Help:      "Total number of duplicate activity events rejected by the deduper",
	})
	m.levelUps = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "level_ups_total",
		Help:      "Total number of level-up notifications dispatched",
	})

	m.vouchesRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "vouches_total",
		Help:      "Total number of endorsements recorded",
	})
	m.ticketsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tickets_created_total",
		Help:      "Total number of service tickets created",
	})
	m.ticketsCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tickets_completed_total",
		Help:      "Total number of service tickets completed",
	})
	m.ticketsCancelled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tickets_cancelled_total",
		Help:      "Total number of service tickets cancelled",
	})

	m.storeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Total number of record store failures",
	})
	m.storeOpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_op_duration_milliseconds",
		Help:      "Histogram of record store operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"op"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current number of queued activity events",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Configured capacity of the activity event queue",
	})
	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization",
		Help:      "Queue fill ratio between 0 and 1",
	})
	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueues_total",
		Help:      "Total number of events accepted by the queue",
	})
	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeues_total",
		Help:      "Total number of events handed to workers",
	})
	m.queueRejects = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_rejects_total",
		Help:      "Total number of events rejected by the queue",
	})
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of activity workers",
	})

	m.trackedMembers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_members",
		Help:      "Number of members with an experience record",
	})
	m.activeTickets = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_tickets",
		Help:      "Number of open service tickets",
	})

	m.dashboardRefreshes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dashboard_refreshes_total",
		Help:      "Total number of dashboard refresh cycles",
	})
	m.dashboardRefreshDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dashboard_refresh_duration_milliseconds",
		Help:      "Histogram of dashboard refresh latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current allocated heap bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
}

// GetRegistry returns the registry backing the global manager, for promhttp.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers delegating to the global manager.

func RecordActivityProcessed() { globalManager.activityProcessed.Inc() }
func RecordActivityDuplicate() { globalManager.activityDuplicate.Inc() }
func RecordLevelUp()           { globalManager.levelUps.Inc() }

func RecordVouch()           { globalManager.vouchesRecorded.Inc() }
func RecordTicketCreated()   { globalManager.ticketsCreated.Inc() }
func RecordTicketCompleted() { globalManager.ticketsCompleted.Inc() }
func RecordTicketCancelled() { globalManager.ticketsCancelled.Inc() }

func RecordStoreError() { globalManager.storeErrors.Inc() }
func RecordStoreOpDuration(op string, ms float64) {
	globalManager.storeOpDuration.WithLabelValues(op).Observe(ms)
}

func UpdateQueueSize(n int)            { globalManager.queueSize.Set(float64(n)) }
func UpdateQueueCapacity(n int)        { globalManager.queueCapacity.Set(float64(n)) }
func UpdateQueueUtilization(f float64) { globalManager.queueUtilization.Set(f) }
func RecordQueueEnqueue()              { globalManager.queueEnqueues.Inc() }
func RecordQueueDequeue()              { globalManager.queueDequeues.Inc() }
func RecordQueueReject()               { globalManager.queueRejects.Inc() }
func UpdateWorkerCount(n int)          { globalManager.workerCount.Set(float64(n)) }

func UpdateTrackedMembers(n int) { globalManager.trackedMembers.Set(float64(n)) }
func UpdateActiveTickets(n int)  { globalManager.activeTickets.Set(float64(n)) }

func RecordDashboardRefresh() { globalManager.dashboardRefreshes.Inc() }
func RecordDashboardRefreshDuration(ms float64) {
	globalManager.dashboardRefreshDuration.Observe(ms)
}

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutineCount.Set(float64(n))
}
