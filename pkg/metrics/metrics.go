package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Store metrics
	SitesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "schemacrawler_sites_total",
			Help: "Total number of monitored sites by active status",
		},
		[]string{"active"},
	)

	FilesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "schemacrawler_files_total",
			Help: "Total number of schema-map files by active status",
		},
		[]string{"active"},
	)

	IdsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "schemacrawler_ids_total",
			Help: "Total number of id rows across all files",
		},
	)

	StoreRefCountReadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schemacrawler_store_ref_count_reads_total",
			Help: "Total number of per-(id,user) ref_count reads",
		},
	)

	// Discoverer / scheduler metrics
	DiscoverCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schemacrawler_discover_cycle_duration_seconds",
			Help:    "Time taken for one Discoverer run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchedulerTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schemacrawler_scheduler_tick_duration_seconds",
			Help:    "Time taken for one scheduler tick (all due sites) in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SitesDueTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schemacrawler_sites_due_total",
			Help: "Total number of (site,user) pairs selected as due across all ticks",
		},
	)

	DiscoveryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemacrawler_discovery_errors_total",
			Help: "Total number of discovery errors by stage (robots, schema_map, sitemap, store)",
		},
		[]string{"stage"},
	)

	FilesAddedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schemacrawler_files_added_total",
			Help: "Total number of files added by diff_site_files across all discoveries",
		},
	)

	FilesRemovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schemacrawler_files_removed_total",
			Help: "Total number of files tombstoned by diff_site_files across all discoveries",
		},
	)

	// Queue metrics
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "schemacrawler_queue_depth",
			Help: "Approximate number of messages visible in the queue, by backend",
		},
		[]string{"backend"},
	)

	QueueSendTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemacrawler_queue_send_total",
			Help: "Total number of queue sends by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	// Worker metrics
	JobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemacrawler_jobs_processed_total",
			Help: "Total number of jobs processed by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	JobProcessDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schemacrawler_job_process_duration_seconds",
			Help:    "Time taken to process one job in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	ProcessingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemacrawler_processing_errors_total",
			Help: "Total number of ProcessingError rows logged by error_type",
		},
		[]string{"error_type"},
	)

	// Indexer metrics
	IndexerBatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schemacrawler_indexer_batch_duration_seconds",
			Help:    "Time taken to send one Indexer batch in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	IndexerDocsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemacrawler_indexer_docs_total",
			Help: "Total number of documents sent to the Indexer by operation",
		},
		[]string{"op"},
	)

	IndexerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemacrawler_indexer_errors_total",
			Help: "Total number of Indexer batch failures by operation",
		},
		[]string{"op"},
	)

	// Reconciler metrics
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schemacrawler_reconciliation_duration_seconds",
			Help:    "Time taken for one consistency-sweep cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schemacrawler_reconciliation_cycles_total",
			Help: "Total number of consistency-sweep cycles run",
		},
	)

	ReconciliationDriftTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemacrawler_reconciliation_drift_total",
			Help: "Total number of drift corrections applied by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		SitesTotal,
		FilesTotal,
		IdsTotal,
		StoreRefCountReadsTotal,
		DiscoverCycleDuration,
		SchedulerTickDuration,
		SitesDueTotal,
		DiscoveryErrorsTotal,
		FilesAddedTotal,
		FilesRemovedTotal,
		QueueDepth,
		QueueSendTotal,
		JobsProcessedTotal,
		JobProcessDuration,
		ProcessingErrorsTotal,
		IndexerBatchDuration,
		IndexerDocsTotal,
		IndexerErrorsTotal,
		ReconciliationDuration,
		ReconciliationCyclesTotal,
		ReconciliationDriftTotal,
	)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
