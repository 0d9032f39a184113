package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the ETL worker

var (
	// API call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "football_etl_api_calls_total",
			Help: "Total number of football-data.org API call attempts",
		},
		[]string{"resource", "status"},
	)

	APIRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "football_etl_api_retries_total",
			Help: "Total number of API call retries",
		},
	)

	// Batch fetch metrics
	ResourcesFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "football_etl_resources_failed_total",
			Help: "Total number of per-team fetches that exhausted retries",
		},
	)

	// Store metrics
	StoreWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "football_etl_store_writes_total",
			Help: "Total number of table replacements",
		},
		[]string{"table", "status"},
	)

	RowsLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "football_etl_rows_loaded",
			Help: "Rows loaded into each table by the latest run",
		},
		[]string{"table"},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "football_etl_cache_hits_total",
			Help: "Total number of payload cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "football_etl_cache_misses_total",
			Help: "Total number of payload cache misses",
		},
	)

	// Run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "football_etl_runs_total",
			Help: "Total number of ETL runs by final state",
		},
		[]string{"state"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "football_etl_run_duration_seconds",
			Help:    "Duration of full ETL runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	LastSuccessfulRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "football_etl_last_successful_run_timestamp",
			Help: "Timestamp of the last run that reached Done",
		},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "football_etl_system_uptime_seconds",
			Help: "Worker uptime in seconds",
		},
	)
)

// RecordAPICall records one API call attempt outcome. The resource is the
// logical name (teams, matches, squad), never the URL, which would mint a
// label value per team id.
func RecordAPICall(resource, status string) {
	APICallsTotal.WithLabelValues(resource, status).Inc()
}

// RecordStoreWrite records a table replacement outcome.
func RecordStoreWrite(table, status string, rows int) {
	StoreWritesTotal.WithLabelValues(table, status).Inc()
	if status == "success" {
		RowsLoaded.WithLabelValues(table).Set(float64(rows))
	}
}

// RecordRun records a completed ETL run.
func RecordRun(state string, seconds float64) {
	RunsTotal.WithLabelValues(state).Inc()
	RunDuration.Observe(seconds)
	if state == "done" {
		LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordCacheHit records a payload cache hit.
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a payload cache miss.
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}
