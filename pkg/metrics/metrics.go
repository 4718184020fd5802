package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Tree/entry metrics
	TreesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "meridian_trees_total",
			Help: "Total number of trees registered in the database",
		},
	)

	EntriesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "meridian_entries_total",
			Help: "Total number of entries across all trees",
		},
	)

	EntriesByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "meridian_entries_by_status",
			Help: "Total number of entries by verification status",
		},
		[]string{"status"},
	)

	// Commit metrics
	CommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meridian_commits_total",
			Help: "Total number of atomic operation commits by result",
		},
		[]string{"result"},
	)

	CommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meridian_commit_duration_seconds",
			Help:    "Time taken to commit an atomic operation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Validation metrics
	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meridian_validation_failures_total",
			Help: "Total number of entries that failed auth validation by reason",
		},
		[]string{"reason"},
	)

	// Materialization cache metrics
	MaterializationCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meridian_materialization_cache_hits_total",
			Help: "Total number of CRDT materialization cache hits",
		},
	)

	MaterializationCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meridian_materialization_cache_misses_total",
			Help: "Total number of CRDT materialization cache misses",
		},
	)

	MaterializationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meridian_materialization_duration_seconds",
			Help:    "Time taken to fold subtree history into a CRDT value in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Persistence metrics
	SnapshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meridian_snapshots_total",
			Help: "Total number of store snapshot/restore operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	SnapshotDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meridian_snapshot_duration_seconds",
			Help:    "Time taken to snapshot or restore the store in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)
)

func init() {
	prometheus.MustRegister(TreesTotal)
	prometheus.MustRegister(EntriesTotal)
	prometheus.MustRegister(EntriesByStatus)
	prometheus.MustRegister(CommitsTotal)
	prometheus.MustRegister(CommitDuration)
	prometheus.MustRegister(ValidationFailuresTotal)
	prometheus.MustRegister(MaterializationCacheHits)
	prometheus.MustRegister(MaterializationCacheMisses)
	prometheus.MustRegister(MaterializationDuration)
	prometheus.MustRegister(SnapshotsTotal)
	prometheus.MustRegister(SnapshotDuration)
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
