/*
Package metrics provides Prometheus metrics collection and exposition
for Meridian.

The metrics package defines and registers gauges, counters, and
histograms for the database engine's observable state: tree and entry
counts, verification outcomes, commit latency, materialization cache
hit rate, and snapshot/restore duration. Metrics are exposed via an
HTTP handler for scraping by a Prometheus server.

# Metric Categories

Trees/Entries:
  - TreesTotal, EntriesTotal: instantaneous gauges refreshed by database.MetricsCollector
  - EntriesByStatus: entry count broken down by verification status

Commits:
  - CommitsTotal: counter by result ("verified"/"unverified")
  - CommitDuration: histogram of AtomicOp.Commit wall time

Validation:
  - ValidationFailuresTotal: counter by failure reason

Materialization cache:
  - MaterializationCacheHits / MaterializationCacheMisses: counters
  - MaterializationDuration: histogram of fold-history time

Persistence:
  - SnapshotsTotal: counter by operation ("snapshot"/"restore") and result
  - SnapshotDuration: histogram of bbolt snapshot/restore time

# Usage

Exposing metrics over HTTP:

	http.Handle("/metrics", metrics.Handler())

Incrementing a counter:

	metrics.CommitsTotal.WithLabelValues("verified").Inc()

Timing an operation:

	timer := metrics.NewTimer()
	// ... do work ...
	timer.ObserveDuration(metrics.CommitDuration)

Background collection:

	collector := database.NewMetricsCollector(db)
	collector.Start()
	defer collector.Stop()

# Health and Readiness

health.go implements a small component health registry independent of
the Prometheus metrics above: RegisterComponent/UpdateComponent record
per-component health, and HealthHandler/ReadyHandler/LivenessHandler
expose /health, /ready, and /live endpoints. Readiness additionally
requires the "store" and "database" components to be registered and
healthy.

# Design Patterns

Global registry pattern: metrics are package-level vars registered in
an init() func, mirroring the log package's global-logger pattern, so
any package can record a metric without threading a collector through
every call site.
*/
package metrics
