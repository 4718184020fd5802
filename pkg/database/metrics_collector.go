package database

import (
	"time"

	"github.com/meridiandb/meridian/pkg/metrics"
	"github.com/meridiandb/meridian/pkg/types"
)

// MetricsCollector collects metrics from a Database on a fixed tick.
type MetricsCollector struct {
	db     *Database
	stopCh chan struct{}
}

// NewMetricsCollector creates a metrics collector for db.
func NewMetricsCollector(db *Database) *MetricsCollector {
	return &MetricsCollector{
		db:     db,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15-second tick.
func (c *MetricsCollector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *MetricsCollector) Stop() {
	close(c.stopCh)
}

func (c *MetricsCollector) collect() {
	c.collectTreeMetrics()
	c.collectEntryMetrics()
}

func (c *MetricsCollector) collectTreeMetrics() {
	trees, err := c.db.AllTrees()
	if err != nil {
		return
	}
	metrics.TreesTotal.Set(float64(len(trees)))
}

func (c *MetricsCollector) collectEntryMetrics() {
	statuses := []types.VerificationStatus{types.Unverified, types.Verified, types.Failed}

	total := 0
	for _, status := range statuses {
		ids, err := c.db.Store().ByVerification(status)
		if err != nil {
			continue
		}
		metrics.EntriesByStatus.WithLabelValues(string(status)).Set(float64(len(ids)))
		total += len(ids)
	}
	metrics.EntriesTotal.Set(float64(total))
}
