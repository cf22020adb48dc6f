// Package prommetrics exports repository metrics to Prometheus.
package prommetrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/metacat"
	"github.com/hupe1980/metacat/merge"
)

const namespace = "metacat"

var _ metacat.MetricsCollector = (*Collector)(nil)

// Collector implements metacat.MetricsCollector on Prometheus metrics.
type Collector struct {
	snapshotStages prometheus.Counter
	mergeLatency   *prometheus.HistogramVec
	conflicts      *prometheus.CounterVec
	elements       *prometheus.CounterVec
	commitLatency  *prometheus.HistogramVec
}

// New creates a Collector and registers its metrics with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		snapshotStages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_stages_total",
			Help:      "Snapshot stages started.",
		}),
		// Labels: status (ok, conflict, error)
		mergeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "duration_seconds",
			Help:      "Time spent merging overlays into the committed snapshot.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"status"}),
		// Labels: reason
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "conflicts_total",
			Help:      "Overlays rejected by the merge, by reason.",
		}, []string{"reason"}),
		// Labels: action (inserted, recursed, deleted, skipped)
		elements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "elements_total",
			Help:      "Overlay elements handled by successful merges, by action.",
		}, []string{"action"}),
		// Labels: status (ok, error)
		commitLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "commit",
			Name:      "duration_seconds",
			Help:      "Time spent persisting merged snapshots.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}

	for _, m := range []prometheus.Collector{c.snapshotStages, c.mergeLatency, c.conflicts, c.elements, c.commitLatency} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordSnapshotStage implements metacat.MetricsCollector.
func (c *Collector) RecordSnapshotStage() {
	c.snapshotStages.Inc()
}

// RecordMerge implements metacat.MetricsCollector.
func (c *Collector) RecordMerge(duration time.Duration, stats merge.Stats, err error) {
	var unmergeable *merge.UnmergeableError
	switch {
	case errors.As(err, &unmergeable):
		c.mergeLatency.WithLabelValues("conflict").Observe(duration.Seconds())
		c.conflicts.WithLabelValues(unmergeable.Conflict.Reason.String()).Inc()
	case err != nil:
		c.mergeLatency.WithLabelValues("error").Observe(duration.Seconds())
	default:
		c.mergeLatency.WithLabelValues("ok").Observe(duration.Seconds())
		c.elements.WithLabelValues("inserted").Add(float64(stats.Inserted))
		c.elements.WithLabelValues("recursed").Add(float64(stats.Recursed))
		c.elements.WithLabelValues("deleted").Add(float64(stats.Deleted))
		c.elements.WithLabelValues("skipped").Add(float64(stats.Skipped))
	}
}

// RecordCommit implements metacat.MetricsCollector.
func (c *Collector) RecordCommit(duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.commitLatency.WithLabelValues(status).Observe(duration.Seconds())
}
