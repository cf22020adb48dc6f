package metacat

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/hupe1980/metacat/merge"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see
// metrics/prommetrics for a Prometheus implementation.
type MetricsCollector interface {
	// RecordSnapshotStage is called when a snapshot stage starts.
	RecordSnapshotStage()

	// RecordMerge is called after each merge attempt. stats is zero when
	// err is set; a conflict matches ErrUnmergeable.
	RecordMerge(duration time.Duration, stats merge.Stats, err error)

	// RecordCommit is called after each commit of a merge stage.
	RecordCommit(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSnapshotStage()                          {}
func (NoopMetricsCollector) RecordMerge(time.Duration, merge.Stats, error) {}
func (NoopMetricsCollector) RecordCommit(time.Duration, error)             {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SnapshotStages   atomic.Int64
	MergeCount       atomic.Int64
	MergeConflicts   atomic.Int64
	MergeErrors      atomic.Int64
	MergeTotalNanos  atomic.Int64
	ElementsInserted atomic.Int64
	ElementsDeleted  atomic.Int64
	CommitCount      atomic.Int64
	CommitErrors     atomic.Int64
	CommitTotalNanos atomic.Int64
}

// RecordSnapshotStage implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotStage() {
	b.SnapshotStages.Add(1)
}

// RecordMerge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMerge(duration time.Duration, stats merge.Stats, err error) {
	b.MergeCount.Add(1)
	b.MergeTotalNanos.Add(duration.Nanoseconds())
	switch {
	case errors.Is(err, merge.ErrUnmergeable):
		b.MergeConflicts.Add(1)
	case err != nil:
		b.MergeErrors.Add(1)
	default:
		b.ElementsInserted.Add(int64(stats.Inserted))
		b.ElementsDeleted.Add(int64(stats.Deleted))
	}
}

// RecordCommit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCommit(duration time.Duration, err error) {
	b.CommitCount.Add(1)
	b.CommitTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CommitErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SnapshotStages:   b.SnapshotStages.Load(),
		MergeCount:       b.MergeCount.Load(),
		MergeConflicts:   b.MergeConflicts.Load(),
		MergeErrors:      b.MergeErrors.Load(),
		MergeAvgNanos:    avg(b.MergeTotalNanos.Load(), b.MergeCount.Load()),
		ElementsInserted: b.ElementsInserted.Load(),
		ElementsDeleted:  b.ElementsDeleted.Load(),
		CommitCount:      b.CommitCount.Load(),
		CommitErrors:     b.CommitErrors.Load(),
		CommitAvgNanos:   avg(b.CommitTotalNanos.Load(), b.CommitCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SnapshotStages   int64
	MergeCount       int64
	MergeConflicts   int64
	MergeErrors      int64
	MergeAvgNanos    int64
	ElementsInserted int64
	ElementsDeleted  int64
	CommitCount      int64
	CommitErrors     int64
	CommitAvgNanos   int64
}
