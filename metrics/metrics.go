// Package metrics provides functionality for collecting and reporting
// cache and mutation metrics.
package metrics

import (
	"sync/atomic"
	"time"
)

// SyncMetrics represents unified metrics for all viewsync components
type SyncMetrics struct {
	// Cache store metrics
	Size              atomic.Int64
	Hits              atomic.Int64
	Misses            atomic.Int64
	Writes            atomic.Int64
	Evictions         atomic.Int64
	Invalidations     atomic.Int64
	LastOperationTime atomic.Value // time.Time

	// Mutation metrics
	MutationsStarted    atomic.Int64
	MutationsCommitted  atomic.Int64
	MutationsRolledBack atomic.Int64
	MutationsDebounced  atomic.Int64
	LastMutation        atomic.Value // time.Time

	// Pagination metrics
	PagesFetched      atomic.Int64
	DuplicatesDropped atomic.Int64
}

// Snapshot is a thread-safe copy of metrics
type Snapshot struct {
	// Cache store
	Size              int64
	Hits              int64
	Misses            int64
	Writes            int64
	Evictions         int64
	Invalidations     int64
	LastOperationTime time.Time

	// Mutations
	MutationsStarted    int64
	MutationsCommitted  int64
	MutationsRolledBack int64
	MutationsDebounced  int64
	LastMutation        time.Time

	// Pagination
	PagesFetched      int64
	DuplicatesDropped int64
}

// NewSyncMetrics creates a new SyncMetrics instance
func NewSyncMetrics() *SyncMetrics {
	m := &SyncMetrics{}
	m.LastOperationTime.Store(time.Time{})
	m.LastMutation.Store(time.Time{})
	return m
}

// RecordHit records a cache hit
func (m *SyncMetrics) RecordHit() {
	m.Hits.Add(1)
	m.LastOperationTime.Store(time.Now())
}

// RecordMiss records a cache miss
func (m *SyncMetrics) RecordMiss() {
	m.Misses.Add(1)
	m.LastOperationTime.Store(time.Now())
}

// RecordWrite records a cache write
func (m *SyncMetrics) RecordWrite() {
	m.Writes.Add(1)
	m.LastOperationTime.Store(time.Now())
}

// RecordEviction records a cache eviction
func (m *SyncMetrics) RecordEviction() {
	m.Evictions.Add(1)
}

// RecordInvalidation records a cache invalidation
func (m *SyncMetrics) RecordInvalidation() {
	m.Invalidations.Add(1)
}

// RecordMutation records the outcome of a settled mutation
func (m *SyncMetrics) RecordMutation(outcome MutationOutcome) {
	m.MutationsStarted.Add(1)
	switch outcome {
	case OutcomeCommitted:
		m.MutationsCommitted.Add(1)
	case OutcomeRolledBack:
		m.MutationsRolledBack.Add(1)
	case OutcomeDebounced:
		m.MutationsDebounced.Add(1)
	}
	m.LastMutation.Store(time.Now())
}

// RecordPage records a fetched page and the duplicates dropped from it
func (m *SyncMetrics) RecordPage(duplicates int64) {
	m.PagesFetched.Add(1)
	m.DuplicatesDropped.Add(duplicates)
}

// UpdateSize updates the current store size
func (m *SyncMetrics) UpdateSize(size int64) {
	m.Size.Store(size)
}

// GetSnapshot returns a thread-safe copy of current metrics
func (m *SyncMetrics) GetSnapshot() Snapshot {
	return Snapshot{
		Size:                m.Size.Load(),
		Hits:                m.Hits.Load(),
		Misses:              m.Misses.Load(),
		Writes:              m.Writes.Load(),
		Evictions:           m.Evictions.Load(),
		Invalidations:       m.Invalidations.Load(),
		LastOperationTime:   m.LastOperationTime.Load().(time.Time),
		MutationsStarted:    m.MutationsStarted.Load(),
		MutationsCommitted:  m.MutationsCommitted.Load(),
		MutationsRolledBack: m.MutationsRolledBack.Load(),
		MutationsDebounced:  m.MutationsDebounced.Load(),
		LastMutation:        m.LastMutation.Load().(time.Time),
		PagesFetched:        m.PagesFetched.Load(),
		DuplicatesDropped:   m.DuplicatesDropped.Load(),
	}
}

// Reset resets all metrics to zero
func (m *SyncMetrics) Reset() {
	m.Size.Store(0)
	m.Hits.Store(0)
	m.Misses.Store(0)
	m.Writes.Store(0)
	m.Evictions.Store(0)
	m.Invalidations.Store(0)
	m.LastOperationTime.Store(time.Time{})
	m.MutationsStarted.Store(0)
	m.MutationsCommitted.Store(0)
	m.MutationsRolledBack.Store(0)
	m.MutationsDebounced.Store(0)
	m.LastMutation.Store(time.Time{})
	m.PagesFetched.Store(0)
	m.DuplicatesDropped.Store(0)
}
