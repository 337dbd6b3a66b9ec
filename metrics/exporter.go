package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ExporterType defines the type of metrics exporter
type ExporterType string

const (
	// StandardExporter uses the default metrics implementation
	StandardExporter ExporterType = "standard"
	// PrometheusExporterType uses Prometheus metrics
	PrometheusExporterType ExporterType = "prometheus"
)

// MutationOutcome classifies how a mutation settled.
type MutationOutcome string

const (
	// OutcomeCommitted means the optimistic patch was confirmed
	OutcomeCommitted MutationOutcome = "committed"
	// OutcomeRolledBack means the optimistic patch was reverted
	OutcomeRolledBack MutationOutcome = "rolled_back"
	// OutcomeDebounced means the mutation was a no-op duplicate
	OutcomeDebounced MutationOutcome = "debounced"
)

// Exporter defines the interface for metrics exporters
type Exporter interface {
	// RecordHit records a cache hit
	RecordHit()
	// RecordMiss records a cache miss
	RecordMiss()
	// RecordWrite records a cache write
	RecordWrite()
	// RecordEviction records a cache eviction
	RecordEviction()
	// RecordInvalidation records a cache invalidation
	RecordInvalidation()
	// RecordMutation records the outcome of a settled mutation
	RecordMutation(outcome MutationOutcome)
	// RecordPage records a fetched page and the duplicates dropped from it
	RecordPage(duplicates int64)
	// UpdateSize updates the current store size
	UpdateSize(size int64)
	// GetSnapshot returns a thread-safe copy of current metrics
	GetSnapshot() Snapshot
	// Reset resets all metrics to zero
	Reset()
}

// PrometheusExporter implements Exporter using Prometheus metrics
type PrometheusExporter struct {
	hits          *prometheus.CounterVec
	misses        *prometheus.CounterVec
	writes        *prometheus.CounterVec
	evictions     *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	mutations     *prometheus.CounterVec
	pages         *prometheus.CounterVec
	duplicates    *prometheus.CounterVec
	size          *prometheus.GaugeVec

	// Internal counters for snapshot
	internal SyncMetrics

	// Labels for metrics
	labels prometheus.Labels
}

// NewPrometheusExporter creates a new Prometheus metrics exporter. All
// metrics are registered with reg; passing nil uses the default registerer.
func NewPrometheusExporter(storeName string, reg prometheus.Registerer) *PrometheusExporter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	e := &PrometheusExporter{
		labels: prometheus.Labels{"store": storeName},
	}
	e.internal.LastOperationTime.Store(time.Time{})
	e.internal.LastMutation.Store(time.Time{})

	labelNames := []string{"store"}

	e.hits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewsync_hits_total",
			Help: "Total number of cache hits",
		},
		labelNames,
	)
	e.misses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewsync_misses_total",
			Help: "Total number of cache misses",
		},
		labelNames,
	)
	e.writes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewsync_writes_total",
			Help: "Total number of cache writes",
		},
		labelNames,
	)
	e.evictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewsync_evictions_total",
			Help: "Total number of cache evictions",
		},
		labelNames,
	)
	e.invalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewsync_invalidations_total",
			Help: "Total number of cache invalidations",
		},
		labelNames,
	)
	e.mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewsync_mutations_total",
			Help: "Total number of settled mutations by outcome",
		},
		[]string{"store", "outcome"},
	)
	e.pages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewsync_pages_fetched_total",
			Help: "Total number of pages fetched",
		},
		labelNames,
	)
	e.duplicates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewsync_page_duplicates_total",
			Help: "Total number of duplicate entities dropped during page merges",
		},
		labelNames,
	)
	e.size = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "viewsync_store_size",
			Help: "Current number of entries in the cache store",
		},
		labelNames,
	)

	reg.MustRegister(
		e.hits,
		e.misses,
		e.writes,
		e.evictions,
		e.invalidations,
		e.mutations,
		e.pages,
		e.duplicates,
		e.size,
	)

	return e
}

// RecordHit implements Exporter
func (e *PrometheusExporter) RecordHit() {
	e.hits.With(e.labels).Inc()
	e.internal.RecordHit()
}

// RecordMiss implements Exporter
func (e *PrometheusExporter) RecordMiss() {
	e.misses.With(e.labels).Inc()
	e.internal.RecordMiss()
}

// RecordWrite implements Exporter
func (e *PrometheusExporter) RecordWrite() {
	e.writes.With(e.labels).Inc()
	e.internal.RecordWrite()
}

// RecordEviction implements Exporter
func (e *PrometheusExporter) RecordEviction() {
	e.evictions.With(e.labels).Inc()
	e.internal.RecordEviction()
}

// RecordInvalidation implements Exporter
func (e *PrometheusExporter) RecordInvalidation() {
	e.invalidations.With(e.labels).Inc()
	e.internal.RecordInvalidation()
}

// RecordMutation implements Exporter
func (e *PrometheusExporter) RecordMutation(outcome MutationOutcome) {
	e.mutations.With(prometheus.Labels{
		"store":   e.labels["store"],
		"outcome": string(outcome),
	}).Inc()
	e.internal.RecordMutation(outcome)
}

// RecordPage implements Exporter
func (e *PrometheusExporter) RecordPage(duplicates int64) {
	e.pages.With(e.labels).Inc()
	if duplicates > 0 {
		e.duplicates.With(e.labels).Add(float64(duplicates))
	}
	e.internal.RecordPage(duplicates)
}

// UpdateSize implements Exporter
func (e *PrometheusExporter) UpdateSize(size int64) {
	e.size.With(e.labels).Set(float64(size))
	e.internal.UpdateSize(size)
}

// GetSnapshot implements Exporter
func (e *PrometheusExporter) GetSnapshot() Snapshot {
	return e.internal.GetSnapshot()
}

// Reset implements Exporter
func (e *PrometheusExporter) Reset() {
	// Prometheus metrics are not reset as they are meant to be cumulative
	e.internal.Reset()
}

// NewExporter creates a new metrics exporter based on the specified type
func NewExporter(exporterType ExporterType, storeName string, reg prometheus.Registerer) Exporter {
	switch exporterType {
	case PrometheusExporterType:
		return NewPrometheusExporter(storeName, reg)
	default:
		return NewSyncMetrics()
	}
}
