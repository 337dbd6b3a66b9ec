package viewsync

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gozephyr/viewsync/metrics"
	"github.com/gozephyr/viewsync/mutate"
	"github.com/gozephyr/viewsync/remote"
	"github.com/gozephyr/viewsync/store"
)

// Options represents client configuration options
type Options struct {
	// API is the remote server the client reads from and mutates through
	API remote.API

	// Notifier receives rollback and conflict notices
	Notifier mutate.Notifier

	// Fetcher overrides the default key-to-remote routing entirely
	Fetcher store.Fetcher

	// ViewerID identifies the acting user for follow-family mutations and
	// the privacy gate
	ViewerID string

	// PageSize is the page size requested from the server
	PageSize int

	// PaginatedKinds lists the key kinds whose values are paged lists
	PaginatedKinds []string

	// GracePeriod is how long an entry without subscribers stays warm
	GracePeriod time.Duration

	// SweepInterval is the interval between eviction sweeps
	SweepInterval time.Duration

	// ColdCapacity is the size of the cold cache for evicted entries
	ColdCapacity int

	// StaleAfter marks ready entries stale this long after their fetch
	StaleAfter time.Duration

	// MetricsConfig defines the configuration for metrics
	MetricsConfig MetricsConfig

	// Logger receives debug and failure logs; nil keeps the client silent
	Logger *slog.Logger
}

// MetricsConfig defines the configuration for metrics
type MetricsConfig struct {
	// ExporterType specifies the type of metrics exporter to use
	ExporterType metrics.ExporterType
	// StoreName is used as a label for Prometheus metrics
	StoreName string
	// Registerer receives the Prometheus collectors; nil means the default
	Registerer prometheus.Registerer
}

// Option is a function that configures client options
type Option func(*Options)

// WithAPI sets the remote server
func WithAPI(api remote.API) Option {
	return func(o *Options) {
		o.API = api
	}
}

// WithNotifier sets the notice sink
func WithNotifier(n mutate.Notifier) Option {
	return func(o *Options) {
		o.Notifier = n
	}
}

// WithFetcher overrides the default key routing
func WithFetcher(f store.Fetcher) Option {
	return func(o *Options) {
		o.Fetcher = f
	}
}

// WithViewer sets the acting user
func WithViewer(viewerID string) Option {
	return func(o *Options) {
		o.ViewerID = viewerID
	}
}

// WithPageSize sets the requested page size
func WithPageSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.PageSize = n
		}
	}
}

// WithPaginatedKinds sets the key kinds treated as paged lists
func WithPaginatedKinds(kinds ...string) Option {
	return func(o *Options) {
		o.PaginatedKinds = kinds
	}
}

// WithGracePeriod sets how long unsubscribed entries stay warm
func WithGracePeriod(d time.Duration) Option {
	return func(o *Options) {
		o.GracePeriod = d
	}
}

// WithSweepInterval sets the eviction sweep interval
func WithSweepInterval(d time.Duration) Option {
	return func(o *Options) {
		o.SweepInterval = d
	}
}

// WithColdCapacity sets the cold cache capacity
func WithColdCapacity(n int) Option {
	return func(o *Options) {
		o.ColdCapacity = n
	}
}

// WithStaleAfter sets the age after which ready entries go stale
func WithStaleAfter(d time.Duration) Option {
	return func(o *Options) {
		o.StaleAfter = d
	}
}

// WithMetricsConfig sets the metrics configuration
func WithMetricsConfig(cfg MetricsConfig) Option {
	return func(o *Options) {
		o.MetricsConfig = cfg
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		PageSize: 20,
		PaginatedKinds: []string{
			"reviewList",
			"commentList",
			"followList",
			"libraryBooks",
			"libraryList",
		},
		GracePeriod:   30 * time.Second,
		SweepInterval: time.Second,
		ColdCapacity:  256,
		StaleAfter:    5 * time.Minute,
		MetricsConfig: MetricsConfig{
			ExporterType: metrics.StandardExporter,
			StoreName:    "viewsync",
		},
	}
}
