package store

import (
	"log/slog"
	"time"

	"github.com/gozephyr/viewsync/metrics"
)

// Options represents store configuration options
type Options struct {
	// Fetcher loads values for keys on first subscription and on refetch
	Fetcher Fetcher

	// GracePeriod is how long an entry without subscribers stays warm
	GracePeriod time.Duration

	// SweepInterval is the interval between eviction sweeps (0 disables)
	SweepInterval time.Duration

	// ColdCapacity is the size of the cold cache for evicted entries
	ColdCapacity int

	// StaleAfter marks ready entries stale this long after their fetch
	// (0 means entries never go stale by age)
	StaleAfter time.Duration

	// Metrics is the exporter receiving store metrics
	Metrics metrics.Exporter

	// Logger receives fetch failures; nil keeps the store silent
	Logger *slog.Logger
}

// Option is a function that configures store options
type Option func(*Options)

// WithFetcher sets the fetcher
func WithFetcher(f Fetcher) Option {
	return func(o *Options) {
		o.Fetcher = f
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
		if n > 0 {
			o.ColdCapacity = n
		}
	}
}

// WithStaleAfter sets the age after which ready entries go stale
func WithStaleAfter(d time.Duration) Option {
	return func(o *Options) {
		o.StaleAfter = d
	}
}

// WithMetrics sets the metrics exporter
func WithMetrics(m metrics.Exporter) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// DefaultOptions returns the default store options
func DefaultOptions() *Options {
	return &Options{
		GracePeriod:   30 * time.Second,
		SweepInterval: time.Second,
		ColdCapacity:  256,
		StaleAfter:    5 * time.Minute,
	}
}
