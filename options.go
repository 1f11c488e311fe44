package docmap

import (
	"golang.org/x/time/rate"

	"github.com/hupe1980/docmap/blobstore"
)

type options struct {
	logger        *Logger
	workers       int
	rateLimit     rate.Limit
	burst         int
	snapshotStore blobstore.Store
}

// Option configures DB construction behavior.
type Option func(*options)

// WithLogger configures the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithWorkers configures the number of apply workers per document type.
// Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithRateLimit caps feed submissions per second per document type.
// Zero means unlimited.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(o *options) {
		o.rateLimit = limit
		o.burst = burst
	}
}

// WithSnapshotStore configures where listener-state snapshots are kept.
func WithSnapshotStore(s blobstore.Store) Option {
	return func(o *options) {
		o.snapshotStore = s
	}
}
