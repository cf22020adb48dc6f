package metacat

import (
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/hupe1980/metacat/blobstore"
	"github.com/hupe1980/metacat/codec"
	"github.com/hupe1980/metacat/metainf"
	"github.com/hupe1980/metacat/tableref"
)

const (
	// DefaultMaxMergeAttempts bounds the retries of Update.
	DefaultMaxMergeAttempts = 5

	// DefaultRetryRate paces the retries of Update.
	DefaultRetryRate = rate.Limit(50)
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	blobStore        blobstore.BlobStore
	codec            codec.Codec
	compression      codec.Compression
	cacheSize        int
	initial          *metainf.Snapshot
	refs             *tableref.Factory
	maxMergeAttempts int
	retryRate        rate.Limit
}

// Option configures Open.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := metacat.NewJSONLogger(slog.LevelInfo)
//	repo, _ := metacat.Open(ctx, metacat.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &metacat.BasicMetricsCollector{}
//	repo, _ := metacat.Open(ctx, metacat.WithMetricsCollector(metrics))
//	// ... use repo ...
//	stats := metrics.GetStats()
//	fmt.Printf("Merges: %d, conflicts: %d\n", stats.MergeCount, stats.MergeConflicts)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithBlobStore persists every committed snapshot to store. Open loads the
// latest persisted version.
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobStore = store
	}
}

// WithCodec configures the codec used for new catalog versions.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures the compression of new catalog versions.
func WithCompression(c codec.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithCacheSize keeps up to n version blobs in an in-memory LRU cache in
// front of the blob store. 0 disables the cache.
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// WithInitialSnapshot sets the catalog used when nothing has been persisted
// yet.
func WithInitialSnapshot(snap *metainf.Snapshot) Option {
	return func(o *options) {
		o.initial = snap
	}
}

// WithTableRefFactory sets the factory that interns the paths of loaded
// catalogs. Share it with the code that builds overlays.
func WithTableRefFactory(refs *tableref.Factory) Option {
	return func(o *options) {
		o.refs = refs
	}
}

// WithMaxMergeAttempts bounds how often Update retries a conflicting
// overlay. Values below 1 mean one attempt.
func WithMaxMergeAttempts(n int) Option {
	return func(o *options) {
		o.maxMergeAttempts = max(n, 1)
	}
}

// WithRetryRate paces the retries of Update. rate.Inf disables pacing.
func WithRetryRate(limit rate.Limit) Option {
	return func(o *options) {
		o.retryRate = limit
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		codec:            codec.Default,
		initial:          metainf.EmptySnapshot(),
		maxMergeAttempts: DefaultMaxMergeAttempts,
		retryRate:        DefaultRetryRate,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.refs == nil {
		o.refs = tableref.NewFactory()
	}
	if o.initial == nil {
		o.initial = metainf.EmptySnapshot()
	}
	return o
}
