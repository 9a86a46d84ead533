package hnsw

import (
	"log/slog"

	"github.com/sameraamar/HNSW/blobstore"
	"github.com/sameraamar/HNSW/graph"
	"github.com/sameraamar/HNSW/internal/compress"
	"github.com/sameraamar/HNSW/internal/parallel"
	"github.com/sameraamar/HNSW/resource"
)

// Compression selects how Save encodes the graph stream.
type Compression = compress.Type

const (
	// CompressionNone stores the graph stream as is.
	CompressionNone = compress.None
	// CompressionLZ4 favors speed.
	CompressionLZ4 = compress.LZ4
	// CompressionZstd favors size.
	CompressionZstd = compress.Zstd
)

// ParseCompression maps "none", "lz4" or "zstd" to a Compression.
func ParseCompression(name string) (Compression, error) {
	return compress.ParseType(name)
}

type options struct {
	logger           *Logger
	debug            bool
	metricsCollector MetricsCollector
	numThreads       int
	defaultEF        int
	store            blobstore.Store
	compression      Compression
	engineFactory    EngineFactory
	resources        *resource.Controller
}

// Option configures an Index.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := hnsw.NewJSONLogger(slog.LevelInfo)
//	idx, _ := hnsw.New("l2", 128, hnsw.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
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

// WithDebug turns on debug logging (batch sizes, element counts, loaded
// graph parameters). Without a configured logger the records go to stderr;
// a configured logger is lowered to debug level.
func WithDebug(debug bool) Option {
	return func(o *options) {
		o.debug = debug
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
//	metrics := &hnsw.BasicMetricsCollector{}
//	idx, _ := hnsw.New("l2", 128, hnsw.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithNumThreads sets the default worker count for batch calls.
// Values <= 0 mean the number of CPUs.
func WithNumThreads(n int) Option {
	return func(o *options) {
		o.numThreads = n
	}
}

// WithDefaultEF sets the search-time candidate list size applied after Init and Load.
func WithDefaultEF(ef int) Option {
	return func(o *options) {
		o.defaultEF = ef
	}
}

// WithBlobStore sets where Save and Load read and write. The default is the
// local file system with names used as paths.
func WithBlobStore(store blobstore.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithCompression sets the compression Save applies. Load detects it.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithEngineFactory replaces the graph engine.
func WithEngineFactory(f EngineFactory) Option {
	return func(o *options) {
		o.engineFactory = f
	}
}

// WithResourceController shares memory, batch and I/O limits with other
// indexes using the same controller.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		o.resources = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		defaultEF:   graph.DefaultEf,
		compression: CompressionNone,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	switch {
	case o.logger == nil && o.debug:
		o.logger = NewTextLogger(slog.LevelDebug)
	case o.logger == nil:
		o.logger = NoopLogger()
	case o.debug:
		o.logger = o.logger.WithLevel(slog.LevelDebug)
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	o.numThreads = parallel.Resolve(o.numThreads)
	if o.defaultEF < 1 {
		o.defaultEF = graph.DefaultEf
	}
	if o.store == nil {
		o.store = blobstore.NewLocalStore("")
	}
	if o.engineFactory == nil {
		o.engineFactory = GraphFactory{}
	}
	return o
}
