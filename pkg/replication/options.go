package replication

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/qq511939992/walrepl/pkg/log"
)

// Option configures optional behavior of a replication context.
type Option func(*options)

// options holds the optional configuration for a replication context.
type options struct {
	logger        Logger
	eventHandler  EventHandler
	tracer        trace.Tracer
	follower      Follower
	schema        string
	maxFrames     int
	maxBatchBytes int
	plugins       []Plugin
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
		schema: "main",
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets a handler for replication events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithTracer records one span per phase operation.
// If not provided, tracing is disabled.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithFollower forwards frames to the given schema of f.
// An empty schema selects "main".
func WithFollower(f Follower, schema string) Option {
	return func(o *options) {
		o.follower = f
		if schema != "" {
			o.schema = schema
		}
	}
}

// WithMaxFrames bounds the number of frames recorded per epoch.
// Frames calls that would exceed it fail with ErrOutOfMemory.
func WithMaxFrames(n int) Option {
	return func(o *options) {
		o.maxFrames = n
	}
}

// WithMaxBatchBytes bounds the flattened page buffer built for the follower.
// Larger batches fail with ErrOutOfMemory and move the context to PhaseError.
func WithMaxBatchBytes(n int) Option {
	return func(o *options) {
		o.maxBatchBytes = n
	}
}

// WithPlugin registers a plugin to be initialized by Start.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
