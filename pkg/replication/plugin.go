package replication

import "context"

// FaultTarget is the part of a replication context a plugin may use to
// configure failure injection. Both methods are safe to call from any
// goroutine.
type FaultTarget interface {
	Arm(op Op, code, count int) error
	Disarm()
}

// PluginConfig is passed to plugins on initialization.
type PluginConfig struct {
	// Strategy is the name of the replication context
	Strategy string

	// Faults configures the context's failure injector
	Faults FaultTarget

	// Logger is the context's logger
	Logger Logger
}

// Plugin extends a replication context with background behavior.
type Plugin interface {
	// Name returns the plugin identifier.
	Name() string

	// Initialize starts the plugin. The context is cancelled when the
	// replication context is stopped.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin and releases its resources.
	Shutdown(ctx context.Context) error
}

// BasePlugin implements Plugin with no-op methods.
type BasePlugin struct{}

func (BasePlugin) Name() string                                   { return "base" }
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (BasePlugin) Shutdown(context.Context) error                 { return nil }
