package log

// NoopLogger discards every entry. It is the default logger of a
// replication context and of the plugins that ship with walrepl.
type NoopLogger struct{}

var _ Logger = NoopLogger{}

// Discard is a shared no-op logger.
var Discard Logger = NoopLogger{}

// NewNoopLogger returns a logger that drops all entries.
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

func (NoopLogger) Debug(string, ...Field) {}
func (NoopLogger) Info(string, ...Field)  {}
func (NoopLogger) Warn(string, ...Field)  {}
func (NoopLogger) Error(string, ...Field) {}
