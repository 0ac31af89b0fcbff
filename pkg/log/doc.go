// Package log provides the logging abstraction used by walrepl components.
//
// The replication core never imports a logging library directly. It logs
// through the Logger interface defined here; a zerolog adapter is provided for
// programs that want console or JSON output, and a no-op logger is the default.
//
// # Usage
//
// Wrap an existing zerolog logger:
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//
// Or build a console logger at a given level:
//
//	logger := log.NewZerologAdapter(zerolog.DebugLevel)
//
// Or discard everything:
//
//	logger := log.NewNoopLogger()
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package log
