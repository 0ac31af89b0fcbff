// Package lifecycle tracks the run state of a replication context's plugins.
//
// The phase operations of a replication context never depend on this state;
// it only governs the background plugins started by Start and stopped by
// Stop. A plugin that fails to initialize leaves the runtime in StateCrashed,
// from which it may be started again.
//
//	Stopped -> Starting -> Running -> Stopping -> Stopped
//	              |           |           |
//	              +------> Crashed <------+
package lifecycle
