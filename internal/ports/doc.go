// Package ports defines the interfaces (ports) that connect the replication
// core to its collaborators.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// core needs from external systems without specifying how those needs are
// fulfilled.
//
// # Port Interfaces
//
//   - [Follower]: Receives flattened frame batches and undo requests
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Concrete followers live in pkg/follower or in the embedding program; the
// zerolog adapter lives in pkg/log.
package ports
