// Package domain contains the core domain entities and value objects for walrepl.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (followers, logging, tracing) and
// contains only the protocol vocabulary shared by every other layer.
//
// # Entities
//
//   - [Phase]: A discrete stage of the replication protocol (Idle, Pending, ...)
//   - [Op]: One of the five protocol operations (Begin, Abort, Frames, Undo, End)
//   - [Frame]: A single page change handed over by the storage engine
//   - [Batch]: An ordered group of frames plus page size, truncation and commit flag
//
// # Errors
//
// Errors returned by the protocol operations are either sentinels checkable
// with errors.Is, or typed errors ([InjectedError], [ForwardingError]) that
// carry the failing phase. A [ContractViolation] is never returned: it is the
// panic value raised when an operation is invoked from an illegal phase.
package domain
