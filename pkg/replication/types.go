package replication

import (
	"github.com/qq511939992/walrepl/internal/domain"
	"github.com/qq511939992/walrepl/internal/ports"
	"github.com/qq511939992/walrepl/pkg/ledger"
	"github.com/qq511939992/walrepl/pkg/log"
)

// Re-export domain types so callers only import this package.
type (
	// Phase is the protocol phase of a replication context.
	Phase = domain.Phase

	// Op names one of the five phase operations.
	Op = domain.Op

	// Frame is one page change.
	Frame = domain.Frame

	// FrameID identifies a frame within an epoch.
	FrameID = domain.FrameID

	// Batch is the group of frames passed to one Frames call.
	Batch = domain.Batch

	// Record is one entry of the frame history.
	Record = ledger.Record

	// Follower receives forwarded frames.
	Follower = ports.Follower

	// IngestRequest is the flattened batch handed to a Follower.
	IngestRequest = ports.IngestRequest

	// InjectedError is returned when the failure injector fires.
	InjectedError = domain.InjectedError

	// ForwardingError wraps an error returned by the follower.
	ForwardingError = domain.ForwardingError

	// ContractViolation is the panic value for an operation invoked in an
	// illegal phase.
	ContractViolation = domain.ContractViolation

	// Logger is the interface for structured logging.
	Logger = log.Logger

	// LogField is a structured log field.
	LogField = log.Field
)

const (
	PhaseIdle      = domain.PhaseIdle
	PhasePending   = domain.PhasePending
	PhaseWriting   = domain.PhaseWriting
	PhaseCommitted = domain.PhaseCommitted
	PhaseUndone    = domain.PhaseUndone
	PhaseError     = domain.PhaseError

	OpBegin  = domain.OpBegin
	OpAbort  = domain.OpAbort
	OpFrames = domain.OpFrames
	OpUndo   = domain.OpUndo
	OpEnd    = domain.OpEnd

	NoFrame = domain.NoFrame
)

// Errors returned by replication contexts and the registry.
var (
	ErrInjected          = domain.ErrInjected
	ErrOutOfMemory       = domain.ErrOutOfMemory
	ErrForwarding        = domain.ErrForwarding
	ErrContractViolation = domain.ErrContractViolation
	ErrMalformedBatch    = domain.ErrMalformedBatch
	ErrInvalidFault      = domain.ErrInvalidFault
	ErrEmptyName         = domain.ErrEmptyName
	ErrDuplicateStrategy = domain.ErrDuplicateStrategy
	ErrStrategyNotFound  = domain.ErrStrategyNotFound
	ErrAlreadyRunning    = domain.ErrAlreadyRunning
	ErrNotRunning        = domain.ErrNotRunning
)

// ParseOp returns the operation with the given lowercase name.
func ParseOp(name string) (Op, bool) {
	return domain.ParseOp(name)
}
