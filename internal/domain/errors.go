package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the walrepl domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrInjected matches every InjectedError.
	ErrInjected = errors.New("walrepl: injected failure")

	// ErrOutOfMemory is returned when recording a frame or building the
	// follower buffers would exceed the configured capacity.
	ErrOutOfMemory = errors.New("walrepl: out of memory")

	// ErrForwarding matches every ForwardingError.
	ErrForwarding = errors.New("walrepl: follower error")

	// ErrContractViolation matches every ContractViolation panic value.
	ErrContractViolation = errors.New("walrepl: contract violation")

	// ErrMalformedBatch is returned when a batch has a non-positive page size
	// or a frame whose data length differs from the page size.
	ErrMalformedBatch = errors.New("walrepl: malformed frame batch")

	// ErrInvalidFault is returned when a failure injector is armed with an
	// operation that cannot fail, a zero error code or a negative count.
	ErrInvalidFault = errors.New("walrepl: invalid fault configuration")

	// ErrEmptyName is returned when a strategy is created without a name.
	ErrEmptyName = errors.New("walrepl: strategy name is empty")

	// ErrDuplicateStrategy is returned when a different strategy is already
	// registered under the same name.
	ErrDuplicateStrategy = errors.New("walrepl: strategy already registered")

	// ErrStrategyNotFound is returned when no strategy matches a lookup.
	ErrStrategyNotFound = errors.New("walrepl: strategy not found")

	// ErrAlreadyRunning is returned by Start when plugins are already running.
	ErrAlreadyRunning = errors.New("walrepl: already running")

	// ErrNotRunning is returned by Stop when plugins are not running.
	ErrNotRunning = errors.New("walrepl: not running")
)

// InjectedError is returned by an operation when the failure injector fires.
type InjectedError struct {
	Op   Op
	Code int
}

func (e *InjectedError) Error() string {
	return fmt.Sprintf("walrepl: injected failure in %s (code %d)", e.Op, e.Code)
}

// Is reports whether target is ErrInjected.
func (e *InjectedError) Is(target error) bool {
	return target == ErrInjected
}

// ForwardingError wraps an error returned by the follower.
type ForwardingError struct {
	Op     Op
	Schema string
	Err    error
}

func (e *ForwardingError) Error() string {
	return fmt.Sprintf("walrepl: follower %s on schema %q: %v", e.Op, e.Schema, e.Err)
}

// Is reports whether target is ErrForwarding.
func (e *ForwardingError) Is(target error) bool {
	return target == ErrForwarding
}

// Unwrap returns the follower's error.
func (e *ForwardingError) Unwrap() error {
	return e.Err
}

// ContractViolation is the panic value raised when an operation is invoked
// from a phase its precondition does not allow. It indicates a broken protocol
// driver and is not meant to be recovered in production code.
type ContractViolation struct {
	Op    Op
	Phase Phase
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("walrepl: %s called in phase %s", e.Op, e.Phase)
}

// Is reports whether target is ErrContractViolation.
func (e *ContractViolation) Is(target error) bool {
	return target == ErrContractViolation
}
