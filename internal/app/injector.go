package app

import (
	"sync"

	"github.com/qq511939992/walrepl/internal/domain"
)

// DefaultFailureBudget is the failure count a reset injector starts with, so
// that choosing a target and a code alone fails effectively forever.
const DefaultFailureBudget = 8192

// Fault is a snapshot of the injector configuration.
type Fault struct {
	Op        domain.Op
	Code      int
	Remaining int
}

// Armed returns true if the next call to the target operation will fail.
func (f Fault) Armed() bool {
	return f.Op != 0 && f.Code != 0 && f.Remaining > 0
}

// Injector forces the next N calls of one operation to fail with a fixed code.
// It has its own lock because it may be re-armed from outside the replication
// thread.
type Injector struct {
	mu        sync.Mutex
	op        domain.Op
	code      int
	remaining int
}

// NewInjector returns a disarmed injector.
func NewInjector() *Injector {
	return &Injector{remaining: DefaultFailureBudget}
}

// Arm makes the next count calls to op fail with code.
func (i *Injector) Arm(op domain.Op, code, count int) error {
	if !op.Injectable() || code == 0 || count < 0 {
		return domain.ErrInvalidFault
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.op = op
	i.code = code
	i.remaining = count
	return nil
}

// Target selects the failing operation and code, keeping the remaining count.
// On a freshly reset injector this fails op DefaultFailureBudget times.
func (i *Injector) Target(op domain.Op, code int) error {
	if !op.Injectable() || code == 0 {
		return domain.ErrInvalidFault
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.op = op
	i.code = code
	return nil
}

// SetFailures re-arms the remaining failure count, keeping target and code.
func (i *Injector) SetFailures(count int) error {
	if count < 0 {
		return domain.ErrInvalidFault
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.remaining = count
	return nil
}

// Disarm clears the target and code and restores the default budget.
func (i *Injector) Disarm() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.op = 0
	i.code = 0
	i.remaining = DefaultFailureBudget
}

// Fault returns the current configuration.
func (i *Injector) Fault() Fault {
	i.mu.Lock()
	defer i.mu.Unlock()
	return Fault{Op: i.op, Code: i.code, Remaining: i.remaining}
}

// fire consumes one unit of budget if op is the armed target and returns the
// injected error, or nil when the call should proceed normally.
func (i *Injector) fire(op domain.Op) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.op != op || i.code == 0 || i.remaining <= 0 {
		return nil
	}
	i.remaining--
	return &domain.InjectedError{Op: op, Code: i.code}
}
