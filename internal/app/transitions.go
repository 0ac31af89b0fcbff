package app

import (
	"time"

	"github.com/qq511939992/walrepl/internal/domain"
	"github.com/qq511939992/walrepl/internal/ports"
)

// preconditions lists the phases each operation may be invoked from.
var preconditions = map[domain.Op][]domain.Phase{
	domain.OpBegin:  {domain.PhaseIdle, domain.PhaseError},
	domain.OpAbort:  {domain.PhasePending},
	domain.OpFrames: {domain.PhasePending, domain.PhaseWriting},
	domain.OpUndo:   {domain.PhasePending, domain.PhaseWriting, domain.PhaseError},
	domain.OpEnd:    {domain.PhasePending, domain.PhaseCommitted, domain.PhaseUndone},
}

// Allowed reports whether op may be invoked while in phase.
func Allowed(op domain.Op, phase domain.Phase) bool {
	for _, p := range preconditions[op] {
		if p == phase {
			return true
		}
	}
	return false
}

// EventEmitter receives notifications about protocol activity.
// Calls are made synchronously from the replication thread.
type EventEmitter interface {
	OnTransition(op domain.Op, previous, current domain.Phase)
	OnInjectedFailure(op domain.Op, code, remaining int)
	OnFramesForwarded(frames, bytes int, isBegin, commit bool, duration time.Duration)
}

// require panics with a ContractViolation if op is illegal in the current phase.
func (m *Machine) require(op domain.Op) {
	if Allowed(op, m.phase) {
		return
	}
	m.logger.Error("protocol contract violation",
		ports.String("strategy", m.cfg.Name),
		ports.String("op", op.String()),
		ports.String("phase", m.phase.String()),
	)
	panic(&domain.ContractViolation{Op: op, Phase: m.phase})
}

// transitionTo moves the context to next on behalf of op.
func (m *Machine) transitionTo(op domain.Op, next domain.Phase) {
	previous := m.phase
	m.phase = next

	if m.emitter != nil {
		m.emitter.OnTransition(op, previous, next)
	}

	m.logger.Debug("phase transition",
		ports.String("strategy", m.cfg.Name),
		ports.String("op", op.String()),
		ports.String("from", previous.String()),
		ports.String("to", next.String()),
	)
}
