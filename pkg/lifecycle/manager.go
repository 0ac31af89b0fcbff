package lifecycle

import (
	"sync"

	"github.com/qq511939992/walrepl/internal/domain"
	"github.com/qq511939992/walrepl/pkg/log"
)

// Errors returned for rejected transitions.
var (
	ErrNotRunning     = domain.ErrNotRunning
	ErrAlreadyRunning = domain.ErrAlreadyRunning
)

// next lists the states reachable from each state.
var next = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

// Manager is a validated state machine for the plugin runtime.
// It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	state   State
	logger  log.Logger
	emitter EventEmitter
}

// NewManager creates a manager in StateStopped. emitter may be nil.
func NewManager(logger log.Logger, emitter EventEmitter) *Manager {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Manager{
		state:   StateStopped,
		logger:  logger,
		emitter: emitter,
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// CanStart returns true if plugins may be started.
func (m *Manager) CanStart() bool {
	s := m.State()
	return s == StateStopped || s == StateCrashed
}

// CanStop returns true if plugins may be stopped.
func (m *Manager) CanStop() bool {
	return m.State() == StateRunning
}

// TransitionTo moves to to. A transition the table does not allow returns
// ErrNotRunning when leaving Stopped or Crashed and ErrAlreadyRunning otherwise.
func (m *Manager) TransitionTo(to State, reason string) error {
	m.mu.Lock()
	from := m.state
	if !allowed(from, to) {
		m.mu.Unlock()
		if from == StateStopped || from == StateCrashed {
			return ErrNotRunning
		}
		return ErrAlreadyRunning
	}
	m.state = to
	m.mu.Unlock()

	// Emit event outside of lock
	if m.emitter != nil {
		m.emitter.OnStateChange(from, to, reason)
	}

	m.logger.Debug("runtime state transition",
		log.String("from", from.String()),
		log.String("to", to.String()),
		log.String("reason", reason),
	)
	return nil
}

func allowed(from, to State) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}
