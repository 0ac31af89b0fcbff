package replication

import (
	"time"

	"github.com/qq511939992/walrepl/internal/domain"
)

// TransitionEvent is emitted after every phase change.
type TransitionEvent struct {
	Strategy string
	Op       Op
	Previous Phase
	Current  Phase
}

// InjectionEvent is emitted when the failure injector fires.
type InjectionEvent struct {
	Strategy  string
	Op        Op
	Code      int
	Remaining int
}

// ForwardEvent is emitted after a batch was accepted by the follower.
type ForwardEvent struct {
	Strategy string
	Frames   int
	Bytes    int
	IsBegin  bool
	Commit   bool
	Duration time.Duration
}

// EventHandler receives notifications about replication activity.
// Methods are called synchronously from the replication thread and should
// return quickly.
type EventHandler interface {
	OnTransition(event TransitionEvent)
	OnInjectedFailure(event InjectionEvent)
	OnFramesForwarded(event ForwardEvent)
}

// BaseEventHandler implements EventHandler with no-op methods.
// Embed it to handle only the events you care about.
type BaseEventHandler struct{}

func (BaseEventHandler) OnTransition(TransitionEvent)     {}
func (BaseEventHandler) OnInjectedFailure(InjectionEvent) {}
func (BaseEventHandler) OnFramesForwarded(ForwardEvent)   {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interface.
type eventEmitterWrapper struct {
	strategy string
	handler  EventHandler
}

func (e *eventEmitterWrapper) OnTransition(op domain.Op, previous, current domain.Phase) {
	if e.handler == nil {
		return
	}
	e.handler.OnTransition(TransitionEvent{
		Strategy: e.strategy,
		Op:       op,
		Previous: previous,
		Current:  current,
	})
}

func (e *eventEmitterWrapper) OnInjectedFailure(op domain.Op, code, remaining int) {
	if e.handler == nil {
		return
	}
	e.handler.OnInjectedFailure(InjectionEvent{
		Strategy:  e.strategy,
		Op:        op,
		Code:      code,
		Remaining: remaining,
	})
}

func (e *eventEmitterWrapper) OnFramesForwarded(frames, bytes int, isBegin, commit bool, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnFramesForwarded(ForwardEvent{
		Strategy: e.strategy,
		Frames:   frames,
		Bytes:    bytes,
		IsBegin:  isBegin,
		Commit:   commit,
		Duration: duration,
	})
}
