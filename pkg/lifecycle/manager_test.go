package lifecycle

import (
	"testing"
)

type recordingEmitter struct {
	changes []string
}

func (r *recordingEmitter) OnStateChange(previous, current State, reason string) {
	r.changes = append(r.changes, previous.String()+"->"+current.String())
}

func TestManager_NormalCycle(t *testing.T) {
	emitter := &recordingEmitter{}
	m := NewManager(nil, emitter)

	if !m.CanStart() || m.CanStop() {
		t.Fatalf("fresh manager: CanStart=%v CanStop=%v", m.CanStart(), m.CanStop())
	}

	for _, s := range []State{StateStarting, StateRunning, StateStopping, StateStopped} {
		if err := m.TransitionTo(s, "test"); err != nil {
			t.Fatalf("TransitionTo(%s) error = %v", s, err)
		}
	}

	want := []string{"Stopped->Starting", "Starting->Running", "Running->Stopping", "Stopping->Stopped"}
	if len(emitter.changes) != len(want) {
		t.Fatalf("changes = %v, want %v", emitter.changes, want)
	}
	for i := range want {
		if emitter.changes[i] != want[i] {
			t.Errorf("change %d = %s, want %s", i, emitter.changes[i], want[i])
		}
	}
}

func TestManager_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []State
		to      State
		wantErr error
	}{
		{"stopped to running", nil, StateRunning, ErrNotRunning},
		{"running to starting", []State{StateStarting, StateRunning}, StateStarting, ErrAlreadyRunning},
		{"crashed to running", []State{StateStarting, StateCrashed}, StateRunning, ErrNotRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(nil, nil)
			for _, s := range tt.path {
				if err := m.TransitionTo(s, "setup"); err != nil {
					t.Fatalf("setup TransitionTo(%s) error = %v", s, err)
				}
			}
			before := m.State()
			if err := m.TransitionTo(tt.to, "test"); err != tt.wantErr {
				t.Errorf("TransitionTo(%s) error = %v, want %v", tt.to, err, tt.wantErr)
			}
			if m.State() != before {
				t.Errorf("state changed to %s on rejected transition", m.State())
			}
		})
	}
}

func TestManager_RestartAfterCrash(t *testing.T) {
	m := NewManager(nil, nil)
	_ = m.TransitionTo(StateStarting, "start")
	_ = m.TransitionTo(StateCrashed, "plugin failed")

	if !m.CanStart() {
		t.Fatal("CanStart() = false after crash")
	}
	if err := m.TransitionTo(StateStarting, "restart"); err != nil {
		t.Errorf("restart error = %v", err)
	}
}
