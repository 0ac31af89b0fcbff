package state

import "time"

// State is the status of one replication run.
type State struct {
	// Strategy is the name of the strategy that was driven
	Strategy string `json:"strategy"`

	// Epoch identifies the frame history the run wrote to
	Epoch string `json:"epoch"`

	// Phase is the protocol phase at the end of the run
	Phase string `json:"phase"`

	// Frames is the number of frames in the history
	Frames int `json:"frames"`

	// Steps is the number of scenario steps executed
	Steps int `json:"steps"`

	// Failures is the number of steps that returned an error
	Failures int `json:"failures"`

	// LastError is the message of the most recent error
	LastError string `json:"last_error,omitempty"`

	// UpdatedAt is when the status was last changed
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEmpty returns true if the state has not been initialized.
func (s State) IsEmpty() bool {
	return s.Strategy == ""
}

// RecordStep counts one executed step and its error, if any.
func (s *State) RecordStep(err error) {
	s.Steps++
	if err != nil {
		s.Failures++
		s.LastError = err.Error()
	}
	s.UpdatedAt = time.Now()
}

// UpdatePosition stores the phase and history size of the context.
func (s *State) UpdatePosition(epoch, phase string, frames int) {
	s.Epoch = epoch
	s.Phase = phase
	s.Frames = frames
	s.UpdatedAt = time.Now()
}
