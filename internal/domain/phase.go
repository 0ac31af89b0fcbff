package domain

// Phase is the current stage of the replication protocol for one context.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseWriting
	PhaseCommitted
	PhaseUndone
	PhaseError
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhasePending:
		return "Pending"
	case PhaseWriting:
		return "Writing"
	case PhaseCommitted:
		return "Committed"
	case PhaseUndone:
		return "Undone"
	case PhaseError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Op identifies one of the five protocol operations.
type Op int

const (
	OpBegin Op = iota + 1
	OpAbort
	OpFrames
	OpUndo
	OpEnd
)

// String returns the lower-case operation name.
func (o Op) String() string {
	switch o {
	case OpBegin:
		return "begin"
	case OpAbort:
		return "abort"
	case OpFrames:
		return "frames"
	case OpUndo:
		return "undo"
	case OpEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Injectable reports whether a failure can be injected into the operation.
// Abort always succeeds.
func (o Op) Injectable() bool {
	return o == OpBegin || o == OpFrames || o == OpUndo || o == OpEnd
}

// ParseOp converts an operation name (as produced by Op.String) back to an Op.
func ParseOp(name string) (Op, bool) {
	for _, o := range []Op{OpBegin, OpAbort, OpFrames, OpUndo, OpEnd} {
		if o.String() == name {
			return o, true
		}
	}
	return 0, false
}
