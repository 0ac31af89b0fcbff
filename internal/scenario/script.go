package scenario

import (
	"errors"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/qq511939992/walrepl/pkg/replication"
)

// DefaultPageSize is used when a script does not set page_size.
const DefaultPageSize = 4096

// Step kinds that are not phase operations.
const (
	StepArm    = "arm"
	StepDisarm = "disarm"
	StepReset  = "reset"
)

// Expected error classes for expect_error.
const (
	ExpectNone      = ""
	ExpectAny       = "any"
	ExpectInjected  = "injected"
	ExpectForward   = "forwarding"
	ExpectOOM       = "oom"
	ExpectMalformed = "malformed"
	ExpectContract  = "contract"
)

// ErrInvalidScript is returned for a script that cannot be run.
var ErrInvalidScript = errors.New("scenario: invalid script")

// Script is a parsed scenario file.
type Script struct {
	// PageSize is the page size of every generated batch
	PageSize int `toml:"page_size"`

	// Steps are executed in order
	Steps []Step `toml:"step"`
}

// Step is one scripted action.
type Step struct {
	// Op is begin, abort, frames, undo, end, arm, disarm or reset
	Op string `toml:"op"`

	// Pages lists the page numbers written by a frames step
	Pages []uint32 `toml:"pages"`

	// Commit marks a frames step as the last batch of its transaction
	Commit bool `toml:"commit"`

	// Truncate is the database size in pages after a commit
	Truncate uint32 `toml:"truncate"`

	// Target, Code and Count configure an arm step
	Target string `toml:"target"`
	Code   int    `toml:"code"`
	Count  *int   `toml:"count"`

	// Retries is how often a begin or undo step is retried after an
	// injected failure
	Retries int `toml:"retries"`

	// ExpectError is the error class the step must end with
	ExpectError string `toml:"expect_error"`
}

// LoadScript reads and validates a scenario file.
func LoadScript(path string) (Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	return ParseScript(b)
}

// ParseScript parses and validates a scenario document.
func ParseScript(b []byte) (Script, error) {
	var s Script
	if err := toml.Unmarshal(b, &s); err != nil {
		return Script{}, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	if s.PageSize == 0 {
		s.PageSize = DefaultPageSize
	}
	if err := s.Validate(); err != nil {
		return Script{}, err
	}
	return s, nil
}

// Validate checks every step.
func (s Script) Validate() error {
	if s.PageSize < 0 {
		return fmt.Errorf("%w: negative page_size", ErrInvalidScript)
	}
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return fmt.Errorf("%w: step %d: %v", ErrInvalidScript, i+1, err)
		}
	}
	return nil
}

func (st Step) validate() error {
	switch st.Op {
	case StepArm:
		if _, ok := replication.ParseOp(st.Target); !ok {
			return fmt.Errorf("unknown target %q", st.Target)
		}
	case StepDisarm, StepReset:
	default:
		if _, ok := replication.ParseOp(st.Op); !ok {
			return fmt.Errorf("unknown op %q", st.Op)
		}
	}
	if st.Retries < 0 {
		return fmt.Errorf("negative retries")
	}
	switch st.ExpectError {
	case ExpectNone, ExpectAny, ExpectInjected, ExpectForward, ExpectOOM, ExpectMalformed, ExpectContract:
	default:
		return fmt.Errorf("unknown expect_error %q", st.ExpectError)
	}
	return nil
}

// Batch builds the frame batch of a frames step. Page content is derived from
// the page number and the step index so that rewrites of a page differ.
func (s Script) Batch(index int) replication.Batch {
	st := s.Steps[index]
	b := replication.Batch{
		PageSize: s.PageSize,
		Truncate: st.Truncate,
		Commit:   st.Commit,
		Frames:   make([]replication.Frame, 0, len(st.Pages)),
	}
	for _, pgno := range st.Pages {
		data := make([]byte, s.PageSize)
		for i := range data {
			data[i] = byte(pgno) ^ byte(index)
		}
		b.Frames = append(b.Frames, replication.Frame{PageNumber: pgno, Data: data})
	}
	return b
}
