package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qq511939992/walrepl/internal/ports"
	"github.com/qq511939992/walrepl/pkg/replication"
	"github.com/qq511939992/walrepl/pkg/state"
)

// ErrUnexpectedResult is returned when a step does not end the way the
// script expects.
var ErrUnexpectedResult = errors.New("scenario: unexpected step result")

// Target is a strategy the runner can also configure.
type Target interface {
	replication.Strategy
	Arm(op replication.Op, code, count int) error
	Disarm()
	Reset()
	Phase() replication.Phase
	Snapshot() state.State
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index    int
	Op       string
	Attempts int
	Err      error
	Phase    replication.Phase
}

// Report is the outcome of a run.
type Report struct {
	Steps  []StepResult
	Status state.State
}

// Failures returns the number of steps that ended with an error.
func (r Report) Failures() int {
	n := 0
	for _, s := range r.Steps {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// Runner executes scripts against one target.
type Runner struct {
	target     Target
	logger     ports.Logger
	backoffMin time.Duration
	backoffMax time.Duration
}

// NewRunner creates a runner with the default retry backoff.
func NewRunner(target Target, logger ports.Logger) *Runner {
	return &Runner{
		target:     target,
		logger:     logger,
		backoffMin: DefaultBackoffInitial,
		backoffMax: DefaultBackoffMax,
	}
}

// SetBackoff changes the retry backoff bounds.
func (r *Runner) SetBackoff(initial, max time.Duration) {
	r.backoffMin = initial
	r.backoffMax = max
}

// Run executes every step in order. It stops at the first step whose result
// does not match its expect_error and returns ErrUnexpectedResult, or
// ErrContractViolation when the step broke the protocol without expecting to.
// The report covers every executed step either way.
func (r *Runner) Run(ctx context.Context, script Script) (Report, error) {
	var report Report
	report.Status = r.target.Snapshot()

	for i, st := range script.Steps {
		if err := ctx.Err(); err != nil {
			return r.finish(report), err
		}

		res := r.runStep(ctx, script, i)
		report.Steps = append(report.Steps, res)
		report.Status.RecordStep(res.Err)

		r.logger.Debug("scenario step",
			ports.Int("step", i+1),
			ports.String("op", st.Op),
			ports.Int("attempts", res.Attempts),
			ports.String("phase", res.Phase.String()),
			ports.Err(res.Err),
		)

		if matches(st.ExpectError, res.Err) {
			continue
		}
		if errors.Is(res.Err, replication.ErrContractViolation) {
			return r.finish(report), fmt.Errorf("step %d (%s): %w", i+1, st.Op, res.Err)
		}
		r.logger.Error("scenario step failed",
			ports.Int("step", i+1),
			ports.String("op", st.Op),
			ports.String("expected", st.ExpectError),
			ports.Err(res.Err),
		)
		return r.finish(report), fmt.Errorf("%w: step %d (%s) expected %q, got %v",
			ErrUnexpectedResult, i+1, st.Op, st.ExpectError, res.Err)
	}

	return r.finish(report), nil
}

func (r *Runner) finish(report Report) Report {
	snap := r.target.Snapshot()
	report.Status.Strategy = snap.Strategy
	report.Status.UpdatePosition(snap.Epoch, snap.Phase, snap.Frames)
	return report
}

func (r *Runner) runStep(ctx context.Context, script Script, index int) StepResult {
	st := script.Steps[index]
	res := StepResult{Index: index, Op: st.Op}

	retries := 0
	if st.Op == replication.OpBegin.String() || st.Op == replication.OpUndo.String() {
		retries = st.Retries
	}
	b := newBackoff(r.backoffMin, r.backoffMax)

	for {
		res.Attempts++
		res.Err = r.exec(ctx, script, index)
		if res.Err == nil || !errors.Is(res.Err, replication.ErrInjected) || res.Attempts > retries {
			break
		}
		r.logger.Info("retrying after injected failure",
			ports.Int("step", index+1),
			ports.String("op", st.Op),
			ports.Int("attempt", res.Attempts),
			ports.Duration("backoff", b.Current()),
		)
		if err := b.Wait(ctx); err != nil {
			res.Err = err
			break
		}
	}

	res.Phase = r.target.Phase()
	return res
}

// exec runs one attempt of a step. A ContractViolation panic is returned as
// an error.
func (r *Runner) exec(ctx context.Context, script Script, index int) (err error) {
	defer func() {
		if v := recover(); v != nil {
			cv, ok := v.(*replication.ContractViolation)
			if !ok {
				panic(v)
			}
			err = cv
		}
	}()

	st := script.Steps[index]
	switch st.Op {
	case StepArm:
		op, _ := replication.ParseOp(st.Target)
		count := replication.DefaultFailureBudget
		if st.Count != nil {
			count = *st.Count
		}
		return r.target.Arm(op, st.Code, count)
	case StepDisarm:
		r.target.Disarm()
		return nil
	case StepReset:
		r.target.Reset()
		return nil
	}

	op, _ := replication.ParseOp(st.Op)
	switch op {
	case replication.OpBegin:
		return r.target.Begin(ctx)
	case replication.OpAbort:
		return r.target.Abort(ctx)
	case replication.OpFrames:
		return r.target.Frames(ctx, script.Batch(index))
	case replication.OpUndo:
		return r.target.Undo(ctx)
	case replication.OpEnd:
		return r.target.End(ctx)
	}
	return fmt.Errorf("%w: unknown op %q", ErrInvalidScript, st.Op)
}

// matches reports whether err belongs to the expected class.
func matches(expect string, err error) bool {
	switch expect {
	case ExpectNone:
		return err == nil
	case ExpectAny:
		return err != nil
	case ExpectInjected:
		return errors.Is(err, replication.ErrInjected)
	case ExpectForward:
		return errors.Is(err, replication.ErrForwarding)
	case ExpectOOM:
		return errors.Is(err, replication.ErrOutOfMemory)
	case ExpectMalformed:
		return errors.Is(err, replication.ErrMalformedBatch)
	case ExpectContract:
		return errors.Is(err, replication.ErrContractViolation)
	}
	return false
}
