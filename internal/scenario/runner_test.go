package scenario

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qq511939992/walrepl/pkg/follower"
	"github.com/qq511939992/walrepl/pkg/log"
	"github.com/qq511939992/walrepl/pkg/replication"
)

func newTarget(t *testing.T, opts ...replication.Option) *replication.Replication {
	t.Helper()
	r, err := replication.New("test", opts...)
	require.NoError(t, err)
	return r
}

func newRunner(target Target) *Runner {
	runner := NewRunner(target, log.NewNoopLogger())
	runner.SetBackoff(time.Millisecond, 2*time.Millisecond)
	return runner
}

func mustParse(t *testing.T, doc string) Script {
	t.Helper()
	s, err := ParseScript([]byte(doc))
	require.NoError(t, err)
	return s
}

func TestRun_CommittedTransaction(t *testing.T) {
	f := follower.NewMemory()
	target := newTarget(t, replication.WithFollower(f, ""))
	script := mustParse(t, `
page_size = 8

[[step]]
op = "begin"

[[step]]
op = "frames"
pages = [1, 2, 3]

[[step]]
op = "frames"
pages = [2]
commit = true
truncate = 3

[[step]]
op = "end"
`)

	report, err := newRunner(target).Run(context.Background(), script)
	require.NoError(t, err)

	assert.Len(t, report.Steps, 4)
	assert.Equal(t, 0, report.Failures())
	assert.Equal(t, replication.PhaseCommitted, report.Steps[2].Phase)
	assert.Equal(t, "Idle", report.Status.Phase)
	assert.Equal(t, 4, report.Status.Frames)
	assert.Equal(t, 4, report.Status.Steps)
	assert.Equal(t, 3, f.PageCount(follower.DefaultSchema))

	page, ok := f.Page(follower.DefaultSchema, 2)
	require.True(t, ok)
	assert.Equal(t, byte(2)^byte(2), page[0], "page 2 should hold the content of the commit step")
}

func TestRun_InjectedFramesFailure(t *testing.T) {
	target := newTarget(t)
	script := mustParse(t, `
[[step]]
op = "arm"
target = "frames"
code = 5
count = 1

[[step]]
op = "begin"

[[step]]
op = "frames"
pages = [1]
expect_error = "injected"

[[step]]
op = "undo"

[[step]]
op = "end"
`)

	report, err := newRunner(target).Run(context.Background(), script)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failures())
	assert.Equal(t, replication.PhaseError, report.Steps[2].Phase)
	assert.Equal(t, replication.PhaseUndone, report.Steps[3].Phase)
	assert.Equal(t, 1, report.Status.Frames)
	assert.Equal(t, 1, report.Status.Failures)
	assert.Contains(t, report.Status.LastError, "code 5")
}

func TestRun_RetriesBeginAndUndo(t *testing.T) {
	tests := []struct {
		name  string
		arm   string
		op    string
		setup string
	}{
		{"begin", "begin", "begin", ""},
		{"undo", "undo", "undo", "[[step]]\nop = \"begin\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := newTarget(t)
			script := mustParse(t, tt.setup+`
[[step]]
op = "arm"
target = "`+tt.arm+`"
code = 3
count = 2

[[step]]
op = "`+tt.op+`"
retries = 2
`)
			report, err := newRunner(target).Run(context.Background(), script)
			require.NoError(t, err)

			last := report.Steps[len(report.Steps)-1]
			assert.Equal(t, 3, last.Attempts)
			assert.NoError(t, last.Err)
		})
	}
}

func TestRun_RetriesExhausted(t *testing.T) {
	target := newTarget(t)
	script := mustParse(t, `
[[step]]
op = "arm"
target = "begin"
code = 3
count = 5

[[step]]
op = "begin"
retries = 1
`)
	report, err := newRunner(target).Run(context.Background(), script)
	require.ErrorIs(t, err, ErrUnexpectedResult)
	assert.Equal(t, 2, report.Steps[1].Attempts)
	assert.ErrorIs(t, report.Steps[1].Err, replication.ErrInjected)
}

func TestRun_FramesAreNotRetried(t *testing.T) {
	target := newTarget(t)
	script := mustParse(t, `
[[step]]
op = "arm"
target = "frames"
code = 3
count = 1

[[step]]
op = "begin"

[[step]]
op = "frames"
pages = [1]
retries = 3
expect_error = "injected"
`)
	report, err := newRunner(target).Run(context.Background(), script)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Steps[2].Attempts)
}

func TestRun_ContractViolationStops(t *testing.T) {
	target := newTarget(t)
	script := mustParse(t, `
[[step]]
op = "frames"
pages = [1]

[[step]]
op = "begin"
`)
	report, err := newRunner(target).Run(context.Background(), script)

	require.ErrorIs(t, err, replication.ErrContractViolation)
	assert.Len(t, report.Steps, 1)
	assert.Equal(t, replication.PhaseIdle, target.Phase())
}

func TestRun_ExpectedContractViolationContinues(t *testing.T) {
	target := newTarget(t)
	script := mustParse(t, `
[[step]]
op = "end"
expect_error = "contract"

[[step]]
op = "begin"
`)
	_, err := newRunner(target).Run(context.Background(), script)
	require.NoError(t, err)
	assert.Equal(t, replication.PhasePending, target.Phase())
}

func TestRun_ResetAndDisarm(t *testing.T) {
	target := newTarget(t)
	script := mustParse(t, `
[[step]]
op = "arm"
target = "end"
code = 2

[[step]]
op = "begin"

[[step]]
op = "frames"
pages = [1, 2]

[[step]]
op = "reset"

[[step]]
op = "begin"

[[step]]
op = "end"
`)
	report, err := newRunner(target).Run(context.Background(), script)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Status.Frames)
	assert.False(t, target.Fault().Armed())
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	script := mustParse(t, "[[step]]\nop = \"begin\"\n")
	report, err := newRunner(newTarget(t)).Run(ctx, script)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, report.Steps)
}

func TestParseScript_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad toml", "[[step]\n"},
		{"unknown op", "[[step]]\nop = \"commit\"\n"},
		{"unknown arm target", "[[step]]\nop = \"arm\"\ntarget = \"abort2\"\ncode = 1\n"},
		{"negative retries", "[[step]]\nop = \"begin\"\nretries = -1\n"},
		{"unknown expectation", "[[step]]\nop = \"begin\"\nexpect_error = \"sometimes\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidScript)
		})
	}
}

func TestParseScript_Defaults(t *testing.T) {
	s := mustParse(t, "[[step]]\nop = \"begin\"\n")
	assert.Equal(t, DefaultPageSize, s.PageSize)
}

func TestBackoff_Grows(t *testing.T) {
	b := newBackoff(time.Millisecond, 3*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, b.Wait(ctx))
	assert.Equal(t, 2*time.Millisecond, b.Current())
	require.NoError(t, b.Wait(ctx))
	assert.Equal(t, 3*time.Millisecond, b.Current())

	b.Reset()
	assert.Equal(t, time.Millisecond, b.Current())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, newBackoff(time.Hour, time.Hour).Wait(cancelled), context.Canceled)
}
