package app

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/qq511939992/walrepl/internal/domain"
	"github.com/qq511939992/walrepl/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Debug(msg string, fields ...ports.Field) { l.log(msg) }
func (l *mockLogger) Info(msg string, fields ...ports.Field)  { l.log(msg) }
func (l *mockLogger) Warn(msg string, fields ...ports.Field)  { l.log(msg) }
func (l *mockLogger) Error(msg string, fields ...ports.Field) { l.log(msg) }

func (l *mockLogger) log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.messages...)
}

// transitionEvent is one OnTransition call.
type transitionEvent struct {
	op       domain.Op
	previous domain.Phase
	current  domain.Phase
}

// mockEmitter records every event.
type mockEmitter struct {
	transitions []transitionEvent
	injected    []domain.Op
	forwarded   int
}

func (e *mockEmitter) OnTransition(op domain.Op, previous, current domain.Phase) {
	e.transitions = append(e.transitions, transitionEvent{op, previous, current})
}

func (e *mockEmitter) OnInjectedFailure(op domain.Op, code, remaining int) {
	e.injected = append(e.injected, op)
}

func (e *mockEmitter) OnFramesForwarded(frames, bytes int, isBegin, commit bool, duration time.Duration) {
	e.forwarded++
}

// ingestCall is a copy of one IngestFrames request.
type ingestCall struct {
	schema string
	req    ports.IngestRequest
}

// recordingFollower copies every request it receives and can be told to fail.
type recordingFollower struct {
	ingests   []ingestCall
	undos     []string
	ingestErr error
	undoErr   error
}

func (f *recordingFollower) IngestFrames(ctx context.Context, schema string, req ports.IngestRequest) error {
	cp := req
	cp.PageNumbers = append([]uint32(nil), req.PageNumbers...)
	cp.Pages = bytes.Clone(req.Pages)
	f.ingests = append(f.ingests, ingestCall{schema: schema, req: cp})
	return f.ingestErr
}

func (f *recordingFollower) Undo(ctx context.Context, schema string) error {
	f.undos = append(f.undos, schema)
	return f.undoErr
}

const testPageSize = 8

// page returns a page filled with the low byte of pgno.
func page(pgno uint32) []byte {
	return bytes.Repeat([]byte{byte(pgno)}, testPageSize)
}

// batch builds a batch writing the given pages.
func batch(commit bool, pages ...uint32) domain.Batch {
	b := domain.Batch{PageSize: testPageSize, Commit: commit}
	for _, p := range pages {
		b.Frames = append(b.Frames, domain.Frame{PageNumber: p, Data: page(p)})
	}
	if commit {
		b.Truncate = uint32(len(pages))
	}
	return b
}

func newTestMachine() (*Machine, *mockEmitter) {
	emitter := &mockEmitter{}
	m := NewMachine(MachineConfig{Name: "test"}, &mockLogger{}, emitter, nil)
	return m, emitter
}
