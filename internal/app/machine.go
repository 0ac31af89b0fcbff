package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/qq511939992/walrepl/internal/domain"
	"github.com/qq511939992/walrepl/internal/ports"
	"github.com/qq511939992/walrepl/pkg/ledger"
)

// MachineConfig contains configuration for a replication context.
type MachineConfig struct {
	// Name labels log entries and spans
	Name string

	// MaxFrames bounds the frame history of one epoch (0 = unbounded)
	MaxFrames int

	// MaxBatchBytes bounds the flattened page buffer sent to the follower (0 = unbounded)
	MaxBatchBytes int
}

// Machine is the leader-side replication context: it drives the five phase
// operations, records frames and forwards them to the follower.
//
// A Machine is not safe for concurrent use. All operations must come from a
// single replication thread; only the injector may be re-armed concurrently.
type Machine struct {
	cfg       MachineConfig
	phase     domain.Phase
	injector  *Injector
	ledger    *ledger.Ledger
	forwarder *Forwarder
	logger    ports.Logger
	emitter   EventEmitter
	tracer    trace.Tracer
}

// NewMachine creates a context in PhaseIdle with an empty ledger and no follower.
// A nil tracer disables tracing.
func NewMachine(cfg MachineConfig, logger ports.Logger, emitter EventEmitter, tracer trace.Tracer) *Machine {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("walrepl")
	}
	return &Machine{
		cfg:      cfg,
		phase:    domain.PhaseIdle,
		injector: NewInjector(),
		ledger:   ledger.New(cfg.MaxFrames),
		logger:   logger,
		emitter:  emitter,
		tracer:   tracer,
	}
}

// Phase returns the current protocol phase.
func (m *Machine) Phase() domain.Phase {
	return m.phase
}

// Injector returns the failure injector of this context.
func (m *Machine) Injector() *Injector {
	return m.injector
}

// Ledger returns the frame history of this context.
func (m *Machine) Ledger() *ledger.Ledger {
	return m.ledger
}

// Forwarder returns the configured forwarder, or nil.
func (m *Machine) Forwarder() *Forwarder {
	return m.forwarder
}

// SetFollower configures the downstream follower. A nil follower disables
// forwarding.
func (m *Machine) SetFollower(follower ports.Follower, schema string) {
	if follower == nil {
		m.forwarder = nil
		return
	}
	m.forwarder = NewForwarder(follower, schema, m.cfg.MaxBatchBytes, m.logger)
}

// Reset starts a new epoch: it clears the frame history, returns to
// PhaseIdle, disarms the injector and drops the follower. It may be called in
// any phase.
func (m *Machine) Reset() {
	previous := m.phase
	m.ledger.Reset()
	m.phase = domain.PhaseIdle
	m.injector.Disarm()
	m.forwarder = nil

	m.logger.Info("replication context reset",
		ports.String("strategy", m.cfg.Name),
		ports.String("from", previous.String()),
		ports.String("epoch", m.ledger.Epoch().String()),
	)
}

// Begin starts a write transaction: Idle or Error to Pending.
func (m *Machine) Begin(ctx context.Context) error {
	_, span := m.startSpan(ctx, domain.OpBegin)
	defer span.End()

	m.require(domain.OpBegin)
	if err := m.inject(span, domain.OpBegin); err != nil {
		return err
	}
	m.transitionTo(domain.OpBegin, domain.PhasePending)
	return nil
}

// Abort drops a transaction that never wrote frames: Pending to Idle.
func (m *Machine) Abort(ctx context.Context) error {
	_, span := m.startSpan(ctx, domain.OpAbort)
	defer span.End()

	m.require(domain.OpAbort)
	m.transitionTo(domain.OpAbort, domain.PhaseIdle)
	return nil
}

// Frames records a batch and forwards it to the follower. On success the
// phase becomes Committed (commit batch) or Writing; on an injected or
// follower failure it becomes Error. Frames stay in the ledger either way.
func (m *Machine) Frames(ctx context.Context, batch domain.Batch) error {
	ctx, span := m.startSpan(ctx, domain.OpFrames,
		attribute.Int("batch.frames", batch.Size()),
		attribute.Int("batch.page_size", batch.PageSize),
		attribute.Bool("batch.commit", batch.Commit),
	)
	defer span.End()

	m.require(domain.OpFrames)
	if err := batch.Validate(); err != nil {
		return fail(span, err)
	}

	recs, err := m.ledger.Append(batch.PageSize, batch.Frames)
	if err != nil {
		m.logger.Error("failed to record frames",
			ports.String("strategy", m.cfg.Name),
			ports.Int("frames", batch.Size()),
			ports.Err(err),
		)
		return fail(span, err)
	}
	m.checkHints(batch, recs)

	isBegin := m.phase == domain.PhasePending

	if err := m.inject(span, domain.OpFrames); err != nil {
		m.transitionTo(domain.OpFrames, domain.PhaseError)
		return err
	}

	if m.forwarder != nil {
		start := time.Now()
		if err := m.forwarder.Forward(ctx, batch, isBegin); err != nil {
			m.logger.Error("failed to forward frames",
				ports.String("strategy", m.cfg.Name),
				ports.String("schema", m.forwarder.Schema()),
				ports.Int("frames", batch.Size()),
				ports.Err(err),
			)
			m.transitionTo(domain.OpFrames, domain.PhaseError)
			return fail(span, err)
		}
		if m.emitter != nil {
			m.emitter.OnFramesForwarded(batch.Size(), batch.TotalBytes(), isBegin, batch.Commit, time.Since(start))
		}
	}

	if batch.Commit {
		m.transitionTo(domain.OpFrames, domain.PhaseCommitted)
	} else {
		m.transitionTo(domain.OpFrames, domain.PhaseWriting)
	}
	return nil
}

// Undo rolls back the open transaction: Pending, Writing or Error to Undone.
// The follower is only asked to undo when frames were shipped to it
// successfully (phase Writing). On failure the phase is left unchanged.
func (m *Machine) Undo(ctx context.Context) error {
	ctx, span := m.startSpan(ctx, domain.OpUndo)
	defer span.End()

	m.require(domain.OpUndo)
	if err := m.inject(span, domain.OpUndo); err != nil {
		return err
	}

	if m.forwarder != nil && m.phase == domain.PhaseWriting {
		if err := m.forwarder.Undo(ctx); err != nil {
			m.logger.Error("failed to undo on follower",
				ports.String("strategy", m.cfg.Name),
				ports.String("schema", m.forwarder.Schema()),
				ports.Err(err),
			)
			return fail(span, err)
		}
	}

	m.transitionTo(domain.OpUndo, domain.PhaseUndone)
	return nil
}

// End closes the transaction: Pending, Committed or Undone to Idle. The phase
// is reset before the injector is consulted, so an injected error is reported
// with the context already Idle.
func (m *Machine) End(ctx context.Context) error {
	_, span := m.startSpan(ctx, domain.OpEnd)
	defer span.End()

	m.require(domain.OpEnd)
	m.transitionTo(domain.OpEnd, domain.PhaseIdle)
	return m.inject(span, domain.OpEnd)
}

// inject consults the failure injector for op.
func (m *Machine) inject(span trace.Span, op domain.Op) error {
	err := m.injector.fire(op)
	if err == nil {
		return nil
	}

	f := m.injector.Fault()
	m.logger.Warn("injected failure",
		ports.String("strategy", m.cfg.Name),
		ports.String("op", op.String()),
		ports.Int("code", f.Code),
		ports.Int("remaining", f.Remaining),
	)
	if m.emitter != nil {
		m.emitter.OnInjectedFailure(op, f.Code, f.Remaining)
	}
	return fail(span, err)
}

// checkHints compares the engine's back-reference hints with the ledger.
func (m *Machine) checkHints(batch domain.Batch, recs []ledger.Record) {
	for i, fr := range batch.Frames {
		if fr.Prev == domain.NoFrame || fr.Prev == recs[i].Prev {
			continue
		}
		m.logger.Warn("frame back-reference disagrees with ledger",
			ports.String("strategy", m.cfg.Name),
			ports.Uint32("pgno", fr.PageNumber),
			ports.Uint64("hint", uint64(fr.Prev)),
			ports.Uint64("recorded", uint64(recs[i].Prev)),
		)
	}
}

func (m *Machine) startSpan(ctx context.Context, op domain.Op, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	attrs = append(attrs,
		attribute.String("replication.strategy", m.cfg.Name),
		attribute.String("replication.phase", m.phase.String()),
	)
	return m.tracer.Start(ctx, "Replication."+op.String(), trace.WithAttributes(attrs...))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
