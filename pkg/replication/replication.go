package replication

import (
	"context"
	"fmt"
	"sync"

	"github.com/qq511939992/walrepl/internal/app"
	"github.com/qq511939992/walrepl/internal/ports"
	"github.com/qq511939992/walrepl/pkg/follower"
	"github.com/qq511939992/walrepl/pkg/ledger"
	"github.com/qq511939992/walrepl/pkg/lifecycle"
	"github.com/qq511939992/walrepl/pkg/log"
	"github.com/qq511939992/walrepl/pkg/state"
)

// Strategy is a named replication strategy driven by a storage engine.
// The five phase methods must be called from a single goroutine in the
// orders allowed by the protocol; an illegal call panics with a
// *ContractViolation.
type Strategy interface {
	// Name returns the name the strategy is registered under.
	Name() string

	// Begin starts a write transaction (Idle or Error to Pending).
	Begin(ctx context.Context) error

	// Abort drops a transaction that wrote no frames (Pending to Idle).
	Abort(ctx context.Context) error

	// Frames records a batch and forwards it to the follower
	// (Pending or Writing to Writing, Committed or Error).
	Frames(ctx context.Context, batch Batch) error

	// Undo rolls back the transaction (Pending, Writing or Error to Undone).
	Undo(ctx context.Context) error

	// End closes the transaction (Pending, Committed or Undone to Idle).
	// The phase is Idle afterwards even when an error is returned.
	End(ctx context.Context) error
}

// Replication is the reference Strategy: a replication context with a frame
// history, a failure injector and an optional follower.
//
// Handles returned by Alias share the same context under another name.
type Replication struct {
	name string
	*shared
}

// shared is the state behind every handle of one context.
type shared struct {
	machine *app.Machine
	opts    options
	logger  Logger

	mu      sync.Mutex
	runtime *lifecycle.Manager
	cancel  context.CancelFunc
}

var _ Strategy = (*Replication)(nil)

// New creates a replication context in PhaseIdle.
// Returns an error if name is empty or the module versions are incompatible.
func New(name string, opts ...Option) (*Replication, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	// Validate module version compatibility
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var emitter app.EventEmitter
	if o.eventHandler != nil {
		emitter = &eventEmitterWrapper{strategy: name, handler: o.eventHandler}
	}

	machine := app.NewMachine(app.MachineConfig{
		Name:          name,
		MaxFrames:     o.maxFrames,
		MaxBatchBytes: o.maxBatchBytes,
	}, o.logger, emitter, o.tracer)
	if o.follower != nil {
		machine.SetFollower(o.follower, o.schema)
	}

	return &Replication{
		name: name,
		shared: &shared{
			machine: machine,
			opts:    o,
			logger:  o.logger,
			runtime: lifecycle.NewManager(o.logger, nil),
		},
	}, nil
}

// Alias returns a handle with a different name that drives the same context.
func (r *Replication) Alias(name string) *Replication {
	return &Replication{name: name, shared: r.shared}
}

// Name returns the name of this handle.
func (r *Replication) Name() string {
	return r.name
}

// Begin implements Strategy.
func (r *Replication) Begin(ctx context.Context) error {
	return r.machine.Begin(ctx)
}

// Abort implements Strategy.
func (r *Replication) Abort(ctx context.Context) error {
	return r.machine.Abort(ctx)
}

// Frames implements Strategy.
func (r *Replication) Frames(ctx context.Context, batch Batch) error {
	return r.machine.Frames(ctx, batch)
}

// Undo implements Strategy.
func (r *Replication) Undo(ctx context.Context) error {
	return r.machine.Undo(ctx)
}

// End implements Strategy.
func (r *Replication) End(ctx context.Context) error {
	return r.machine.End(ctx)
}

// Phase returns the current protocol phase.
func (r *Replication) Phase() Phase {
	return r.machine.Phase()
}

// Ledger returns the frame history of the current epoch.
func (r *Replication) Ledger() *ledger.Ledger {
	return r.machine.Ledger()
}

// Arm makes the next count calls to op fail with code.
// Abort cannot be targeted; code must be non-zero.
func (r *Replication) Arm(op Op, code, count int) error {
	return r.machine.Injector().Arm(op, code, count)
}

// Target selects the failing operation and code and keeps the remaining
// failure count, which is DefaultFailureBudget after a reset.
func (r *Replication) Target(op Op, code int) error {
	return r.machine.Injector().Target(op, code)
}

// SetFailures changes the remaining failure count.
func (r *Replication) SetFailures(count int) error {
	return r.machine.Injector().SetFailures(count)
}

// Disarm turns the failure injector off.
func (r *Replication) Disarm() {
	r.machine.Injector().Disarm()
}

// Fault describes the failure injector configuration.
type Fault = app.Fault

// DefaultFailureBudget is the failure count of a disarmed injector.
const DefaultFailureBudget = app.DefaultFailureBudget

// Fault returns the current failure injector configuration.
func (r *Replication) Fault() Fault {
	return r.machine.Injector().Fault()
}

// SetFollower replaces the follower. A nil follower disables forwarding;
// an empty schema selects "main".
func (r *Replication) SetFollower(f Follower, schema string) {
	if schema == "" {
		schema = follower.DefaultSchema
	}
	r.machine.SetFollower(f, schema)
}

// Reset starts a new epoch: the history is cleared, the phase returns to
// Idle, the injector is disarmed and the follower is dropped.
func (r *Replication) Reset() {
	r.machine.Reset()
}

// Snapshot returns the run status of the context.
func (r *Replication) Snapshot() state.State {
	return state.State{
		Strategy: r.name,
		Epoch:    r.Ledger().Epoch().String(),
		Phase:    r.Phase().String(),
		Frames:   r.Ledger().Len(),
	}
}

// RuntimeState reports whether the context's plugins are running.
func (r *Replication) RuntimeState() lifecycle.State {
	return r.runtime.State()
}

// Start initializes the configured plugins. The phase operations do not
// require Start; it only runs background extensions such as fault watchers.
func (r *Replication) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.runtime.CanStart() {
		return ErrAlreadyRunning
	}
	if err := r.runtime.TransitionTo(lifecycle.StateStarting, "start requested"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)

	pluginCfg := PluginConfig{
		Strategy: r.name,
		Faults:   r,
		Logger:   r.logger,
	}
	for i, p := range r.opts.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			r.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			r.shutdownPlugins(context.Background(), r.opts.plugins[:i])
			_ = r.runtime.TransitionTo(lifecycle.StateCrashed, "plugin initialization failed")
			return fmt.Errorf("initialize plugin %s: %w", p.Name(), err)
		}
		r.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	r.cancel = cancel
	return r.runtime.TransitionTo(lifecycle.StateRunning, "plugins initialized")
}

// Stop shuts the plugins down in reverse order.
func (r *Replication) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.runtime.CanStop() {
		return ErrNotRunning
	}
	if err := r.runtime.TransitionTo(lifecycle.StateStopping, "stop requested"); err != nil {
		return err
	}

	r.cancel()
	r.shutdownPlugins(ctx, r.opts.plugins)
	r.cancel = nil
	return r.runtime.TransitionTo(lifecycle.StateStopped, "plugins shut down")
}

func (r *Replication) shutdownPlugins(ctx context.Context, plugins []Plugin) {
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			r.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			r.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}

// validateModuleVersions checks that all module versions are compatible.
// Returns an error if any module version is below its minimum compatible version.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"ledger":    {ledger.Version, ledger.MinCompatibleVersion},
		"follower":  {follower.Version, follower.MinCompatibleVersion},
		"state":     {state.Version, state.MinCompatibleVersion},
		"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"log":       {log.Version, log.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}

	return nil
}

// isVersionCompatible checks if version >= minVersion using semantic versioning.
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
