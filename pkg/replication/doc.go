// Package replication provides pluggable WAL replication strategies.
//
// A storage engine drives a [Strategy] through five phase operations:
// Begin, Abort, Frames, Undo and End. The reference implementation,
// [Replication], records every frame it sees in a [ledger.Ledger], can be
// told to fail on purpose through its failure injector, and forwards each
// batch to a [Follower].
//
// # Basic Usage
//
//	f := follower.NewMemory()
//	r, err := replication.New("leader", replication.WithFollower(f, "main"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := replication.Register(r, true); err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	_ = r.Begin(ctx)
//	_ = r.Frames(ctx, batch)
//	_ = r.End(ctx)
//
// # Phases
//
// A context is in one of six phases: [PhaseIdle], [PhasePending],
// [PhaseWriting], [PhaseCommitted], [PhaseUndone] or [PhaseError]. Calling an
// operation from a phase that does not allow it panics with a
// *[ContractViolation]; it means the driver above is broken.
//
// # Failure Injection
//
// [Replication.Arm] makes the next N calls of one operation fail with a
// fixed code. Injected failures are returned as *[InjectedError] and match
// [ErrInjected]:
//
//	_ = r.Arm(replication.OpFrames, 5, 1)
//	err := r.Frames(ctx, batch) // errors.Is(err, replication.ErrInjected)
//
// # Registry
//
// Strategies are registered by name in a [Registry]; [DefaultRegistry] backs
// the package-level [Register], [Unregister] and [Find]. [Replication.Alias]
// registers one context under a second name.
//
// # Plugins
//
// Plugins run background behavior between [Replication.Start] and
// [Replication.Stop]:
//
//	import "github.com/qq511939992/walrepl/plugins/faultwatcher"
//
//	r, err := replication.New("leader",
//	    faultwatcher.WithFaultWatcher(faultwatcher.Config{Path: "faults.toml"}),
//	)
//
// # Version
//
// Current version: 0.2.0
// Minimum compatible version: 0.2.0
package replication
