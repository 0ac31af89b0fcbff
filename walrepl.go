// Package walrepl provides a leader-side WAL replication strategy.
//
// Example usage:
//
//	f := walrepl.NewMemoryFollower()
//	r, err := walrepl.New("leader", walrepl.WithFollower(f, ""))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := walrepl.Register(r, true); err != nil {
//	    log.Fatal(err)
//	}
//	s, _ := walrepl.Find("")
//	_ = s.Begin(ctx)
//	_ = s.Frames(ctx, batch)
//	_ = s.End(ctx)
package walrepl

import (
	"github.com/qq511939992/walrepl/pkg/follower"
	"github.com/qq511939992/walrepl/pkg/replication"
)

// Strategy is a named replication strategy driven by a storage engine.
type Strategy = replication.Strategy

// Replication is the reference Strategy implementation.
type Replication = replication.Replication

// Batch is one call's worth of frames from the storage engine.
type Batch = replication.Batch

// Frame is a single page image in a batch.
type Frame = replication.Frame

// Option configures a Replication.
type Option = replication.Option

// New creates a replication context in the Idle phase.
func New(name string, opts ...Option) (*Replication, error) {
	return replication.New(name, opts...)
}

// WithFollower forwards every batch to f under schema ("main" when empty).
func WithFollower(f replication.Follower, schema string) Option {
	return replication.WithFollower(f, schema)
}

// NewMemoryFollower returns an in-process follower holding the given schemas.
func NewMemoryFollower(schemas ...string) *follower.Memory {
	return follower.NewMemory(schemas...)
}

// Register adds s to the process-wide registry.
func Register(s Strategy, makeDefault bool) error {
	return replication.Register(s, makeDefault)
}

// Unregister removes the named strategy from the process-wide registry.
func Unregister(name string) error {
	return replication.Unregister(name)
}

// Find looks up a strategy by name; an empty name returns the default.
func Find(name string) (Strategy, error) {
	return replication.Find(name)
}
