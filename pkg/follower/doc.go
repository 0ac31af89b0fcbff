// Package follower provides an in-memory replication follower.
//
// A Memory follower keeps one page image per schema and applies the frame
// batches forwarded by a replication context. It is the reference
// implementation of the follower contract: the first batch of a transaction
// opens it, later batches are staged, and the commit batch applies every
// staged page at once. Undo drops whatever was staged.
//
// # Usage
//
//	f := follower.NewMemory("main")
//	r, err := replication.New("leader", replication.WithFollower(f, "main"))
//	...
//	data, ok := f.Page("main", 1)
//
// # Version
//
// Current version: 0.2.0
// Minimum compatible version: 0.2.0
package follower
