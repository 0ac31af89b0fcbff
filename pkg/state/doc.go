// Package state persists the status of a replication run.
//
// A run status records which strategy was driven, the epoch of its frame
// history, the phase it ended in and counters for executed steps and
// injected failures. The CLI writes it after every run so other tools can
// inspect the outcome without parsing logs.
//
// # Usage
//
//	repo := state.NewFileRepository("/var/lib/walrepl")
//
//	s, err := repo.Load(ctx)
//	if err != nil {
//	    return err
//	}
//	s.RecordStep(nil)
//	if err := repo.Save(ctx, s); err != nil {
//	    return err
//	}
//
// # Version
//
// Current version: 0.2.0
// Minimum compatible version: 0.2.0
//
// See version.go for version constants that can be used programmatically.
package state
