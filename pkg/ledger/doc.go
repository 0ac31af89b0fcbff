// Package ledger records the frames observed by a replication context.
//
// A Ledger is an append-only history of every frame passed to the Frames
// operation since the last reset (one "epoch"). Each record gets a stable ID,
// its 1-based position in the epoch, and a back-reference to the most recent
// earlier record that wrote the same page. The history reflects frames seen,
// not frames successfully replicated: records survive failed calls.
//
// # Usage
//
//	l := ledger.New(0)
//	recs, err := l.Append(4096, batch.Frames)
//	...
//	for _, r := range l.ForPage(3) {
//	    fmt.Println(r.ID, r.Prev)
//	}
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package ledger
