package ports

import "context"

// Follower is a downstream replica that ingests frames shipped by the leader.
// Calls are synchronous; a real deployment backs this with an RPC of the same
// semantics.
type Follower interface {
	// IngestFrames applies one flattened batch to the given schema.
	// The request buffers are only valid for the duration of the call.
	IngestFrames(ctx context.Context, schema string, req IngestRequest) error

	// Undo discards the frames of the schema's open transaction.
	Undo(ctx context.Context, schema string) error
}

// IngestRequest is the follower-side call shape of a frame batch: a flat
// page-number array and a contiguous page buffer where page i occupies
// Pages[PageSize*i : PageSize*(i+1)].
type IngestRequest struct {
	// IsBegin is true for the first batch of a transaction
	IsBegin bool

	// PageSize is the number of bytes per page
	PageSize int

	// PageNumbers lists the page written by each frame, in batch order
	PageNumbers []uint32

	// Pages holds len(PageNumbers) pages back to back
	Pages []byte

	// Truncate is the database size in pages after commit
	Truncate uint32

	// Commit marks the last batch of the transaction
	Commit bool
}

// FrameCount returns the number of frames in the request.
func (r IngestRequest) FrameCount() int {
	return len(r.PageNumbers)
}

// Page returns the bytes of the i-th page in the request.
func (r IngestRequest) Page(i int) []byte {
	return r.Pages[r.PageSize*i : r.PageSize*(i+1)]
}
