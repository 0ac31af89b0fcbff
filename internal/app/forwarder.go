package app

import (
	"context"
	"sync"

	"github.com/qq511939992/walrepl/internal/domain"
	"github.com/qq511939992/walrepl/internal/ports"
)

// maxPooledBytes caps the page buffers kept for reuse.
const maxPooledBytes = 4 << 20

// flatBuffers are the follower-side buffers for one batch.
type flatBuffers struct {
	pageNumbers []uint32
	pages       []byte
}

var flatPool = sync.Pool{
	New: func() interface{} { return new(flatBuffers) },
}

func acquireFlat(frames, bytes int) *flatBuffers {
	b := flatPool.Get().(*flatBuffers)
	if cap(b.pageNumbers) < frames {
		b.pageNumbers = make([]uint32, frames)
	}
	if cap(b.pages) < bytes {
		b.pages = make([]byte, bytes)
	}
	b.pageNumbers = b.pageNumbers[:frames]
	b.pages = b.pages[:bytes]
	return b
}

func releaseFlat(b *flatBuffers) {
	if cap(b.pages) > maxPooledBytes {
		return
	}
	flatPool.Put(b)
}

// Forwarder reshapes frame batches into the follower call shape and delivers
// them to one schema of one follower.
type Forwarder struct {
	follower      ports.Follower
	schema        string
	maxBatchBytes int
	logger        ports.Logger
}

// NewForwarder creates a forwarder. maxBatchBytes bounds the flattened page
// buffer; zero means unbounded.
func NewForwarder(follower ports.Follower, schema string, maxBatchBytes int, logger ports.Logger) *Forwarder {
	return &Forwarder{
		follower:      follower,
		schema:        schema,
		maxBatchBytes: maxBatchBytes,
		logger:        logger,
	}
}

// Schema returns the follower schema frames are forwarded to.
func (f *Forwarder) Schema() string {
	return f.schema
}

// Forward flattens the batch and hands it to the follower. The flattened
// buffers are released before Forward returns, so the follower must copy
// anything it keeps.
func (f *Forwarder) Forward(ctx context.Context, batch domain.Batch, isBegin bool) error {
	total := batch.TotalBytes()
	if f.maxBatchBytes > 0 && total > f.maxBatchBytes {
		f.logger.Error("flattened batch exceeds buffer limit",
			ports.String("schema", f.schema),
			ports.Int("bytes", total),
			ports.Int("limit", f.maxBatchBytes),
		)
		return domain.ErrOutOfMemory
	}

	buf := acquireFlat(batch.Size(), total)
	defer releaseFlat(buf)

	for i, fr := range batch.Frames {
		buf.pageNumbers[i] = fr.PageNumber
		copy(buf.pages[batch.PageSize*i:], fr.Data)
	}

	req := ports.IngestRequest{
		IsBegin:     isBegin,
		PageSize:    batch.PageSize,
		PageNumbers: buf.pageNumbers,
		Pages:       buf.pages,
		Truncate:    batch.Truncate,
		Commit:      batch.Commit,
	}
	if err := f.follower.IngestFrames(ctx, f.schema, req); err != nil {
		return &domain.ForwardingError{Op: domain.OpFrames, Schema: f.schema, Err: err}
	}
	return nil
}

// Undo asks the follower to discard its open transaction.
func (f *Forwarder) Undo(ctx context.Context) error {
	if err := f.follower.Undo(ctx, f.schema); err != nil {
		return &domain.ForwardingError{Op: domain.OpUndo, Schema: f.schema, Err: err}
	}
	return nil
}
