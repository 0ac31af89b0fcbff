package domain

// FrameID identifies a frame within one replication epoch. IDs start at 1 and
// follow the order in which frames were observed; NoFrame means "none".
type FrameID uint64

// NoFrame is the zero FrameID, used when a page has no earlier frame.
const NoFrame FrameID = 0

// Frame is one page change passed to the Frames operation.
// Data is borrowed from the storage engine for the duration of the call.
type Frame struct {
	// PageNumber is the logical page written by this frame
	PageNumber uint32

	// Prev is the engine's hint for the most recent earlier frame that wrote
	// the same page, or NoFrame
	Prev FrameID

	// Data holds exactly PageSize bytes of page content
	Data []byte
}

// Batch is the transient group of frames handed over by one Frames call.
type Batch struct {
	// PageSize is the number of bytes per page for every frame in the batch
	PageSize int

	// Frames is the ordered list of page changes
	Frames []Frame

	// Truncate is the database size in pages after a commit (0 when unknown)
	Truncate uint32

	// Commit marks the last batch of a transaction
	Commit bool
}

// Size returns the number of frames in the batch.
func (b Batch) Size() int {
	return len(b.Frames)
}

// Empty returns true if the batch has no frames.
func (b Batch) Empty() bool {
	return len(b.Frames) == 0
}

// TotalBytes returns the size of the page data once flattened into a single
// contiguous buffer.
func (b Batch) TotalBytes() int {
	return b.PageSize * len(b.Frames)
}

// Validate checks that every frame carries exactly PageSize bytes.
func (b Batch) Validate() error {
	if b.PageSize <= 0 {
		return ErrMalformedBatch
	}
	for _, f := range b.Frames {
		if len(f.Data) != b.PageSize {
			return ErrMalformedBatch
		}
	}
	return nil
}
