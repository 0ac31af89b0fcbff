package ledger

import (
	"sync"

	"github.com/google/uuid"
	"github.com/zhangyunhao116/skipmap"

	"github.com/qq511939992/walrepl/internal/domain"
)

// ID identifies a record within an epoch.
type ID = domain.FrameID

// None is the ID used when a page has no earlier record.
const None = domain.NoFrame

// Record is the ledger entry for one observed frame.
type Record struct {
	// ID is the 1-based position of the frame in the epoch
	ID ID `json:"id"`

	// PageSize is the number of bytes per page for this frame
	PageSize int `json:"page_size"`

	// PageNumber is the page written by this frame
	PageNumber uint32 `json:"pgno"`

	// Prev is the most recent earlier record for the same page, or None
	Prev ID `json:"prev"`
}

// HasPrev returns true if the page was written earlier in the epoch.
func (r Record) HasPrev() bool {
	return r.Prev != None
}

type pageIndex = skipmap.FuncMap[uint32, ID]

func newPageIndex() *pageIndex {
	return skipmap.NewFunc[uint32, ID](func(a, b uint32) bool {
		return a < b
	})
}

// Ledger is the frame history of one replication epoch.
// Appends come from a single replication thread; reads may happen concurrently.
type Ledger struct {
	mu        sync.RWMutex
	epoch     uuid.UUID
	records   []Record // oldest first; records[i].ID == i+1
	pages     *pageIndex
	maxFrames int
}

// New creates an empty ledger. maxFrames bounds the number of records an
// epoch may hold; zero means unbounded.
func New(maxFrames int) *Ledger {
	return &Ledger{
		epoch:     uuid.New(),
		pages:     newPageIndex(),
		maxFrames: maxFrames,
	}
}

// Epoch returns the identifier of the current epoch.
func (l *Ledger) Epoch() uuid.UUID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.epoch
}

// Append records one entry per frame, in batch order, and returns them.
// Either all frames are recorded or, when the capacity would be exceeded,
// none are and ErrOutOfMemory is returned.
func (l *Ledger) Append(pageSize int, frames []domain.Frame) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxFrames > 0 && len(l.records)+len(frames) > l.maxFrames {
		return nil, domain.ErrOutOfMemory
	}

	added := make([]Record, 0, len(frames))
	for _, f := range frames {
		prev, ok := l.pages.Load(f.PageNumber)
		if !ok {
			prev = None
		}
		rec := Record{
			ID:         ID(len(l.records) + 1),
			PageSize:   pageSize,
			PageNumber: f.PageNumber,
			Prev:       prev,
		}
		l.records = append(l.records, rec)
		l.pages.Store(f.PageNumber, rec.ID)
		added = append(added, rec)
	}
	return added, nil
}

// Len returns the number of records in the epoch.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Records returns a copy of the history, newest first.
func (l *Ledger) Records() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, len(l.records))
	for i, r := range l.records {
		out[len(l.records)-1-i] = r
	}
	return out
}

// Get returns the record with the given ID.
func (l *Ledger) Get(id ID) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.get(id)
}

func (l *Ledger) get(id ID) (Record, bool) {
	if id == None || int(id) > len(l.records) {
		return Record{}, false
	}
	return l.records[id-1], true
}

// Latest returns the most recent record for the page.
func (l *Ledger) Latest(pgno uint32) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := l.pages.Load(pgno)
	if !ok {
		return Record{}, false
	}
	return l.get(id)
}

// ForPage lists every record for the page, newest first.
func (l *Ledger) ForPage(pgno uint32) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := l.pages.Load(pgno)
	if !ok {
		return nil
	}
	var out []Record
	for id != None {
		rec, ok := l.get(id)
		if !ok {
			break
		}
		out = append(out, rec)
		id = rec.Prev
	}
	return out
}

// PreviousFor returns the most recent record for the page whose ID is lower
// than before.
func (l *Ledger) PreviousFor(pgno uint32, before ID) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := l.pages.Load(pgno)
	if !ok {
		return Record{}, false
	}
	for id != None {
		rec, ok := l.get(id)
		if !ok {
			return Record{}, false
		}
		if rec.ID < before {
			return rec, true
		}
		id = rec.Prev
	}
	return Record{}, false
}

// Pages returns every page written in the epoch, in ascending order.
func (l *Ledger) Pages() []uint32 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pages := make([]uint32, 0, l.pages.Len())
	l.pages.Range(func(pgno uint32, _ ID) bool {
		pages = append(pages, pgno)
		return true
	})
	return pages
}

// Reset drops every record and starts a new epoch.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.epoch = uuid.New()
	l.records = nil
	l.pages = newPageIndex()
}
