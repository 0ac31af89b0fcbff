package follower

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/qq511939992/walrepl/internal/ports"
)

// DefaultSchema is used when NewMemory is called without schemas.
const DefaultSchema = "main"

var (
	// ErrUnknownSchema is returned for a schema the follower does not hold.
	ErrUnknownSchema = errors.New("follower: unknown schema")

	// ErrNoTransaction is returned when a continuation batch or an undo arrives
	// without an open write transaction.
	ErrNoTransaction = errors.New("follower: no open write transaction")
)

// Follower is the interface a replication context forwards frames to.
type Follower = ports.Follower

// IngestRequest is one flattened frame batch.
type IngestRequest = ports.IngestRequest

// database is the state of one schema.
type database struct {
	pages   map[uint32][]byte
	staged  map[uint32][]byte
	open    bool
	commits int
}

// Memory is a Follower that keeps every schema in memory.
// It is safe for concurrent use.
type Memory struct {
	mu  sync.RWMutex
	dbs map[string]*database
}

var _ ports.Follower = (*Memory)(nil)

// NewMemory creates a follower holding the given schemas, or DefaultSchema
// when none are given.
func NewMemory(schemas ...string) *Memory {
	if len(schemas) == 0 {
		schemas = []string{DefaultSchema}
	}
	m := &Memory{dbs: make(map[string]*database, len(schemas))}
	for _, s := range schemas {
		m.dbs[s] = &database{pages: make(map[uint32][]byte)}
	}
	return m
}

// IngestFrames applies one batch to the schema. The request buffers are
// copied; nothing is retained after the call returns.
func (m *Memory) IngestFrames(ctx context.Context, schema string, req ports.IngestRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	db, ok := m.dbs[schema]
	if !ok {
		return ErrUnknownSchema
	}

	if req.IsBegin {
		db.open = true
		db.staged = make(map[uint32][]byte, req.FrameCount())
	} else if !db.open {
		return ErrNoTransaction
	}

	for i, pgno := range req.PageNumbers {
		db.staged[pgno] = bytes.Clone(req.Page(i))
	}

	if !req.Commit {
		return nil
	}

	for pgno, data := range db.staged {
		db.pages[pgno] = data
	}
	if req.Truncate > 0 {
		for pgno := range db.pages {
			if pgno > req.Truncate {
				delete(db.pages, pgno)
			}
		}
	}
	db.open = false
	db.staged = nil
	db.commits++
	return nil
}

// Undo discards the open write transaction of the schema.
func (m *Memory) Undo(ctx context.Context, schema string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	db, ok := m.dbs[schema]
	if !ok {
		return ErrUnknownSchema
	}
	if !db.open {
		return ErrNoTransaction
	}
	db.open = false
	db.staged = nil
	return nil
}

// Page returns a copy of the committed content of a page.
func (m *Memory) Page(schema string, pgno uint32) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	db, ok := m.dbs[schema]
	if !ok {
		return nil, false
	}
	data, ok := db.pages[pgno]
	if !ok {
		return nil, false
	}
	return bytes.Clone(data), true
}

// Pages returns the committed page numbers of the schema in ascending order.
func (m *Memory) Pages(schema string) []uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	db, ok := m.dbs[schema]
	if !ok {
		return nil
	}
	out := make([]uint32, 0, len(db.pages))
	for pgno := range db.pages {
		out = append(out, pgno)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PageCount returns the number of committed pages in the schema.
func (m *Memory) PageCount(schema string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if db, ok := m.dbs[schema]; ok {
		return len(db.pages)
	}
	return 0
}

// InTransaction reports whether the schema has an open write transaction.
func (m *Memory) InTransaction(schema string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if db, ok := m.dbs[schema]; ok {
		return db.open
	}
	return false
}

// Commits returns the number of transactions committed on the schema.
func (m *Memory) Commits(schema string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if db, ok := m.dbs[schema]; ok {
		return db.commits
	}
	return 0
}

// Schemas returns the schema names in ascending order.
func (m *Memory) Schemas() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.dbs))
	for s := range m.dbs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
