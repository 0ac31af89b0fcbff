package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qq511939992/walrepl/internal/domain"
)

func frames(pages ...uint32) []domain.Frame {
	out := make([]domain.Frame, len(pages))
	for i, p := range pages {
		out[i] = domain.Frame{PageNumber: p, Data: make([]byte, 16)}
	}
	return out
}

func TestLedger_AppendAssignsSequentialIDs(t *testing.T) {
	l := New(0)

	recs, err := l.Append(16, frames(1, 2, 3))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	for i, r := range recs {
		assert.Equal(t, ID(i+1), r.ID)
		assert.Equal(t, 16, r.PageSize)
		assert.False(t, r.HasPrev(), "first write of page %d", r.PageNumber)
	}
	assert.Equal(t, 3, l.Len())
}

func TestLedger_RecordsNewestFirst(t *testing.T) {
	l := New(0)
	_, err := l.Append(16, frames(1, 2))
	require.NoError(t, err)
	_, err = l.Append(16, frames(3))
	require.NoError(t, err)

	recs := l.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, []uint32{3, 2, 1}, []uint32{recs[0].PageNumber, recs[1].PageNumber, recs[2].PageNumber})
	assert.Equal(t, ID(3), recs[0].ID)
}

func TestLedger_PageLinkage(t *testing.T) {
	l := New(0)
	_, err := l.Append(16, frames(1, 2, 3))
	require.NoError(t, err)
	recs, err := l.Append(16, frames(2, 2))
	require.NoError(t, err)

	assert.Equal(t, ID(2), recs[0].Prev)
	assert.Equal(t, ID(4), recs[1].Prev)

	// Every back-reference resolves to a record of the same page.
	for _, r := range l.Records() {
		if !r.HasPrev() {
			continue
		}
		prev, ok := l.Get(r.Prev)
		require.True(t, ok, "record %d", r.ID)
		assert.Equal(t, r.PageNumber, prev.PageNumber)
		assert.Less(t, prev.ID, r.ID)
	}
}

func TestLedger_ForPage(t *testing.T) {
	l := New(0)
	_, err := l.Append(16, frames(5, 6, 5, 7, 5))
	require.NoError(t, err)

	got := l.ForPage(5)
	require.Len(t, got, 3)
	assert.Equal(t, []ID{5, 3, 1}, []ID{got[0].ID, got[1].ID, got[2].ID})

	assert.Nil(t, l.ForPage(99))
}

func TestLedger_PreviousFor(t *testing.T) {
	l := New(0)
	_, err := l.Append(16, frames(5, 6, 5, 7, 5))
	require.NoError(t, err)

	rec, ok := l.PreviousFor(5, 5)
	require.True(t, ok)
	assert.Equal(t, ID(3), rec.ID)

	rec, ok = l.PreviousFor(5, 3)
	require.True(t, ok)
	assert.Equal(t, ID(1), rec.ID)

	_, ok = l.PreviousFor(5, 1)
	assert.False(t, ok)

	_, ok = l.PreviousFor(42, 10)
	assert.False(t, ok)
}

func TestLedger_LatestAndPages(t *testing.T) {
	l := New(0)
	_, err := l.Append(16, frames(9, 1, 4, 1))
	require.NoError(t, err)

	rec, ok := l.Latest(1)
	require.True(t, ok)
	assert.Equal(t, ID(4), rec.ID)

	assert.Equal(t, []uint32{1, 4, 9}, l.Pages())
}

func TestLedger_CapacityIsAllOrNothing(t *testing.T) {
	l := New(3)
	_, err := l.Append(16, frames(1, 2))
	require.NoError(t, err)

	_, err = l.Append(16, frames(3, 4))
	assert.ErrorIs(t, err, domain.ErrOutOfMemory)
	assert.Equal(t, 2, l.Len())

	_, err = l.Append(16, frames(3))
	assert.NoError(t, err)
	assert.Equal(t, 3, l.Len())
}

func TestLedger_ResetStartsNewEpoch(t *testing.T) {
	l := New(0)
	epoch := l.Epoch()
	_, err := l.Append(16, frames(1, 1))
	require.NoError(t, err)

	l.Reset()

	assert.NotEqual(t, epoch, l.Epoch())
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Pages())

	recs, err := l.Append(16, frames(1))
	require.NoError(t, err)
	assert.Equal(t, ID(1), recs[0].ID)
	assert.False(t, recs[0].HasPrev())
}
