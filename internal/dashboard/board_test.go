package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardRejectsStaleCommit(t *testing.T) {
	var b Board[int]
	slow := b.Begin()
	fast := b.Begin()

	require.True(t, b.Commit(fast, 2))
	assert.False(t, b.Commit(slow, 1))

	v, ok := b.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestBoardCloseSuppressesCommits(t *testing.T) {
	var b Board[string]
	ticket := b.Begin()
	b.Close()

	assert.False(t, b.Current(ticket))
	assert.False(t, b.Commit(ticket, "late"))
	assert.False(t, b.Update(func(s string) string { return s + "!" }))
	_, ok := b.Snapshot()
	assert.False(t, ok)
	assert.True(t, b.Closed())
}

func TestBoardUpdateNeedsSnapshot(t *testing.T) {
	var b Board[[]string]
	assert.False(t, b.Update(func(s []string) []string { return append(s, "x") }))

	require.True(t, b.Commit(b.Begin(), []string{"a"}))
	require.True(t, b.Update(func(s []string) []string { return append(s, "b") }))
	v, _ := b.Snapshot()
	assert.Equal(t, []string{"a", "b"}, v)
}

func TestBoardsCloseSessionAndPrune(t *testing.T) {
	boards := NewBoards()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	boards.now = func() time.Time { return now }

	first := boards.For("s1")
	assert.Same(t, first, boards.For("s1"))
	ticket := first.Staff.Begin()

	boards.CloseSession("s1")
	assert.False(t, first.Staff.Commit(ticket, StaffOverview{}))
	assert.NotSame(t, first, boards.For("s1"))

	boards.For("s2")
	now = now.Add(2 * time.Hour)
	boards.For("s3")
	assert.Equal(t, 2, boards.Prune(time.Hour))
	assert.Equal(t, 0, boards.Prune(time.Hour))
}
