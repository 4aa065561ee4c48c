package dashboard

import (
	"sync"
	"time"
)

// Ticket identifies one load cycle of a Board.
type Ticket uint64

// Board holds the last committed snapshot of one dashboard for one session.
// Every load takes a ticket; only the newest ticket of an open board may
// commit, so a slow earlier load can never overwrite a newer one.
type Board[T any] struct {
	mu        sync.Mutex
	gen       uint64
	closed    bool
	snapshot  T
	committed bool
}

// Begin starts a load cycle, superseding every earlier ticket.
func (b *Board[T]) Begin() Ticket {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	return Ticket(b.gen)
}

// Current reports whether t is still the newest ticket of an open board.
func (b *Board[T]) Current(t Ticket) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && uint64(t) == b.gen
}

// Commit stores v when t is still current.
func (b *Board[T]) Commit(t Ticket, v T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || uint64(t) != b.gen {
		return false
	}
	b.snapshot = v
	b.committed = true
	return true
}

// Update applies fn to the committed snapshot of an open board.
func (b *Board[T]) Update(fn func(T) T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || !b.committed {
		return false
	}
	b.snapshot = fn(b.snapshot)
	return true
}

// Snapshot returns the last committed value.
func (b *Board[T]) Snapshot() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot, b.committed && !b.closed
}

// Close invalidates every outstanding ticket and the snapshot.
func (b *Board[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.gen++
	var zero T
	b.snapshot = zero
	b.committed = false
}

// Closed reports whether Close was called.
func (b *Board[T]) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// SessionBoards groups the dashboards of one session.
type SessionBoards struct {
	Approver Board[ApproverOverview]
	Staff    Board[StaffOverview]
	Finance  Board[FinanceOverview]
	lastUsed time.Time
}

func (sb *SessionBoards) close() {
	sb.Approver.Close()
	sb.Staff.Close()
	sb.Finance.Close()
}

// Boards is the per-session board registry.
type Boards struct {
	mu       sync.Mutex
	sessions map[string]*SessionBoards
	now      func() time.Time
}

// NewBoards constructs an empty registry.
func NewBoards() *Boards {
	return &Boards{sessions: make(map[string]*SessionBoards), now: time.Now}
}

// For returns the boards of session id, creating them on first use.
func (b *Boards) For(id string) *SessionBoards {
	b.mu.Lock()
	defer b.mu.Unlock()
	sb, ok := b.sessions[id]
	if !ok {
		sb = &SessionBoards{}
		b.sessions[id] = sb
	}
	sb.lastUsed = b.now()
	return sb
}

// CloseSession closes and forgets every board of session id.
func (b *Boards) CloseSession(id string) {
	b.mu.Lock()
	sb, ok := b.sessions[id]
	delete(b.sessions, id)
	b.mu.Unlock()
	if ok {
		sb.close()
	}
}

// Prune closes boards idle for longer than maxIdle and returns how many went.
func (b *Boards) Prune(maxIdle time.Duration) int {
	cutoff := b.now().Add(-maxIdle)
	var stale []*SessionBoards
	b.mu.Lock()
	for id, sb := range b.sessions {
		if sb.lastUsed.Before(cutoff) {
			stale = append(stale, sb)
			delete(b.sessions, id)
		}
	}
	b.mu.Unlock()
	for _, sb := range stale {
		sb.close()
	}
	return len(stale)
}
