package engine

import "sync"

// NoteLocks serializes writers per note. Matching and settlement for the
// same note must never interleave: two unserialized runs would read the
// same PENDING set twice and double-fill orders or double-spend lots. The
// lock is held for the full transaction, including commit.
//
// Locks are never removed from the table; the note population is small and
// a stale mutex per settled note is cheaper than ref-counting.
type NoteLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewNoteLocks() *NoteLocks {
	return &NoteLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the per-note writer lock and returns its release func.
func (n *NoteLocks) Lock(noteID int64) func() {
	n.mu.Lock()
	l, ok := n.locks[noteID]
	if !ok {
		l = &sync.Mutex{}
		n.locks[noteID] = l
	}
	n.mu.Unlock()

	l.Lock()
	return l.Unlock
}
