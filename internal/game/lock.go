package game

import "sync"

// LockKind names the turn-critical operation holding the action lock.
type LockKind int

const (
	LockNone LockKind = iota
	LockRoll
	LockEnd
)

func (k LockKind) String() string {
	switch k {
	case LockRoll:
		return "ROLL"
	case LockEnd:
		return "END"
	default:
		return "NONE"
	}
}

// ActionLock is a single-flight guard for rolling and ending a turn.
// Acquiring while held fails immediately; it never waits.
type ActionLock struct {
	mu   sync.Mutex
	held LockKind
}

// TryAcquire takes the lock for k. It reports false, changing nothing, when already held.
func (l *ActionLock) TryAcquire(k LockKind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held != LockNone || k == LockNone {
		return false
	}
	l.held = k
	return true
}

// Release frees the lock whatever holds it.
func (l *ActionLock) Release() {
	l.mu.Lock()
	l.held = LockNone
	l.mu.Unlock()
}

// Held returns the current holder, LockNone when free.
func (l *ActionLock) Held() LockKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}
