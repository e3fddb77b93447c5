package memory

import "sync"

// ExclusiveLock serializes access to a single agent's AgentState and Memory
// across concurrent Execute/ExecuteStream calls. The non-streaming path
// competes for ownership with TryLock and fails fast when another turn is
// already in flight; the streaming path blocks until it can acquire
// ownership, since a caller opening a stream is explicitly waiting for its
// turn. Adapted from a refcounted per-session mutex idiom down to the single
// mutex an agent actually needs: one owner at a time, no nesting.
type ExclusiveLock struct {
	mu sync.Mutex
}

// NewExclusiveLock returns an unlocked lock.
func NewExclusiveLock() *ExclusiveLock {
	return &ExclusiveLock{}
}

// TryAcquire attempts non-blocking ownership, for the non-streaming
// Execute path. It returns a release func and true on success, or a nil
// func and false if another call already owns the lock.
func (l *ExclusiveLock) TryAcquire() (release func(), ok bool) {
	if !l.mu.TryLock() {
		return nil, false
	}
	return l.mu.Unlock, true
}

// Acquire blocks until ownership is granted, for the streaming
// ExecuteStream path. It returns a release func to call once the stream
// concludes.
func (l *ExclusiveLock) Acquire() (release func()) {
	l.mu.Lock()
	return l.mu.Unlock
}
