package scorm

import "sync"

// attemptLocks serializes commits per attempt id so the read-accumulate-write of the total time
// cannot interleave for the same attempt. Entries are dropped once no commit holds or waits for them.
type attemptLocks struct {
	mu    sync.Mutex
	locks map[string]*attemptLock
}

type attemptLock struct {
	sync.Mutex
	refs int
}

func newAttemptLocks() *attemptLocks {
	return &attemptLocks{locks: make(map[string]*attemptLock)}
}

// lock blocks until the attempt is free and returns the matching unlock func.
func (l *attemptLocks) lock(attemptID string) (unlock func()) {
	l.mu.Lock()
	lk, ok := l.locks[attemptID]
	if !ok {
		lk = new(attemptLock)
		l.locks[attemptID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.Lock()
	return func() {
		lk.Unlock()

		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, attemptID)
		}
		l.mu.Unlock()
	}
}

func (l *attemptLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
