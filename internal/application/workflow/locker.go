package workflow

import "sync"

// docLocker hands out one mutex per document id.
// Entries are reference counted and dropped when the last holder unlocks.
type docLocker struct {
	mu    sync.Mutex
	locks map[int64]*docLock
}

type docLock struct {
	mu   sync.Mutex
	refs int
}

func newDocLocker() *docLocker {
	return &docLocker{locks: make(map[int64]*docLock)}
}

// lock blocks until the document is free and returns the matching unlock
func (l *docLocker) lock(documentID int64) func() {
	l.mu.Lock()
	dl, ok := l.locks[documentID]
	if !ok {
		dl = &docLock{}
		l.locks[documentID] = dl
	}
	dl.refs++
	l.mu.Unlock()

	dl.mu.Lock()

	return func() {
		dl.mu.Unlock()

		l.mu.Lock()
		dl.refs--
		if dl.refs == 0 {
			delete(l.locks, documentID)
		}
		l.mu.Unlock()
	}
}

func (l *docLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
