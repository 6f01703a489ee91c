package session

import "sync"

// Locks serializes token writes per client id. Entries are dropped once no writer holds them.
type Locks struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLocks returns an empty lock table.
func NewLocks() *Locks {
	return &Locks{m: make(map[string]*lockEntry)}
}

// Lock blocks until clientID's lock is held and returns the function releasing it.
func (l *Locks) Lock(clientID string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.m[clientID]
	if !ok {
		e = &lockEntry{}
		l.m[clientID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, clientID)
		}
		l.mu.Unlock()
	}
}

// Len reports how many clients currently hold or wait for a lock.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
