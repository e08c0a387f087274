package booking

import "sync"

// screeningLocks hands out one mutex per screening id so that bookings
// against different screenings never contend while requests for the same
// screening are fully serialized.  Mutexes are created on first use and
// kept for the process lifetime; the per-screening footprint is one mutex.
type screeningLocks struct {
	mu sync.Mutex
	m  map[uint64]*sync.Mutex
}

func newScreeningLocks() *screeningLocks {
	return &screeningLocks{m: make(map[uint64]*sync.Mutex)}
}

// get returns the mutex guarding the given screening, creating it if
// needed.
func (l *screeningLocks) get(screeningID uint64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.m[screeningID]
	if !ok {
		m = &sync.Mutex{}
		l.m[screeningID] = m
	}
	return m
}
