package importer

import (
	"context"
	"sync"
)

// ProjectLocker serializes imports into the same project so the parcel count
// and maximum sequence read at the start of an import stay valid until its
// parcels are written.
type ProjectLocker interface {
	// LockProject blocks until the project is free or ctx is done. The
	// returned function releases the lock and is safe to call more than once.
	LockProject(ctx context.Context, projectID string) (func(), error)
}

// MemoryLocker is an in-process ProjectLocker. It only excludes imports
// running in the same process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*projectLock
}

type projectLock struct {
	sem     chan struct{}
	waiters int
}

// NewMemoryLocker creates an empty in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*projectLock)}
}

// LockProject acquires the lock for projectID.
func (l *MemoryLocker) LockProject(ctx context.Context, projectID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	pl, ok := l.locks[projectID]
	if !ok {
		pl = &projectLock{sem: make(chan struct{}, 1)}
		l.locks[projectID] = pl
	}
	pl.waiters++
	l.mu.Unlock()

	select {
	case pl.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(projectID, pl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-pl.sem
			l.release(projectID, pl)
		})
	}, nil
}

// release drops one reference and forgets the project once nobody holds or
// waits for it.
func (l *MemoryLocker) release(projectID string, pl *projectLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pl.waiters--
	if pl.waiters == 0 {
		delete(l.locks, projectID)
	}
}
