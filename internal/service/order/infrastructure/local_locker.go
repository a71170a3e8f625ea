package infrastructure

import (
	"context"
	"sync"
)

// LocalOrderLocker serializes sagas per order id within one process.
// Single-instance deployments and tests use it directly; multi-node
// deployments use the zookeeper-backed locker instead.
type LocalOrderLocker struct {
	mu    sync.Mutex
	locks map[string]*orderLock
}

type orderLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocalOrderLocker() *LocalOrderLocker {
	return &LocalOrderLocker{locks: make(map[string]*orderLock)}
}

// Acquire blocks until the per-order mutex is held or ctx is done.
func (l *LocalOrderLocker) Acquire(ctx context.Context, orderID string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[orderID]
	if !ok {
		entry = &orderLock{}
		l.locks[orderID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		entry.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return func() { l.release(orderID, entry) }, nil
	case <-ctx.Done():
		// The goroutine will still take the mutex eventually; hand it
		// straight back so the entry can be reclaimed.
		go func() {
			<-acquired
			l.release(orderID, entry)
		}()
		return nil, ctx.Err()
	}
}

func (l *LocalOrderLocker) release(orderID string, entry *orderLock) {
	entry.mu.Unlock()
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, orderID)
	}
	l.mu.Unlock()
}
