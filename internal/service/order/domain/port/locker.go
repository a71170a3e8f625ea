package port

import "context"

// OrderLocker serializes saga execution per order id. Only one saga
// may mutate a given order at a time; confirm and cancel racing on the
// same order would otherwise leave it with inconsistent references.
type OrderLocker interface {
	// Acquire blocks until the lock for orderID is held or ctx is
	// done. The returned function releases the lock.
	Acquire(ctx context.Context, orderID string) (release func(), err error)
}
