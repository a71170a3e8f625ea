package domain

import "context"

// OrderRepository is the persistence port for the order aggregate.
// It lives in the domain layer and is implemented by infrastructure.
type OrderRepository interface {
	// FindByID loads one order with its line items and address.
	// Returns ErrOrderNotFound when no such order exists.
	FindByID(ctx context.Context, id string) (*Order, error)

	// SaveTransportType persists the resolved transport type without
	// touching the order state. Done before the first remote call so a
	// retried confirmation does not need the caller to resupply it.
	SaveTransportType(ctx context.Context, id, transportType string) error

	// Confirm atomically records both external references and the
	// CONFIRMED state, guarded on the order still being in prior.
	// Returns ErrStaleState when the guard fails.
	Confirm(ctx context.Context, id string, prior State, reservationRef, shipmentRef string) error

	// Cancel atomically records the CANCELLED state, guarded on the
	// order still being in prior. Returns ErrStaleState on conflict.
	Cancel(ctx context.Context, id string, prior State) error
}
