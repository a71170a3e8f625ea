package port

import "context"

// ReservationItem is the item shape consumed by the stock service.
type ReservationItem struct {
	ProductID int64
	Quantity  int
}

// InventoryGateway is the outbound port to the remote stock service.
type InventoryGateway interface {
	// Reserve places a stock reservation for the purchase and returns
	// the opaque reservation reference. Fails with a RemoteError of
	// kind insufficient_stock, unavailable or invalid_response. The
	// gateway never retries this call: a retry after a slow-but-
	// successful response could double-reserve, so only the saga layer
	// may decide a retry is safe.
	Reserve(ctx context.Context, purchaseID string, userID int64, items []ReservationItem) (string, error)

	// Release frees a reservation. Idempotent: releasing an unknown or
	// already-released reservation is not an error. Fails with kind
	// unavailable only on transport failure; the gateway may retry
	// transparently.
	Release(ctx context.Context, reservationRef, purchaseID, reason string) error
}
