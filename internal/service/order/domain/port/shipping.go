package port

import (
	"context"

	"shopcart/internal/service/order/domain"
)

// ShipmentRequest carries everything the logistics service needs to
// create a shipment for an order.
type ShipmentRequest struct {
	OrderID       string
	UserID        int64
	Address       domain.ShippingAddress
	TransportType string
	Items         []ReservationItem
}

// TrackingStatus is the carrier status payload. Its shape is owned by
// the remote service; Raw preserves fields we do not model.
type TrackingStatus struct {
	ShipmentRef string
	Status      string
	Raw         map[string]any
}

// ShippingGateway is the outbound port to the remote logistics service.
type ShippingGateway interface {
	// CreateShipment registers the shipment and returns the opaque
	// shipment reference. Fails with kind unavailable or
	// invalid_response. Never retried by the gateway: shipments have
	// real-world side effects.
	CreateShipment(ctx context.Context, req ShipmentRequest) (string, error)

	// CancelShipment cancels a shipment. Idempotent for unknown or
	// already-cancelled shipments; may be retried transparently.
	CancelShipment(ctx context.Context, shipmentRef, orderID string) error

	// GetTrackingStatus reads the carrier status. Fails with kind
	// not_found when the remote has no record of the shipment.
	GetTrackingStatus(ctx context.Context, shipmentRef string) (TrackingStatus, error)
}
