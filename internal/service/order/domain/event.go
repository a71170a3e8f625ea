package domain

import "time"

// Lifecycle events published after a saga reaches a terminal success.
// Publishing is best effort and never changes the saga outcome.

type OrderConfirmed struct {
	EventID        string    `json:"event_id"`
	OrderID        string    `json:"order_id"`
	UserID         int64     `json:"user_id"`
	ReservationRef string    `json:"reservation_ref"`
	ShipmentRef    string    `json:"shipment_ref"`
	TransportType  string    `json:"transport_type"`
	ConfirmedAt    time.Time `json:"confirmed_at"`
}

type OrderCancelled struct {
	EventID     string    `json:"event_id"`
	OrderID     string    `json:"order_id"`
	UserID      int64     `json:"user_id"`
	CancelledAt time.Time `json:"cancelled_at"`
}
