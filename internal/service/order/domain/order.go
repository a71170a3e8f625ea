package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the aggregate root for a customer purchase.
// It is created by the surrounding checkout flow and, from then on,
// mutated only by the confirmation and cancellation sagas.
type Order struct {
	ID            string
	UserID        int64
	State         State
	TransportType string
	Total         decimal.Decimal

	// ShipmentRef and ReservationRef are the opaque identifiers handed
	// back by the logistics and stock services. While the order is
	// PENDING they are either both empty or both set; both must be set
	// before the order may become CONFIRMED.
	ShipmentRef    string
	ReservationRef string

	Address ShippingAddress
	Items   []LineItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineItem is a product snapshot taken at order-creation time.
// Quantity and UnitPrice are frozen there and never re-fetched.
type LineItem struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// ShippingAddress is the delivery address owned by the order.
type ShippingAddress struct {
	ReceiverName string
	Street       string
	City         string
	Province     string
	PostalCode   string
	Country      string
	Phone        string
}

// Subtotal returns quantity * unit price for one line.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// RecalculateTotal recomputes the order total from its line items.
func (o *Order) RecalculateTotal() {
	total := decimal.Zero
	for _, li := range o.Items {
		total = total.Add(li.Subtotal())
	}
	o.Total = total
}

// ResolveTransportType picks the transport type for confirmation: the
// explicit override wins, otherwise the value stored on the order.
func (o *Order) ResolveTransportType(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if o.TransportType != "" {
		return o.TransportType, nil
	}
	return "", ErrMissingTransportType
}

// CanConfirm validates the confirmation preconditions. It mutates
// nothing; a non-nil error is a hard rejection before any remote call.
func (o *Order) CanConfirm() error {
	switch o.State {
	case StateConfirmed:
		return ErrAlreadyConfirmed
	case StateCancelled:
		return ErrAlreadyCancelled
	}
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	return nil
}

// CanCancel validates the cancellation preconditions.
func (o *Order) CanCancel() error {
	switch o.State {
	case StateCancelled:
		return ErrAlreadyCancelled
	case StateConfirmed:
		return ErrCannotCancelConfirmed
	}
	return nil
}

// MarkConfirmed records both external references and moves the order
// to CONFIRMED. Both references are required; persisting the result
// atomically is the repository's job.
func (o *Order) MarkConfirmed(reservationRef, shipmentRef string) error {
	if err := o.CanConfirm(); err != nil {
		return err
	}
	if reservationRef == "" || shipmentRef == "" {
		return ErrIncompleteReferences
	}
	o.ReservationRef = reservationRef
	o.ShipmentRef = shipmentRef
	o.State = StateConfirmed
	o.UpdatedAt = time.Now()
	return nil
}

// MarkCancelled moves the order to CANCELLED.
func (o *Order) MarkCancelled() error {
	if err := o.CanCancel(); err != nil {
		return err
	}
	o.State = StateCancelled
	o.UpdatedAt = time.Now()
	return nil
}
