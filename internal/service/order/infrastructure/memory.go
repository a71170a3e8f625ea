package infrastructure

import (
	"context"
	"sync"
	"time"

	"shopcart/internal/service/order/domain"
)

// MemoryOrderRepository is an in-memory domain.OrderRepository for
// tests and local runs. It applies the same compare-and-swap guard
// semantics as the MySQL repository.
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]*domain.Order)}
}

// Put seeds an order. Test helper; not part of the repository port.
func (r *MemoryOrderRepository) Put(order *domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *order
	clone.Items = append([]domain.LineItem(nil), order.Items...)
	r.orders[order.ID] = &clone
}

func (r *MemoryOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	clone := *stored
	clone.Items = append([]domain.LineItem(nil), stored.Items...)
	return &clone, nil
}

func (r *MemoryOrderRepository) SaveTransportType(ctx context.Context, id, transportType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	stored.TransportType = transportType
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryOrderRepository) Confirm(ctx context.Context, id string, prior domain.State, reservationRef, shipmentRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if stored.State != prior {
		return domain.ErrStaleState
	}
	stored.ReservationRef = reservationRef
	stored.ShipmentRef = shipmentRef
	stored.State = domain.StateConfirmed
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryOrderRepository) Cancel(ctx context.Context, id string, prior domain.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if stored.State != prior {
		return domain.ErrStaleState
	}
	stored.State = domain.StateCancelled
	stored.UpdatedAt = time.Now()
	return nil
}
