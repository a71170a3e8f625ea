package application

import (
	"context"
	"sync"

	"shopcart/internal/service/order/domain"
	"shopcart/internal/service/order/domain/port"
)

// stubInventory records calls and fails on demand. Release is
// idempotent the way the real service is: repeat releases of the same
// reference succeed without a second state change.
type stubInventory struct {
	mu sync.Mutex

	reserveRef string
	reserveErr error
	releaseErr error

	reserveCalls int
	releaseCalls int
	released     map[string]int
	lastReason   string
}

func (s *stubInventory) Reserve(ctx context.Context, purchaseID string, userID int64, items []port.ReservationItem) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserveCalls++
	if s.reserveErr != nil {
		return "", s.reserveErr
	}
	return s.reserveRef, nil
}

func (s *stubInventory) Release(ctx context.Context, reservationRef, purchaseID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseCalls++
	s.lastReason = reason
	if s.releaseErr != nil {
		return s.releaseErr
	}
	if s.released == nil {
		s.released = map[string]int{}
	}
	s.released[reservationRef]++
	return nil
}

type stubShipping struct {
	mu sync.Mutex

	shipmentRef string
	createErr   error
	cancelErr   error
	tracking    port.TrackingStatus
	trackingErr error

	createCalls   int
	cancelCalls   int
	trackingCalls int
	cancelled     map[string]int
}

func (s *stubShipping) CreateShipment(ctx context.Context, req port.ShipmentRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil {
		return "", s.createErr
	}
	return s.shipmentRef, nil
}

func (s *stubShipping) CancelShipment(ctx context.Context, shipmentRef, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelCalls++
	if s.cancelErr != nil {
		return s.cancelErr
	}
	if s.cancelled == nil {
		s.cancelled = map[string]int{}
	}
	s.cancelled[shipmentRef]++
	return nil
}

func (s *stubShipping) GetTrackingStatus(ctx context.Context, shipmentRef string) (port.TrackingStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackingCalls++
	if s.trackingErr != nil {
		return port.TrackingStatus{}, s.trackingErr
	}
	return s.tracking, nil
}

func unavailable(service, op string) *domain.RemoteError {
	return &domain.RemoteError{
		Service: service, Op: op, Kind: domain.KindUnavailable,
		Err: context.DeadlineExceeded,
	}
}
