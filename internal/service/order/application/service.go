package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"shopcart/internal/pkg/logger"
	"shopcart/internal/service/order/domain"
	"shopcart/internal/service/order/domain/port"
)

// TrackingCache is a short-lived cache for carrier status reads.
type TrackingCache interface {
	Get(ctx context.Context, shipmentRef string) (port.TrackingStatus, bool)
	Set(ctx context.Context, status port.TrackingStatus)
}

// OrderService is the application facade consumed by the request
// layer. It loads the order, serializes saga execution per order id
// and publishes lifecycle events after terminal successes.
type OrderService struct {
	repo      domain.OrderRepository
	confirm   *ConfirmationSaga
	cancel    *CancellationSaga
	shipping  port.ShippingGateway
	locker    port.OrderLocker
	publisher port.EventPublisher
	cache     TrackingCache
	tracer    trace.Tracer
}

func NewOrderService(
	repo domain.OrderRepository,
	inventory port.InventoryGateway,
	shipping port.ShippingGateway,
	locker port.OrderLocker,
	publisher port.EventPublisher,
	cache TrackingCache,
	tracer trace.Tracer,
) *OrderService {
	return &OrderService{
		repo:      repo,
		confirm:   NewConfirmationSaga(repo, inventory, shipping, tracer),
		cancel:    NewCancellationSaga(repo, inventory, shipping, tracer),
		shipping:  shipping,
		locker:    locker,
		publisher: publisher,
		cache:     cache,
		tracer:    tracer,
	}
}

// Confirm runs the confirmation saga for orderID. transportType may be
// empty when the order already stores one.
func (s *OrderService) Confirm(ctx context.Context, orderID, transportType string) (domain.SagaOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "app.ConfirmOrder")
	defer span.End()

	release, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		return domain.SagaOutcome{}, err
	}
	defer release()

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return domain.SagaOutcome{}, err
	}

	outcome := s.confirm.Confirm(ctx, order, transportType)
	if outcome.Succeeded() {
		s.publishConfirmed(ctx, order)
	}
	return outcome, nil
}

// Cancel runs the cancellation saga for orderID.
func (s *OrderService) Cancel(ctx context.Context, orderID string) (domain.SagaOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "app.CancelOrder")
	defer span.End()

	release, err := s.locker.Acquire(ctx, orderID)
	if err != nil {
		return domain.SagaOutcome{}, err
	}
	defer release()

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return domain.SagaOutcome{}, err
	}

	outcome := s.cancel.Cancel(ctx, order)
	if outcome.Succeeded() {
		s.publishCancelled(ctx, order)
	}
	return outcome, nil
}

// Tracking reads the carrier status for the order's shipment. Results
// are cached briefly; the read never mutates order state.
func (s *OrderService) Tracking(ctx context.Context, orderID string) (port.TrackingStatus, error) {
	ctx, span := s.tracer.Start(ctx, "app.OrderTracking")
	defer span.End()

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return port.TrackingStatus{}, err
	}
	if order.ShipmentRef == "" {
		return port.TrackingStatus{}, domain.ErrNoTracking
	}

	if s.cache != nil {
		if status, ok := s.cache.Get(ctx, order.ShipmentRef); ok {
			return status, nil
		}
	}
	status, err := s.shipping.GetTrackingStatus(ctx, order.ShipmentRef)
	if err != nil {
		return port.TrackingStatus{}, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, status)
	}
	return status, nil
}

// Event publishing is best effort: a broker outage must not turn a
// confirmed order back into a failure.
func (s *OrderService) publishConfirmed(ctx context.Context, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	event := domain.OrderConfirmed{
		EventID:        uuid.NewString(),
		OrderID:        order.ID,
		UserID:         order.UserID,
		ReservationRef: order.ReservationRef,
		ShipmentRef:    order.ShipmentRef,
		TransportType:  order.TransportType,
		ConfirmedAt:    time.Now(),
	}
	if err := s.publisher.PublishConfirmed(ctx, event); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_id", order.ID).Msg("publishing OrderConfirmed failed")
	}
}

func (s *OrderService) publishCancelled(ctx context.Context, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	event := domain.OrderCancelled{
		EventID:     uuid.NewString(),
		OrderID:     order.ID,
		UserID:      order.UserID,
		CancelledAt: time.Now(),
	}
	if err := s.publisher.PublishCancelled(ctx, event); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_id", order.ID).Msg("publishing OrderCancelled failed")
	}
}
