package application

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shopcart/internal/pkg/logger"
	"shopcart/internal/pkg/metrics"
	"shopcart/internal/service/order/domain"
	"shopcart/internal/service/order/domain/port"
)

const releaseReasonShipmentFailed = "shipment creation failed"

// ConfirmationSaga coordinates stock reservation and shipment creation
// for one order. Reservation goes first: releasing an unconsumed
// reservation is a safe, idempotent compensating action, while a
// created shipment has real-world side effects that are harder to
// undo. The riskier call runs last so a failure there compensates the
// cheaper, already-committed step, never the reverse.
type ConfirmationSaga struct {
	repo      domain.OrderRepository
	inventory port.InventoryGateway
	shipping  port.ShippingGateway
	tracer    trace.Tracer
}

func NewConfirmationSaga(repo domain.OrderRepository, inventory port.InventoryGateway, shipping port.ShippingGateway, tracer trace.Tracer) *ConfirmationSaga {
	return &ConfirmationSaga{repo: repo, inventory: inventory, shipping: shipping, tracer: tracer}
}

// Confirm runs the two-phase saga against order. transportType may be
// empty, in which case the order's stored value is used. The returned
// outcome is always terminal: once the reservation step has started
// the saga runs to completion even if the caller's context is
// cancelled, so no reservation or shipment is orphaned without a
// compensating action.
func (s *ConfirmationSaga) Confirm(ctx context.Context, order *domain.Order, transportType string) domain.SagaOutcome {
	ctx, span := s.tracer.Start(ctx, "saga.ConfirmOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("order.state", string(order.State)),
	)

	// Preconditions: fully local, nothing mutated, no remote calls.
	if err := order.CanConfirm(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return s.failed(ctx, order, err)
	}
	resolved, err := order.ResolveTransportType(transportType)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return s.failed(ctx, order, err)
	}

	// Step 1: make the transport choice durable before any remote call,
	// so a retried confirmation does not need the caller to resupply it.
	if err := s.repo.SaveTransportType(ctx, order.ID, resolved); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persisting transport type failed")
		return s.failed(ctx, order, err)
	}
	order.TransportType = resolved
	prior := order.State

	// Step 2: reserve stock. Nothing external exists yet, so a failure
	// here aborts with no compensation.
	reservationRef, err := s.reserve(ctx, order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock reservation failed")
		return s.failed(ctx, order, err)
	}
	span.AddEvent("stock reserved", trace.WithAttributes(attribute.String("reservation.ref", reservationRef)))

	// From here the saga must reach a terminal outcome: detach from the
	// caller's cancellation so the shipment call and any compensation
	// cannot be abandoned mid-flight.
	ctx = context.WithoutCancel(ctx)

	// Step 3: create the shipment. On any failure, compensate by
	// releasing the reservation obtained in step 2.
	shipmentRef, err := s.createShipment(ctx, order, resolved)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "shipment creation failed")
		return s.compensate(ctx, order, reservationRef, err)
	}
	span.AddEvent("shipment created", trace.WithAttributes(attribute.String("shipment.ref", shipmentRef)))

	// Step 4: atomically record both references and the CONFIRMED
	// state. A stale guard or storage failure means the external side
	// effects exist but are unrecorded, so both are compensated.
	if err := s.repo.Confirm(ctx, order.ID, prior, reservationRef, shipmentRef); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persisting confirmation failed")
		return s.compensateBoth(ctx, order, reservationRef, shipmentRef, err)
	}

	_ = order.MarkConfirmed(reservationRef, shipmentRef)
	span.SetAttributes(attribute.String("saga.outcome", string(domain.OutcomeSuccess)))
	metrics.SagaOutcomes.WithLabelValues("confirm", string(domain.OutcomeSuccess)).Inc()
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("reservation_ref", reservationRef).
		Str("shipment_ref", shipmentRef).
		Msg("order confirmed")

	return domain.SagaOutcome{
		Tag:            domain.OutcomeSuccess,
		ReservationRef: reservationRef,
		ShipmentRef:    shipmentRef,
	}
}

func (s *ConfirmationSaga) reserve(ctx context.Context, order *domain.Order) (string, error) {
	ctx, span := s.tracer.Start(ctx, "saga.ReserveStock")
	defer span.End()

	items := make([]port.ReservationItem, 0, len(order.Items))
	for _, li := range order.Items {
		items = append(items, port.ReservationItem{ProductID: li.ProductID, Quantity: li.Quantity})
	}
	ref, err := s.inventory.Reserve(ctx, order.ID, order.UserID, items)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return ref, nil
}

func (s *ConfirmationSaga) createShipment(ctx context.Context, order *domain.Order, transportType string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "saga.CreateShipment")
	defer span.End()

	items := make([]port.ReservationItem, 0, len(order.Items))
	for _, li := range order.Items {
		items = append(items, port.ReservationItem{ProductID: li.ProductID, Quantity: li.Quantity})
	}
	ref, err := s.shipping.CreateShipment(ctx, port.ShipmentRequest{
		OrderID:       order.ID,
		UserID:        order.UserID,
		Address:       order.Address,
		TransportType: transportType,
		Items:         items,
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return ref, nil
}

// compensate releases the reservation after the shipment step failed.
// The order state is left untouched either way; the outcome tag tells
// the caller whether the release itself went through.
func (s *ConfirmationSaga) compensate(ctx context.Context, order *domain.Order, reservationRef string, cause error) domain.SagaOutcome {
	ctx, span := s.tracer.Start(ctx, "saga.compensation.ReleaseStock")
	defer span.End()
	span.SetAttributes(attribute.String("reservation.ref", reservationRef))

	if err := s.inventory.Release(ctx, reservationRef, order.ID, releaseReasonShipmentFailed); err != nil {
		// A stale reservation remains. This needs an operator, not a
		// blind retry, so it is surfaced distinctly.
		span.RecordError(err)
		span.SetStatus(codes.Error, "compensation failed")
		metrics.CompensationFailures.Inc()
		metrics.SagaOutcomes.WithLabelValues("confirm", string(domain.OutcomeFailed)).Inc()
		logger.Ctx(ctx).Error().
			Err(err).
			Str("order_id", order.ID).
			Str("reservation_ref", reservationRef).
			Msg("stock release failed after shipment failure, reservation is dangling")
		return domain.SagaOutcome{
			Tag:             domain.OutcomeFailed,
			ReservationRef:  reservationRef,
			Cause:           cause,
			CompensationErr: &domain.CompensationFailure{Cause: cause, Compensation: err},
		}
	}

	metrics.SagaOutcomes.WithLabelValues("confirm", string(domain.OutcomeCompensated)).Inc()
	logger.Ctx(ctx).Warn().
		Err(cause).
		Str("order_id", order.ID).
		Str("reservation_ref", reservationRef).
		Msg("shipment creation failed, reservation released")
	return domain.SagaOutcome{Tag: domain.OutcomeCompensated, Cause: cause}
}

// compensateBoth undoes reservation and shipment after the final
// persistence step failed. Both calls run; errors are collected, not
// short-circuited.
func (s *ConfirmationSaga) compensateBoth(ctx context.Context, order *domain.Order, reservationRef, shipmentRef string, cause error) domain.SagaOutcome {
	ctx, span := s.tracer.Start(ctx, "saga.compensation.ReleaseAll")
	defer span.End()

	var compErr error
	if err := s.inventory.Release(ctx, reservationRef, order.ID, "confirmation persistence failed"); err != nil {
		compErr = err
	}
	if err := s.shipping.CancelShipment(ctx, shipmentRef, order.ID); err != nil {
		if compErr == nil {
			compErr = err
		}
	}
	if compErr != nil {
		span.RecordError(compErr)
		metrics.CompensationFailures.Inc()
		metrics.SagaOutcomes.WithLabelValues("confirm", string(domain.OutcomeFailed)).Inc()
		logger.Ctx(ctx).Error().
			Err(compErr).
			Str("order_id", order.ID).
			Msg("compensation failed after persistence failure")
		return domain.SagaOutcome{
			Tag:             domain.OutcomeFailed,
			ReservationRef:  reservationRef,
			ShipmentRef:     shipmentRef,
			Cause:           cause,
			CompensationErr: &domain.CompensationFailure{Cause: cause, Compensation: compErr},
		}
	}

	metrics.SagaOutcomes.WithLabelValues("confirm", string(domain.OutcomeCompensated)).Inc()
	logger.Ctx(ctx).Warn().Err(cause).Str("order_id", order.ID).
		Msg("confirmation could not be persisted, reservation and shipment rolled back")
	return domain.SagaOutcome{Tag: domain.OutcomeCompensated, Cause: cause}
}

// failed covers the paths that abort before any external side effect
// exists, so there is nothing to compensate.
func (s *ConfirmationSaga) failed(ctx context.Context, order *domain.Order, cause error) domain.SagaOutcome {
	metrics.SagaOutcomes.WithLabelValues("confirm", string(domain.OutcomeFailed)).Inc()
	logger.Ctx(ctx).Warn().Err(cause).Str("order_id", order.ID).Msg("order not confirmed")
	return domain.SagaOutcome{Tag: domain.OutcomeFailed, Cause: cause}
}
