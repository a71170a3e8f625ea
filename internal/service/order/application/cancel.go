package application

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"shopcart/internal/pkg/logger"
	"shopcart/internal/pkg/metrics"
	"shopcart/internal/service/order/domain"
	"shopcart/internal/service/order/domain/port"
)

const releaseReasonCancelled = "order cancelled"

// CancellationSaga rolls back the external side effects of a pending
// order: released stock and a cancelled shipment. Unlike confirmation,
// the two calls carry no ordering dependency, so both run even when
// one fails, maximizing forward progress under partial outages. The
// order only transitions to CANCELLED once both have succeeded; until
// then it stays in its prior state so a retry re-attempts exactly the
// steps that failed (both calls are idempotent, so re-running a
// succeeded step is safe).
type CancellationSaga struct {
	repo      domain.OrderRepository
	inventory port.InventoryGateway
	shipping  port.ShippingGateway
	tracer    trace.Tracer
}

func NewCancellationSaga(repo domain.OrderRepository, inventory port.InventoryGateway, shipping port.ShippingGateway, tracer trace.Tracer) *CancellationSaga {
	return &CancellationSaga{repo: repo, inventory: inventory, shipping: shipping, tracer: tracer}
}

// Cancel runs the cancellation saga against order and returns a
// terminal outcome.
func (s *CancellationSaga) Cancel(ctx context.Context, order *domain.Order) domain.SagaOutcome {
	ctx, span := s.tracer.Start(ctx, "saga.CancelOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("order.state", string(order.State)),
	)

	if err := order.CanCancel(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		metrics.SagaOutcomes.WithLabelValues("cancel", string(domain.OutcomeFailed)).Inc()
		return domain.SagaOutcome{Tag: domain.OutcomeFailed, Cause: err}
	}
	prior := order.State

	// Both compensations are independent and idempotent; run them
	// concurrently and collect both results before touching state.
	var releaseErr, shipmentErr error
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	if order.ReservationRef != "" {
		g.Go(func() error {
			releaseErr = s.releaseStock(gctx, order)
			return nil
		})
	}
	if order.ShipmentRef != "" {
		g.Go(func() error {
			shipmentErr = s.cancelShipment(gctx, order)
			return nil
		})
	}
	_ = g.Wait()

	if releaseErr != nil || shipmentErr != nil {
		cause := releaseErr
		if cause == nil {
			cause = shipmentErr
		} else if shipmentErr != nil {
			cause = errors.Wrap(shipmentErr, releaseErr.Error())
		}
		span.RecordError(cause)
		span.SetStatus(codes.Error, "cancellation incomplete")
		metrics.SagaOutcomes.WithLabelValues("cancel", string(domain.OutcomeFailed)).Inc()
		logger.Ctx(ctx).Error().
			AnErr("release_error", releaseErr).
			AnErr("shipment_error", shipmentErr).
			Str("order_id", order.ID).
			Msg("cancellation left external references, order state unchanged for retry")
		// State untouched: the retry path depends on it.
		return domain.SagaOutcome{
			Tag:            domain.OutcomeFailed,
			ReservationRef: order.ReservationRef,
			ShipmentRef:    order.ShipmentRef,
			Cause:          cause,
		}
	}

	if err := s.repo.Cancel(ctx, order.ID, prior); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persisting cancellation failed")
		metrics.SagaOutcomes.WithLabelValues("cancel", string(domain.OutcomeFailed)).Inc()
		return domain.SagaOutcome{Tag: domain.OutcomeFailed, Cause: err}
	}

	_ = order.MarkCancelled()
	metrics.SagaOutcomes.WithLabelValues("cancel", string(domain.OutcomeSuccess)).Inc()
	logger.Ctx(ctx).Info().Str("order_id", order.ID).Msg("order cancelled")
	return domain.SagaOutcome{Tag: domain.OutcomeSuccess}
}

func (s *CancellationSaga) releaseStock(ctx context.Context, order *domain.Order) error {
	ctx, span := s.tracer.Start(ctx, "saga.ReleaseStock")
	defer span.End()
	span.SetAttributes(attribute.String("reservation.ref", order.ReservationRef))

	if err := s.inventory.Release(ctx, order.ReservationRef, order.ID, releaseReasonCancelled); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *CancellationSaga) cancelShipment(ctx context.Context, order *domain.Order) error {
	ctx, span := s.tracer.Start(ctx, "saga.CancelShipment")
	defer span.End()
	span.SetAttributes(attribute.String("shipment.ref", order.ShipmentRef))

	if err := s.shipping.CancelShipment(ctx, order.ShipmentRef, order.ID); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
