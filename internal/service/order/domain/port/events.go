package port

import (
	"context"

	"shopcart/internal/service/order/domain"
)

// EventPublisher is the outbound port for order lifecycle events.
type EventPublisher interface {
	PublishConfirmed(ctx context.Context, event domain.OrderConfirmed) error
	PublishCancelled(ctx context.Context, event domain.OrderCancelled) error
}
