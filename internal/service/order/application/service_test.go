package application

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"shopcart/internal/service/order/domain"
	"shopcart/internal/service/order/domain/port"
	"shopcart/internal/service/order/infrastructure"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]port.TrackingStatus
	hits    int
	writes  int
}

func (c *fakeCache) Get(ctx context.Context, shipmentRef string) (port.TrackingStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status, ok := c.entries[shipmentRef]
	if ok {
		c.hits++
	}
	return status, ok
}

func (c *fakeCache) Set(ctx context.Context, status port.TrackingStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string]port.TrackingStatus{}
	}
	c.entries[status.ShipmentRef] = status
	c.writes++
}

func newService(repo domain.OrderRepository, inventory *stubInventory, shipping *stubShipping, cache TrackingCache) *OrderService {
	return NewOrderService(repo, inventory, shipping, infrastructure.NewLocalOrderLocker(), nil, cache, otel.Tracer("test"))
}

func TestServiceConfirmUnknownOrder(t *testing.T) {
	repo := infrastructure.NewMemoryOrderRepository()
	svc := newService(repo, &stubInventory{}, &stubShipping{}, nil)

	_, err := svc.Confirm(context.Background(), "missing", "road")
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestServiceSerializesSagasPerOrder(t *testing.T) {
	repo := infrastructure.NewMemoryOrderRepository()
	repo.Put(pendingOrder("O1"))
	inventory := &stubInventory{reserveRef: "R1"}
	shipping := &stubShipping{shipmentRef: "S1"}
	svc := newService(repo, inventory, shipping, nil)

	// Fire confirm and cancel concurrently against the same order. The
	// per-order lock plus the compare-and-swap transition must leave
	// exactly one of them the winner; the loser sees a terminal state
	// or a stale guard, never a half-written order.
	var wg sync.WaitGroup
	outcomes := make([]domain.SagaOutcome, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		outcomes[0], _ = svc.Confirm(context.Background(), "O1", "road")
	}()
	go func() {
		defer wg.Done()
		outcomes[1], _ = svc.Cancel(context.Background(), "O1")
	}()
	wg.Wait()

	stored, err := repo.FindByID(context.Background(), "O1")
	if err != nil {
		t.Fatal(err)
	}
	switch stored.State {
	case domain.StateConfirmed:
		if stored.ReservationRef != "R1" || stored.ShipmentRef != "S1" {
			t.Fatal("confirmed order must carry both references")
		}
	case domain.StateCancelled:
		if stored.ReservationRef != "" || stored.ShipmentRef != "" {
			t.Fatal("cancelled order must carry no references")
		}
	default:
		t.Fatalf("order ended in non-terminal state %s", stored.State)
	}

	wins := 0
	for _, o := range outcomes {
		if o.Tag == domain.OutcomeSuccess {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning saga, got %d", wins)
	}
}

func TestServiceTrackingRequiresShipment(t *testing.T) {
	repo := infrastructure.NewMemoryOrderRepository()
	repo.Put(pendingOrder("O1"))
	svc := newService(repo, &stubInventory{}, &stubShipping{}, nil)

	_, err := svc.Tracking(context.Background(), "O1")
	if !errors.Is(err, domain.ErrNoTracking) {
		t.Fatalf("expected ErrNoTracking, got %v", err)
	}
}

func TestServiceTrackingUsesCache(t *testing.T) {
	order := pendingOrder("O1")
	order.State = domain.StateConfirmed
	order.ReservationRef = "R1"
	order.ShipmentRef = "S1"
	repo := infrastructure.NewMemoryOrderRepository()
	repo.Put(order)

	shipping := &stubShipping{tracking: port.TrackingStatus{ShipmentRef: "S1", Status: "IN_TRANSIT"}}
	cache := &fakeCache{}
	svc := newService(repo, &stubInventory{}, shipping, cache)

	first, err := svc.Tracking(context.Background(), "O1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Tracking(context.Background(), "O1")
	if err != nil {
		t.Fatal(err)
	}

	if first.Status != "IN_TRANSIT" || second.Status != "IN_TRANSIT" {
		t.Fatalf("unexpected statuses %q %q", first.Status, second.Status)
	}
	if shipping.trackingCalls != 1 {
		t.Fatalf("expected one gateway read, got %d", shipping.trackingCalls)
	}
	if cache.hits != 1 || cache.writes != 1 {
		t.Fatalf("expected one hit and one write, got hits=%d writes=%d", cache.hits, cache.writes)
	}
}
