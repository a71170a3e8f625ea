package application

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"shopcart/internal/service/order/domain"
	"shopcart/internal/service/order/infrastructure"
)

func newCancelFixture(order *domain.Order) (*CancellationSaga, *infrastructure.MemoryOrderRepository, *stubInventory, *stubShipping) {
	repo := infrastructure.NewMemoryOrderRepository()
	if order != nil {
		repo.Put(order)
	}
	inventory := &stubInventory{}
	shipping := &stubShipping{}
	saga := NewCancellationSaga(repo, inventory, shipping, otel.Tracer("test"))
	return saga, repo, inventory, shipping
}

func TestCancelReleasesReservationOnly(t *testing.T) {
	order := pendingOrder("O1")
	order.ReservationRef = "R1"
	saga, repo, inventory, shipping := newCancelFixture(order)

	outcome := saga.Cancel(context.Background(), order)

	if outcome.Tag != domain.OutcomeSuccess {
		t.Fatalf("expected SUCCESS, got %s (cause: %v)", outcome.Tag, outcome.Cause)
	}
	if inventory.releaseCalls != 1 {
		t.Fatalf("expected one release, got %d", inventory.releaseCalls)
	}
	if shipping.cancelCalls != 0 {
		t.Fatal("cancelShipment must be skipped without a shipment reference")
	}

	stored, _ := repo.FindByID(context.Background(), "O1")
	if stored.State != domain.StateCancelled {
		t.Fatalf("expected CANCELLED, got %s", stored.State)
	}
}

func TestCancelWithBothReferences(t *testing.T) {
	order := pendingOrder("O1")
	order.ReservationRef = "R1"
	order.ShipmentRef = "S1"
	saga, repo, inventory, shipping := newCancelFixture(order)

	outcome := saga.Cancel(context.Background(), order)

	if outcome.Tag != domain.OutcomeSuccess {
		t.Fatalf("expected SUCCESS, got %s (cause: %v)", outcome.Tag, outcome.Cause)
	}
	if inventory.released["R1"] != 1 || shipping.cancelled["S1"] != 1 {
		t.Fatal("both compensations must run")
	}
	stored, _ := repo.FindByID(context.Background(), "O1")
	if stored.State != domain.StateCancelled {
		t.Fatalf("expected CANCELLED, got %s", stored.State)
	}
}

func TestCancelWithoutReferencesSkipsGateways(t *testing.T) {
	order := pendingOrder("O1")
	saga, repo, inventory, shipping := newCancelFixture(order)

	outcome := saga.Cancel(context.Background(), order)

	if outcome.Tag != domain.OutcomeSuccess {
		t.Fatalf("expected SUCCESS, got %s", outcome.Tag)
	}
	if inventory.releaseCalls != 0 || shipping.cancelCalls != 0 {
		t.Fatal("no gateway calls expected without references")
	}
	stored, _ := repo.FindByID(context.Background(), "O1")
	if stored.State != domain.StateCancelled {
		t.Fatalf("expected CANCELLED, got %s", stored.State)
	}
}

func TestCancelRejectsConfirmedOrder(t *testing.T) {
	order := pendingOrder("O2")
	order.State = domain.StateConfirmed
	order.ReservationRef = "R1"
	order.ShipmentRef = "S1"
	saga, repo, inventory, shipping := newCancelFixture(order)

	outcome := saga.Cancel(context.Background(), order)

	if outcome.Tag != domain.OutcomeFailed {
		t.Fatalf("expected FAILED, got %s", outcome.Tag)
	}
	if !errors.Is(outcome.Cause, domain.ErrCannotCancelConfirmed) {
		t.Fatalf("expected ErrCannotCancelConfirmed, got %v", outcome.Cause)
	}
	if inventory.releaseCalls != 0 || shipping.cancelCalls != 0 {
		t.Fatal("a rejected cancel must have no side effects")
	}
	stored, _ := repo.FindByID(context.Background(), "O2")
	if stored.State != domain.StateConfirmed {
		t.Fatalf("state must be unchanged, got %s", stored.State)
	}
}

func TestCancelRejectsCancelledOrder(t *testing.T) {
	order := pendingOrder("O1")
	order.State = domain.StateCancelled
	saga, _, inventory, shipping := newCancelFixture(order)

	outcome := saga.Cancel(context.Background(), order)

	if !errors.Is(outcome.Cause, domain.ErrAlreadyCancelled) {
		t.Fatalf("expected ErrAlreadyCancelled, got %v", outcome.Cause)
	}
	if inventory.releaseCalls != 0 || shipping.cancelCalls != 0 {
		t.Fatal("a rejected cancel must have no side effects")
	}
}

func TestCancelRunsBothStepsDespiteOneFailing(t *testing.T) {
	order := pendingOrder("O1")
	order.ReservationRef = "R1"
	order.ShipmentRef = "S1"
	saga, repo, inventory, shipping := newCancelFixture(order)
	inventory.releaseErr = unavailable("inventory", "release")

	outcome := saga.Cancel(context.Background(), order)

	if outcome.Tag != domain.OutcomeFailed {
		t.Fatalf("expected FAILED, got %s", outcome.Tag)
	}
	if shipping.cancelCalls != 1 {
		t.Fatal("the shipment step must still run when the release fails")
	}

	// State untouched so a retry can re-attempt exactly what failed.
	stored, _ := repo.FindByID(context.Background(), "O1")
	if stored.State != domain.StatePending {
		t.Fatalf("state must be unchanged for retry, got %s", stored.State)
	}
}

func TestCancelRetryAfterPartialFailure(t *testing.T) {
	order := pendingOrder("O1")
	order.ReservationRef = "R1"
	order.ShipmentRef = "S1"
	saga, repo, inventory, shipping := newCancelFixture(order)

	inventory.releaseErr = unavailable("inventory", "release")
	first := saga.Cancel(context.Background(), order)
	if first.Tag != domain.OutcomeFailed {
		t.Fatalf("expected first attempt to fail, got %s", first.Tag)
	}

	// Outage over; the retry re-runs both idempotent steps. The
	// shipment was already cancelled once, which must be harmless.
	inventory.releaseErr = nil
	retry, _ := repo.FindByID(context.Background(), "O1")
	second := saga.Cancel(context.Background(), retry)

	if second.Tag != domain.OutcomeSuccess {
		t.Fatalf("expected retry to succeed, got %s (cause: %v)", second.Tag, second.Cause)
	}
	if shipping.cancelled["S1"] != 2 {
		t.Fatalf("expected the idempotent cancel to run twice, got %d", shipping.cancelled["S1"])
	}
	stored, _ := repo.FindByID(context.Background(), "O1")
	if stored.State != domain.StateCancelled {
		t.Fatalf("expected CANCELLED after retry, got %s", stored.State)
	}
}
