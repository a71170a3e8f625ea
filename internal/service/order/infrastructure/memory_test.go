package infrastructure

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"shopcart/internal/service/order/domain"
)

func seedOrder(repo *MemoryOrderRepository, id string, state domain.State) {
	repo.Put(&domain.Order{
		ID:    id,
		State: state,
		Items: []domain.LineItem{{ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(5)}},
	})
}

func TestMemoryRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOrderRepository()
	seedOrder(repo, "O1", domain.StatePending)

	if _, err := repo.FindByID(ctx, "nope"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	if err := repo.SaveTransportType(ctx, "O1", "road"); err != nil {
		t.Fatal(err)
	}
	got, err := repo.FindByID(ctx, "O1")
	if err != nil {
		t.Fatal(err)
	}
	if got.TransportType != "road" {
		t.Fatalf("expected road, got %q", got.TransportType)
	}

	// FindByID hands out copies; mutating one must not leak back.
	got.State = domain.StateCancelled
	again, _ := repo.FindByID(ctx, "O1")
	if again.State != domain.StatePending {
		t.Fatal("repository must not share its stored order")
	}
}

func TestMemoryRepositoryConfirmGuard(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOrderRepository()
	seedOrder(repo, "O1", domain.StatePending)

	if err := repo.Confirm(ctx, "O1", domain.StateDraft, "R1", "S1"); !errors.Is(err, domain.ErrStaleState) {
		t.Fatalf("expected ErrStaleState on wrong prior, got %v", err)
	}
	if err := repo.Confirm(ctx, "O1", domain.StatePending, "R1", "S1"); err != nil {
		t.Fatal(err)
	}

	got, _ := repo.FindByID(ctx, "O1")
	if got.State != domain.StateConfirmed || got.ReservationRef != "R1" || got.ShipmentRef != "S1" {
		t.Fatalf("unexpected order after confirm: %+v", got)
	}

	// The guard now fails on the old prior state.
	if err := repo.Cancel(ctx, "O1", domain.StatePending); !errors.Is(err, domain.ErrStaleState) {
		t.Fatalf("expected ErrStaleState, got %v", err)
	}
}

func TestMemoryRepositoryCancelGuard(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOrderRepository()
	seedOrder(repo, "O1", domain.StatePending)

	if err := repo.Cancel(ctx, "O1", domain.StatePending); err != nil {
		t.Fatal(err)
	}
	got, _ := repo.FindByID(ctx, "O1")
	if got.State != domain.StateCancelled {
		t.Fatalf("expected CANCELLED, got %s", got.State)
	}
}
