package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel"

	"shopcart/internal/pkg/httpclient"
	"shopcart/internal/service/order/domain"
	"shopcart/internal/service/order/domain/port"
)

func newInventoryAdapter(t *testing.T, handler http.HandlerFunc) *InventoryHTTPAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := httpclient.New(otel.Tracer("test"), httpclient.StaticResolver{InventoryService: server.URL}, 2*time.Second)
	return NewInventoryHTTPAdapter(client)
}

var someItems = []port.ReservationItem{{ProductID: 11, Quantity: 3}, {ProductID: 12, Quantity: 1}}

func TestReserveSendsContractShape(t *testing.T) {
	var got reserveRequest
	a := newInventoryAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != stockReservePath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"idReserva": "R1"})
	})

	ref, err := a.Reserve(context.Background(), "O1", 7, someItems)
	if err != nil {
		t.Fatal(err)
	}
	if ref != "R1" {
		t.Fatalf("expected R1, got %q", ref)
	}
	if got.PurchaseID != "O1" || got.UserID != 7 {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if len(got.Products) != 2 || got.Products[0].ProductID != 11 || got.Products[0].Quantity != 3 {
		t.Fatalf("unexpected products: %+v", got.Products)
	}
}

func TestReserveNormalizesAlternateKeys(t *testing.T) {
	a := newInventoryAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"reserva_id": 42})
	})
	ref, err := a.Reserve(context.Background(), "O1", 7, someItems)
	if err != nil {
		t.Fatal(err)
	}
	if ref != "42" {
		t.Fatalf("expected normalized numeric ref, got %q", ref)
	}
}

func TestReserveClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   domain.RemoteKind
	}{
		{"insufficient stock", http.StatusConflict, `{"error":"sin stock"}`, domain.KindInsufficientStock},
		{"validation refusal", http.StatusUnprocessableEntity, `{}`, domain.KindInsufficientStock},
		{"server error", http.StatusServiceUnavailable, ``, domain.KindUnavailable},
		{"ack without reference", http.StatusOK, `{"ok":true}`, domain.KindInvalidResponse},
		{"ack with zero reference", http.StatusOK, `{"idReserva":0}`, domain.KindInvalidResponse},
		{"auth failure", http.StatusUnauthorized, `{"error":"missing token"}`, domain.KindUnavailable},
		{"wrong route", http.StatusNotFound, ``, domain.KindUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := newInventoryAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := a.Reserve(context.Background(), "O1", 7, someItems)
			if !domain.IsRemoteKind(err, tc.kind) {
				t.Fatalf("expected kind %s, got %v", tc.kind, err)
			}
		})
	}
}

func TestReserveTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := httpclient.New(otel.Tracer("test"), httpclient.StaticResolver{InventoryService: url}, time.Second)
	a := NewInventoryHTTPAdapter(client)

	_, err := a.Reserve(context.Background(), "O1", 7, someItems)
	if !domain.IsRemoteKind(err, domain.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestReleaseTreatsUnknownReservationAsSuccess(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNotFound, http.StatusGone} {
		a := newInventoryAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		if err := a.Release(context.Background(), "R1", "O1", "test"); err != nil {
			t.Fatalf("status %d: expected idempotent success, got %v", status, err)
		}
	}
}

func TestReleaseRetriesTransportFailures(t *testing.T) {
	calls := 0
	a := newInventoryAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var req releaseRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ReservationID != "R1" || req.Reason != "shipment creation failed" {
			t.Errorf("unexpected payload: %+v", req)
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := a.Release(context.Background(), "R1", "O1", "shipment creation failed"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestReleaseGivesUpAfterBoundedRetries(t *testing.T) {
	calls := 0
	a := newInventoryAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := a.Release(context.Background(), "R1", "O1", "test")
	if !domain.IsRemoteKind(err, domain.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if calls != releaseRetries+1 {
		t.Fatalf("expected %d calls, got %d", releaseRetries+1, calls)
	}
}
