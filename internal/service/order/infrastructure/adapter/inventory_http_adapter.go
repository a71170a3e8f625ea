package adapter

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"shopcart/internal/pkg/httpclient"
	"shopcart/internal/pkg/logger"
	"shopcart/internal/pkg/metrics"
	"shopcart/internal/service/order/domain"
	"shopcart/internal/service/order/domain/port"
)

const (
	InventoryService = "stock-service"

	stockReservePath = "/stock/reservar"
	stockReleasePath = "/stock/liberar"

	// release is idempotent, so transport failures are retried a
	// bounded number of times before giving up.
	releaseRetries = 2
	retryBackoff   = 200 * time.Millisecond
)

// InventoryHTTPAdapter implements port.InventoryGateway against the
// stock service's REST API, normalizing its replies into typed
// references and errors at this boundary.
type InventoryHTTPAdapter struct {
	client *httpclient.Client
}

func NewInventoryHTTPAdapter(client *httpclient.Client) *InventoryHTTPAdapter {
	return &InventoryHTTPAdapter{client: client}
}

type reserveRequest struct {
	PurchaseID string        `json:"idCompra"`
	UserID     int64         `json:"usuarioId"`
	Products   []productLine `json:"productos"`
}

type productLine struct {
	ProductID int64 `json:"idProducto"`
	Quantity  int   `json:"cantidad"`
}

type releaseRequest struct {
	ReservationID string `json:"idReserva"`
	PurchaseID    string `json:"idCompra"`
	Reason        string `json:"motivo"`
}

// Reserve is deliberately never retried here: a retry after a slow but
// successful reply would double-reserve. The saga layer decides
// whether re-running is safe based on the returned error kind.
func (a *InventoryHTTPAdapter) Reserve(ctx context.Context, purchaseID string, userID int64, items []port.ReservationItem) (string, error) {
	start := time.Now()
	products := make([]productLine, 0, len(items))
	for _, it := range items {
		products = append(products, productLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	resp, err := a.client.PostJSON(ctx, InventoryService, stockReservePath, reserveRequest{
		PurchaseID: purchaseID,
		UserID:     userID,
		Products:   products,
	})
	if err != nil {
		a.observe("reserve", "unavailable", start)
		return "", &domain.RemoteError{Service: "inventory", Op: "reserve", Kind: domain.KindUnavailable, Err: err}
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		a.observe("reserve", "unavailable", start)
		return "", &domain.RemoteError{
			Service: "inventory", Op: "reserve", Kind: domain.KindUnavailable,
			Err: errors.Errorf("stock service returned %d", resp.StatusCode),
		}
	case resp.StatusCode == http.StatusConflict, resp.StatusCode == http.StatusUnprocessableEntity:
		a.observe("reserve", "insufficient_stock", start)
		return "", &domain.RemoteError{
			Service: "inventory", Op: "reserve", Kind: domain.KindInsufficientStock,
			Err: errors.Errorf("reservation refused with %d: %s", resp.StatusCode, resp.Body),
		}
	case resp.StatusCode >= http.StatusBadRequest:
		// Auth failures, wrong routes and other misconfigurations are a
		// broken deployment, not a stock shortage.
		a.observe("reserve", "unavailable", start)
		return "", &domain.RemoteError{
			Service: "inventory", Op: "reserve", Kind: domain.KindUnavailable,
			Err: errors.Errorf("stock service returned %d: %s", resp.StatusCode, resp.Body),
		}
	}

	ref := extractRef(resp.Body, "idReserva", "reserva_id", "id")
	if ref == "" {
		a.observe("reserve", "invalid_response", start)
		return "", &domain.RemoteError{
			Service: "inventory", Op: "reserve", Kind: domain.KindInvalidResponse,
			Err: errors.New("stock service acknowledged without a reservation identifier"),
		}
	}
	a.observe("reserve", "ok", start)
	return ref, nil
}

// Release frees a reservation. Unknown or already-released
// reservations are treated as success so callers can re-run freely.
func (a *InventoryHTTPAdapter) Release(ctx context.Context, reservationRef, purchaseID, reason string) error {
	start := time.Now()
	payload := releaseRequest{ReservationID: reservationRef, PurchaseID: purchaseID, Reason: reason}

	var lastErr error
	for attempt := 0; attempt <= releaseRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				a.observe("release", "unavailable", start)
				return &domain.RemoteError{Service: "inventory", Op: "release", Kind: domain.KindUnavailable, Err: ctx.Err()}
			case <-time.After(retryBackoff << attempt):
			}
			logger.Ctx(ctx).Warn().
				Int("attempt", attempt).
				Str("reservation_ref", reservationRef).
				Msg("retrying stock release")
		}

		resp, err := a.client.PostJSON(ctx, InventoryService, stockReleasePath, payload)
		if err != nil {
			lastErr = err
			continue
		}
		switch {
		case resp.StatusCode < http.StatusMultipleChoices,
			resp.StatusCode == http.StatusNotFound,
			resp.StatusCode == http.StatusGone:
			a.observe("release", "ok", start)
			return nil
		default:
			lastErr = errors.Errorf("stock service returned %d", resp.StatusCode)
		}
	}

	a.observe("release", "unavailable", start)
	return &domain.RemoteError{Service: "inventory", Op: "release", Kind: domain.KindUnavailable, Err: lastErr}
}

func (a *InventoryHTTPAdapter) observe(op, result string, start time.Time) {
	metrics.GatewayCalls.WithLabelValues("inventory", op, result).Observe(time.Since(start).Seconds())
}
