package adapter

import (
	"context"
	"encoding/json"
	"fmt"
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
	ShippingService = "logistics-service"

	shippingCreatePath = "/shipping"

	cancelRetries = 2
)

// ShippingHTTPAdapter implements port.ShippingGateway against the
// logistics service's REST API.
type ShippingHTTPAdapter struct {
	client *httpclient.Client
}

func NewShippingHTTPAdapter(client *httpclient.Client) *ShippingHTTPAdapter {
	return &ShippingHTTPAdapter{client: client}
}

type createShipmentRequest struct {
	OrderID       string          `json:"order_id"`
	UserID        int64           `json:"user_id"`
	Address       shipmentAddress `json:"delivery_address"`
	TransportType string          `json:"transport_type"`
	Products      []shipmentLine  `json:"products"`
}

type shipmentAddress struct {
	ReceiverName string `json:"receiver_name"`
	Street       string `json:"street"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
}

type shipmentLine struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

type cancelShipmentRequest struct {
	ShipmentID string `json:"shipping_id"`
	OrderID    string `json:"order_id"`
}

// CreateShipment registers the shipment. Like Reserve, it is never
// retried at this layer: carrier dispatch is a real-world side effect.
func (a *ShippingHTTPAdapter) CreateShipment(ctx context.Context, req port.ShipmentRequest) (string, error) {
	start := time.Now()
	products := make([]shipmentLine, 0, len(req.Items))
	for _, it := range req.Items {
		products = append(products, shipmentLine{ID: it.ProductID, Quantity: it.Quantity})
	}

	resp, err := a.client.PostJSON(ctx, ShippingService, shippingCreatePath, createShipmentRequest{
		OrderID: req.OrderID,
		UserID:  req.UserID,
		Address: shipmentAddress{
			ReceiverName: req.Address.ReceiverName,
			Street:       req.Address.Street,
			City:         req.Address.City,
			State:        req.Address.Province,
			PostalCode:   req.Address.PostalCode,
			Country:      req.Address.Country,
			Phone:        req.Address.Phone,
		},
		TransportType: req.TransportType,
		Products:      products,
	})
	if err != nil {
		a.observe("create_shipment", "unavailable", start)
		return "", &domain.RemoteError{Service: "shipping", Op: "create_shipment", Kind: domain.KindUnavailable, Err: err}
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		a.observe("create_shipment", "unavailable", start)
		return "", &domain.RemoteError{
			Service: "shipping", Op: "create_shipment", Kind: domain.KindUnavailable,
			Err: errors.Errorf("logistics service returned %d: %s", resp.StatusCode, resp.Body),
		}
	}

	ref := extractRef(resp.Body, "id", "shipping_id", "tracking_id", "reference")
	if ref == "" {
		a.observe("create_shipment", "invalid_response", start)
		return "", &domain.RemoteError{
			Service: "shipping", Op: "create_shipment", Kind: domain.KindInvalidResponse,
			Err: errors.New("logistics service acknowledged without a shipment identifier"),
		}
	}
	a.observe("create_shipment", "ok", start)
	return ref, nil
}

// CancelShipment is idempotent: an unknown or already-cancelled
// shipment counts as success, and transport failures are retried.
func (a *ShippingHTTPAdapter) CancelShipment(ctx context.Context, shipmentRef, orderID string) error {
	start := time.Now()
	payload := cancelShipmentRequest{ShipmentID: shipmentRef, OrderID: orderID}
	path := fmt.Sprintf("/shipping/%s/cancel", shipmentRef)

	var lastErr error
	for attempt := 0; attempt <= cancelRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				a.observe("cancel_shipment", "unavailable", start)
				return &domain.RemoteError{Service: "shipping", Op: "cancel_shipment", Kind: domain.KindUnavailable, Err: ctx.Err()}
			case <-time.After(retryBackoff << attempt):
			}
			logger.Ctx(ctx).Warn().
				Int("attempt", attempt).
				Str("shipment_ref", shipmentRef).
				Msg("retrying shipment cancellation")
		}

		resp, err := a.client.PostJSON(ctx, ShippingService, path, payload)
		if err != nil {
			lastErr = err
			continue
		}
		switch {
		case resp.StatusCode < http.StatusMultipleChoices,
			resp.StatusCode == http.StatusNotFound,
			resp.StatusCode == http.StatusGone:
			a.observe("cancel_shipment", "ok", start)
			return nil
		default:
			lastErr = errors.Errorf("logistics service returned %d", resp.StatusCode)
		}
	}

	a.observe("cancel_shipment", "unavailable", start)
	return &domain.RemoteError{Service: "shipping", Op: "cancel_shipment", Kind: domain.KindUnavailable, Err: lastErr}
}

// GetTrackingStatus reads the carrier status. The payload shape is
// owned by the remote service, so everything beyond the status string
// is passed through raw.
func (a *ShippingHTTPAdapter) GetTrackingStatus(ctx context.Context, shipmentRef string) (port.TrackingStatus, error) {
	start := time.Now()
	resp, err := a.client.GetJSON(ctx, ShippingService, fmt.Sprintf("/shipping/%s/tracking", shipmentRef))
	if err != nil {
		a.observe("tracking", "unavailable", start)
		return port.TrackingStatus{}, &domain.RemoteError{Service: "shipping", Op: "tracking", Kind: domain.KindUnavailable, Err: err}
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		a.observe("tracking", "not_found", start)
		return port.TrackingStatus{}, &domain.RemoteError{
			Service: "shipping", Op: "tracking", Kind: domain.KindNotFound,
			Err: errors.Errorf("no shipment %s", shipmentRef),
		}
	case resp.StatusCode >= http.StatusMultipleChoices:
		a.observe("tracking", "unavailable", start)
		return port.TrackingStatus{}, &domain.RemoteError{
			Service: "shipping", Op: "tracking", Kind: domain.KindUnavailable,
			Err: errors.Errorf("logistics service returned %d", resp.StatusCode),
		}
	}

	var raw map[string]any
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		a.observe("tracking", "invalid_response", start)
		return port.TrackingStatus{}, &domain.RemoteError{Service: "shipping", Op: "tracking", Kind: domain.KindInvalidResponse, Err: err}
	}
	status, _ := raw["status"].(string)
	a.observe("tracking", "ok", start)
	return port.TrackingStatus{ShipmentRef: shipmentRef, Status: status, Raw: raw}, nil
}

func (a *ShippingHTTPAdapter) observe(op, result string, start time.Time) {
	metrics.GatewayCalls.WithLabelValues("shipping", op, result).Observe(time.Since(start).Seconds())
}
