package interfaces

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"shopcart/internal/pkg/logger"
	"shopcart/internal/service/order/application"
	"shopcart/internal/service/order/domain"
)

// OrderHandler maps the saga outcomes onto HTTP. Validation failures
// become client errors; remote-service and compensation failures
// become gateway errors carrying the underlying cause for diagnosis.
type OrderHandler struct {
	service *application.OrderService
}

func NewOrderHandler(service *application.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes registers all order routes on mux.
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("POST /orders/{id}/confirm", h.traced(h.confirm))
	mux.HandleFunc("DELETE /orders/{id}/cancel", h.traced(h.cancel))
	mux.HandleFunc("GET /orders/{id}/tracking", h.traced(h.tracking))
}

// traced extracts the inbound trace context and attaches a request
// logger before handing off.
func (h *OrderHandler) traced(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx = logger.WithContext(ctx, *logger.Ctx(ctx))
		next(w, r.WithContext(ctx))
	}
}

type confirmRequest struct {
	TransportType string `json:"transport_type"`
}

func (h *OrderHandler) confirm(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	var req confirmRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err)
			return
		}
	}

	outcome, err := h.service.Confirm(r.Context(), orderID, req.TransportType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOutcome(w, orderID, outcome, map[string]any{
		"order_id":        orderID,
		"state":           string(domain.StateConfirmed),
		"reservation_ref": outcome.ReservationRef,
		"shipment_ref":    outcome.ShipmentRef,
	})
}

func (h *OrderHandler) cancel(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	outcome, err := h.service.Cancel(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOutcome(w, orderID, outcome, map[string]any{
		"order_id": orderID,
		"state":    string(domain.StateCancelled),
	})
}

func (h *OrderHandler) tracking(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	status, err := h.service.Tracking(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order_id": orderID,
		"tracking": status.Raw,
		"status":   status.Status,
	})
}

// writeOutcome renders a terminal saga outcome. Success carries the
// body built by the caller; everything else is classified by cause.
func writeOutcome(w http.ResponseWriter, orderID string, outcome domain.SagaOutcome, success map[string]any) {
	switch outcome.Tag {
	case domain.OutcomeSuccess:
		writeJSON(w, http.StatusOK, success)
	case domain.OutcomeCompensated:
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":    "the operation failed and its side effects were rolled back",
			"code":     "EXTERNAL_SERVICE_ERROR",
			"detail":   outcome.Cause.Error(),
			"order_id": orderID,
		})
	default:
		if domain.IsValidation(outcome.Cause) {
			writeServiceError(w, outcome.Cause)
			return
		}
		code := "EXTERNAL_SERVICE_ERROR"
		if outcome.Dangling() {
			code = "COMPENSATION_FAILED"
		}
		body := map[string]any{
			"error":    "the operation failed",
			"code":     code,
			"detail":   outcome.Cause.Error(),
			"order_id": orderID,
		}
		if outcome.CompensationErr != nil {
			body["compensation_error"] = outcome.CompensationErr.Error()
		}
		writeJSON(w, http.StatusBadGateway, body)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "ORDER_NOT_FOUND", err)
	case errors.Is(err, domain.ErrAlreadyConfirmed):
		writeError(w, http.StatusBadRequest, "ORDER_ALREADY_CONFIRMED", err)
	case errors.Is(err, domain.ErrAlreadyCancelled):
		writeError(w, http.StatusBadRequest, "ORDER_ALREADY_CANCELLED", err)
	case errors.Is(err, domain.ErrCannotCancelConfirmed):
		writeError(w, http.StatusBadRequest, "CANNOT_CANCEL_SHIPPED_ORDER", err)
	case errors.Is(err, domain.ErrEmptyOrder):
		writeError(w, http.StatusBadRequest, "EMPTY_ORDER", err)
	case errors.Is(err, domain.ErrMissingTransportType):
		writeError(w, http.StatusBadRequest, "MISSING_TRANSPORT_TYPE", err)
	case errors.Is(err, domain.ErrNoTracking):
		writeError(w, http.StatusBadRequest, "NO_TRACKING", err)
	case domain.IsRemoteKind(err, domain.KindNotFound):
		writeError(w, http.StatusNotFound, "TRACKING_NOT_FOUND", err)
	default:
		writeError(w, http.StatusBadGateway, "EXTERNAL_SERVICE_ERROR", err)
	}
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error(), "code": code})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
