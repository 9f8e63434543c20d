// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/service/order/application"
	"stockflow/internal/service/order/domain"
)

// Authorizer guards the order endpoints. The real implementation lives
// with the gateway; it authorizes calls but imposes no business logic.
type Authorizer interface {
	Authorize(r *http.Request) error
}

// AllowAll is the default seam used when no gateway sits in front.
type AllowAll struct{}

func (AllowAll) Authorize(*http.Request) error { return nil }

// OrderHandler exposes the placement saga over HTTP.
type OrderHandler struct {
	service *application.OrderApplicationService
	auth    Authorizer
}

func NewOrderHandler(service *application.OrderApplicationService, auth Authorizer) *OrderHandler {
	if auth == nil {
		auth = AllowAll{}
	}
	return &OrderHandler{service: service, auth: auth}
}

// RegisterRoutes registers the order endpoints on the service mux.
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.placeOrder)
}

func (h *OrderHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.auth.Authorize(r); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req application.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	order, err := h.service.PlaceOrder(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrProductNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrInsufficientStock):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrPublishFailure):
			// The order exists durably; the customer must never see it
			// vanish because the messaging leg failed.
			writeJSON(w, http.StatusCreated, application.ToOrderResponse(order))
		case errors.Is(err, domain.ErrUnavailable), errors.Is(err, domain.ErrPersistenceFailure):
			writeError(w, http.StatusServiceUnavailable, "order processing temporarily unavailable")
		default:
			logger.Ctx(ctx).Error().Err(err).Msg("Unexpected placement error")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, application.ToOrderResponse(order))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
