// internal/service/inventory/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/service/inventory/domain"
)

// ProductHandler exposes the synchronous, side-effect-free product read
// the order service validates stock against.
type ProductHandler struct {
	store domain.InventoryStore
}

func NewProductHandler(store domain.InventoryStore) *ProductHandler {
	return &ProductHandler{store: store}
}

func (h *ProductHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
}

type productResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Quantity   int    `json:"quantity"`
}

func (h *ProductHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	product, err := h.store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			http.Error(w, "product not found", http.StatusNotFound)
			return
		}
		logger.Ctx(ctx).Error().Err(err).Int64("productId", id).Msg("Product read failed")
		http.Error(w, "inventory temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(productResponse{
		ID:         product.ID,
		Name:       product.Name,
		PriceCents: product.PriceCents,
		Quantity:   product.Quantity,
	})
}
