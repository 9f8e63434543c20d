// internal/service/order/infrastructure/adapter/product_http_adapter.go
package adapter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"stockflow/internal/pkg/httpclient"
	"stockflow/internal/service/order/domain"
	"stockflow/internal/service/order/domain/port"
)

// ProductHTTPAdapter implements port.ProductStore against the inventory
// service's synchronous product-read endpoint.
type ProductHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewProductHTTPAdapter(client *httpclient.Client, baseURL string) *ProductHTTPAdapter {
	return &ProductHTTPAdapter{client: client, baseURL: baseURL}
}

type productDTO struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Quantity   int    `json:"quantity"`
}

// GetProduct maps transport outcomes onto the saga's error taxonomy:
// 404 is ErrProductNotFound; anything else that is not a clean 200,
// timeouts included, is ErrUnavailable.
func (a *ProductHTTPAdapter) GetProduct(ctx context.Context, productID int64) (*port.Product, error) {
	var dto productDTO
	url := fmt.Sprintf("%s/api/products/%d", a.baseURL, productID)

	status, err := a.client.GetJSON(ctx, url, nil, &dto)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrUnavailable, "product store: %v", err)
	}
	switch status {
	case http.StatusOK:
		return &port.Product{
			ID:         dto.ID,
			Name:       dto.Name,
			PriceCents: dto.PriceCents,
			Quantity:   dto.Quantity,
		}, nil
	case http.StatusNotFound:
		return nil, domain.ErrProductNotFound
	default:
		return nil, errors.Wrapf(domain.ErrUnavailable, "product store returned status %d", status)
	}
}
