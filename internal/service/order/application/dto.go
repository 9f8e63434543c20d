// internal/service/order/application/dto.go
package application

import (
	"stockflow/internal/service/order/domain"
)

// PlaceOrderRequest is the transport-agnostic input of the saga.
type PlaceOrderRequest struct {
	CustomerID string        `json:"customerId"`
	Items      []ItemRequest `json:"items"`
}

type ItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// RequestedLines converts the DTO into domain input.
func (r *PlaceOrderRequest) RequestedLines() []domain.RequestedLine {
	lines := make([]domain.RequestedLine, 0, len(r.Items))
	for _, it := range r.Items {
		lines = append(lines, domain.RequestedLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// OrderResponse is the JSON shape of a placed order.
type OrderResponse struct {
	OrderID    string         `json:"orderId"`
	CustomerID string         `json:"customerId"`
	Status     domain.Status  `json:"status"`
	TotalCents int64          `json:"totalCents"`
	CreatedAt  string         `json:"createdAt"`
	Lines      []LineResponse `json:"lines"`
}

type LineResponse struct {
	ProductID      int64  `json:"productId"`
	ProductName    string `json:"productName"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Sequence       int    `json:"sequence"`
}

// ToOrderResponse maps the aggregate onto the response DTO.
func ToOrderResponse(o *domain.Order) *OrderResponse {
	resp := &OrderResponse{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Status:     o.Status,
		TotalCents: o.TotalCents,
		CreatedAt:  o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, LineResponse{
			ProductID:      l.ProductID,
			ProductName:    l.ProductName,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
			Sequence:       l.Sequence,
		})
	}
	return resp
}
