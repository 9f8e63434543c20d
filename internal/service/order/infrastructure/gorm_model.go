// internal/service/order/infrastructure/gorm_model.go
package infrastructure

import (
	"time"

	"stockflow/internal/service/order/domain"
)

// OrderModel is the orders table row.
type OrderModel struct {
	ID         string `gorm:"primaryKey;size:36"`
	CustomerID string `gorm:"size:64;index"`
	Status     string `gorm:"size:32;index"`
	TotalCents int64
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Lines []OrderLineModel `gorm:"foreignKey:OrderID"`
}

func (OrderModel) TableName() string { return "orders" }

// OrderLineModel is one order line; (order_id, sequence) is the key.
type OrderLineModel struct {
	OrderID        string `gorm:"primaryKey;size:36"`
	Sequence       int    `gorm:"primaryKey"`
	ProductID      int64  `gorm:"index"`
	ProductName    string `gorm:"size:255"`
	Quantity       int
	UnitPriceCents int64
	DebitSent      bool `gorm:"index"`
}

func (OrderLineModel) TableName() string { return "order_lines" }

func toModel(o *domain.Order) *OrderModel {
	m := &OrderModel{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Status:     string(o.Status),
		TotalCents: o.TotalCents,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
	for _, l := range o.Lines {
		m.Lines = append(m.Lines, OrderLineModel{
			OrderID:        o.ID,
			Sequence:       l.Sequence,
			ProductID:      l.ProductID,
			ProductName:    l.ProductName,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
			DebitSent:      l.DebitSent,
		})
	}
	return m
}

func toDomain(m *OrderModel) *domain.Order {
	o := &domain.Order{
		ID:         m.ID,
		CustomerID: m.CustomerID,
		Status:     domain.Status(m.Status),
		TotalCents: m.TotalCents,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	for _, l := range m.Lines {
		o.Lines = append(o.Lines, domain.OrderLine{
			ProductID:      l.ProductID,
			ProductName:    l.ProductName,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
			Sequence:       l.Sequence,
			DebitSent:      l.DebitSent,
		})
	}
	return o
}
