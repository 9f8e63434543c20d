// internal/service/inventory/infrastructure/gorm_model.go
package infrastructure

import (
	"time"
)

// ProductModel is the products table row.
type ProductModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:255"`
	Description string `gorm:"size:1024"`
	PriceCents  int64
	Quantity    int
}

func (ProductModel) TableName() string { return "products" }

// AppliedDebitModel is the applied-debit ledger. The dedup key primary
// key is what makes the insert the idempotency gate.
type AppliedDebitModel struct {
	DedupKey     string `gorm:"primaryKey;size:128"`
	OrderID      string `gorm:"size:36;index"`
	ProductID    int64  `gorm:"index"`
	LineSequence int
	Quantity     int
	AppliedAt    time.Time
}

func (AppliedDebitModel) TableName() string { return "applied_debits" }

// ShortfallModel records settled-but-discrepant debits for inspection.
type ShortfallModel struct {
	DedupKey   string `gorm:"primaryKey;size:128"`
	ProductID  int64  `gorm:"index"`
	Requested  int
	Available  int
	Reason     string `gorm:"size:64"`
	OccurredAt time.Time
}

func (ShortfallModel) TableName() string { return "stock_shortfalls" }
