// internal/service/order/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"stockflow/internal/service/order/domain"
)

// GormOrderRepository is the GORM implementation of OrderRepository.
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// AutoMigrate creates the orders tables. Dev convenience; production
// deployments run managed migrations instead.
func (r *GormOrderRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&OrderModel{}, &OrderLineModel{})
}

// Save writes the order header and every line in one transaction.
func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	model := toModel(order)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return errors.Wrap(err, "inserting order")
		}
		return nil
	})
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Lines").First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(domain.ErrValidation, "order %s not found", id)
		}
		return nil, err
	}
	return toDomain(&model), nil
}

func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	return r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *GormOrderRepository) MarkLineSent(ctx context.Context, orderID string, sequence int) error {
	return r.db.WithContext(ctx).Model(&OrderLineModel{}).
		Where("order_id = ? AND sequence = ?", orderID, sequence).
		Update("debit_sent", true).Error
}

func (r *GormOrderRepository) FindUnsentLines(ctx context.Context, before time.Time, limit int) ([]domain.PendingDebit, error) {
	type row struct {
		OrderLineModel
		CreatedAt time.Time
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Table("order_lines").
		Select("order_lines.*, orders.created_at").
		Joins("JOIN orders ON orders.id = order_lines.order_id").
		Where("order_lines.debit_sent = ?", false).
		Where("orders.status IN ?", []string{string(domain.StatusConfirmed), string(domain.StatusFailedPublish)}).
		Where("orders.created_at < ?", before).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	pending := make([]domain.PendingDebit, 0, len(rows))
	for _, r := range rows {
		pending = append(pending, domain.PendingDebit{
			OrderID:   r.OrderID,
			CreatedAt: r.CreatedAt,
			Line: domain.OrderLine{
				ProductID:      r.ProductID,
				ProductName:    r.ProductName,
				Quantity:       r.Quantity,
				UnitPriceCents: r.UnitPriceCents,
				Sequence:       r.Sequence,
				DebitSent:      r.DebitSent,
			},
		})
	}
	return pending, nil
}

func (r *GormOrderRepository) AllLinesSent(ctx context.Context, orderID string) (bool, error) {
	var unsent int64
	err := r.db.WithContext(ctx).Model(&OrderLineModel{}).
		Where("order_id = ? AND debit_sent = ?", orderID, false).
		Count(&unsent).Error
	if err != nil {
		return false, err
	}
	return unsent == 0, nil
}
