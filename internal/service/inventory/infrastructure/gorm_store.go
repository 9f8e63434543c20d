// internal/service/inventory/infrastructure/gorm_store.go
package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stockflow/internal/service/inventory/domain"
)

// GormInventoryStore implements domain.InventoryStore on MySQL. The
// whole settle step runs in one transaction with the product row locked
// FOR UPDATE, which serializes concurrent decrements per product.
type GormInventoryStore struct {
	db *gorm.DB
}

func NewGormInventoryStore(db *gorm.DB) *GormInventoryStore {
	return &GormInventoryStore{db: db}
}

// AutoMigrate creates the inventory tables and seeds a small catalog on
// first run, the way the dev environment expects.
func (s *GormInventoryStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&ProductModel{}, &AppliedDebitModel{}, &ShortfallModel{}); err != nil {
		return err
	}

	var count int64
	if err := s.db.Model(&ProductModel{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return s.db.Create([]ProductModel{
			{Name: "Arabica Coffee", Description: "single-origin arabica beans", PriceCents: 2550, Quantity: 100},
			{Name: "Robusta Coffee", Description: "robusta blend", PriceCents: 1890, Quantity: 100},
			{Name: "Specialty Coffee", Description: "limited specialty lot", PriceCents: 3200, Quantity: 100},
		}).Error
	}
	return nil
}

func (s *GormInventoryStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var model ProductModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, errors.Wrapf(domain.ErrUnavailable, "reading product %d: %v", id, err)
	}
	return &domain.Product{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		PriceCents:  model.PriceCents,
		Quantity:    model.Quantity,
	}, nil
}

// ApplyDebit settles one debit atomically. The ledger insert doubles as
// the duplicate check: a conflicting primary key means the debit was
// already applied by some earlier delivery.
func (s *GormInventoryStore) ApplyDebit(ctx context.Context, debit domain.AppliedDebit) (domain.Outcome, *domain.Shortfall, error) {
	var outcome domain.Outcome
	var shortfall *domain.Shortfall

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := AppliedDebitModel{
			DedupKey:     debit.DedupKey,
			OrderID:      debit.OrderID,
			ProductID:    debit.ProductID,
			LineSequence: debit.LineSequence,
			Quantity:     debit.Quantity,
			AppliedAt:    debit.AppliedAt,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ledger)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			outcome = domain.OutcomeDuplicate
			return nil
		}

		var product ProductModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&product, "id = ?", debit.ProductID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = domain.OutcomeShortfall
				shortfall = &domain.Shortfall{
					DedupKey:   debit.DedupKey,
					ProductID:  debit.ProductID,
					Requested:  debit.Quantity,
					Available:  0,
					Reason:     domain.ShortfallProductMissing,
					OccurredAt: time.Now().UTC(),
				}
				return tx.Create(shortfallModel(shortfall)).Error
			}
			return err
		}

		if product.Quantity < debit.Quantity {
			outcome = domain.OutcomeShortfall
			shortfall = &domain.Shortfall{
				DedupKey:   debit.DedupKey,
				ProductID:  debit.ProductID,
				Requested:  debit.Quantity,
				Available:  product.Quantity,
				Reason:     domain.ShortfallInsufficient,
				OccurredAt: time.Now().UTC(),
			}
			return tx.Create(shortfallModel(shortfall)).Error
		}

		outcome = domain.OutcomeApplied
		return tx.Model(&ProductModel{}).
			Where("id = ?", product.ID).
			Update("quantity", gorm.Expr("quantity - ?", debit.Quantity)).Error
	})
	if err != nil {
		return domain.OutcomeNone, nil, errors.Wrapf(domain.ErrUnavailable, "applying debit %s: %v", debit.DedupKey, err)
	}
	return outcome, shortfall, nil
}

func shortfallModel(s *domain.Shortfall) *ShortfallModel {
	return &ShortfallModel{
		DedupKey:   s.DedupKey,
		ProductID:  s.ProductID,
		Requested:  s.Requested,
		Available:  s.Available,
		Reason:     s.Reason,
		OccurredAt: s.OccurredAt,
	}
}
