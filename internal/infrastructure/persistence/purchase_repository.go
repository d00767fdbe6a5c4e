package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/trade"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPurchaseRepository implements PurchaseRepository using GORM
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewGormPurchaseRepository creates a new GormPurchaseRepository
func NewGormPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

// FindByID finds a purchase with its items
func (r *GormPurchaseRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.Purchase, error) {
	var purchase trade.Purchase
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

// FindByNumber finds a purchase by its document number
func (r *GormPurchaseRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*trade.Purchase, error) {
	var purchase trade.Purchase
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND number = ?", tenantID, number).
		First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

// Create inserts the purchase header and its items
func (r *GormPurchaseRepository) Create(ctx context.Context, purchase *trade.Purchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

// Save updates the purchase header only
func (r *GormPurchaseRepository) Save(ctx context.Context, purchase *trade.Purchase) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(purchase).Error
}

// Delete removes the purchase and its items
func (r *GormPurchaseRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("purchase_id = ?", id).Delete(&trade.PurchaseItem{}).Error; err != nil {
		return err
	}
	result := db.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&trade.Purchase{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ trade.PurchaseRepository = (*GormPurchaseRepository)(nil)
