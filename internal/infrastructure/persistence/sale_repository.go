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

// GormSaleRepository implements SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// FindByID finds a sale with its items
func (r *GormSaleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.Sale, error) {
	var sale trade.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&sale).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

// FindByNumber finds a sale by its document number
func (r *GormSaleRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*trade.Sale, error) {
	var sale trade.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND number = ?", tenantID, number).
		First(&sale).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

// FindAll returns the tenant's sales headers ordered by creation time
func (r *GormSaleRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]trade.Sale, error) {
	var sales []trade.Sale
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

// Create inserts the sale header and its items
func (r *GormSaleRepository) Create(ctx context.Context, sale *trade.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

// Save updates the sale header only
func (r *GormSaleRepository) Save(ctx context.Context, sale *trade.Sale) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(sale).Error
}

// Delete removes the sale and its items
func (r *GormSaleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("sale_id = ?", id).Delete(&trade.SaleItem{}).Error; err != nil {
		return err
	}
	result := db.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&trade.Sale{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountItemsByBatches counts sale items drawn from any of the batches
func (r *GormSaleRepository) CountItemsByBatches(ctx context.Context, tenantID uuid.UUID, batchIDs []uuid.UUID) (int64, error) {
	if len(batchIDs) == 0 {
		return 0, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&trade.SaleItem{}).
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.tenant_id = ? AND sale_items.batch_id IN ?", tenantID, batchIDs).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

var _ trade.SaleRepository = (*GormSaleRepository)(nil)
