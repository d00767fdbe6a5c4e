package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormBatchRepository implements BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// FindByID finds a batch by ID within a tenant
func (r *GormBatchRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Batch, error) {
	var batch inventory.Batch
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindByIDs finds batches by ID, keyed by ID. Missing IDs are absent from the map.
func (r *GormBatchRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*inventory.Batch, error) {
	result := make(map[uuid.UUID]*inventory.Batch, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var batches []*inventory.Batch
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&batches).Error; err != nil {
		return nil, err
	}
	for _, b := range batches {
		result[b.ID] = b
	}
	return result, nil
}

// FindAvailable finds the product's batches with stock left, earliest expiry
// first and batches without an expiry date last (FEFO)
func (r *GormBatchRepository) FindAvailable(ctx context.Context, tenantID, productID uuid.UUID) ([]*inventory.Batch, error) {
	var batches []*inventory.Batch
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND available_quantity > 0", tenantID, productID).
		Order("CASE WHEN expiry_date IS NULL THEN 1 ELSE 0 END ASC, expiry_date ASC, created_at ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindByPurchase finds the batches received by a purchase
func (r *GormBatchRepository) FindByPurchase(ctx context.Context, tenantID, purchaseID uuid.UUID) ([]*inventory.Batch, error) {
	var batches []*inventory.Batch
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND purchase_id = ?", tenantID, purchaseID).
		Order("created_at ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// ExistsByBatchNumber checks if a batch number is taken for a product
func (r *GormBatchRepository) ExistsByBatchNumber(ctx context.Context, tenantID, productID uuid.UUID, batchNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&inventory.Batch{}).
		Where("tenant_id = ? AND product_id = ? AND batch_number = ?", tenantID, productID, batchNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a batch
func (r *GormBatchRepository) Create(ctx context.Context, batch *inventory.Batch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

// Save updates a batch
func (r *GormBatchRepository) Save(ctx context.Context, batch *inventory.Batch) error {
	return r.db.WithContext(ctx).Save(batch).Error
}

// Delete removes a batch
func (r *GormBatchRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&inventory.Batch{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ inventory.BatchRepository = (*GormBatchRepository)(nil)
