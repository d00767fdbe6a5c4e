package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/partner"
	"github.com/retail/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormCounterpartRepository implements CounterpartRepository using GORM
type GormCounterpartRepository struct {
	db *gorm.DB
}

// NewGormCounterpartRepository creates a new GormCounterpartRepository
func NewGormCounterpartRepository(db *gorm.DB) *GormCounterpartRepository {
	return &GormCounterpartRepository{db: db}
}

// FindByID finds a customer or vendor by ID within a tenant
func (r *GormCounterpartRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*partner.Counterpart, error) {
	var c partner.Counterpart
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts a customer or vendor
func (r *GormCounterpartRepository) Create(ctx context.Context, c *partner.Counterpart) error {
	return r.db.WithContext(ctx).Create(c).Error
}

var _ partner.CounterpartRepository = (*GormCounterpartRepository)(nil)
