package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/trade"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID within a tenant
func (r *GormPaymentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.Payment, error) {
	var payment trade.Payment
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// FindByDocument finds the payments recorded against a sale or purchase
func (r *GormPaymentRepository) FindByDocument(ctx context.Context, tenantID uuid.UUID, docType trade.DocumentType, docID uuid.UUID) ([]trade.Payment, error) {
	var payments []trade.Payment
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND document_type = ? AND document_id = ?", tenantID, docType, docID).
		Order("paid_at ASC, created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// CountByDocument counts the payments recorded against a sale or purchase
func (r *GormPaymentRepository) CountByDocument(ctx context.Context, tenantID uuid.UUID, docType trade.DocumentType, docID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&trade.Payment{}).
		Where("tenant_id = ? AND document_type = ? AND document_id = ?", tenantID, docType, docID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create inserts a payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *trade.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// Delete removes a payment
func (r *GormPaymentRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&trade.Payment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteByDocument removes every payment recorded against a sale or purchase
func (r *GormPaymentRepository) DeleteByDocument(ctx context.Context, tenantID uuid.UUID, docType trade.DocumentType, docID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND document_type = ? AND document_id = ?", tenantID, docType, docID).
		Delete(&trade.Payment{}).Error
}

var _ trade.PaymentRepository = (*GormPaymentRepository)(nil)
