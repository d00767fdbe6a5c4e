package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/ledger"
	"github.com/retail/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTransactionRepository implements TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Create inserts a posting
func (r *GormTransactionRepository) Create(ctx context.Context, txn *ledger.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// FindBySale finds the postings linked to a sale
func (r *GormTransactionRepository) FindBySale(ctx context.Context, tenantID, saleID uuid.UUID) ([]ledger.Transaction, error) {
	return r.findLinked(ctx, tenantID, "sale_id", saleID)
}

// FindByPurchase finds the postings linked to a purchase
func (r *GormTransactionRepository) FindByPurchase(ctx context.Context, tenantID, purchaseID uuid.UUID) ([]ledger.Transaction, error) {
	return r.findLinked(ctx, tenantID, "purchase_id", purchaseID)
}

// FindByPayment finds the postings linked to a payment
func (r *GormTransactionRepository) FindByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) ([]ledger.Transaction, error) {
	return r.findLinked(ctx, tenantID, "payment_id", paymentID)
}

func (r *GormTransactionRepository) findLinked(ctx context.Context, tenantID uuid.UUID, column string, id uuid.UUID) ([]ledger.Transaction, error) {
	var txns []ledger.Transaction
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where(column+" = ?", id).
		Order("created_at ASC, number ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// FindAll returns every posting for the tenant ordered by creation time, then number
func (r *GormTransactionRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]ledger.Transaction, error) {
	var txns []ledger.Transaction
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC, number ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// CountBySale counts the postings linked to a sale
func (r *GormTransactionRepository) CountBySale(ctx context.Context, tenantID, saleID uuid.UUID) (int64, error) {
	return r.count(ctx, r.db.Where("tenant_id = ? AND sale_id = ?", tenantID, saleID))
}

// CountByAccount counts the postings on either side of an account
func (r *GormTransactionRepository) CountByAccount(ctx context.Context, tenantID, accountID uuid.UUID) (int64, error) {
	return r.count(ctx, r.db.Where("tenant_id = ? AND (debit_account_id = ? OR credit_account_id = ?)", tenantID, accountID, accountID))
}

func (r *GormTransactionRepository) count(ctx context.Context, query *gorm.DB) (int64, error) {
	var count int64
	if err := query.WithContext(ctx).Model(&ledger.Transaction{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes a posting
func (r *GormTransactionRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&ledger.Transaction{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
