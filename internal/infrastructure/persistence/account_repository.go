package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/ledger"
	"github.com/retail/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormAccountRepository implements AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by ID within a tenant
func (r *GormAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	var account ledger.Account
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindByCode finds an account by its code within a tenant
func (r *GormAccountRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*ledger.Account, error) {
	var account ledger.Account
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindByCodes finds the accounts with the given codes, keyed by code
func (r *GormAccountRepository) FindByCodes(ctx context.Context, tenantID uuid.UUID, codes []string) (map[string]*ledger.Account, error) {
	result := make(map[string]*ledger.Account, len(codes))
	if len(codes) == 0 {
		return result, nil
	}
	var accounts []ledger.Account
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code IN ?", tenantID, codes).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	for i := range accounts {
		result[accounts[i].Code] = &accounts[i]
	}
	return result, nil
}

// FindAll returns the tenant's chart of accounts ordered by code
func (r *GormAccountRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]ledger.Account, error) {
	var accounts []ledger.Account
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("code ASC").
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// ExistsByCode checks if an account code is taken, optionally ignoring one account
func (r *GormAccountRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&ledger.Account{}).
		Where("tenant_id = ? AND code = ?", tenantID, code)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountChildren counts accounts whose parent is the given account
func (r *GormAccountRepository) CountChildren(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&ledger.Account{}).
		Where("tenant_id = ? AND parent_id = ?", tenantID, id).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// Delete removes an account
func (r *GormAccountRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&ledger.Account{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ ledger.AccountRepository = (*GormAccountRepository)(nil)
