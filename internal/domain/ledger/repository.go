package ledger

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository persists chart-of-accounts entries
type AccountRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Account, error)
	// FindByCodes returns the accounts that exist, keyed by code. Missing codes are absent.
	FindByCodes(ctx context.Context, tenantID uuid.UUID, codes []string) (map[string]*Account, error)
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]Account, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string, excludeID *uuid.UUID) (bool, error)
	CountChildren(ctx context.Context, tenantID, id uuid.UUID) (int64, error)
	Save(ctx context.Context, account *Account) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// TransactionRepository persists ledger postings
type TransactionRepository interface {
	Create(ctx context.Context, txn *Transaction) error
	FindBySale(ctx context.Context, tenantID, saleID uuid.UUID) ([]Transaction, error)
	FindByPurchase(ctx context.Context, tenantID, purchaseID uuid.UUID) ([]Transaction, error)
	FindByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) ([]Transaction, error)
	// FindAll returns every posting for the tenant ordered by creation time, then number
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]Transaction, error)
	CountBySale(ctx context.Context, tenantID, saleID uuid.UUID) (int64, error)
	CountByAccount(ctx context.Context, tenantID, accountID uuid.UUID) (int64, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
