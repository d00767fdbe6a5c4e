package trade

import (
	"context"

	"github.com/google/uuid"
)

// SaleRepository persists sales and their items
type SaleRepository interface {
	// FindByID loads a sale with its items
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Sale, error)
	FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Sale, error)
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]Sale, error)
	// Create inserts the sale header and items
	Create(ctx context.Context, sale *Sale) error
	// Save updates the sale header only
	Save(ctx context.Context, sale *Sale) error
	// Delete removes the sale and its items
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	CountItemsByBatches(ctx context.Context, tenantID uuid.UUID, batchIDs []uuid.UUID) (int64, error)
}

// PurchaseRepository persists purchases and their items
type PurchaseRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Purchase, error)
	FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Purchase, error)
	Create(ctx context.Context, purchase *Purchase) error
	Save(ctx context.Context, purchase *Purchase) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// PaymentRepository persists payments for both sales and purchases
type PaymentRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)
	FindByDocument(ctx context.Context, tenantID uuid.UUID, docType DocumentType, docID uuid.UUID) ([]Payment, error)
	CountByDocument(ctx context.Context, tenantID uuid.UUID, docType DocumentType, docID uuid.UUID) (int64, error)
	Create(ctx context.Context, payment *Payment) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	DeleteByDocument(ctx context.Context, tenantID uuid.UUID, docType DocumentType, docID uuid.UUID) error
}
