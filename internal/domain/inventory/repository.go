package inventory

import (
	"context"

	"github.com/google/uuid"
)

// BatchRepository persists batches
type BatchRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Batch, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*Batch, error)
	// FindAvailable returns the product's batches with available quantity, earliest expiry first
	FindAvailable(ctx context.Context, tenantID, productID uuid.UUID) ([]*Batch, error)
	FindByPurchase(ctx context.Context, tenantID, purchaseID uuid.UUID) ([]*Batch, error)
	ExistsByBatchNumber(ctx context.Context, tenantID, productID uuid.UUID, batchNumber string) (bool, error)
	Create(ctx context.Context, batch *Batch) error
	Save(ctx context.Context, batch *Batch) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
