package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Batch is a received lot of a product. AvailableQuantity only decreases on
// sale and is restored when a sale is deleted; it always stays within
// [0, Quantity].
type Batch struct {
	shared.TenantEntity
	ProductID         uuid.UUID          `gorm:"type:char(36);not null;index"`
	BatchNumber       string             `gorm:"type:varchar(64);not null;index"`
	Quantity          decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	AvailableQuantity decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	ManufactureDate   *time.Time         `gorm:"type:date"`
	ExpiryDate        *time.Time         `gorm:"type:date;index"`
	UnitCost          valueobject.Amount `gorm:"type:decimal(18,2);not null;default:0"`
	PurchaseID        *uuid.UUID         `gorm:"type:char(36);index"`
}

// TableName returns the table name for GORM
func (Batch) TableName() string {
	return "batches"
}

// NewBatch creates a full batch: available quantity equals received quantity
func NewBatch(
	tenantID, productID uuid.UUID,
	batchNumber string,
	quantity decimal.Decimal,
	unitCost valueobject.Amount,
	manufactureDate, expiryDate *time.Time,
	purchaseID *uuid.UUID,
) (*Batch, error) {
	batchNumber = strings.TrimSpace(batchNumber)
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Batch requires a product")
	}
	if batchNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Batch number cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Batch quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Unit cost cannot be negative")
	}
	if manufactureDate != nil && expiryDate != nil && expiryDate.Before(*manufactureDate) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Expiry date cannot be before manufacture date")
	}
	return &Batch{
		TenantEntity:      shared.NewTenantEntity(tenantID),
		ProductID:         productID,
		BatchNumber:       batchNumber,
		Quantity:          quantity,
		AvailableQuantity: quantity,
		ManufactureDate:   manufactureDate,
		ExpiryDate:        expiryDate,
		UnitCost:          unitCost,
		PurchaseID:        purchaseID,
	}, nil
}

// Deplete removes quantity from the available stock
func (b *Batch) Deplete(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity must be positive")
	}
	if quantity.GreaterThan(b.AvailableQuantity) {
		return NewInsufficientStockError(b.ProductID, &b.ID, quantity, b.AvailableQuantity)
	}
	b.AvailableQuantity = b.AvailableQuantity.Sub(quantity)
	b.Touch()
	return nil
}

// Restore returns previously depleted quantity to the batch
func (b *Batch) Restore(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity must be positive")
	}
	if b.AvailableQuantity.Add(quantity).GreaterThan(b.Quantity) {
		return shared.NewDomainErrorf(shared.CodeInvalidState,
			"Restoring %s to batch %s would exceed its received quantity", quantity, b.BatchNumber)
	}
	b.AvailableQuantity = b.AvailableQuantity.Add(quantity)
	b.Touch()
	return nil
}

// Depleted returns how much of the batch has been sold
func (b *Batch) Depleted() decimal.Decimal {
	return b.Quantity.Sub(b.AvailableQuantity)
}

// IsUntouched reports whether nothing has been taken from the batch
func (b *Batch) IsUntouched() bool {
	return b.AvailableQuantity.Equal(b.Quantity)
}

// IsExpired returns true if the batch has expired at the given time
func (b *Batch) IsExpired(at time.Time) bool {
	return b.ExpiryDate != nil && b.ExpiryDate.Before(at)
}

// NewInsufficientStockError builds an INSUFFICIENT_STOCK error carrying the
// requested, available and shortfall quantities
func NewInsufficientStockError(productID uuid.UUID, batchID *uuid.UUID, requested, available decimal.Decimal) *shared.DomainError {
	shortfall := requested.Sub(available)
	err := shared.NewDomainErrorf(shared.CodeInsufficientStock,
		"Insufficient stock: requested %s, available %s, short by %s", requested, available, shortfall).
		WithDetail("product_id", productID.String()).
		WithDetail("requested", requested).
		WithDetail("available", available).
		WithDetail("shortfall", shortfall)
	if batchID != nil {
		err = err.WithDetail("batch_id", batchID.String())
	}
	return err
}

// Shortfall extracts the missing quantity from an INSUFFICIENT_STOCK error
func Shortfall(err error) (decimal.Decimal, bool) {
	de, ok := shared.AsDomainError(err)
	if !ok || de.Code != shared.CodeInsufficientStock {
		return decimal.Zero, false
	}
	v, ok := de.Detail("shortfall")
	if !ok {
		return decimal.Zero, false
	}
	d, ok := v.(decimal.Decimal)
	return d, ok
}
