package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PurchaseLine is one received line; each line becomes a new batch
type PurchaseLine struct {
	ProductID   uuid.UUID
	BatchID     uuid.UUID
	BatchNumber string
	Quantity    decimal.Decimal
	UnitPrice   valueobject.Amount
}

// PurchaseItem is a persisted purchase line
type PurchaseItem struct {
	ID          uuid.UUID          `gorm:"type:char(36);primaryKey"`
	PurchaseID  uuid.UUID          `gorm:"type:char(36);not null;index"`
	ProductID   uuid.UUID          `gorm:"type:char(36);not null;index"`
	BatchID     uuid.UUID          `gorm:"type:char(36);not null;index"`
	BatchNumber string             `gorm:"type:varchar(64);not null"`
	Quantity    decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	UnitPrice   valueobject.Amount `gorm:"type:decimal(18,2);not null"`
	LineTotal   valueobject.Amount `gorm:"type:decimal(18,2);not null"`
	CreatedAt   time.Time          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseItem) TableName() string {
	return "purchase_items"
}

// Purchase is a vendor purchase aggregate owning its items
type Purchase struct {
	shared.TenantAggregateRoot
	Number   string    `gorm:"type:varchar(32);not null;index"`
	VendorID uuid.UUID `gorm:"type:char(36);not null;index"`
	Settlement
	Notes string         `gorm:"type:text"`
	Items []PurchaseItem `gorm:"foreignKey:PurchaseID"`
}

// TableName returns the table name for GORM
func (Purchase) TableName() string {
	return "purchases"
}

// NewPurchase creates a purchase from received lines
func NewPurchase(tenantID uuid.UUID, number string, vendorID uuid.UUID, paymentType PaymentType, lines []PurchaseLine, notes string) (*Purchase, error) {
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Purchase number cannot be empty")
	}
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Purchase requires a vendor")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Purchase must have at least one item")
	}

	p := &Purchase{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              number,
		VendorID:            vendorID,
		Notes:               strings.TrimSpace(notes),
		Items:               make([]PurchaseItem, 0, len(lines)),
	}

	total := valueobject.ZeroAmount()
	for _, l := range lines {
		if err := validateLine(l.ProductID, l.Quantity, l.UnitPrice); err != nil {
			return nil, err
		}
		lineTotal := l.UnitPrice.Mul(l.Quantity)
		total = total.Add(lineTotal)
		p.Items = append(p.Items, PurchaseItem{
			ID:          uuid.New(),
			PurchaseID:  p.ID,
			ProductID:   l.ProductID,
			BatchID:     l.BatchID,
			BatchNumber: strings.TrimSpace(l.BatchNumber),
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   lineTotal,
			CreatedAt:   p.CreatedAt,
		})
	}

	settlement, err := newSettlement(total, paymentType)
	if err != nil {
		return nil, err
	}
	p.Settlement = settlement
	return p, nil
}

// BatchIDs returns the batches created by this purchase
func (p *Purchase) BatchIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Items))
	for _, item := range p.Items {
		ids = append(ids, item.BatchID)
	}
	return ids
}

// AddPayment records a payment against the purchase
func (p *Purchase) AddPayment(amount valueobject.Amount, paymentType PaymentType) error {
	if err := p.ApplyPayment(amount, paymentType); err != nil {
		return err
	}
	p.IncrementVersion()
	return nil
}

// RemovePayment reverts a payment previously recorded against the purchase
func (p *Purchase) RemovePayment(amount valueobject.Amount) error {
	if err := p.RevertPayment(amount); err != nil {
		return err
	}
	p.IncrementVersion()
	return nil
}

// SetStatus applies an explicit return status
func (p *Purchase) SetStatus(target DocumentStatus) error {
	if err := p.MarkStatus(target); err != nil {
		return err
	}
	p.IncrementVersion()
	return nil
}
