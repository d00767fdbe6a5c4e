package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// SaleLine is an allocated sale line: a quantity drawn from one batch
type SaleLine struct {
	ProductID uuid.UUID
	BatchID   uuid.UUID
	Quantity  decimal.Decimal
	UnitPrice valueobject.Amount
	UnitCost  valueobject.Amount
}

// SaleItem is a persisted sale line
type SaleItem struct {
	ID        uuid.UUID          `gorm:"type:char(36);primaryKey"`
	SaleID    uuid.UUID          `gorm:"type:char(36);not null;index"`
	ProductID uuid.UUID          `gorm:"type:char(36);not null;index"`
	BatchID   uuid.UUID          `gorm:"type:char(36);not null;index"`
	Quantity  decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	UnitPrice valueobject.Amount `gorm:"type:decimal(18,2);not null"`
	UnitCost  valueobject.Amount `gorm:"type:decimal(18,2);not null;default:0"`
	LineTotal valueobject.Amount `gorm:"type:decimal(18,2);not null"`
	CreatedAt time.Time          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SaleItem) TableName() string {
	return "sale_items"
}

// Sale is a sale aggregate owning its items
type Sale struct {
	shared.TenantAggregateRoot
	Number     string     `gorm:"type:varchar(32);not null;index"`
	CustomerID *uuid.UUID `gorm:"type:char(36);index"`
	Settlement
	Notes string     `gorm:"type:text"`
	Items []SaleItem `gorm:"foreignKey:SaleID"`
}

// TableName returns the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// NewSale creates a sale from allocated lines. Cash and bank sales are paid in
// full; credit sales start unpaid.
func NewSale(tenantID uuid.UUID, number string, customerID *uuid.UUID, paymentType PaymentType, lines []SaleLine, notes string) (*Sale, error) {
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Sale number cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Sale must have at least one item")
	}

	s := &Sale{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              number,
		CustomerID:          customerID,
		Notes:               strings.TrimSpace(notes),
		Items:               make([]SaleItem, 0, len(lines)),
	}

	total := valueobject.ZeroAmount()
	for _, l := range lines {
		if err := validateLine(l.ProductID, l.Quantity, l.UnitPrice); err != nil {
			return nil, err
		}
		lineTotal := l.UnitPrice.Mul(l.Quantity)
		total = total.Add(lineTotal)
		s.Items = append(s.Items, SaleItem{
			ID:        uuid.New(),
			SaleID:    s.ID,
			ProductID: l.ProductID,
			BatchID:   l.BatchID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			UnitCost:  l.UnitCost,
			LineTotal: lineTotal,
			CreatedAt: s.CreatedAt,
		})
	}

	settlement, err := newSettlement(total, paymentType)
	if err != nil {
		return nil, err
	}
	s.Settlement = settlement
	return s, nil
}

// BatchQuantities sums item quantities per batch
func (s *Sale) BatchQuantities() map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(s.Items))
	for _, item := range s.Items {
		out[item.BatchID] = out[item.BatchID].Add(item.Quantity)
	}
	return out
}

// AddPayment records a payment against the sale
func (s *Sale) AddPayment(amount valueobject.Amount, paymentType PaymentType) error {
	if err := s.ApplyPayment(amount, paymentType); err != nil {
		return err
	}
	s.IncrementVersion()
	return nil
}

// RemovePayment reverts a payment previously recorded against the sale
func (s *Sale) RemovePayment(amount valueobject.Amount) error {
	if err := s.RevertPayment(amount); err != nil {
		return err
	}
	s.IncrementVersion()
	return nil
}

// SetStatus applies an explicit return status
func (s *Sale) SetStatus(target DocumentStatus) error {
	if err := s.MarkStatus(target); err != nil {
		return err
	}
	s.IncrementVersion()
	return nil
}

func validateLine(productID uuid.UUID, quantity decimal.Decimal, unitPrice valueobject.Amount) error {
	if productID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product ID cannot be empty")
	}
	if !quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Unit price cannot be negative")
	}
	return nil
}
