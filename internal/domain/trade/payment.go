package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
)

// DocumentType identifies what a payment settles
type DocumentType string

const (
	DocumentTypeSale     DocumentType = "sale"
	DocumentTypePurchase DocumentType = "purchase"
)

// Payment is money received for a sale or paid for a purchase
type Payment struct {
	shared.TenantEntity
	DocumentType DocumentType       `gorm:"type:varchar(20);not null;index:idx_payment_document"`
	DocumentID   uuid.UUID          `gorm:"type:char(36);not null;index:idx_payment_document"`
	Amount       valueobject.Amount `gorm:"type:decimal(18,2);not null"`
	Type         PaymentType        `gorm:"type:varchar(20);not null"`
	PaidAt       time.Time          `gorm:"not null"`
	Notes        string             `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a payment. Only cash and bank payments are accepted.
func NewPayment(tenantID uuid.UUID, docType DocumentType, docID uuid.UUID, amount valueobject.Amount, paymentType PaymentType, paidAt time.Time, notes string) (*Payment, error) {
	if docType != DocumentTypeSale && docType != DocumentTypePurchase {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Invalid document type: %q", docType)
	}
	if !paymentType.SettlesImmediately() {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidPaymentType, "Payment type must be cash or bank, got %q", paymentType)
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Payment amount must be positive")
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	return &Payment{
		TenantEntity: shared.NewTenantEntity(tenantID),
		DocumentType: docType,
		DocumentID:   docID,
		Amount:       amount,
		Type:         paymentType,
		PaidAt:       paidAt,
		Notes:        strings.TrimSpace(notes),
	}, nil
}
