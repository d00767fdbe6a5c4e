package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
)

// Posting is an unnumbered double-entry posting: one debit leg and one credit
// leg of the same amount.
type Posting struct {
	Description     string
	DebitAccountID  uuid.UUID
	CreditAccountID uuid.UUID
	Amount          valueobject.Amount
	SaleID          *uuid.UUID
	PurchaseID      *uuid.UUID
	PaymentID       *uuid.UUID
	Date            time.Time
}

// Validate checks the posting's legs and amount
func (p Posting) Validate() error {
	if p.DebitAccountID == uuid.Nil || p.CreditAccountID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Posting requires both a debit and a credit account")
	}
	if p.DebitAccountID == p.CreditAccountID {
		return shared.NewDomainError(shared.CodeInvalidInput, "Debit and credit accounts must differ")
	}
	if !p.Amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Posting amount must be positive")
	}
	if p.SaleID != nil && p.PurchaseID != nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Posting cannot reference both a sale and a purchase")
	}
	return nil
}

// Transaction is a numbered, persisted double-entry posting
type Transaction struct {
	shared.TenantEntity
	Number          string             `gorm:"type:varchar(32);not null;index"`
	Description     string             `gorm:"type:varchar(500)"`
	DebitAccountID  uuid.UUID          `gorm:"type:char(36);not null;index"`
	CreditAccountID uuid.UUID          `gorm:"type:char(36);not null;index"`
	Amount          valueobject.Amount `gorm:"type:decimal(18,2);not null"`
	SaleID          *uuid.UUID         `gorm:"type:char(36);index"`
	PurchaseID      *uuid.UUID         `gorm:"type:char(36);index"`
	PaymentID       *uuid.UUID         `gorm:"type:char(36);index"`
	Date            time.Time          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Transaction) TableName() string {
	return "transactions"
}

// NewTransaction creates a numbered transaction from a validated posting
func NewTransaction(tenantID uuid.UUID, number string, p Posting) (*Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Transaction number cannot be empty")
	}
	date := p.Date
	if date.IsZero() {
		date = time.Now()
	}
	return &Transaction{
		TenantEntity:    shared.NewTenantEntity(tenantID),
		Number:          number,
		Description:     p.Description,
		DebitAccountID:  p.DebitAccountID,
		CreditAccountID: p.CreditAccountID,
		Amount:          p.Amount,
		SaleID:          p.SaleID,
		PurchaseID:      p.PurchaseID,
		PaymentID:       p.PaymentID,
		Date:            date,
	}, nil
}

// Touches reports whether the transaction posts to the account on either leg
func (t *Transaction) Touches(accountID uuid.UUID) bool {
	return t.DebitAccountID == accountID || t.CreditAccountID == accountID
}
