package ledger

import (
	"strings"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
)

// AccountType represents the classification of a chart-of-accounts entry
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// AllAccountTypes returns every supported account type
func AllAccountTypes() []AccountType {
	return []AccountType{
		AccountTypeAsset,
		AccountTypeLiability,
		AccountTypeEquity,
		AccountTypeIncome,
		AccountTypeExpense,
	}
}

// IsValid checks if the account type is a known value
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// Side is one leg of a double-entry posting
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// NormalSide returns the side on which the account type's balance increases.
// Asset and expense accounts are debit-normal; liability, equity and income
// accounts are credit-normal.
func (t AccountType) NormalSide() Side {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// SignedDelta returns the balance change caused by posting amount on the debit
// (isDebit) or credit side of an account of this type. Both apply and reversal
// go through this single table.
func (t AccountType) SignedDelta(amount valueobject.Amount, isDebit bool) valueobject.Amount {
	increases := (t.NormalSide() == SideDebit) == isDebit
	if increases {
		return amount
	}
	return amount.Neg()
}

// Account is a chart-of-accounts entry holding a running balance
type Account struct {
	shared.TenantAggregateRoot
	Code     string             `gorm:"type:varchar(32);not null;index"`
	Name     string             `gorm:"type:varchar(200);not null"`
	Type     AccountType        `gorm:"type:varchar(20);not null"`
	ParentID *uuid.UUID         `gorm:"type:char(36);index"`
	Balance  valueobject.Amount `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (Account) TableName() string {
	return "accounts"
}

// NewAccount creates a new account with a zero balance
func NewAccount(tenantID uuid.UUID, code, name string, accountType AccountType, parentID *uuid.UUID) (*Account, error) {
	a := &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
	}
	if err := a.assign(code, name, accountType, parentID); err != nil {
		return nil, err
	}
	return a, nil
}

// Update changes the descriptive fields of the account. The balance is untouched.
func (a *Account) Update(code, name string, accountType AccountType, parentID *uuid.UUID) error {
	if err := a.assign(code, name, accountType, parentID); err != nil {
		return err
	}
	a.IncrementVersion()
	return nil
}

func (a *Account) assign(code, name string, accountType AccountType, parentID *uuid.UUID) error {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Account code cannot be empty")
	}
	if len(code) > 32 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Account code cannot exceed 32 characters")
	}
	if name == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Account name cannot be empty")
	}
	if !accountType.IsValid() {
		return shared.NewDomainErrorf(shared.CodeInvalidInput, "Invalid account type: %s", accountType)
	}
	if parentID != nil && *parentID == a.ID {
		return shared.NewDomainError(shared.CodeInvalidInput, "Account cannot be its own parent")
	}
	a.Code = code
	a.Name = name
	a.Type = accountType
	a.ParentID = parentID
	return nil
}

// Apply posts amount to the debit or credit side of the account
func (a *Account) Apply(amount valueobject.Amount, isDebit bool) {
	a.Balance = a.Balance.Add(a.Type.SignedDelta(amount, isDebit))
	a.IncrementVersion()
}

// Unapply reverses a previous Apply with the same arguments
func (a *Account) Unapply(amount valueobject.Amount, isDebit bool) {
	a.Balance = a.Balance.Sub(a.Type.SignedDelta(amount, isDebit))
	a.IncrementVersion()
}

// ResetBalance sets the balance back to zero
func (a *Account) ResetBalance() {
	a.Balance = valueobject.ZeroAmount()
	a.IncrementVersion()
}
