package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/ledger"
	"github.com/retail/backend/internal/domain/shared/valueobject"
)

// ==================== Account DTOs ====================

// CreateAccountRequest represents a request to create an account
type CreateAccountRequest struct {
	Code     string     `json:"code" validate:"required,max=32"`
	Name     string     `json:"name" validate:"required,max=200"`
	Type     string     `json:"type" validate:"required,oneof=asset liability equity income expense"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// UpdateAccountRequest represents a request to update an account. The balance
// is never changed through this request.
type UpdateAccountRequest struct {
	Code     string     `json:"code" validate:"required,max=32"`
	Name     string     `json:"name" validate:"required,max=200"`
	Type     string     `json:"type" validate:"required,oneof=asset liability equity income expense"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        uuid.UUID          `json:"id"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Type      string             `json:"type"`
	ParentID  *uuid.UUID         `json:"parent_id,omitempty"`
	Balance   valueobject.Amount `json:"balance"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// ToAccountResponse converts an account to its response
func ToAccountResponse(a *ledger.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Code:      a.Code,
		Name:      a.Name,
		Type:      string(a.Type),
		ParentID:  a.ParentID,
		Balance:   a.Balance,
		UpdatedAt: a.UpdatedAt,
	}
}

// ==================== Transaction DTOs ====================

// TransactionResponse represents a posting in API responses
type TransactionResponse struct {
	ID              uuid.UUID          `json:"id"`
	Number          string             `json:"number"`
	Description     string             `json:"description"`
	DebitAccountID  uuid.UUID          `json:"debit_account_id"`
	CreditAccountID uuid.UUID          `json:"credit_account_id"`
	Amount          valueobject.Amount `json:"amount"`
	SaleID          *uuid.UUID         `json:"sale_id,omitempty"`
	PurchaseID      *uuid.UUID         `json:"purchase_id,omitempty"`
	PaymentID       *uuid.UUID         `json:"payment_id,omitempty"`
	Date            time.Time          `json:"date"`
}

// ToTransactionResponse converts a transaction to its response
func ToTransactionResponse(t *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		Number:          t.Number,
		Description:     t.Description,
		DebitAccountID:  t.DebitAccountID,
		CreditAccountID: t.CreditAccountID,
		Amount:          t.Amount,
		SaleID:          t.SaleID,
		PurchaseID:      t.PurchaseID,
		PaymentID:       t.PaymentID,
		Date:            t.Date,
	}
}

// ToTransactionResponses converts a list of transactions
func ToTransactionResponses(txns []*ledger.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, len(txns))
	for i, t := range txns {
		out[i] = ToTransactionResponse(t)
	}
	return out
}

// ==================== Maintenance DTOs ====================

// RecalculationSummary reports what RecalculateBalances did
type RecalculationSummary struct {
	Accounts     int `json:"accounts"`
	Transactions int `json:"transactions"`
	// Changed counts accounts whose stored balance differed from the replayed one
	Changed int `json:"changed"`
}

// TrialBalanceLine is one account in a trial balance
type TrialBalanceLine struct {
	Code    string             `json:"code"`
	Name    string             `json:"name"`
	Type    string             `json:"type"`
	Balance valueobject.Amount `json:"balance"`
}

// TrialBalanceResponse sums the ledger two ways: over postings and over balances
type TrialBalanceResponse struct {
	TotalDebits    valueobject.Amount `json:"total_debits"`
	TotalCredits   valueobject.Amount `json:"total_credits"`
	DebitBalances  valueobject.Amount `json:"debit_balances"`
	CreditBalances valueobject.Amount `json:"credit_balances"`
	Transactions   int                `json:"transactions"`
	Balanced       bool               `json:"balanced"`
	Lines          []TrialBalanceLine `json:"lines"`
}

// SeedResult lists the chart accounts created by SeedChart
type SeedResult struct {
	Created  []string `json:"created"`
	Existing []string `json:"existing"`
}
