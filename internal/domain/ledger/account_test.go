package ledger

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountType_SignedDelta(t *testing.T) {
	amt := valueobject.MustParseAmount("100")

	tests := []struct {
		accountType AccountType
		isDebit     bool
		want        string
	}{
		{AccountTypeAsset, true, "100.00"},
		{AccountTypeAsset, false, "-100.00"},
		{AccountTypeExpense, true, "100.00"},
		{AccountTypeExpense, false, "-100.00"},
		{AccountTypeLiability, true, "-100.00"},
		{AccountTypeLiability, false, "100.00"},
		{AccountTypeEquity, true, "-100.00"},
		{AccountTypeEquity, false, "100.00"},
		{AccountTypeIncome, true, "-100.00"},
		{AccountTypeIncome, false, "100.00"},
	}

	for _, tt := range tests {
		side := "credit"
		if tt.isDebit {
			side = "debit"
		}
		t.Run(string(tt.accountType)+"_"+side, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.accountType.SignedDelta(amt, tt.isDebit).String())
		})
	}
}

func TestNewAccount(t *testing.T) {
	tenantID := uuid.New()

	t.Run("valid", func(t *testing.T) {
		a, err := NewAccount(tenantID, " 1000 ", "Cash", AccountTypeAsset, nil)
		require.NoError(t, err)
		assert.Equal(t, "1000", a.Code)
		assert.True(t, a.Balance.IsZero())
		assert.Equal(t, tenantID, a.TenantID)
	})

	t.Run("invalid type", func(t *testing.T) {
		_, err := NewAccount(tenantID, "1000", "Cash", AccountType("bogus"), nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("empty code", func(t *testing.T) {
		_, err := NewAccount(tenantID, "  ", "Cash", AccountTypeAsset, nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestAccount_UpdateRejectsSelfParent(t *testing.T) {
	a, err := NewAccount(uuid.New(), "1000", "Cash", AccountTypeAsset, nil)
	require.NoError(t, err)

	self := a.ID
	err = a.Update("1000", "Cash", AccountTypeAsset, &self)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestAccount_ApplyUnapplyRoundTrip(t *testing.T) {
	for _, typ := range AllAccountTypes() {
		t.Run(string(typ), func(t *testing.T) {
			a, err := NewAccount(uuid.New(), "9000", "Test", typ, nil)
			require.NoError(t, err)

			a.Apply(valueobject.MustParseAmount("12.34"), true)
			a.Apply(valueobject.MustParseAmount("5.00"), false)
			a.Unapply(valueobject.MustParseAmount("5.00"), false)
			a.Unapply(valueobject.MustParseAmount("12.34"), true)

			assert.True(t, a.Balance.IsZero(), "balance drifted to %s", a.Balance)
		})
	}
}

func TestPosting_Validate(t *testing.T) {
	debit, credit := uuid.New(), uuid.New()
	saleID, purchaseID := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		posting Posting
		code    string
	}{
		{"valid", Posting{DebitAccountID: debit, CreditAccountID: credit, Amount: valueobject.NewAmountFromInt(1)}, ""},
		{"same account", Posting{DebitAccountID: debit, CreditAccountID: debit, Amount: valueobject.NewAmountFromInt(1)}, shared.CodeInvalidInput},
		{"zero amount", Posting{DebitAccountID: debit, CreditAccountID: credit}, shared.CodeInvalidAmount},
		{"missing leg", Posting{DebitAccountID: debit, Amount: valueobject.NewAmountFromInt(1)}, shared.CodeInvalidInput},
		{"two documents", Posting{DebitAccountID: debit, CreditAccountID: credit, Amount: valueobject.NewAmountFromInt(1), SaleID: &saleID, PurchaseID: &purchaseID}, shared.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.posting.Validate()
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			de, ok := shared.AsDomainError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestNewTransaction_DefaultsDate(t *testing.T) {
	txn, err := NewTransaction(uuid.New(), "TXN-0001", Posting{
		DebitAccountID:  uuid.New(),
		CreditAccountID: uuid.New(),
		Amount:          valueobject.NewAmountFromInt(3),
	})
	require.NoError(t, err)
	assert.False(t, txn.Date.IsZero())
	assert.Equal(t, "TXN-0001", txn.Number)
}
