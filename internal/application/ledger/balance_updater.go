package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/application/common"
	"github.com/retail/backend/internal/domain/ledger"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// BalanceUpdater keeps account balances in step with postings. Inside an
// orchestrator the package-level ApplyPosting/UnapplyPosting are used with the
// unit's repositories; the methods here run a single adjustment in its own
// retried unit of work.
type BalanceUpdater struct {
	scope  common.TransactionScope
	logger *zap.Logger
}

// NewBalanceUpdater creates a new BalanceUpdater
func NewBalanceUpdater(scope common.TransactionScope, logger *zap.Logger) *BalanceUpdater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceUpdater{scope: scope, logger: logger}
}

// Apply posts amount to the debit or credit side of an account
func (u *BalanceUpdater) Apply(ctx context.Context, tenantID, accountID uuid.UUID, amount valueobject.Amount, isDebit bool) (*AccountResponse, error) {
	return u.run(ctx, tenantID, accountID, amount, isDebit, false)
}

// Unapply reverses a previous Apply with the same arguments
func (u *BalanceUpdater) Unapply(ctx context.Context, tenantID, accountID uuid.UUID, amount valueobject.Amount, isDebit bool) (*AccountResponse, error) {
	return u.run(ctx, tenantID, accountID, amount, isDebit, true)
}

func (u *BalanceUpdater) run(ctx context.Context, tenantID, accountID uuid.UUID, amount valueobject.Amount, isDebit, reverse bool) (*AccountResponse, error) {
	var resp AccountResponse
	err := u.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		account, err := adjust(ctx, repos.Accounts(), tenantID, accountID, amount, isDebit, reverse)
		if err != nil {
			return err
		}
		resp = ToAccountResponse(account)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.logger.Debug("Account balance adjusted",
		zap.String("account_id", accountID.String()),
		zap.String("amount", amount.String()),
		zap.Bool("debit", isDebit),
		zap.Bool("reverse", reverse),
		zap.String("balance", resp.Balance.String()),
	)
	return &resp, nil
}

// ApplyPosting adds both legs of txn to their accounts
func ApplyPosting(ctx context.Context, accounts ledger.AccountRepository, txn *ledger.Transaction) error {
	if _, err := adjust(ctx, accounts, txn.TenantID, txn.DebitAccountID, txn.Amount, true, false); err != nil {
		return err
	}
	_, err := adjust(ctx, accounts, txn.TenantID, txn.CreditAccountID, txn.Amount, false, false)
	return err
}

// UnapplyPosting removes both legs of txn from their accounts
func UnapplyPosting(ctx context.Context, accounts ledger.AccountRepository, txn *ledger.Transaction) error {
	if _, err := adjust(ctx, accounts, txn.TenantID, txn.DebitAccountID, txn.Amount, true, true); err != nil {
		return err
	}
	_, err := adjust(ctx, accounts, txn.TenantID, txn.CreditAccountID, txn.Amount, false, true)
	return err
}

// adjust reads the balance, applies the signed delta and writes it back
func adjust(ctx context.Context, accounts ledger.AccountRepository, tenantID, accountID uuid.UUID, amount valueobject.Amount, isDebit, reverse bool) (*ledger.Account, error) {
	account, err := accounts.FindByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}
	if reverse {
		account.Unapply(amount, isDebit)
	} else {
		account.Apply(amount, isDebit)
	}
	if err := accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account %s: %w", account.Code, err)
	}
	return account, nil
}
