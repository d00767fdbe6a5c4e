package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/application/common"
	"github.com/retail/backend/internal/domain/ledger"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/retail/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AccountService maintains the chart of accounts and its balances
type AccountService struct {
	scope   common.TransactionScope
	metrics common.Metrics
	logger  *zap.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(scope common.TransactionScope, metrics common.Metrics, logger *zap.Logger) *AccountService {
	if metrics == nil {
		metrics = common.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		scope:   scope,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateAccount creates a new account with a zero balance
func (s *AccountService) CreateAccount(ctx context.Context, sess *common.Session, req CreateAccountRequest) (*AccountResponse, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	var resp AccountResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		accounts := repos.Accounts()
		if err := checkCodeFree(ctx, accounts, sess.TenantID, req.Code, nil); err != nil {
			return err
		}
		if err := checkParent(ctx, accounts, sess.TenantID, req.ParentID); err != nil {
			return err
		}

		account, err := ledger.NewAccount(sess.TenantID, req.Code, req.Name, ledger.AccountType(req.Type), req.ParentID)
		if err != nil {
			return err
		}
		if err := accounts.Save(ctx, account); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		resp = ToAccountResponse(account)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account created",
		zap.String("tenant_id", sess.TenantID.String()),
		zap.String("code", resp.Code),
		zap.String("type", resp.Type),
	)
	return &resp, nil
}

// UpdateAccount changes an account's code, name, type or parent
func (s *AccountService) UpdateAccount(ctx context.Context, sess *common.Session, id uuid.UUID, req UpdateAccountRequest) (*AccountResponse, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	var resp AccountResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		accounts := repos.Accounts()
		account, err := accounts.FindByID(ctx, sess.TenantID, id)
		if err != nil {
			return err
		}
		if err := checkCodeFree(ctx, accounts, sess.TenantID, req.Code, &id); err != nil {
			return err
		}
		if req.ParentID != nil && *req.ParentID == id {
			return shared.NewDomainError(shared.CodeInvalidInput, "Account cannot be its own parent")
		}
		if err := checkParent(ctx, accounts, sess.TenantID, req.ParentID); err != nil {
			return err
		}

		if err := account.Update(req.Code, req.Name, ledger.AccountType(req.Type), req.ParentID); err != nil {
			return err
		}
		if err := accounts.Save(ctx, account); err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}
		resp = ToAccountResponse(account)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteAccount removes an account that has no postings and no children
func (s *AccountService) DeleteAccount(ctx context.Context, sess *common.Session, id uuid.UUID) error {
	if err := sess.Validate(); err != nil {
		return err
	}

	return s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		account, err := repos.Accounts().FindByID(ctx, sess.TenantID, id)
		if err != nil {
			return err
		}

		posted, err := repos.Transactions().CountByAccount(ctx, sess.TenantID, id)
		if err != nil {
			return err
		}
		if posted > 0 {
			return shared.NewDomainErrorf(shared.CodeHasTransactions,
				"Account %s has %d transactions", account.Code, posted)
		}

		children, err := repos.Accounts().CountChildren(ctx, sess.TenantID, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return shared.NewDomainErrorf(shared.CodeHasChildren,
				"Account %s has %d child accounts", account.Code, children)
		}

		return repos.Accounts().Delete(ctx, sess.TenantID, id)
	})
}

// GetAccount returns an account by ID
func (s *AccountService) GetAccount(ctx context.Context, sess *common.Session, id uuid.UUID) (*AccountResponse, error) {
	var resp AccountResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		account, err := repos.Accounts().FindByID(ctx, sess.TenantID, id)
		if err != nil {
			return err
		}
		resp = ToAccountResponse(account)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListAccounts returns the chart ordered by code
func (s *AccountService) ListAccounts(ctx context.Context, sess *common.Session) ([]AccountResponse, error) {
	var out []AccountResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		accounts, err := repos.Accounts().FindAll(ctx, sess.TenantID)
		if err != nil {
			return err
		}
		out = make([]AccountResponse, len(accounts))
		for i := range accounts {
			out[i] = ToAccountResponse(&accounts[i])
		}
		return nil
	})
	return out, err
}

// RecalculateBalances rebuilds every balance of the tenant from its postings:
// all balances are zeroed and every transaction is applied again in creation
// order, in a single unit of work.
func (s *AccountService) RecalculateBalances(ctx context.Context, sess *common.Session) (*RecalculationSummary, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "recalculate_balances",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, sess.TenantID.String()))
	defer span.End()

	var summary RecalculationSummary
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		accounts, err := repos.Accounts().FindAll(ctx, sess.TenantID)
		if err != nil {
			return err
		}
		txns, err := repos.Transactions().FindAll(ctx, sess.TenantID)
		if err != nil {
			return err
		}

		byID := make(map[uuid.UUID]*ledger.Account, len(accounts))
		before := make(map[uuid.UUID]valueobject.Amount, len(accounts))
		for i := range accounts {
			a := &accounts[i]
			before[a.ID] = a.Balance
			a.ResetBalance()
			byID[a.ID] = a
		}

		for i := range txns {
			txn := &txns[i]
			debit, ok := byID[txn.DebitAccountID]
			if !ok {
				return unknownAccount(txn, txn.DebitAccountID)
			}
			credit, ok := byID[txn.CreditAccountID]
			if !ok {
				return unknownAccount(txn, txn.CreditAccountID)
			}
			debit.Apply(txn.Amount, true)
			credit.Apply(txn.Amount, false)
		}

		changed := 0
		for i := range accounts {
			a := &accounts[i]
			if !a.Balance.Equal(before[a.ID]) {
				changed++
			}
			if err := repos.Accounts().Save(ctx, a); err != nil {
				return fmt.Errorf("failed to save account %s: %w", a.Code, err)
			}
		}

		summary = RecalculationSummary{
			Accounts:     len(accounts),
			Transactions: len(txns),
			Changed:      changed,
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.BalancesRecalculated(ctx, sess.TenantID, summary.Accounts)
	s.logger.Info("Balances recalculated",
		zap.String("tenant_id", sess.TenantID.String()),
		zap.Int("accounts", summary.Accounts),
		zap.Int("transactions", summary.Transactions),
		zap.Int("changed", summary.Changed),
	)
	return &summary, nil
}

func unknownAccount(txn *ledger.Transaction, accountID uuid.UUID) error {
	return shared.NewDomainErrorf(shared.CodeNotFound,
		"Transaction %s references unknown account %s", txn.Number, accountID)
}

// TrialBalance sums all postings and all balances of the tenant. The ledger is
// balanced when total debits equal total credits and the debit-normal balances
// equal the credit-normal balances.
func (s *AccountService) TrialBalance(ctx context.Context, sess *common.Session) (*TrialBalanceResponse, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	var resp TrialBalanceResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		accounts, err := repos.Accounts().FindAll(ctx, sess.TenantID)
		if err != nil {
			return err
		}
		txns, err := repos.Transactions().FindAll(ctx, sess.TenantID)
		if err != nil {
			return err
		}

		resp = TrialBalanceResponse{
			TotalDebits:    valueobject.ZeroAmount(),
			TotalCredits:   valueobject.ZeroAmount(),
			DebitBalances:  valueobject.ZeroAmount(),
			CreditBalances: valueobject.ZeroAmount(),
			Transactions:   len(txns),
			Lines:          make([]TrialBalanceLine, 0, len(accounts)),
		}
		for i := range txns {
			resp.TotalDebits = resp.TotalDebits.Add(txns[i].Amount)
			resp.TotalCredits = resp.TotalCredits.Add(txns[i].Amount)
		}
		for i := range accounts {
			a := &accounts[i]
			if a.Type.NormalSide() == ledger.SideDebit {
				resp.DebitBalances = resp.DebitBalances.Add(a.Balance)
			} else {
				resp.CreditBalances = resp.CreditBalances.Add(a.Balance)
			}
			resp.Lines = append(resp.Lines, TrialBalanceLine{
				Code:    a.Code,
				Name:    a.Name,
				Type:    string(a.Type),
				Balance: a.Balance,
			})
		}
		sort.Slice(resp.Lines, func(i, j int) bool { return resp.Lines[i].Code < resp.Lines[j].Code })
		resp.Balanced = resp.TotalDebits.Equal(resp.TotalCredits) && resp.DebitBalances.Equal(resp.CreditBalances)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SeedChart creates the accounts of the session's mapping that do not exist yet
func (s *AccountService) SeedChart(ctx context.Context, sess *common.Session) (*SeedResult, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	var result SeedResult
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		result = SeedResult{}
		for _, role := range ledger.AllRoles() {
			code, _ := sess.Accounts.Code(role)
			_, err := repos.Accounts().FindByCode(ctx, sess.TenantID, code)
			if err == nil {
				result.Existing = append(result.Existing, code)
				continue
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return err
			}

			def, _ := ledger.DefinitionFor(role)
			account, err := ledger.NewAccount(sess.TenantID, code, def.Name, def.Type, nil)
			if err != nil {
				return err
			}
			if err := repos.Accounts().Save(ctx, account); err != nil {
				return fmt.Errorf("failed to create account %s: %w", code, err)
			}
			result.Created = append(result.Created, code)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Chart seeded",
		zap.String("tenant_id", sess.TenantID.String()),
		zap.Strings("created", result.Created),
	)
	return &result, nil
}

func checkCodeFree(ctx context.Context, accounts ledger.AccountRepository, tenantID uuid.UUID, code string, excludeID *uuid.UUID) error {
	exists, err := accounts.ExistsByCode(ctx, tenantID, code, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainErrorf(shared.CodeDuplicateCode, "Account code %s already exists", code).
			WithDetail("code", code)
	}
	return nil
}

func checkParent(ctx context.Context, accounts ledger.AccountRepository, tenantID uuid.UUID, parentID *uuid.UUID) error {
	if parentID == nil {
		return nil
	}
	if _, err := accounts.FindByID(ctx, tenantID, *parentID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError(shared.CodeNotFound, "Parent account not found").
				WithDetail("parent_id", parentID.String())
		}
		return err
	}
	return nil
}
