package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/retail/backend/internal/application/common"
	"github.com/retail/backend/internal/domain/ledger"
	"github.com/retail/backend/internal/domain/sequence"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/trade"
	"go.uber.org/zap"
)

// Poster derives balanced postings from sales, purchases and payments, numbers
// them and applies them to account balances. It always works inside the
// caller's unit of work.
type Poster struct {
	logger *zap.Logger
}

// NewPoster creates a new Poster
func NewPoster(logger *zap.Logger) *Poster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poster{logger: logger}
}

// chart is the set of accounts resolved for one posting run
type chart map[ledger.AccountRole]*ledger.Account

// resolve loads the accounts mapped to roles. All roles must resolve.
func (p *Poster) resolve(ctx context.Context, repos common.TransactionalRepositories, sess *common.Session, roles ...ledger.AccountRole) (chart, error) {
	codes := make([]string, 0, len(roles))
	for _, role := range roles {
		code, ok := sess.Accounts.Code(role)
		if !ok {
			return nil, missingAccount(role, "")
		}
		codes = append(codes, code)
	}

	found, err := repos.Accounts().FindByCodes(ctx, sess.TenantID, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	c := make(chart, len(roles))
	for i, role := range roles {
		account, ok := found[codes[i]]
		if !ok {
			return nil, missingAccount(role, codes[i])
		}
		c[role] = account
	}
	return c, nil
}

func missingAccount(role ledger.AccountRole, code string) error {
	return shared.NewDomainErrorf(shared.CodeMissingRequiredAccount,
		"Required %s account %q is missing", role, code).
		WithDetail("role", string(role)).
		WithDetail("code", code)
}

// settlementRole picks the account money moves through for a payment type.
// Credit documents settle through onCredit.
func settlementRole(pt trade.PaymentType, onCredit ledger.AccountRole) ledger.AccountRole {
	switch pt {
	case trade.PaymentTypeCash:
		return ledger.RoleCash
	case trade.PaymentTypeBank:
		return ledger.RoleBank
	default:
		return onCredit
	}
}

// PostSale books the revenue and the cost of a sale: debit cash, bank or
// receivable / credit revenue for the total, then debit COGS / credit
// inventory for the costing estimate. Zero legs are skipped.
func (p *Poster) PostSale(ctx context.Context, repos common.TransactionalRepositories, sess *common.Session, sale *trade.Sale, costLines []ledger.CostLine) ([]*ledger.Transaction, error) {
	settle := settlementRole(sale.PaymentType, ledger.RoleAccountsReceivable)
	accounts, err := p.resolve(ctx, repos, sess, settle, ledger.RoleSalesRevenue, ledger.RoleCOGS, ledger.RoleInventory)
	if err != nil {
		return nil, err
	}

	date := sale.CreatedAt
	postings := []ledger.Posting{{
		Description:     fmt.Sprintf("Sale %s", sale.Number),
		DebitAccountID:  accounts[settle].ID,
		CreditAccountID: accounts[ledger.RoleSalesRevenue].ID,
		Amount:          sale.TotalAmount,
		SaleID:          &sale.ID,
		Date:            date,
	}, {
		Description:     fmt.Sprintf("Cost of sale %s (%s)", sale.Number, sess.Costing.Name()),
		DebitAccountID:  accounts[ledger.RoleCOGS].ID,
		CreditAccountID: accounts[ledger.RoleInventory].ID,
		Amount:          sess.Costing.CostOfSale(sale.TotalAmount, costLines),
		SaleID:          &sale.ID,
		Date:            date,
	}}
	return p.post(ctx, repos, sess, postings)
}

// PostPurchase books a purchase: debit inventory / credit cash, bank or payable
func (p *Poster) PostPurchase(ctx context.Context, repos common.TransactionalRepositories, sess *common.Session, purchase *trade.Purchase) ([]*ledger.Transaction, error) {
	settle := settlementRole(purchase.PaymentType, ledger.RoleAccountsPayable)
	accounts, err := p.resolve(ctx, repos, sess, ledger.RoleInventory, settle)
	if err != nil {
		return nil, err
	}

	return p.post(ctx, repos, sess, []ledger.Posting{{
		Description:     fmt.Sprintf("Purchase %s", purchase.Number),
		DebitAccountID:  accounts[ledger.RoleInventory].ID,
		CreditAccountID: accounts[settle].ID,
		Amount:          purchase.TotalAmount,
		PurchaseID:      &purchase.ID,
		Date:            purchase.CreatedAt,
	}})
}

// PostSalePayment books money received against a credit sale: debit cash or
// bank / credit receivable. Sales paid at the till have nothing to book.
func (p *Poster) PostSalePayment(ctx context.Context, repos common.TransactionalRepositories, sess *common.Session, sale *trade.Sale, payment *trade.Payment) ([]*ledger.Transaction, error) {
	if !sale.IsOnCredit() {
		return nil, nil
	}
	settle := settlementRole(payment.Type, ledger.RoleAccountsReceivable)
	accounts, err := p.resolve(ctx, repos, sess, settle, ledger.RoleAccountsReceivable)
	if err != nil {
		return nil, err
	}

	return p.post(ctx, repos, sess, []ledger.Posting{{
		Description:     fmt.Sprintf("Payment received for %s", sale.Number),
		DebitAccountID:  accounts[settle].ID,
		CreditAccountID: accounts[ledger.RoleAccountsReceivable].ID,
		Amount:          payment.Amount,
		SaleID:          &sale.ID,
		PaymentID:       &payment.ID,
		Date:            payment.PaidAt,
	}})
}

// PostPurchasePayment books money paid against a credit purchase: debit
// payable / credit cash or bank
func (p *Poster) PostPurchasePayment(ctx context.Context, repos common.TransactionalRepositories, sess *common.Session, purchase *trade.Purchase, payment *trade.Payment) ([]*ledger.Transaction, error) {
	if !purchase.IsOnCredit() {
		return nil, nil
	}
	settle := settlementRole(payment.Type, ledger.RoleAccountsPayable)
	accounts, err := p.resolve(ctx, repos, sess, ledger.RoleAccountsPayable, settle)
	if err != nil {
		return nil, err
	}

	return p.post(ctx, repos, sess, []ledger.Posting{{
		Description:     fmt.Sprintf("Payment made for %s", purchase.Number),
		DebitAccountID:  accounts[ledger.RoleAccountsPayable].ID,
		CreditAccountID: accounts[settle].ID,
		Amount:          payment.Amount,
		PurchaseID:      &purchase.ID,
		PaymentID:       &payment.ID,
		Date:            payment.PaidAt,
	}})
}

// post numbers the non-zero postings from one reserved block, persists them
// and applies them to balances
func (p *Poster) post(ctx context.Context, repos common.TransactionalRepositories, sess *common.Session, postings []ledger.Posting) ([]*ledger.Transaction, error) {
	nonZero := postings[:0:0]
	for _, posting := range postings {
		if posting.Amount.IsZero() {
			continue
		}
		if posting.Date.IsZero() {
			posting.Date = time.Now()
		}
		nonZero = append(nonZero, posting)
	}
	if len(nonZero) == 0 {
		return nil, nil
	}

	numbers, err := repos.Sequences().Reserve(ctx, sess.TenantID, sequence.SeriesTransaction, len(nonZero))
	if err != nil {
		return nil, err
	}

	txns := make([]*ledger.Transaction, 0, len(nonZero))
	for i, posting := range nonZero {
		txn, err := ledger.NewTransaction(sess.TenantID, numbers[i], posting)
		if err != nil {
			return nil, err
		}
		if err := repos.Transactions().Create(ctx, txn); err != nil {
			return nil, fmt.Errorf("failed to create transaction %s: %w", txn.Number, err)
		}
		if err := ApplyPosting(ctx, repos.Accounts(), txn); err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	p.logger.Debug("Postings created",
		zap.String("tenant_id", sess.TenantID.String()),
		zap.String("first", txns[0].Number),
		zap.Int("count", len(txns)),
	)
	return txns, nil
}

// Reverse unapplies and deletes postings, latest first
func (p *Poster) Reverse(ctx context.Context, repos common.TransactionalRepositories, txns []ledger.Transaction) (int, error) {
	for i := len(txns) - 1; i >= 0; i-- {
		txn := &txns[i]
		if err := UnapplyPosting(ctx, repos.Accounts(), txn); err != nil {
			return 0, err
		}
		if err := repos.Transactions().Delete(ctx, txn.TenantID, txn.ID); err != nil {
			return 0, fmt.Errorf("failed to delete transaction %s: %w", txn.Number, err)
		}
	}
	return len(txns), nil
}

// IsMissingAccount reports whether err is a MISSING_REQUIRED_ACCOUNT error.
// Orchestrators downgrade it to a warning when booking is optional.
func IsMissingAccount(err error) bool {
	de, ok := shared.AsDomainError(err)
	return ok && de.Code == shared.CodeMissingRequiredAccount
}
