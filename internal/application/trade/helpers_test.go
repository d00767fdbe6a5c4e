package trade

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	catalogapp "github.com/retail/backend/internal/application/catalog"
	"github.com/retail/backend/internal/application/common"
	ledgerapp "github.com/retail/backend/internal/application/ledger"
	partnerapp "github.com/retail/backend/internal/application/partner"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/ledger"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/retail/backend/internal/infrastructure/persistence"
	"github.com/retail/backend/internal/infrastructure/persistence/testdb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	db        *persistence.Database
	scope     common.TransactionScope
	sess      *common.Session
	logs      *observer.ObservedLogs
	sales     *SaleService
	purchases *PurchaseService
	accounts  *ledgerapp.AccountService
	catalog   *catalogapp.CatalogService
	partners  *partnerapp.PartnerService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithPolicy(t, testdb.FastRetry(5))
}

func newFixtureWithPolicy(t *testing.T, policy *common.RetryPolicy) *fixture {
	t.Helper()
	db := testdb.Open(t)
	scope := testdb.Scope(db, policy)
	sess, err := common.NewSession(uuid.New(), nil, nil)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	poster := ledgerapp.NewPoster(logger)

	return &fixture{
		db:        db,
		scope:     scope,
		sess:      sess,
		logs:      logs,
		sales:     NewSaleService(scope, poster, nil, logger),
		purchases: NewPurchaseService(scope, poster, nil, logger),
		accounts:  ledgerapp.NewAccountService(scope, nil, logger),
		catalog:   catalogapp.NewCatalogService(scope, logger),
		partners:  partnerapp.NewPartnerService(scope, logger),
	}
}

func (f *fixture) seedChart(t *testing.T) {
	t.Helper()
	_, err := f.accounts.SeedChart(context.Background(), f.sess)
	require.NoError(t, err)
}

func (f *fixture) product(t *testing.T, code string) uuid.UUID {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), f.sess, catalogapp.CreateProductRequest{
		Code: code, Name: "Product " + code, Unit: "pcs",
	})
	require.NoError(t, err)
	return p.ID
}

func (f *fixture) counterpart(t *testing.T, kind, name string) uuid.UUID {
	t.Helper()
	c, err := f.partners.CreateCounterpart(context.Background(), f.sess, partnerapp.CreateCounterpartRequest{
		Kind: kind, Name: name,
	})
	require.NoError(t, err)
	return c.ID
}

// receive records a cash purchase of a single batch and returns the batch ID
func (f *fixture) receive(t *testing.T, productID uuid.UUID, number string, qty int64, cost string, expiresIn time.Duration) uuid.UUID {
	t.Helper()
	var expiry *time.Time
	if expiresIn != 0 {
		e := time.Now().Add(expiresIn).UTC().Truncate(24 * time.Hour)
		expiry = &e
	}
	res, err := f.purchases.CreatePurchase(context.Background(), f.sess, CreatePurchaseRequest{
		VendorID:    f.counterpart(t, "vendor", "Vendor "+number),
		PaymentType: "cash",
		Items: []PurchaseItemInput{{
			ProductID:   productID,
			BatchNumber: number,
			Quantity:    decimal.NewFromInt(qty),
			UnitPrice:   amt(cost),
			ExpiryDate:  expiry,
		}},
	})
	require.NoError(t, err)
	return res.Purchase.Items[0].BatchID
}

func (f *fixture) batch(t *testing.T, id uuid.UUID) *inventory.Batch {
	t.Helper()
	var out *inventory.Batch
	require.NoError(t, f.scope.Execute(context.Background(), func(repos common.TransactionalRepositories) error {
		b, err := repos.Batches().FindByID(context.Background(), f.sess.TenantID, id)
		out = b
		return err
	}))
	return out
}

func (f *fixture) balance(t *testing.T, role ledger.AccountRole) valueobject.Amount {
	t.Helper()
	code, _ := f.sess.Accounts.Code(role)
	var out valueobject.Amount
	require.NoError(t, f.scope.Execute(context.Background(), func(repos common.TransactionalRepositories) error {
		a, err := repos.Accounts().FindByCode(context.Background(), f.sess.TenantID, code)
		if err != nil {
			return err
		}
		out = a.Balance
		return nil
	}))
	return out
}

func (f *fixture) trialBalanced(t *testing.T) {
	t.Helper()
	tb, err := f.accounts.TrialBalance(context.Background(), f.sess)
	require.NoError(t, err)
	require.True(t, tb.Balanced, "debits %s credits %s", tb.TotalDebits, tb.TotalCredits)
}

func amt(s string) valueobject.Amount {
	return valueobject.MustParseAmount(s)
}

func qty(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}
