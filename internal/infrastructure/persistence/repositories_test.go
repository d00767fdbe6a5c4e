package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/ledger"
	"github.com/retail/backend/internal/domain/partner"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/retail/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormAccountRepository(db.DB)
	ctx := context.Background()
	tenantID := uuid.New()

	parent, err := ledger.NewAccount(tenantID, "1000", "Assets", ledger.AccountTypeAsset, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, parent))
	cash, err := ledger.NewAccount(tenantID, "1010", "Cash", ledger.AccountTypeAsset, &parent.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, cash))

	t.Run("find by id and code", func(t *testing.T) {
		got, err := repo.FindByID(ctx, tenantID, cash.ID)
		require.NoError(t, err)
		assert.Equal(t, "Cash", got.Name)

		got, err = repo.FindByCode(ctx, tenantID, "1000")
		require.NoError(t, err)
		assert.Equal(t, parent.ID, got.ID)
	})

	t.Run("other tenants see nothing", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New(), cash.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("find by codes skips unknown codes", func(t *testing.T) {
		got, err := repo.FindByCodes(ctx, tenantID, []string{"1000", "1010", "9999"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, cash.ID, got["1010"].ID)
	})

	t.Run("exists by code honours exclusion", func(t *testing.T) {
		exists, err := repo.ExistsByCode(ctx, tenantID, "1010", nil)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByCode(ctx, tenantID, "1010", &cash.ID)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("children and ordering", func(t *testing.T) {
		n, err := repo.CountChildren(ctx, tenantID, parent.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		all, err := repo.FindAll(ctx, tenantID)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "1000", all[0].Code)
	})

	t.Run("save persists balance", func(t *testing.T) {
		cash.Apply(valueobject.MustParseAmount("12.50"), true)
		require.NoError(t, repo.Save(ctx, cash))

		got, err := repo.FindByID(ctx, tenantID, cash.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(valueobject.MustParseAmount("12.50")))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, tenantID, cash.ID))
		assert.ErrorIs(t, repo.Delete(ctx, tenantID, cash.ID), shared.ErrNotFound)
	})
}

func TestBatchRepository_FindAvailable(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormBatchRepository(db.DB)
	ctx := context.Background()
	tenantID := uuid.New()
	product := createProduct(t, db, tenantID, "P-1")

	noExpiry := createBatch(t, db, tenantID, product.ID, "B-NONE", 5, nil)
	late := createBatch(t, db, tenantID, product.ID, "B-LATE", 5, datePtr(2031, time.March, 1))
	early := createBatch(t, db, tenantID, product.ID, "B-EARLY", 5, datePtr(2030, time.January, 1))
	empty := createBatch(t, db, tenantID, product.ID, "B-EMPTY", 5, datePtr(2029, time.January, 1))
	require.NoError(t, empty.Deplete(decimal.NewFromInt(5)))
	require.NoError(t, repo.Save(ctx, empty))
	createBatch(t, db, uuid.New(), product.ID, "B-FOREIGN", 5, datePtr(2028, time.January, 1))

	batches, err := repo.FindAvailable(ctx, tenantID, product.ID)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []uuid.UUID{early.ID, late.ID, noExpiry.ID}, ids,
		"earliest expiry first, undated last, depleted and foreign batches skipped")
}

func TestBatchRepository_Lookups(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormBatchRepository(db.DB)
	ctx := context.Background()
	tenantID := uuid.New()
	product := createProduct(t, db, tenantID, "P-1")
	a := createBatch(t, db, tenantID, product.ID, "B-A", 3, nil)
	b := createBatch(t, db, tenantID, product.ID, "B-B", 4, nil)

	found, err := repo.FindByIDs(ctx, tenantID, []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.True(t, found[b.ID].Quantity.Equal(decimal.NewFromInt(4)))

	exists, err := repo.ExistsByBatchNumber(ctx, tenantID, product.ID, "B-A")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsByBatchNumber(ctx, tenantID, uuid.New(), "B-A")
	require.NoError(t, err)
	assert.False(t, exists, "batch numbers are scoped per product")

	require.NoError(t, repo.Delete(ctx, tenantID, a.ID))
	_, err = repo.FindByID(ctx, tenantID, a.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSaleRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormSaleRepository(db.DB)
	ctx := context.Background()
	tenantID := uuid.New()
	product := createProduct(t, db, tenantID, "P-1")
	b1 := createBatch(t, db, tenantID, product.ID, "B-1", 10, nil)
	b2 := createBatch(t, db, tenantID, product.ID, "B-2", 10, nil)

	sale := createSale(t, db, tenantID, "SALE-0001",
		saleLine(product.ID, b1.ID, 2, "5.00"),
		saleLine(product.ID, b2.ID, 1, "5.00"),
	)

	t.Run("find by id loads items", func(t *testing.T) {
		got, err := repo.FindByID(ctx, tenantID, sale.ID)
		require.NoError(t, err)
		assert.Len(t, got.Items, 2)
		assert.True(t, got.TotalAmount.Equal(valueobject.MustParseAmount("15.00")))
		assert.Equal(t, trade.StatusCompleted, got.Status)
	})

	t.Run("find by number", func(t *testing.T) {
		got, err := repo.FindByNumber(ctx, tenantID, "SALE-0001")
		require.NoError(t, err)
		assert.Equal(t, sale.ID, got.ID)

		_, err = repo.FindByNumber(ctx, tenantID, "SALE-0404")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("count items by batches", func(t *testing.T) {
		n, err := repo.CountItemsByBatches(ctx, tenantID, []uuid.UUID{b1.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = repo.CountItemsByBatches(ctx, uuid.New(), []uuid.UUID{b1.ID, b2.ID})
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = repo.CountItemsByBatches(ctx, tenantID, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("save updates header only", func(t *testing.T) {
		require.NoError(t, sale.SetStatus(trade.StatusPartialReturn))
		sale.Items = nil
		require.NoError(t, repo.Save(ctx, sale))

		got, err := repo.FindByID(ctx, tenantID, sale.ID)
		require.NoError(t, err)
		assert.Equal(t, trade.StatusPartialReturn, got.Status)
		assert.Len(t, got.Items, 2)
	})

	t.Run("delete removes items", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, tenantID, sale.ID))

		var items int64
		require.NoError(t, db.DB.Model(&trade.SaleItem{}).Where("sale_id = ?", sale.ID).Count(&items).Error)
		assert.Zero(t, items)
		assert.ErrorIs(t, repo.Delete(ctx, tenantID, sale.ID), shared.ErrNotFound)
	})
}

func TestPurchaseRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormPurchaseRepository(db.DB)
	ctx := context.Background()
	tenantID := uuid.New()
	product := createProduct(t, db, tenantID, "P-1")
	vendor, err := partner.NewCounterpart(tenantID, partner.KindVendor, "Dairy Co", "")
	require.NoError(t, err)
	require.NoError(t, NewGormCounterpartRepository(db.DB).Create(ctx, vendor))

	purchase, err := trade.NewPurchase(tenantID, "PURCH-0001", vendor.ID, trade.PaymentTypeCredit, []trade.PurchaseLine{{
		ProductID:   product.ID,
		BatchID:     uuid.New(),
		BatchNumber: "LOT-1",
		Quantity:    decimal.NewFromInt(10),
		UnitPrice:   valueobject.MustParseAmount("3.00"),
	}}, "")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, purchase))

	got, err := repo.FindByID(ctx, tenantID, purchase.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "LOT-1", got.Items[0].BatchNumber)
	assert.True(t, got.PaidAmount.IsZero())

	byNumber, err := repo.FindByNumber(ctx, tenantID, "PURCH-0001")
	require.NoError(t, err)
	assert.Equal(t, purchase.ID, byNumber.ID)

	require.NoError(t, repo.Delete(ctx, tenantID, purchase.ID))
	_, err = repo.FindByID(ctx, tenantID, purchase.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPaymentRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormPaymentRepository(db.DB)
	ctx := context.Background()
	tenantID := uuid.New()
	docID := uuid.New()

	first, err := trade.NewPayment(tenantID, trade.DocumentTypeSale, docID, valueobject.MustParseAmount("5.00"),
		trade.PaymentTypeCash, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)
	second, err := trade.NewPayment(tenantID, trade.DocumentTypeSale, docID, valueobject.MustParseAmount("7.00"),
		trade.PaymentTypeBank, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)
	other, err := trade.NewPayment(tenantID, trade.DocumentTypePurchase, docID, valueobject.MustParseAmount("1.00"),
		trade.PaymentTypeCash, time.Time{}, "")
	require.NoError(t, err)
	for _, p := range []*trade.Payment{first, second, other} {
		require.NoError(t, repo.Create(ctx, p))
	}

	payments, err := repo.FindByDocument(ctx, tenantID, trade.DocumentTypeSale, docID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, second.ID, payments[0].ID, "ordered by payment date")

	n, err := repo.CountByDocument(ctx, tenantID, trade.DocumentTypePurchase, docID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.DeleteByDocument(ctx, tenantID, trade.DocumentTypeSale, docID))
	n, err = repo.CountByDocument(ctx, tenantID, trade.DocumentTypeSale, docID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.ErrorIs(t, repo.Delete(ctx, tenantID, first.ID), shared.ErrNotFound)
}

func TestTransactionRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormTransactionRepository(db.DB)
	ctx := context.Background()
	tenantID := uuid.New()
	cash, revenue, cogs := uuid.New(), uuid.New(), uuid.New()
	saleID := uuid.New()

	post := func(number string, debit, credit uuid.UUID, amount string, sale *uuid.UUID) *ledger.Transaction {
		txn, err := ledger.NewTransaction(tenantID, number, ledger.Posting{
			DebitAccountID:  debit,
			CreditAccountID: credit,
			Amount:          valueobject.MustParseAmount(amount),
			SaleID:          sale,
		})
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, txn))
		return txn
	}
	post("TXN-0001", cash, revenue, "10.00", &saleID)
	post("TXN-0002", cogs, uuid.New(), "6.00", &saleID)
	unlinked := post("TXN-0003", cash, uuid.New(), "1.00", nil)

	linked, err := repo.FindBySale(ctx, tenantID, saleID)
	require.NoError(t, err)
	assert.Len(t, linked, 2)

	n, err := repo.CountBySale(ctx, tenantID, saleID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.CountByAccount(ctx, tenantID, cash)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "either leg counts")

	all, err := repo.FindAll(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, repo.Delete(ctx, tenantID, unlinked.ID))
	assert.ErrorIs(t, repo.Delete(ctx, tenantID, unlinked.ID), shared.ErrNotFound)
}

func TestProductAndCounterpartRepositories(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	tenantID := uuid.New()
	p := createProduct(t, db, tenantID, "MILK")
	products := NewGormProductRepository(db.DB)

	exists, err := products.ExistsByCode(ctx, tenantID, "MILK")
	require.NoError(t, err)
	assert.True(t, exists)

	n, err := products.CountExisting(ctx, tenantID, []uuid.UUID{p.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	customer, err := partner.NewCounterpart(tenantID, partner.KindCustomer, "Ann", "555-0100")
	require.NoError(t, err)
	counterparts := NewGormCounterpartRepository(db.DB)
	require.NoError(t, counterparts.Create(ctx, customer))

	got, err := counterparts.FindByID(ctx, tenantID, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, partner.KindCustomer, got.Kind)
	_, err = counterparts.FindByID(ctx, uuid.New(), customer.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
