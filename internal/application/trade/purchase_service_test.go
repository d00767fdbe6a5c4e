package trade

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/application/common"
	"github.com/retail/backend/internal/domain/ledger"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseService_CreatePurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedChart(t)
	p1 := f.product(t, "P-1")
	p2 := f.product(t, "P-2")
	vendor := f.counterpart(t, "vendor", "Acme")
	mfg := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	exp := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	res, err := f.purchases.CreatePurchase(ctx, f.sess, CreatePurchaseRequest{
		VendorID:    vendor,
		PaymentType: "credit",
		Items: []PurchaseItemInput{
			{ProductID: p1, BatchNumber: "LOT-1", Quantity: qty(10), UnitPrice: amt("1.25"), ManufactureDate: &mfg, ExpiryDate: &exp},
			{ProductID: p2, BatchNumber: "LOT-1", Quantity: qty(4), UnitPrice: amt("5.00")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "PURCH-0001", res.Purchase.Number)
	assert.Equal(t, "32.50", res.Purchase.TotalAmount.String())
	assert.Equal(t, "in_progress", res.Purchase.Status)
	assert.Equal(t, "32.50", res.Purchase.Outstanding.String())
	require.Len(t, res.Transactions, 1)

	batch := f.batch(t, res.Purchase.Items[0].BatchID)
	assert.Equal(t, "LOT-1", batch.BatchNumber)
	assert.True(t, batch.AvailableQuantity.Equal(qty(10)))
	assert.Equal(t, "1.25", batch.UnitCost.String())
	require.NotNil(t, batch.PurchaseID)
	assert.Equal(t, res.Purchase.ID, *batch.PurchaseID)

	assert.Equal(t, "32.50", f.balance(t, ledger.RoleInventory).String())
	assert.Equal(t, "32.50", f.balance(t, ledger.RoleAccountsPayable).String())

	got, err := f.purchases.GetPurchase(ctx, f.sess, res.Purchase.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func TestPurchaseService_DuplicateBatchNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "P-1")
	other := f.product(t, "P-2")
	vendor := f.counterpart(t, "vendor", "Acme")
	f.receive(t, product, "LOT-1", 1, "1.00", 0)

	tests := []struct {
		name  string
		items []PurchaseItemInput
		want  error
	}{
		{
			name: "repeated in request",
			items: []PurchaseItemInput{
				{ProductID: other, BatchNumber: "LOT-9", Quantity: qty(1), UnitPrice: amt("1.00")},
				{ProductID: other, BatchNumber: " LOT-9 ", Quantity: qty(1), UnitPrice: amt("1.00")},
			},
			want: shared.ErrDuplicateBatchNumber,
		},
		{
			name: "already received",
			items: []PurchaseItemInput{
				{ProductID: product, BatchNumber: "LOT-1", Quantity: qty(1), UnitPrice: amt("1.00")},
			},
			want: shared.ErrDuplicateBatchNumber,
		},
		{
			name: "zero quantity",
			items: []PurchaseItemInput{
				{ProductID: other, BatchNumber: "LOT-2", Quantity: qty(0), UnitPrice: amt("1.00")},
			},
			want: shared.ErrInvalidQuantity,
		},
		{
			name: "unknown product",
			items: []PurchaseItemInput{
				{ProductID: uuid.New(), BatchNumber: "LOT-2", Quantity: qty(1), UnitPrice: amt("1.00")},
			},
			want: shared.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.purchases.CreatePurchase(ctx, f.sess, CreatePurchaseRequest{
				VendorID: vendor, PaymentType: "cash", Items: tt.items,
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// same number for a different product is fine
	_, err := f.purchases.CreatePurchase(ctx, f.sess, CreatePurchaseRequest{
		VendorID: vendor, PaymentType: "cash",
		Items: []PurchaseItemInput{{ProductID: other, BatchNumber: "LOT-1", Quantity: qty(1), UnitPrice: amt("1.00")}},
	})
	assert.NoError(t, err)

	customer := f.counterpart(t, "customer", "Jane")
	_, err = f.purchases.CreatePurchase(ctx, f.sess, CreatePurchaseRequest{
		VendorID: customer, PaymentType: "cash",
		Items: []PurchaseItemInput{{ProductID: other, BatchNumber: "LOT-3", Quantity: qty(1), UnitPrice: amt("1.00")}},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestPurchaseService_DeletePurchase_Cascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedChart(t)
	product := f.product(t, "P-1")
	vendor := f.counterpart(t, "vendor", "Acme")

	res, err := f.purchases.CreatePurchase(ctx, f.sess, CreatePurchaseRequest{
		VendorID:    vendor,
		PaymentType: "credit",
		Items:       []PurchaseItemInput{{ProductID: product, BatchNumber: "LOT-1", Quantity: qty(5), UnitPrice: amt("2.00")}},
	})
	require.NoError(t, err)
	batchID := res.Purchase.Items[0].BatchID

	paid, err := f.purchases.AddPayment(ctx, f.sess, res.Purchase.ID, AddPaymentRequest{Amount: amt("4.00"), PaymentType: "bank"})
	require.NoError(t, err)
	assert.Equal(t, "6.00", paid.Outstanding.String())
	assert.Equal(t, "6.00", f.balance(t, ledger.RoleAccountsPayable).String())
	assert.Equal(t, "-4.00", f.balance(t, ledger.RoleBank).String())

	deleted, err := f.purchases.DeletePurchase(ctx, f.sess, res.Purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted.ReversedTransactions)
	assert.Equal(t, 1, deleted.DeletedPayments)
	assert.Equal(t, 1, deleted.DeletedBatches)

	require.NoError(t, f.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		_, err := repos.Batches().FindByID(ctx, f.sess.TenantID, batchID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		n, err := repos.Payments().CountByDocument(ctx, f.sess.TenantID, "purchase", res.Purchase.ID)
		assert.Zero(t, n)
		return err
	}))
	for _, role := range ledger.AllRoles() {
		assert.True(t, f.balance(t, role).IsZero(), "role %s", role)
	}
	_, err = f.purchases.GetPurchase(ctx, f.sess, res.Purchase.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPurchaseService_DeletePurchase_BatchUsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "P-1")
	vendor := f.counterpart(t, "vendor", "Acme")

	res, err := f.purchases.CreatePurchase(ctx, f.sess, CreatePurchaseRequest{
		VendorID:    vendor,
		PaymentType: "cash",
		Items:       []PurchaseItemInput{{ProductID: product, BatchNumber: "LOT-1", Quantity: qty(5), UnitPrice: amt("2.00")}},
	})
	require.NoError(t, err)
	batchID := res.Purchase.Items[0].BatchID

	sale, err := f.sales.CreateSale(ctx, f.sess, CreateSaleRequest{
		PaymentType: "cash",
		Items:       []SaleItemInput{{ProductID: product, Quantity: qty(1), UnitPrice: amt("3.00")}},
	})
	require.NoError(t, err)

	_, err = f.purchases.DeletePurchase(ctx, f.sess, res.Purchase.ID)
	require.ErrorIs(t, err, shared.ErrBatchUsedInSale)

	// restoring the stock is not enough while the sale still references the batch
	require.NoError(t, f.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		b, err := repos.Batches().FindByID(ctx, f.sess.TenantID, batchID)
		if err != nil {
			return err
		}
		if err := b.Restore(qty(1)); err != nil {
			return err
		}
		return repos.Batches().Save(ctx, b)
	}))
	_, err = f.purchases.DeletePurchase(ctx, f.sess, res.Purchase.ID)
	require.ErrorIs(t, err, shared.ErrBatchUsedInSale)

	require.NoError(t, f.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		b, err := repos.Batches().FindByID(ctx, f.sess.TenantID, batchID)
		if err != nil {
			return err
		}
		if err := b.Deplete(qty(1)); err != nil {
			return err
		}
		return repos.Batches().Save(ctx, b)
	}))

	require.NoError(t, f.sales.DeleteSale(ctx, f.sess, sale.Sale.ID))
	assert.True(t, f.batch(t, batchID).AvailableQuantity.Equal(qty(5)))
	_, err = f.purchases.DeletePurchase(ctx, f.sess, res.Purchase.ID)
	assert.NoError(t, err)
}

func TestPurchaseService_Payments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedChart(t)
	product := f.product(t, "P-1")
	vendor := f.counterpart(t, "vendor", "Acme")

	cash, err := f.purchases.CreatePurchase(ctx, f.sess, CreatePurchaseRequest{
		VendorID: vendor, PaymentType: "cash",
		Items: []PurchaseItemInput{{ProductID: product, BatchNumber: "LOT-1", Quantity: qty(1), UnitPrice: amt("8.00")}},
	})
	require.NoError(t, err)
	_, err = f.purchases.AddPayment(ctx, f.sess, cash.Purchase.ID, AddPaymentRequest{Amount: amt("1.00"), PaymentType: "cash"})
	assert.ErrorIs(t, err, shared.ErrInvalidAmount, "cash purchases are settled in full")

	credit, err := f.purchases.CreatePurchase(ctx, f.sess, CreatePurchaseRequest{
		VendorID: vendor, PaymentType: "credit",
		Items: []PurchaseItemInput{{ProductID: product, BatchNumber: "LOT-2", Quantity: qty(2), UnitPrice: amt("8.00")}},
	})
	require.NoError(t, err)

	paid, err := f.purchases.AddPayment(ctx, f.sess, credit.Purchase.ID, AddPaymentRequest{Amount: amt("16.00"), PaymentType: "cash"})
	require.NoError(t, err)
	assert.Equal(t, "completed", paid.Status)
	assert.True(t, f.balance(t, ledger.RoleAccountsPayable).IsZero())
	assert.Equal(t, "-24.00", f.balance(t, ledger.RoleCash).String())

	purchase, err := f.purchases.DeletePayment(ctx, f.sess, paid.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", purchase.Status)
	assert.Equal(t, "16.00", purchase.Outstanding.String())
	assert.Equal(t, "16.00", f.balance(t, ledger.RoleAccountsPayable).String())
	f.trialBalanced(t)
}

func TestPurchaseService_CreatePurchaseTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "P-1")
	vendor := f.counterpart(t, "vendor", "Acme")

	res, err := f.purchases.CreatePurchase(ctx, f.sess, CreatePurchaseRequest{
		VendorID: vendor, PaymentType: "bank",
		Items: []PurchaseItemInput{{ProductID: product, BatchNumber: "LOT-1", Quantity: qty(3), UnitPrice: amt("3.00")}},
	})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)

	f.seedChart(t)
	txns, err := f.purchases.CreatePurchaseTransactions(ctx, f.sess, res.Purchase.ID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "9.00", f.balance(t, ledger.RoleInventory).String())
	assert.Equal(t, "-9.00", f.balance(t, ledger.RoleBank).String())

	_, err = f.purchases.CreatePurchaseTransactions(ctx, f.sess, res.Purchase.ID)
	assert.ErrorIs(t, err, shared.ErrAlreadyPosted)

	n, err := f.purchases.ReverseTransactions(ctx, f.sess, res.Purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, f.balance(t, ledger.RoleInventory).IsZero())

	updated, err := f.purchases.SetStatus(ctx, f.sess, res.Purchase.ID, "returned")
	require.NoError(t, err)
	assert.Equal(t, "returned", updated.Status)
}

func TestPurchaseService_CreatePurchaseTransactions_AfterPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "P-1")
	vendor := f.counterpart(t, "vendor", "Acme")

	res, err := f.purchases.CreatePurchase(ctx, f.sess, CreatePurchaseRequest{
		VendorID: vendor, PaymentType: "credit",
		Items: []PurchaseItemInput{{ProductID: product, BatchNumber: "LOT-1", Quantity: qty(10), UnitPrice: amt("2.00")}},
	})
	require.NoError(t, err)
	require.Empty(t, res.Transactions)
	purchaseID := res.Purchase.ID

	early, err := f.purchases.AddPayment(ctx, f.sess, purchaseID, AddPaymentRequest{Amount: amt("3.00"), PaymentType: "bank"})
	require.NoError(t, err)
	require.Len(t, early.Warnings, 1)

	f.seedChart(t)
	late, err := f.purchases.AddPayment(ctx, f.sess, purchaseID, AddPaymentRequest{Amount: amt("7.00"), PaymentType: "cash"})
	require.NoError(t, err)
	require.Len(t, late.Transactions, 1)

	txns, err := f.purchases.CreatePurchaseTransactions(ctx, f.sess, purchaseID)
	require.NoError(t, err)
	// the purchase and the unbooked bank payment
	require.Len(t, txns, 2)

	assert.Equal(t, "20.00", f.balance(t, ledger.RoleInventory).String())
	assert.Equal(t, "10.00", f.balance(t, ledger.RoleAccountsPayable).String())
	assert.Equal(t, "-3.00", f.balance(t, ledger.RoleBank).String())
	assert.Equal(t, "-7.00", f.balance(t, ledger.RoleCash).String())
	f.trialBalanced(t)

	_, err = f.purchases.CreatePurchaseTransactions(ctx, f.sess, purchaseID)
	assert.ErrorIs(t, err, shared.ErrAlreadyPosted)
}
