//go:build integration

package trade

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	catalogapp "github.com/retail/backend/internal/application/catalog"
	"github.com/retail/backend/internal/application/common"
	ledgerapp "github.com/retail/backend/internal/application/ledger"
	partnerapp "github.com/retail/backend/internal/application/partner"
	"github.com/retail/backend/internal/infrastructure/persistence/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Serializable transactions on PostgreSQL abort concurrent sales with
// SQLSTATE 40001; every sale must still land exactly once.
func TestPostgres_ConcurrentSales(t *testing.T) {
	db := testdb.OpenPostgres(t)
	logger := zaptest.NewLogger(t)
	scope := testdb.Scope(db, testdb.FastRetry(50))
	sess, err := common.NewSession(uuid.New(), nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	poster := ledgerapp.NewPoster(logger)
	f := &fixture{
		db:        db,
		scope:     scope,
		sess:      sess,
		sales:     NewSaleService(scope, poster, nil, logger),
		purchases: NewPurchaseService(scope, poster, nil, logger),
		accounts:  ledgerapp.NewAccountService(scope, nil, logger),
		catalog:   catalogapp.NewCatalogService(scope, logger),
		partners:  partnerapp.NewPartnerService(scope, logger),
	}
	f.seedChart(t)
	product := f.product(t, "P-1")
	first := f.receive(t, product, "LOT-1", 15, "1.00", 24*time.Hour)
	second := f.receive(t, product, "LOT-2", 15, "1.00", 48*time.Hour)

	const workers = 20
	var wg sync.WaitGroup
	numbers := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.sales.CreateSale(ctx, sess, CreateSaleRequest{
				PaymentType: "cash",
				Items:       []SaleItemInput{{ProductID: product, Quantity: qty(1), UnitPrice: amt("4.00")}},
			})
			errs[i] = err
			if err == nil {
				numbers[i] = res.Sale.Number
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}
	sort.Strings(numbers)
	for i, n := range numbers {
		assert.Equal(t, fmt.Sprintf("SALE-%04d", i+1), n)
	}

	remaining := f.batch(t, first).AvailableQuantity.Add(f.batch(t, second).AvailableQuantity)
	assert.True(t, remaining.Equal(qty(30-workers)), "remaining %s", remaining)
	f.trialBalanced(t)
}
