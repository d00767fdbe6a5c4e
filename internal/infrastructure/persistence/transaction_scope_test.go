package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/retail/backend/internal/application/common"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/sequence"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func fastPolicy(attempts int) *common.RetryPolicy {
	return common.NewRetryPolicy(common.RetryConfig{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
	}, IsStoreBusy)
}

// injectBusy fails inserts into table with SQLITE_BUSY while fail returns true
func injectBusy(t *testing.T, db *gorm.DB, table string, fail func() bool) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:inject_busy", func(tx *gorm.DB) {
		if tx.Statement.Table == table && fail() {
			_ = tx.AddError(sqlite3.Error{Code: sqlite3.ErrBusy})
		}
	})
	require.NoError(t, err)
}

func countProducts(t *testing.T, db *gorm.DB, tenantID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&catalog.Product{}).Where("tenant_id = ?", tenantID).Count(&n).Error)
	return n
}

func TestGormTransactionScope_Commit(t *testing.T) {
	db := newTestDatabase(t)
	scope := NewScopeForDatabase(db, fastPolicy(3), nil)
	tenantID := uuid.New()

	err := scope.Execute(context.Background(), func(repos common.TransactionalRepositories) error {
		p, err := catalog.NewProduct(tenantID, "P-1", "Milk", "l")
		if err != nil {
			return err
		}
		return repos.Products().Create(context.Background(), p)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countProducts(t, db.DB, tenantID))
}

func TestGormTransactionScope_RollbackOnError(t *testing.T) {
	db := newTestDatabase(t)
	scope := NewScopeForDatabase(db, fastPolicy(3), nil)
	tenantID := uuid.New()
	errBoom := errors.New("boom")
	var calls int

	err := scope.Execute(context.Background(), func(repos common.TransactionalRepositories) error {
		calls++
		p, _ := catalog.NewProduct(tenantID, "P-1", "Milk", "l")
		if err := repos.Products().Create(context.Background(), p); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls, "non-transient errors are not retried")
	assert.Zero(t, countProducts(t, db.DB, tenantID))
}

func TestGormTransactionScope_RetriesBusyStore(t *testing.T) {
	db := newTestDatabase(t)
	var failures atomic.Int32
	failures.Store(2)
	injectBusy(t, db.DB, "products", func() bool { return failures.Add(-1) >= 0 })

	scope := NewScopeForDatabase(db, fastPolicy(5), nil)
	tenantID := uuid.New()
	var calls int

	err := scope.Execute(context.Background(), func(repos common.TransactionalRepositories) error {
		calls++
		p, err := catalog.NewProduct(tenantID, fmt.Sprintf("P-%d", calls), "Milk", "l")
		if err != nil {
			return err
		}
		return repos.Products().Create(context.Background(), p)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, int64(1), countProducts(t, db.DB, tenantID), "failed attempts leave nothing behind")
}

func TestGormTransactionScope_ContentionExhausted(t *testing.T) {
	db := newTestDatabase(t)
	injectBusy(t, db.DB, "products", func() bool { return true })
	scope := NewScopeForDatabase(db, fastPolicy(4), nil)
	var calls int

	err := scope.Execute(context.Background(), func(repos common.TransactionalRepositories) error {
		calls++
		p, _ := catalog.NewProduct(uuid.New(), "P-1", "Milk", "l")
		return repos.Products().Create(context.Background(), p)
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrStoreContention))
	assert.Equal(t, shared.KindOf(shared.ErrStoreContention), shared.KindOf(err))
	assert.Equal(t, 4, calls)
}

func TestGormTransactionScope_ConcurrentNumbering(t *testing.T) {
	db := newTestDatabase(t)
	tenantID := uuid.New()
	product := createProduct(t, db, tenantID, "P-1")
	batch := createBatch(t, db, tenantID, product.ID, "B-1", 1000, nil)
	scope := NewScopeForDatabase(db, fastPolicy(20), nil)

	const workers = 12
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- scope.Execute(context.Background(), func(repos common.TransactionalRepositories) error {
				ctx := context.Background()
				number, err := repos.Sequences().Next(ctx, tenantID, sequence.SeriesSale)
				if err != nil {
					return err
				}
				sale, err := trade.NewSale(tenantID, number, nil, trade.PaymentTypeCash,
					[]trade.SaleLine{saleLine(product.ID, batch.ID, 1, "1.00")}, "")
				if err != nil {
					return err
				}
				return repos.Sales().Create(ctx, sale)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	sales, err := NewGormSaleRepository(db.DB).FindAll(context.Background(), tenantID)
	require.NoError(t, err)
	numbers := make([]string, 0, len(sales))
	for _, s := range sales {
		numbers = append(numbers, s.Number)
	}
	sort.Strings(numbers)
	assert.Equal(t, sequence.Range(sequence.SeriesSale, 1, workers), numbers, "numbers are gap-free and unique")
}
