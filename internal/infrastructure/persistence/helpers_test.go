package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/retail/backend/internal/domain/trade"
	"github.com/retail/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 8,
		MaxIdleConns: 8,
		BusyTimeout:  5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(context.Background(), db.DB))
	return db
}

func createProduct(t *testing.T, db *Database, tenantID uuid.UUID, code string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(tenantID, code, "Product "+code, "pcs")
	require.NoError(t, err)
	require.NoError(t, NewGormProductRepository(db.DB).Create(context.Background(), p))
	return p
}

func createBatch(t *testing.T, db *Database, tenantID, productID uuid.UUID, number string, qty int64, expiry *time.Time) *inventory.Batch {
	t.Helper()
	b, err := inventory.NewBatch(tenantID, productID, number, decimal.NewFromInt(qty),
		valueobject.MustParseAmount("2.00"), nil, expiry, nil)
	require.NoError(t, err)
	require.NoError(t, NewGormBatchRepository(db.DB).Create(context.Background(), b))
	return b
}

func createSale(t *testing.T, db *Database, tenantID uuid.UUID, number string, lines ...trade.SaleLine) *trade.Sale {
	t.Helper()
	s, err := trade.NewSale(tenantID, number, nil, trade.PaymentTypeCash, lines, "")
	require.NoError(t, err)
	require.NoError(t, NewGormSaleRepository(db.DB).Create(context.Background(), s))
	return s
}

func saleLine(productID, batchID uuid.UUID, qty int64, price string) trade.SaleLine {
	return trade.SaleLine{
		ProductID: productID,
		BatchID:   batchID,
		Quantity:  decimal.NewFromInt(qty),
		UnitPrice: valueobject.MustParseAmount(price),
		UnitCost:  valueobject.MustParseAmount("2.00"),
	}
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
