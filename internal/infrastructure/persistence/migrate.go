package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/ledger"
	"github.com/retail/backend/internal/domain/partner"
	"github.com/retail/backend/internal/domain/trade"
	"gorm.io/gorm"
)

// Models lists every persisted entity in dependency order
func Models() []any {
	return []any{
		&catalog.Product{},
		&partner.Counterpart{},
		&ledger.Account{},
		&trade.Purchase{},
		&trade.PurchaseItem{},
		&inventory.Batch{},
		&trade.Sale{},
		&trade.SaleItem{},
		&trade.Payment{},
		&ledger.Transaction{},
	}
}

type uniqueIndex struct {
	table   string
	name    string
	columns []string
}

// tenant-scoped uniqueness the store enforces in addition to the use case checks
var uniqueIndexes = []uniqueIndex{
	{"accounts", "idx_accounts_tenant_code", []string{"tenant_id", "code"}},
	{"products", "idx_products_tenant_code", []string{"tenant_id", "code"}},
	{"batches", "idx_batches_tenant_product_number", []string{"tenant_id", "product_id", "batch_number"}},
	{"sales", "idx_sales_tenant_number", []string{"tenant_id", "number"}},
	{"purchases", "idx_purchases_tenant_number", []string{"tenant_id", "number"}},
	{"transactions", "idx_transactions_tenant_number", []string{"tenant_id", "number"}},
}

// Migrate creates or updates the schema
func Migrate(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	m := db.Migrator()
	for _, idx := range uniqueIndexes {
		if m.HasIndex(idx.table, idx.name) {
			continue
		}
		stmt := fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)", idx.name, idx.table, strings.Join(idx.columns, ", "))
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}
