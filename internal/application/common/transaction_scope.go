package common

import (
	"context"

	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/ledger"
	"github.com/retail/backend/internal/domain/partner"
	"github.com/retail/backend/internal/domain/sequence"
	"github.com/retail/backend/internal/domain/trade"
)

// TransactionScope runs a unit of work atomically.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
// Implementations retry the whole function when the store reports it is busy,
// so fn must not carry state from one attempt into the next.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// Sequences is only reachable from here: numbers are always read inside the
// transaction that inserts the document consuming them.
type TransactionalRepositories interface {
	Accounts() ledger.AccountRepository
	Transactions() ledger.TransactionRepository
	Batches() inventory.BatchRepository
	Sales() trade.SaleRepository
	Purchases() trade.PurchaseRepository
	Payments() trade.PaymentRepository
	Products() catalog.ProductRepository
	Counterparts() partner.CounterpartRepository
	Sequences() sequence.Generator
}
