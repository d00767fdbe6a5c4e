package persistence

import (
	"context"
	"database/sql"

	"github.com/retail/backend/internal/application/common"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/ledger"
	"github.com/retail/backend/internal/domain/partner"
	"github.com/retail/backend/internal/domain/sequence"
	"github.com/retail/backend/internal/domain/trade"
	"github.com/retail/backend/internal/infrastructure/logger"
	"github.com/retail/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// A unit of work that fails because the store is busy is rolled back and run
// again from the start under the retry policy.
type GormTransactionScope struct {
	db     *gorm.DB
	policy *common.RetryPolicy
	txOpts *sql.TxOptions
	logger *zap.Logger
}

// ScopeOption configures a GormTransactionScope
type ScopeOption func(*GormTransactionScope)

// WithTxOptions sets the isolation used for each attempt
func WithTxOptions(opts *sql.TxOptions) ScopeOption {
	return func(s *GormTransactionScope) {
		s.txOpts = opts
	}
}

// WithScopeLogger sets the logger handed to the sequence generator and used for retry logs
func WithScopeLogger(l *zap.Logger) ScopeOption {
	return func(s *GormTransactionScope) {
		s.logger = l
	}
}

// NewGormTransactionScope creates a new GormTransactionScope.
// A nil policy retries store contention with the default settings.
func NewGormTransactionScope(db *gorm.DB, policy *common.RetryPolicy, opts ...ScopeOption) *GormTransactionScope {
	if policy == nil {
		policy = common.NewRetryPolicy(common.DefaultRetryConfig(), IsStoreBusy)
	}
	s := &GormTransactionScope{db: db, policy: policy, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// NewScopeForDatabase builds a scope with the isolation suited to the database driver
func NewScopeForDatabase(d *Database, policy *common.RetryPolicy, logger *zap.Logger) *GormTransactionScope {
	return NewGormTransactionScope(d.DB, policy, WithTxOptions(d.TxOptions()), WithScopeLogger(logger))
}

// Execute runs fn within a database transaction, retrying on store contention
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos common.TransactionalRepositories) error) error {
	ctx, span := telemetry.StartSpan(ctx, "unit_of_work")
	defer span.End()

	attempts, err := s.policy.Do(ctx, func(ctx context.Context) error {
		return s.transaction(ctx, func(tx *gorm.DB) error {
			return fn(&gormTransactionalRepositories{tx: tx, logger: s.logger})
		})
	})
	telemetry.SetAttributes(span, telemetry.SpanAttrAttempts, attempts)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if attempts > 1 {
		logger.For(ctx, s.logger).Debug("Unit of work committed after retries", zap.Int("attempts", attempts))
	}
	return nil
}

func (s *GormTransactionScope) transaction(ctx context.Context, fc func(tx *gorm.DB) error) error {
	db := s.db.WithContext(ctx)
	if s.txOpts != nil {
		return db.Transaction(fc, s.txOpts)
	}
	return db.Transaction(fc)
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx     *gorm.DB
	logger *zap.Logger
}

func (r *gormTransactionalRepositories) Accounts() ledger.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormTransactionalRepositories) Transactions() ledger.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

func (r *gormTransactionalRepositories) Batches() inventory.BatchRepository {
	return NewGormBatchRepository(r.tx)
}

func (r *gormTransactionalRepositories) Sales() trade.SaleRepository {
	return NewGormSaleRepository(r.tx)
}

func (r *gormTransactionalRepositories) Purchases() trade.PurchaseRepository {
	return NewGormPurchaseRepository(r.tx)
}

func (r *gormTransactionalRepositories) Payments() trade.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) Counterparts() partner.CounterpartRepository {
	return NewGormCounterpartRepository(r.tx)
}

// Sequences returns a generator bound to the current transaction
func (r *gormTransactionalRepositories) Sequences() sequence.Generator {
	return newGormSequenceGenerator(r.tx, r.logger)
}

var _ common.TransactionScope = (*GormTransactionScope)(nil)

var _ common.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
