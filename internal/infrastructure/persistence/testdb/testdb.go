// Package testdb opens migrated SQLite databases for tests.
package testdb

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/retail/backend/internal/application/common"
	"github.com/retail/backend/internal/infrastructure/config"
	"github.com/retail/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Open creates a file-backed SQLite database in a temp dir and migrates it.
// A file is used rather than :memory: so that every pooled connection sees
// the same database.
func Open(t testing.TB) *persistence.Database {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 8,
		MaxIdleConns: 8,
		BusyTimeout:  5 * time.Second,
	}
	db, err := persistence.NewDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, persistence.Migrate(context.Background(), db.DB))
	return db
}

// FastRetry is a retry policy with millisecond delays for tests
func FastRetry(attempts int) *common.RetryPolicy {
	return common.NewRetryPolicy(common.RetryConfig{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
		Jitter:          0.5,
	}, persistence.IsStoreBusy)
}

// Scope returns a transaction scope over db using policy
func Scope(db *persistence.Database, policy *common.RetryPolicy) *persistence.GormTransactionScope {
	return persistence.NewScopeForDatabase(db, policy, zap.NewNop())
}

// FailInserts makes inserts into table fail with SQLITE_BUSY whenever fail
// returns true. fail is called once per insert into table.
func FailInserts(t testing.TB, db *persistence.Database, table string, fail func() bool) {
	t.Helper()
	err := db.DB.Callback().Create().Before("gorm:create").Register("testdb:fail_inserts", func(tx *gorm.DB) {
		if tx.Statement.Table == table && fail() {
			_ = tx.AddError(sqlite3.Error{Code: sqlite3.ErrBusy})
		}
	})
	require.NoError(t, err)
}

// EveryNth returns a predicate that is true on every nth call
func EveryNth(n int64) func() bool {
	var calls atomic.Int64
	return func() bool {
		return calls.Add(1)%n == 0
	}
}
