package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/sequence"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// seriesTables maps each series to the table holding its numbers
var seriesTables = map[sequence.Series]string{
	sequence.SeriesSale:        "sales",
	sequence.SeriesPurchase:    "purchases",
	sequence.SeriesTransaction: "transactions",
}

const sequenceSavePoint = "sequence_max"

// integerCastType is the CAST target for an integer in the connected dialect
func integerCastType(db *gorm.DB) string {
	if db.Dialector != nil && db.Dialector.Name() == "mysql" {
		return "SIGNED"
	}
	return "INTEGER"
}

// gormSequenceGenerator reads the current maximum of a series from the
// documents themselves. It is only constructed from an open transaction by
// the transaction scope, so the read and the insert consuming the number
// always share one unit of work.
type gormSequenceGenerator struct {
	tx     *gorm.DB
	logger *zap.Logger
}

func newGormSequenceGenerator(tx *gorm.DB, logger *zap.Logger) *gormSequenceGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &gormSequenceGenerator{tx: tx, logger: logger}
}

// Next returns the next number in the series
func (g *gormSequenceGenerator) Next(ctx context.Context, tenantID uuid.UUID, series sequence.Series) (string, error) {
	numbers, err := g.Reserve(ctx, tenantID, series, 1)
	if err != nil {
		return "", err
	}
	return numbers[0], nil
}

// Reserve returns count consecutive numbers from a single read of the maximum
func (g *gormSequenceGenerator) Reserve(ctx context.Context, tenantID uuid.UUID, series sequence.Series, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	table, ok := seriesTables[series]
	if !ok {
		return nil, fmt.Errorf("unknown sequence series %q", series)
	}

	current, err := g.guardedMaxSuffix(ctx, table, tenantID, series)
	if err != nil {
		g.logger.Warn("Sequence aggregate query failed, falling back to latest document",
			zap.String("series", string(series)),
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		current, err = g.latestSuffix(ctx, table, tenantID, series)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s sequence: %w", series, err)
		}
	}

	return sequence.Range(series, current+1, count), nil
}

// guardedMaxSuffix runs maxSuffix behind a savepoint when g.tx is a real
// transaction. Postgres aborts the whole transaction on a failed statement,
// so the fallback query could not run otherwise.
func (g *gormSequenceGenerator) guardedMaxSuffix(ctx context.Context, table string, tenantID uuid.UUID, series sequence.Series) (int64, error) {
	if _, inTx := g.tx.Statement.ConnPool.(gorm.TxCommitter); !inTx {
		return g.maxSuffix(ctx, table, tenantID, series)
	}
	tx := g.tx.WithContext(ctx)
	if err := tx.SavePoint(sequenceSavePoint).Error; err != nil {
		return 0, fmt.Errorf("failed to create savepoint: %w", err)
	}
	current, err := g.maxSuffix(ctx, table, tenantID, series)
	if err != nil {
		if rbErr := tx.RollbackTo(sequenceSavePoint).Error; rbErr != nil {
			return 0, fmt.Errorf("%w (rollback to savepoint: %v)", err, rbErr)
		}
		return 0, err
	}
	return current, nil
}

// maxSuffix returns the largest numeric suffix in the series, or 0
func (g *gormSequenceGenerator) maxSuffix(ctx context.Context, table string, tenantID uuid.UUID, series sequence.Series) (int64, error) {
	prefix := series.Prefix()
	var current sql.NullInt64
	row := g.tx.WithContext(ctx).
		Table(table).
		Select("MAX(CAST(SUBSTR(number, ?) AS "+integerCastType(g.tx)+"))", len(prefix)+1).
		Where("tenant_id = ? AND number LIKE ?", tenantID, prefix+"%").
		Row()
	if err := row.Scan(&current); err != nil {
		return 0, err
	}
	if !current.Valid {
		return 0, nil
	}
	return current.Int64, nil
}

// latestSuffix parses the suffix of the most recently created document in the series, or 0
func (g *gormSequenceGenerator) latestSuffix(ctx context.Context, table string, tenantID uuid.UUID, series sequence.Series) (int64, error) {
	var numbers []string
	err := g.tx.WithContext(ctx).
		Table(table).
		Where("tenant_id = ? AND number LIKE ?", tenantID, series.Prefix()+"%").
		Order("created_at DESC").
		Order("number DESC").
		Limit(1).
		Pluck("number", &numbers).Error
	if err != nil {
		return 0, err
	}
	if len(numbers) == 0 {
		return 0, nil
	}
	return sequence.ParseSuffix(series, numbers[0])
}

var _ sequence.Generator = (*gormSequenceGenerator)(nil)
