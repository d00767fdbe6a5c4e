package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/retail/backend/internal/infrastructure/config"
	"github.com/retail/backend/internal/infrastructure/logger"
	"github.com/retail/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB     *gorm.DB
	Driver string
}

// Option configures NewDatabase
type Option func(*options)

type options struct {
	logger        *zap.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
	tracing       *telemetry.DBTracingConfig
}

// WithLogger routes GORM logs to l at the given level
func WithLogger(l *zap.Logger, level gormlogger.LogLevel) Option {
	return func(o *options) {
		o.logger = l
		o.logLevel = level
	}
}

// WithSlowThreshold sets the slow SQL warning threshold
func WithSlowThreshold(d time.Duration) Option {
	return func(o *options) {
		o.slowThreshold = d
	}
}

// WithTracing registers otelgorm with the given settings
func WithTracing(cfg telemetry.DBTracingConfig) Option {
	return func(o *options) {
		o.tracing = &cfg
	}
}

// NewDatabase opens a connection for the configured driver
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := &options{logLevel: gormlogger.Silent, slowThreshold: 200 * time.Millisecond}
	for _, opt := range opts {
		opt(o)
	}

	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	gormLog := logger.NewGormLogger(o.logger, o.logLevel,
		logger.WithSlowThreshold(o.slowThreshold),
		logger.WithBusyClassifier(IsStoreBusy),
	)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLog,
		SkipDefaultTransaction: true,
		PrepareStmt:            cfg.Driver != config.DriverSQLite,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if o.tracing != nil {
		tracingCfg := *o.tracing
		tracingCfg.DBSystem = dbSystem(cfg.Driver)
		tracingCfg.Busy = IsStoreBusy
		if err := telemetry.NewDBTracingPlugin(tracingCfg, o.logger).Register(db); err != nil {
			return nil, fmt.Errorf("failed to register database tracing: %w", err)
		}
	}

	return &Database{DB: db, Driver: cfg.Driver}, nil
}

func openDialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		return sqlite.Open(cfg.DSN()), nil
	case config.DriverPostgres:
		return postgres.Open(cfg.DSN()), nil
	case config.DriverMySQL:
		return mysql.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func dbSystem(driver string) string {
	switch driver {
	case config.DriverPostgres:
		return "postgresql"
	case config.DriverMySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

// TxOptions returns the isolation used for units of work on this driver.
// SQLite serializes writers through its immediate write lock.
func (d *Database) TxOptions() *sql.TxOptions {
	if d.Driver == config.DriverSQLite || d.Driver == "" {
		return nil
	}
	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Stats returns database connection pool statistics
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}
