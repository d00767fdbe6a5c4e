package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/application/common"
	ledgerapp "github.com/retail/backend/internal/application/ledger"
	"github.com/retail/backend/internal/domain/ledger"
	"github.com/retail/backend/internal/infrastructure/config"
	"github.com/retail/backend/internal/infrastructure/logger"
	"github.com/retail/backend/internal/infrastructure/persistence"
	"github.com/retail/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	var (
		tenant   string
		logLevel string
		asJSON   bool
	)

	flag.StringVar(&tenant, "tenant", "", "Tenant ID (required for seed, recalculate and trial-balance)")
	flag.StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	flag.BoolVar(&asJSON, "json", false, "Print results as JSON")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, command, tenant, asJSON); err != nil {
		log.Error("Command failed", zap.String("command", command), zap.Error(err))
		stop()
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, command, tenant string, asJSON bool) error {
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		ExportInterval:    cfg.Telemetry.ExportInterval,
	}
	tracer, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	meters, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meters.Shutdown(shutdownCtx); err != nil {
			log.Warn("Metrics shutdown failed", zap.Error(err))
		}
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			log.Warn("Tracing shutdown failed", zap.Error(err))
		}
	}()

	dbOpts := []persistence.Option{
		persistence.WithLogger(log, logger.MapGormLogLevel(cfg.Log.Level)),
	}
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		dbOpts = append(dbOpts, persistence.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.DefaultDBTracingConfig()
		dbTracing.Enabled = true
		dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
		if cfg.Telemetry.DBSlowQueryThresh > 0 {
			dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		}
		dbOpts = append(dbOpts, persistence.WithTracing(dbTracing))
	}

	db, err := persistence.NewDatabase(&cfg.Database, dbOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Driver))

	if command == "migrate" {
		if err := persistence.Migrate(ctx, db.DB); err != nil {
			return err
		}
		log.Info("Schema migrated", zap.Int("models", len(persistence.Models())))
		return nil
	}

	metrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  meters.Meter("retail-ledger"),
		Logger: log,
	})
	if err != nil {
		return err
	}
	policy := common.NewRetryPolicy(common.RetryConfig{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
		Multiplier:      cfg.Retry.Multiplier,
		Jitter:          cfg.Retry.Jitter,
	}, persistence.IsStoreBusy)
	metrics.Instrument(policy)

	scope := persistence.NewScopeForDatabase(db, policy, log)
	accounts := ledgerapp.NewAccountService(scope, metrics, log)

	sess, err := newSession(cfg.Ledger, tenant)
	if err != nil {
		return err
	}

	switch command {
	case "seed":
		res, err := accounts.SeedChart(ctx, sess)
		if err != nil {
			return err
		}
		return report(asJSON, res, func() {
			fmt.Printf("Created %d accounts, %d already present\n", len(res.Created), len(res.Existing))
			for _, code := range res.Created {
				fmt.Println("  +", code)
			}
		})
	case "recalculate":
		res, err := accounts.RecalculateBalances(ctx, sess)
		if err != nil {
			return err
		}
		return report(asJSON, res, func() {
			fmt.Printf("Replayed %d transactions over %d accounts, %d balances changed\n",
				res.Transactions, res.Accounts, res.Changed)
		})
	case "trial-balance":
		res, err := accounts.TrialBalance(ctx, sess)
		if err != nil {
			return err
		}
		return report(asJSON, res, func() {
			for _, line := range res.Lines {
				fmt.Printf("%-8s %-28s %-10s %14s\n", line.Code, line.Name, line.Type, line.Balance)
			}
			fmt.Printf("\nPostings: %d  debits %s  credits %s\n", res.Transactions, res.TotalDebits, res.TotalCredits)
			fmt.Printf("Balances: debit-normal %s  credit-normal %s  balanced=%t\n",
				res.DebitBalances, res.CreditBalances, res.Balanced)
		})
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// newSession builds the tenant session from the ledger defaults in config
func newSession(cfg config.LedgerConfig, tenant string) (*common.Session, error) {
	if tenant == "" {
		return nil, fmt.Errorf("-tenant is required")
	}
	tenantID, err := uuid.Parse(tenant)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID %q: %w", tenant, err)
	}
	costing, err := ledger.NewCostingStrategy(cfg.Costing, decimal.NewFromFloat(cfg.COGSRatio))
	if err != nil {
		return nil, err
	}
	mapping := ledger.DefaultAccountMapping().Merge(cfg.Accounts)
	return common.NewSession(tenantID, mapping, costing)
}

func report(asJSON bool, v any, text func()) error {
	if !asJSON {
		text()
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage() {
	fmt.Println(`Retail ledger maintenance tool

Usage:
  ledgerctl [flags] <command>

Commands:
  migrate         Create or update the schema
  seed            Create the chart accounts the tenant is missing
  recalculate     Rebuild every account balance from its postings
  trial-balance   Print balances and check that the ledger is balanced

Flags:
  -tenant      Tenant ID
  -log-level   Log level override
  -json        Print results as JSON

Configuration is read from config.toml, .env and RETAIL_* environment variables.`)
}
