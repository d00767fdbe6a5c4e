package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/application/common"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied.
var ErrMeterNil = errors.New("NewLedgerMetrics: meter cannot be nil")

// LedgerMetrics records document, posting and contention metrics.
type LedgerMetrics struct {
	logger *zap.Logger

	documentsCreated     *Counter
	documentAmount       *Histogram
	paymentsRecorded     *Counter
	postingsCreated      *Counter
	balancesRecalculated *Counter
	retryAttempts        *Counter
	retryDelay           *Histogram
	contentionExhausted  *Counter
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewLedgerMetrics creates the ledger instruments on the given meter.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{logger: logger}
	var err error

	counters := []struct {
		dst              **Counter
		name, desc, unit string
	}{
		{&lm.documentsCreated, "retail_documents_created_total", "Sales and purchases created", "{documents}"},
		{&lm.paymentsRecorded, "retail_payments_recorded_total", "Payments recorded against documents", "{payments}"},
		{&lm.postingsCreated, "retail_postings_created_total", "Double-entry postings written", "{postings}"},
		{&lm.balancesRecalculated, "retail_balances_recalculated_total", "Accounts whose balance was recomputed", "{accounts}"},
		{&lm.retryAttempts, "retail_store_retry_attempts_total", "Units of work retried after store contention", "{attempts}"},
		{&lm.contentionExhausted, "retail_store_contention_exhausted_total", "Units of work that ran out of retry attempts", "{operations}"},
	}
	for _, c := range counters {
		if *c.dst, err = NewCounter(cfg.Meter, c.name, c.desc, c.unit); err != nil {
			return nil, err
		}
	}

	lm.documentAmount, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "retail_document_amount",
		Description: "Document totals",
		Unit:        "{currency}",
		Boundaries:  AmountBuckets,
	})
	if err != nil {
		return nil, err
	}

	lm.retryDelay, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "retail_store_retry_delay_seconds",
		Description: "Backoff waited before a retry",
		Unit:        "s",
		Boundaries:  BackoffBuckets,
	})
	if err != nil {
		return nil, err
	}

	return lm, nil
}

// DocumentCreated implements common.Metrics
func (lm *LedgerMetrics) DocumentCreated(ctx context.Context, tenantID uuid.UUID, docType string, total valueobject.Amount) {
	attrs := []attribute.KeyValue{AttrTenantID.String(tenantID.String()), AttrDocumentType.String(docType)}
	lm.documentsCreated.Inc(ctx, attrs...)
	lm.documentAmount.Record(ctx, total.Decimal().InexactFloat64(), attrs...)
}

// PaymentRecorded implements common.Metrics
func (lm *LedgerMetrics) PaymentRecorded(ctx context.Context, tenantID uuid.UUID, docType string, _ valueobject.Amount) {
	lm.paymentsRecorded.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrDocumentType.String(docType))
}

// PostingsCreated implements common.Metrics
func (lm *LedgerMetrics) PostingsCreated(ctx context.Context, tenantID uuid.UUID, count int) {
	if count <= 0 {
		return
	}
	lm.postingsCreated.Add(ctx, int64(count), AttrTenantID.String(tenantID.String()))
}

// BalancesRecalculated implements common.Metrics
func (lm *LedgerMetrics) BalancesRecalculated(ctx context.Context, tenantID uuid.UUID, accounts int) {
	lm.balancesRecalculated.Add(ctx, int64(accounts), AttrTenantID.String(tenantID.String()))
}

// RetryAttempted matches common.RetryPolicy.OnRetry
func (lm *LedgerMetrics) RetryAttempted(ctx context.Context, attempt int, delay time.Duration, err error) {
	lm.retryAttempts.Inc(ctx, AttrOutcome.String("retry"))
	lm.retryDelay.RecordDuration(ctx, delay)
	lm.logger.Debug("Store busy, retrying",
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
		zap.Error(err),
	)
}

// ContentionExhausted matches common.RetryPolicy.OnExhausted
func (lm *LedgerMetrics) ContentionExhausted(ctx context.Context, attempts int, err error) {
	lm.contentionExhausted.Inc(ctx)
	lm.logger.Warn("Store contention persisted after all attempts",
		zap.Int("attempts", attempts),
		zap.Error(err),
	)
}

// Instrument wires the retry hooks of policy to lm
func (lm *LedgerMetrics) Instrument(policy *common.RetryPolicy) {
	policy.OnRetry = lm.RetryAttempted
	policy.OnExhausted = lm.ContentionExhausted
}

var _ common.Metrics = (*LedgerMetrics)(nil)
