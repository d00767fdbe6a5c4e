package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/application/common"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/retail/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRecordedMetrics(t *testing.T) (*telemetry.LedgerMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: provider.Meter("test"),
	})
	require.NoError(t, err)
	return lm, reader
}

// counterTotal sums every data point of the named int64 counter
func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestNewLedgerMetrics(t *testing.T) {
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: noop.NewMeterProvider().Meter("test"),
	})
	require.NoError(t, err)
	assert.NotNil(t, lm)

	var _ common.Metrics = lm
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{})
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.Nil(t, lm)
}

func TestLedgerMetrics_BusinessEvents(t *testing.T) {
	lm, reader := newRecordedMetrics(t)
	ctx := context.Background()
	tenantID := uuid.New()

	lm.DocumentCreated(ctx, tenantID, "sale", valueobject.MustParseAmount("100.00"))
	lm.DocumentCreated(ctx, tenantID, "purchase", valueobject.MustParseAmount("40.00"))
	lm.PaymentRecorded(ctx, tenantID, "sale", valueobject.MustParseAmount("30.00"))
	lm.PostingsCreated(ctx, tenantID, 4)
	lm.PostingsCreated(ctx, tenantID, 0)
	lm.BalancesRecalculated(ctx, tenantID, 9)

	assert.Equal(t, int64(2), counterTotal(t, reader, "retail_documents_created_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "retail_payments_recorded_total"))
	assert.Equal(t, int64(4), counterTotal(t, reader, "retail_postings_created_total"))
	assert.Equal(t, int64(9), counterTotal(t, reader, "retail_balances_recalculated_total"))
}

func TestLedgerMetrics_InstrumentRetryPolicy(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  provider.Meter("test"),
		Logger: zap.New(core),
	})
	require.NoError(t, err)

	errBusy := errors.New("database is locked")
	policy := common.NewRetryPolicy(common.RetryConfig{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		Multiplier:      1,
	}, func(err error) bool { return errors.Is(err, errBusy) })
	lm.Instrument(policy)

	attempts, err := policy.Do(context.Background(), func(context.Context) error { return errBusy })
	require.ErrorIs(t, err, errBusy)
	assert.Equal(t, 3, attempts)

	assert.Equal(t, int64(2), counterTotal(t, reader, "retail_store_retry_attempts_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "retail_store_contention_exhausted_total"))
	assert.Equal(t, 1, recorded.FilterMessage("Store contention persisted after all attempts").Len())
}
