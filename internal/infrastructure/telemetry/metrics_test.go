package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/retail/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.Config{
		Enabled:     false,
		ServiceName: "test-service",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestCounter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	c, err := telemetry.NewCounter(meter, "test_total", "Test counter", "{items}")
	require.NoError(t, err)

	ctx := context.Background()
	c.Inc(ctx)
	c.Add(ctx, 4, telemetry.AttrDocumentType.String("sale"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	sum := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(5), total)
	assert.Len(t, sum.DataPoints, 2, "attribute sets are tracked separately")
}

func TestHistogram(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	h, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:       "test_delay_seconds",
		Unit:       "s",
		Boundaries: telemetry.BackoffBuckets,
	})
	require.NoError(t, err)

	ctx := context.Background()
	h.RecordDuration(ctx, 20*time.Millisecond)
	h.Record(ctx, 0.5)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	hist := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Histogram[float64])
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.Equal(t, telemetry.BackoffBuckets, hist.DataPoints[0].Bounds)
}

func TestNewHistogram_NoopMeter(t *testing.T) {
	h, err := telemetry.NewHistogram(noop.NewMeterProvider().Meter("test"), telemetry.HistogramOpts{Name: "x"})
	require.NoError(t, err)
	assert.NotPanics(t, func() { h.Record(context.Background(), 1) })
}
