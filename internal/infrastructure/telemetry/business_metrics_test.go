package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

func TestNewBusinessMetrics(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	bm, err := telemetry.NewBusinessMetrics(meter)

	require.NoError(t, err)
	require.NotNil(t, bm)
}

func TestBusinessMetrics_RecordMethods(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	bm, err := telemetry.NewBusinessMetrics(meter)
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	bm.RecordProcessingOutcome(ctx, "completed")
	bm.RecordProcessingOutcome(ctx, "error")
	bm.RecordProcessingDuration(ctx, 1500*time.Millisecond, "completed")
	bm.RecordReconciliationMismatch(ctx, "blocking")
	bm.RecordNotificationFailure(ctx, "approval_required")
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled: false,
	}, zap.NewNop())

	require.NoError(t, err)
	require.NotNil(t, mp)
	require.False(t, mp.IsEnabled())
	require.NotNil(t, mp.Meter("test"))
	require.NoError(t, mp.Shutdown(context.Background()))
}
