package sink

import (
	"chat-board/domain/event"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestTelemetrySink_RecordsUpdates(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(ctx)

	telemetry, err := NewTelemetrySink(provider.Meter("test"))
	req.NoError(err)

	// When three updates are consumed
	req.NoError(telemetry.Consume(ctx, updated(1)))
	req.NoError(telemetry.Consume(ctx, updated(3)))
	req.NoError(telemetry.Consume(ctx, event.BoardUpdated{}))

	// Then the counter reflects them
	var rm metricdata.ResourceMetrics
	req.NoError(reader.Collect(ctx, &rm))
	req.Len(rm.ScopeMetrics, 1)

	found := false
	for _, m := range rm.ScopeMetrics[0].Metrics {
		if m.Name != "board.updates" {
			continue
		}
		sum, ok := m.Data.(metricdata.Sum[int64])
		req.True(ok)
		req.Len(sum.DataPoints, 1)
		req.Equal(int64(3), sum.DataPoints[0].Value)
		found = true
	}
	req.True(found)
}
