package sink

import (
	"chat-board/contract"
	"chat-board/domain/event"
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// TelemetrySink records one point per board update.
type TelemetrySink struct {
	updates      metric.Int64Counter
	snapshotSize metric.Int64Histogram
}

var _ contract.EventSink = (*TelemetrySink)(nil)

func NewTelemetrySink(meter metric.Meter) (*TelemetrySink, error) {
	updates, err := meter.Int64Counter("board.updates",
		metric.WithDescription("Number of transcript mutations broadcast"))
	if err != nil {
		return nil, fmt.Errorf("board.updates counter: %w", err)
	}
	snapshotSize, err := meter.Int64Histogram("board.snapshot.size",
		metric.WithDescription("Number of messages in each broadcast snapshot"),
		metric.WithUnit("{message}"))
	if err != nil {
		return nil, fmt.Errorf("board.snapshot.size histogram: %w", err)
	}
	return &TelemetrySink{updates: updates, snapshotSize: snapshotSize}, nil
}

func (t *TelemetrySink) Consume(ctx context.Context, e event.DomainEvent) error {
	if evt, ok := e.(event.BoardUpdated); ok {
		t.updates.Add(ctx, 1)
		t.snapshotSize.Record(ctx, int64(len(evt.Messages)))
	}
	return nil
}
