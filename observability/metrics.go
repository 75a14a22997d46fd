package observability

import (
	"chat-board/contract"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const (
	ServiceName           = "chat-board"
	DefaultExportInterval = 10 * time.Second
)

// Shutdown flushes pending points and releases the exporter.
type Shutdown func(ctx context.Context) error

// InitMetrics exports to a rotating metricsFile every interval,
// or returns a no-op meter when metricsFile is empty.
func InitMetrics(metricsFile string, interval time.Duration) (metric.Meter, Shutdown, error) {
	if metricsFile == "" {
		return noop.NewMeterProvider().Meter(ServiceName), func(context.Context) error { return nil }, nil
	}
	if interval <= 0 {
		interval = DefaultExportInterval
	}

	file := newRotatingFile(metricsFile)
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(file))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(resource.NewSchemaless(attribute.String("service.name", ServiceName))),
	)
	shutdown := func(ctx context.Context) error {
		err := provider.Shutdown(ctx)
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		return err
	}
	return provider.Meter(ServiceName), shutdown, nil
}

// RegisterGauges observes the board size and the resident memory of this process.
func RegisterGauges(meter metric.Meter, board contract.IBoardStats) error {
	_, err := meter.Int64ObservableGauge("board.members",
		metric.WithDescription("Number of registered sessions"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(board.Members()))
			return nil
		}))
	if err != nil {
		return fmt.Errorf("board.members gauge: %w", err)
	}

	_, err = meter.Int64ObservableGauge("board.transcript.length",
		metric.WithDescription("Number of messages in the transcript"),
		metric.WithUnit("{message}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(board.Len()))
			return nil
		}))
	if err != nil {
		return fmt.Errorf("board.transcript.length gauge: %w", err)
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return fmt.Errorf("process lookup: %w", err)
	}
	_, err = meter.Int64ObservableGauge("process.rss",
		metric.WithDescription("Resident set size of the board process"),
		metric.WithUnit("By"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			mem, err := proc.MemoryInfo()
			if err != nil {
				return err
			}
			o.Observe(int64(mem.RSS))
			return nil
		}))
	if err != nil {
		return fmt.Errorf("process.rss gauge: %w", err)
	}
	return nil
}
