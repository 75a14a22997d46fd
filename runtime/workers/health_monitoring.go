package workers

import (
	"chat-board/contract"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

const DefaultMetricInterval = 30 * time.Second

// HealthMonitoringWorker periodically logs board size and the resource usage of this process.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	board          contract.IBoardStats
	metricInterval time.Duration
	proc           *process.Process
}

func NewHealthMonitoringWorker(log *slog.Logger, board contract.IBoardStats, metricInterval time.Duration) *HealthMonitoringWorker {
	if metricInterval <= 0 {
		metricInterval = DefaultMetricInterval
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process metrics unavailable", "error", err)
	}
	return &HealthMonitoringWorker{
		log:            log,
		board:          board,
		metricInterval: metricInterval,
		proc:           proc,
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			w.report()
		}
	}
}

func (w *HealthMonitoringWorker) report() {
	attrs := []any{
		"members", w.board.Members(),
		"transcript_length", w.board.Len(),
	}
	if w.proc != nil {
		if mem, err := w.proc.MemoryInfo(); err != nil {
			w.log.Debug("Error while finding process memory", "error", err)
		} else {
			attrs = append(attrs, "rss_bytes", mem.RSS)
		}
		if cpu, err := w.proc.CPUPercent(); err != nil {
			w.log.Debug("Error while finding process cpu usage", "error", err)
		} else {
			attrs = append(attrs, "cpu_percent", cpu)
		}
	}
	w.log.Info("Board health", attrs...)
}
