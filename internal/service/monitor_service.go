package service

import (
	"context"
	"runtime"
	"runtime/metrics"
	"sync"
	"time"

	"go.uber.org/zap"

	promMetrics "github.com/yourorg/stock-forecast/internal/metrics"
	"github.com/yourorg/stock-forecast/internal/model"
	"github.com/yourorg/stock-forecast/internal/repository"
)

const (
	cpuTotalMetric = "/cpu/classes/total:cpu-seconds"
	cpuIdleMetric  = "/cpu/classes/idle:cpu-seconds"
)

// PredictionRecorder receives the outcome of every prediction
type PredictionRecorder interface {
	RecordPrediction(ctx context.Context, ticker string, prediction float64, latency time.Duration)
	RecordError(reason string)
}

// NoopRecorder discards prediction outcomes
type NoopRecorder struct{}

func (NoopRecorder) RecordPrediction(context.Context, string, float64, time.Duration) {}
func (NoopRecorder) RecordError(string)                                              {}

// MonitorService samples process resources and keeps the prediction log
type MonitorService struct {
	logs   *repository.PredictionLogRepository
	logger *zap.Logger

	mu        sync.Mutex
	lastTotal float64
	lastIdle  float64
}

// NewMonitorService creates a new monitor service. logs may be nil to skip persistence.
func NewMonitorService(logs *repository.PredictionLogRepository, logger *zap.Logger) *MonitorService {
	s := &MonitorService{
		logs:   logs,
		logger: logger,
	}
	s.lastTotal, s.lastIdle = readCPU()
	return s
}

// ResourceUsage samples memory, CPU and goroutines and updates the gauges.
// CPU usage is the busy share of the runtime's CPU time since the previous sample.
func (s *MonitorService) ResourceUsage() model.ResourceUsage {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	total, idle := readCPU()
	s.mu.Lock()
	dTotal, dIdle := total-s.lastTotal, idle-s.lastIdle
	s.lastTotal, s.lastIdle = total, idle
	s.mu.Unlock()

	var cpu float64
	if dTotal > 0 {
		cpu = (dTotal - dIdle) / dTotal * 100
		cpu = min(max(cpu, 0), 100)
	}

	promMetrics.MemoryUsage.Set(float64(mem.Sys))
	promMetrics.CPUUsage.Set(cpu)

	return model.ResourceUsage{
		MemoryUsage: mem.Sys,
		HeapAlloc:   mem.HeapAlloc,
		CPUUsage:    cpu,
		Goroutines:  runtime.NumGoroutine(),
		CPUCores:    runtime.NumCPU(),
	}
}

// RecordPrediction updates the prediction collectors and stores a log row
func (s *MonitorService) RecordPrediction(ctx context.Context, ticker string, prediction float64, latency time.Duration) {
	usage := s.ResourceUsage()
	promMetrics.PredictionLatency.Observe(latency.Seconds())
	promMetrics.PredictionsTotal.WithLabelValues(ticker).Inc()

	if s.logs == nil {
		return
	}
	_, err := s.logs.Insert(ctx, &model.PredictionLog{
		Timestamp:   time.Now(),
		Ticker:      ticker,
		Prediction:  prediction,
		Latency:     latency.Seconds(),
		MemoryUsage: usage.MemoryUsage,
		CPUUsage:    usage.CPUUsage,
	})
	if err != nil {
		s.logger.Warn("Failed to store prediction log", zap.String("ticker", ticker), zap.Error(err))
	}
}

// RecordError counts a failed prediction
func (s *MonitorService) RecordError(reason string) {
	promMetrics.PredictionErrors.WithLabelValues(reason).Inc()
}

// PerformanceMetrics aggregates the prediction log
func (s *MonitorService) PerformanceMetrics(ctx context.Context) (*model.PerformanceMetrics, error) {
	if s.logs == nil {
		return &model.PerformanceMetrics{Timestamp: time.Now()}, nil
	}
	return s.logs.Summary(ctx)
}

// RecordActual stores the realised close against the newest pending prediction of ticker
// and returns the id of the updated log
func (s *MonitorService) RecordActual(ctx context.Context, ticker string, actual float64) (int64, error) {
	if s.logs == nil {
		return 0, model.ErrNoPendingPrediction
	}
	id, err := s.logs.LatestPending(ctx, ticker)
	if err != nil {
		return 0, err
	}
	if err := s.logs.UpdateActualValue(ctx, id, actual); err != nil {
		return 0, err
	}
	s.logger.Info("Actual value recorded", zap.String("ticker", ticker), zap.Int64("id", id), zap.Float64("actual", actual))
	return id, nil
}

// Run refreshes the resource gauges every interval until ctx is done
func (s *MonitorService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ResourceUsage()
		}
	}
}

func readCPU() (total, idle float64) {
	samples := []metrics.Sample{{Name: cpuTotalMetric}, {Name: cpuIdleMetric}}
	metrics.Read(samples)
	if samples[0].Value.Kind() == metrics.KindFloat64 {
		total = samples[0].Value.Float64()
	}
	if samples[1].Value.Kind() == metrics.KindFloat64 {
		idle = samples[1].Value.Float64()
	}
	return total, idle
}
