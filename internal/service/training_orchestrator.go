package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/events"
	"github.com/yourorg/stock-forecast/internal/metrics"
	"github.com/yourorg/stock-forecast/internal/model"
	"github.com/yourorg/stock-forecast/internal/utils"
)

// eventTimeout bounds a lifecycle event publish
const eventTimeout = 5 * time.Second

var (
	// errCancelled is recorded when a running job is cancelled on request
	errCancelled = errors.New("training cancelled")
	errNoResult  = errors.New("trainer returned no result")
)

// Trainer runs one training job
type Trainer interface {
	Defaults(req model.TrainRequest) model.TrainRequest
	Train(ctx context.Context, req model.TrainRequest, progress ProgressFunc) (*model.TrainingResult, error)
}

// TrainingOrchestrator runs at most one training job in the background and
// keeps the status record clients poll
type TrainingOrchestrator struct {
	trainer   Trainer
	publisher events.Publisher
	timeout   time.Duration
	logger    *zap.Logger

	mu     sync.Mutex
	status model.TrainingStatus
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// NewTrainingOrchestrator creates a new orchestrator. A zero timeout means no limit.
func NewTrainingOrchestrator(trainer Trainer, publisher events.Publisher, timeout time.Duration, logger *zap.Logger) *TrainingOrchestrator {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &TrainingOrchestrator{
		trainer:   trainer,
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
		status:    model.TrainingStatus{State: model.TrainingIdle},
	}
}

// Start launches a training job unless one is already running
func (o *TrainingOrchestrator) Start(req model.TrainRequest) (time.Time, error) {
	o.mu.Lock()
	if o.status.IsRunning {
		running := *o.status.StartTime
		o.mu.Unlock()
		return running, &model.TrainingInProgressError{StartTime: running}
	}

	req = o.trainer.Defaults(req)
	start := time.Now()
	o.status = model.TrainingStatus{
		State:     model.TrainingRunning,
		IsRunning: true,
		StartTime: &start,
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	stopTimer := context.CancelFunc(func() {})
	if o.timeout > 0 {
		ctx, stopTimer = context.WithTimeout(ctx, o.timeout)
	}
	o.cancel = cancel
	done := make(chan struct{})
	o.done = done
	o.mu.Unlock()

	o.logger.Info("Training started",
		zap.String("ticker", req.Ticker),
		zap.Int("epochs", req.Epochs),
		zap.Time("start_time", start))

	go func() {
		defer close(done)
		defer stopTimer()
		defer cancel(nil)
		o.publish(model.TrainingEvent{Type: model.EventTrainingStarted, Ticker: req.Ticker, StartTime: start})
		o.run(ctx, req, start)
	}()
	return start, nil
}

func (o *TrainingOrchestrator) run(ctx context.Context, req model.TrainRequest, start time.Time) {
	result, err := o.trainer.Train(ctx, req, o.setProgress)
	if err == nil && result == nil {
		err = errNoResult
	}
	if err != nil && ctx.Err() != nil {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(err, cause) {
			err = cause
		}
	}

	end := time.Now()
	event := model.TrainingEvent{Ticker: req.Ticker, StartTime: start, EndTime: &end}

	o.mu.Lock()
	progress := o.status.Progress
	if err != nil {
		o.status = model.TrainingStatus{
			State:     model.TrainingFailed,
			StartTime: &start,
			EndTime:   &end,
			Error:     err.Error(),
			Progress:  progress,
		}
	} else {
		o.status = model.TrainingStatus{
			State:     model.TrainingSucceeded,
			StartTime: &start,
			EndTime:   &end,
			RunID:     result.RunID,
			Metrics: &model.MetricsSummary{
				Train: utils.MetricsSummary(result.Metrics.TrainMAE, result.Metrics.TrainRMSE),
				Test:  utils.MetricsSummary(result.Metrics.TestMAE, result.Metrics.TestRMSE),
			},
			Progress: progress,
		}
	}
	o.cancel = nil
	o.mu.Unlock()

	metrics.TrainingDuration.Observe(end.Sub(start).Seconds())
	if err != nil {
		metrics.TrainingRuns.WithLabelValues(string(model.TrainingFailed)).Inc()
		o.logger.Error("Training failed", zap.String("ticker", req.Ticker), zap.Error(err))
		event.Type = model.EventTrainingFailed
		event.Error = err.Error()
	} else {
		metrics.TrainingRuns.WithLabelValues(string(model.TrainingSucceeded)).Inc()
		o.logger.Info("Training succeeded", zap.String("ticker", req.Ticker), zap.String("run_id", result.RunID))
		event.Type = model.EventTrainingSucceeded
		event.RunID = result.RunID
		event.Metrics = &result.Metrics
	}
	o.publish(event)
}

func (o *TrainingOrchestrator) setProgress(p model.TrainingProgress) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status.IsRunning {
		o.status.Progress = &p
	}
}

// Status returns a copy of the status record
func (o *TrainingOrchestrator) Status() model.TrainingStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.status
	if s.StartTime != nil {
		t := *s.StartTime
		s.StartTime = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		s.EndTime = &t
	}
	if s.Metrics != nil {
		m := *s.Metrics
		s.Metrics = &m
	}
	if s.Progress != nil {
		p := *s.Progress
		s.Progress = &p
	}
	return s
}

// Cancel stops the running job; it finishes as failed
func (o *TrainingOrchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.status.IsRunning || o.cancel == nil {
		return model.ErrNoTrainingRunning
	}
	o.cancel(errCancelled)
	o.logger.Info("Training cancellation requested")
	return nil
}

// Wait blocks until the current job, if any, has finished
func (o *TrainingOrchestrator) Wait() {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (o *TrainingOrchestrator) publish(event model.TrainingEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.Warn("Training event not published", zap.String("type", event.Type), zap.Error(err))
	}
}
