package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/model"
)

// TrainingStarter launches a background training job
type TrainingStarter interface {
	Start(req model.TrainRequest) (time.Time, error)
}

// Scheduler retrains the model on a cron schedule
type Scheduler struct {
	cron    *cron.Cron
	trainer TrainingStarter
	logger  *zap.Logger
}

// NewScheduler creates a new scheduler. Schedules use the five field cron
// syntax or descriptors such as "@daily".
func NewScheduler(trainer TrainingStarter, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		trainer: trainer,
		logger:  logger,
	}
}

// RegisterRetraining adds the retraining job
func (s *Scheduler) RegisterRetraining(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.retrain); err != nil {
		return fmt.Errorf("register retraining task: %w", err)
	}
	s.logger.Info("Scheduled retraining", zap.String("schedule", spec))
	return nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop stops the scheduler and waits for a running trigger to return or ctx to end
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the time of the next retraining, zero when none is scheduled
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) retrain() {
	start, err := s.trainer.Start(model.TrainRequest{})
	var inProgress *model.TrainingInProgressError
	switch {
	case errors.As(err, &inProgress):
		s.logger.Warn("Skipping scheduled retraining, a training is already running",
			zap.Time("running_since", inProgress.StartTime))
	case err != nil:
		s.logger.Error("Scheduled retraining failed to start", zap.Error(err))
	default:
		s.logger.Info("Scheduled retraining started", zap.Time("start_time", start))
	}
}
