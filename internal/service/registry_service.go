package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/model"
	"github.com/yourorg/stock-forecast/internal/repository"
)

// RegistryService resolves the model to serve
type RegistryService struct {
	store  *repository.ExperimentRepository
	logger *zap.Logger
}

// NewRegistryService creates a new registry service
func NewRegistryService(store *repository.ExperimentRepository, logger *zap.Logger) *RegistryService {
	return &RegistryService{
		store:  store,
		logger: logger,
	}
}

// LatestRun returns the most recently started run across all experiments.
// On equal start times the experiment created first wins; within an
// experiment the greater run id wins.
func (s *RegistryService) LatestRun(ctx context.Context) (*model.Run, error) {
	experiments, err := s.store.ListExperiments()
	if err != nil {
		return nil, err
	}

	var latest *model.Run
	for _, exp := range experiments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		runs, err := s.store.ListRuns(exp.ID)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			continue
		}
		// runs are ordered by start time, then id
		candidate := runs[len(runs)-1]
		if latest == nil || candidate.StartTime.After(latest.StartTime) {
			latest = &candidate
		}
	}

	if latest == nil {
		return nil, model.ErrNoModelFound
	}

	s.logger.Debug("Resolved latest run",
		zap.String("experiment_id", latest.ExperimentID),
		zap.String("run_id", latest.ID))
	return latest, nil
}

// LatestModel returns the id of the run LatestRun resolves
func (s *RegistryService) LatestModel(ctx context.Context) (string, error) {
	run, err := s.LatestRun(ctx)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}
