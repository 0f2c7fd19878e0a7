package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/model"
)

// Period is a labelled evaluation start date
type Period struct {
	Label string
	Start time.Time
}

// DefaultPeriods are the historical start dates compared by default
func DefaultPeriods() []Period {
	date := func(y int) time.Time { return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC) }
	return []Period{
		{Label: "2 anos", Start: date(2022)},
		{Label: "3 anos", Start: date(2021)},
		{Label: "4 anos", Start: date(2020)},
		{Label: "5 anos", Start: date(2019)},
	}
}

// Evaluator fits and scores a model without registering it
type Evaluator interface {
	Evaluate(ctx context.Context, req model.TrainRequest) (*model.EvaluationResult, error)
}

// PeriodComparisonService evaluates the architecture on several history lengths
type PeriodComparisonService struct {
	evaluator Evaluator
	logger    *zap.Logger
}

// NewPeriodComparisonService creates a new period comparison service
func NewPeriodComparisonService(evaluator Evaluator, logger *zap.Logger) *PeriodComparisonService {
	return &PeriodComparisonService{
		evaluator: evaluator,
		logger:    logger,
	}
}

// Compare evaluates every period ending at end. Periods without enough data are
// skipped; ErrNoData is returned when none could be evaluated.
func (s *PeriodComparisonService) Compare(ctx context.Context, ticker string, periods []Period, end time.Time, epochs, batchSize int) ([]model.PeriodComparison, error) {
	var results []model.PeriodComparison
	for _, p := range periods {
		eval, err := s.evaluator.Evaluate(ctx, model.TrainRequest{
			Ticker:    ticker,
			Start:     p.Start,
			End:       end,
			Epochs:    epochs,
			BatchSize: batchSize,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("Skipping period",
				zap.String("period", p.Label),
				zap.String("ticker", ticker),
				zap.Error(err))
			continue
		}

		s.logger.Info("Period evaluated",
			zap.String("period", p.Label),
			zap.Int("data_points", eval.DataPoints),
			zap.Float64("test_mae", eval.Metrics.TestMAE))
		results = append(results, model.PeriodComparison{Label: p.Label, Result: *eval})
	}

	if len(results) == 0 {
		return nil, errors.Join(model.ErrNoData, errors.New("no period had enough data"))
	}
	return results, nil
}

// Best returns the comparison with the lowest test MAE
func Best(results []model.PeriodComparison) (model.PeriodComparison, bool) {
	if len(results) == 0 {
		return model.PeriodComparison{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Result.Metrics.TestMAE < best.Result.Metrics.TestMAE {
			best = r
		}
	}
	return best, true
}
