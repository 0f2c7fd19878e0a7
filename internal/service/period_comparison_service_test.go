package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/model"
)

type stubEvaluator struct {
	byYear map[int]float64
	calls  []model.TrainRequest
}

func (s *stubEvaluator) Evaluate(_ context.Context, req model.TrainRequest) (*model.EvaluationResult, error) {
	s.calls = append(s.calls, req)
	mae, ok := s.byYear[req.Start.Year()]
	if !ok {
		return nil, &model.InsufficientDataError{Need: 305, Got: 10}
	}
	return &model.EvaluationResult{
		Ticker:     req.Ticker,
		Start:      req.Start,
		DataPoints: 500,
		Metrics:    model.Metrics{TestMAE: mae},
	}, nil
}

func TestDefaultPeriods(t *testing.T) {
	periods := DefaultPeriods()
	require.Len(t, periods, 4)
	assert.Equal(t, "2 anos", periods[0].Label)
	assert.Equal(t, 2022, periods[0].Start.Year())
	assert.Equal(t, "5 anos", periods[3].Label)
	assert.Equal(t, 2019, periods[3].Start.Year())
}

func TestCompareSkipsFailedPeriods(t *testing.T) {
	evaluator := &stubEvaluator{byYear: map[int]float64{2022: 3.5, 2020: 1.25, 2019: 2}}
	service := NewPeriodComparisonService(evaluator, zap.NewNop())
	end := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)

	results, err := service.Compare(context.Background(), "AMBA", DefaultPeriods(), end, 5, 16)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "2 anos", results[0].Label)
	assert.Equal(t, "4 anos", results[1].Label)

	require.Len(t, evaluator.calls, 4)
	assert.Equal(t, end, evaluator.calls[0].End)
	assert.Equal(t, 5, evaluator.calls[0].Epochs)
	assert.Equal(t, 16, evaluator.calls[0].BatchSize)

	best, ok := Best(results)
	require.True(t, ok)
	assert.Equal(t, "4 anos", best.Label)
}

func TestCompareNothingEvaluated(t *testing.T) {
	service := NewPeriodComparisonService(&stubEvaluator{}, zap.NewNop())

	_, err := service.Compare(context.Background(), "AMBA", DefaultPeriods(), time.Now(), 1, 1)
	assert.ErrorIs(t, err, model.ErrNoData)

	_, ok := Best(nil)
	assert.False(t, ok)
}
