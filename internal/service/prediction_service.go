package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/chart"
	"github.com/yourorg/stock-forecast/internal/config"
	"github.com/yourorg/stock-forecast/internal/feature"
	"github.com/yourorg/stock-forecast/internal/lstm"
	"github.com/yourorg/stock-forecast/internal/model"
	"github.com/yourorg/stock-forecast/internal/repository"
	"github.com/yourorg/stock-forecast/internal/utils"
)

// forecastChartBars is how many recent closes the forecast chart shows
const forecastChartBars = 30

// PredictionService produces next-day price predictions with the latest model
type PredictionService struct {
	fetcher  MarketDataFetcher
	registry *RegistryService
	store    *repository.ExperimentRepository
	history  *repository.PredictionHistoryRepository
	recorder PredictionRecorder
	cfg      config.PredictionConfig
	logger   *zap.Logger

	mu       sync.Mutex
	cachedID string
	cached   *lstm.Network
}

// NewPredictionService creates a new prediction service
func NewPredictionService(
	fetcher MarketDataFetcher,
	registry *RegistryService,
	store *repository.ExperimentRepository,
	history *repository.PredictionHistoryRepository,
	recorder PredictionRecorder,
	cfg config.PredictionConfig,
	logger *zap.Logger,
) *PredictionService {
	if recorder == nil {
		recorder = NoopRecorder{}
	}
	return &PredictionService{
		fetcher:  fetcher,
		registry: registry,
		store:    store,
		history:  history,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Predict forecasts the next close of a ticker
func (s *PredictionService) Predict(ctx context.Context, req model.PredictRequest) (*model.PredictionResult, error) {
	started := time.Now()
	if req.Ticker == "" {
		req.Ticker = s.cfg.Ticker
	}

	result, err := s.predict(ctx, req)
	if err != nil {
		s.recorder.RecordError(errorReason(err))
		s.logger.Error("Prediction failed", zap.String("ticker", req.Ticker), zap.Error(err))
		return nil, err
	}

	s.recorder.RecordPrediction(ctx, req.Ticker, result.Prediction, time.Since(started))
	return result, nil
}

func (s *PredictionService) predict(ctx context.Context, req model.PredictRequest) (*model.PredictionResult, error) {
	run, err := s.registry.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	net, err := s.loadModel(run)
	if err != nil {
		return nil, err
	}

	window := net.Window
	end := time.Now()
	start := end.AddDate(0, 0, -(window + s.cfg.LookbackPadding))
	series, err := s.fetcher.GetHistory(ctx, req.Ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market data: %w", err)
	}
	if series.Empty() {
		return nil, model.ErrNoData
	}

	// the scaler is fit on the queried window alone
	input, scaler, err := feature.LastWindow(series.Closes(), window)
	if err != nil {
		return nil, err
	}
	scaled, err := net.Predict(input)
	if err != nil {
		return nil, err
	}

	prediction := scaler.Inverse(scaled)
	last := series.Last()
	var change float64
	if last.Close != 0 {
		change = (prediction - last.Close) / last.Close * 100
	}

	result := &model.PredictionResult{
		Ticker:        req.Ticker,
		RunID:         run.ID,
		Prediction:    prediction,
		LastPrice:     last.Close,
		ChangePercent: change,
		LastDate:      last.Date,
		PredictedDate: last.Date.AddDate(0, 0, 1),
	}

	png, err := chart.Forecast(req.Ticker, series.Tail(forecastChartBars), result.PredictedDate, prediction, change)
	if err != nil {
		return nil, fmt.Errorf("failed to render forecast chart: %w", err)
	}
	result.Chart = png
	if s.cfg.ChartPath != "" {
		if err := os.WriteFile(s.cfg.ChartPath, png, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write forecast chart: %w", err)
		}
	}

	if req.SaveHistory {
		row := model.PredictionHistoryRow{
			Date:          time.Now().Format(model.TimestampLayout),
			LastPrice:     utils.FormatMoney(last.Close),
			Prediction:    utils.FormatMoney(prediction),
			ChangePercent: utils.FormatPercent(change),
		}
		if err := s.history.Append(row); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Prediction completed",
		zap.String("ticker", req.Ticker),
		zap.String("run_id", run.ID),
		zap.Float64("last_price", last.Close),
		zap.Float64("prediction", prediction))
	return result, nil
}

// History returns the saved prediction rows
func (s *PredictionService) History() ([]model.PredictionHistoryRow, error) {
	return s.history.List()
}

// loadModel returns the network of a run, reusing the last one loaded
func (s *PredictionService) loadModel(run *model.Run) (*lstm.Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.cachedID == run.ID {
		return s.cached, nil
	}

	net, _, err := s.store.LoadModel(run)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	s.cachedID, s.cached = run.ID, net

	s.logger.Info("Loaded model", zap.String("run_id", run.ID), zap.Int("window", net.Window))
	return net, nil
}

func errorReason(err error) string {
	var insufficient *model.InsufficientDataError
	switch {
	case errors.Is(err, model.ErrNoModelFound):
		return "no_model"
	case errors.Is(err, model.ErrNoData):
		return "no_data"
	case errors.As(err, &insufficient):
		return "insufficient_data"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}
