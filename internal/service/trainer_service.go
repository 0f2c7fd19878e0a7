package service

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/chart"
	"github.com/yourorg/stock-forecast/internal/config"
	"github.com/yourorg/stock-forecast/internal/feature"
	"github.com/yourorg/stock-forecast/internal/lstm"
	"github.com/yourorg/stock-forecast/internal/metrics"
	"github.com/yourorg/stock-forecast/internal/model"
	"github.com/yourorg/stock-forecast/internal/repository"
	"github.com/yourorg/stock-forecast/internal/storage"
)

// TrainSplit is the share of the series used for training
const TrainSplit = 0.8

// ProgressFunc receives the state of a fit after every epoch
type ProgressFunc func(model.TrainingProgress)

// TrainerService fits, scores and registers models
type TrainerService struct {
	fetcher MarketDataFetcher
	store   *repository.ExperimentRepository
	mirror  storage.ArtifactMirror
	cfg     config.TrainingConfig
	arch    lstm.Architecture
	logger  *zap.Logger
}

// NewTrainerService creates a new trainer service
func NewTrainerService(
	fetcher MarketDataFetcher,
	store *repository.ExperimentRepository,
	mirror storage.ArtifactMirror,
	cfg config.TrainingConfig,
	logger *zap.Logger,
) *TrainerService {
	if mirror == nil {
		mirror = storage.NoopMirror{}
	}
	return &TrainerService{
		fetcher: fetcher,
		store:   store,
		mirror:  mirror,
		cfg:     cfg,
		arch:    lstm.DefaultArchitecture(),
		logger:  logger,
	}
}

// SetArchitecture replaces the network shape used by later fits
func (s *TrainerService) SetArchitecture(arch lstm.Architecture) {
	s.arch = arch
}

// Defaults fills unset request fields from configuration
func (s *TrainerService) Defaults(req model.TrainRequest) model.TrainRequest {
	if req.Ticker == "" {
		req.Ticker = s.cfg.Ticker
	}
	if req.Start.IsZero() {
		if start, err := time.Parse(model.DateLayout, s.cfg.StartDate); err == nil {
			req.Start = start
		}
	}
	if req.End.IsZero() {
		req.End = time.Now()
	}
	if req.Epochs < 1 {
		req.Epochs = max(s.cfg.Epochs, 1)
	}
	if req.BatchSize < 1 {
		req.BatchSize = max(s.cfg.BatchSize, 1)
	}
	if req.Experiment == "" {
		req.Experiment = s.cfg.Experiment
	}
	return req
}

// Train runs the full pipeline: fetch, split, fit, score, chart and register
func (s *TrainerService) Train(ctx context.Context, req model.TrainRequest, progress ProgressFunc) (*model.TrainingResult, error) {
	startTime := time.Now()
	req = s.Defaults(req)

	s.logger.Info("Starting training",
		zap.String("ticker", req.Ticker),
		zap.String("start_date", req.Start.Format(model.DateLayout)),
		zap.String("end_date", req.End.Format(model.DateLayout)),
		zap.Int("epochs", req.Epochs),
		zap.Int("batch_size", req.BatchSize))

	net, eval, err := s.fit(ctx, req, progress)
	if err != nil {
		return nil, err
	}

	png, err := chart.Comparison(req.Ticker, eval)
	if err != nil {
		return nil, fmt.Errorf("failed to render comparison chart: %w", err)
	}
	if err := os.WriteFile(s.cfg.ChartPath, png, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write comparison chart: %w", err)
	}

	runID := uuid.New().String()
	exp, err := s.store.GetOrCreateExperiment(req.Experiment)
	if err != nil {
		s.logger.Error("Failed to resolve experiment", zap.String("experiment", req.Experiment), zap.Error(err))
		return nil, &model.RegistrationError{RunID: runID, Err: err}
	}

	endTime := time.Now()
	run, err := s.store.RegisterRun(repository.RunRecord{
		ExperimentID: exp.ID,
		RunID:        runID,
		StartTime:    startTime,
		EndTime:      endTime,
		Params:       trainParams(req, s.arch.Window, eval),
		Metrics:      eval.Metrics,
		Artifacts:    []string{s.cfg.ChartPath},
		Model:        net,
	})
	if err != nil {
		s.logger.Error("Failed to register run", zap.String("run_id", runID), zap.Error(err))
		return nil, &model.RegistrationError{RunID: runID, Err: err}
	}

	metrics.ObserveModel(eval.Metrics.TrainMAE, eval.Metrics.TrainRMSE, eval.Metrics.TestMAE, eval.Metrics.TestRMSE)

	if err := s.mirror.MirrorRun(ctx, s.store.RunDir(run), exp.ID+"/"+run.ID); err != nil {
		s.logger.Warn("Run artifacts were not mirrored", zap.String("run_id", run.ID), zap.Error(err))
	}

	s.logger.Info("Training completed",
		zap.String("run_id", run.ID),
		zap.Float64("train_mae", eval.Metrics.TrainMAE),
		zap.Float64("test_mae", eval.Metrics.TestMAE),
		zap.Duration("elapsed", endTime.Sub(startTime)))

	return &model.TrainingResult{
		RunID:        run.ID,
		ExperimentID: exp.ID,
		Ticker:       req.Ticker,
		StartTime:    startTime,
		EndTime:      endTime,
		Metrics:      eval.Metrics,
		ChartPath:    s.cfg.ChartPath,
	}, nil
}

// Evaluate fits and scores the architecture on a period without registering anything
func (s *TrainerService) Evaluate(ctx context.Context, req model.TrainRequest) (*model.EvaluationResult, error) {
	_, eval, err := s.fit(ctx, s.Defaults(req), nil)
	return eval, err
}

func (s *TrainerService) fit(ctx context.Context, req model.TrainRequest, progress ProgressFunc) (*lstm.Network, *model.EvaluationResult, error) {
	series, err := s.fetcher.GetHistory(ctx, req.Ticker, req.Start, req.End)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch market data: %w", err)
	}
	if series.Empty() {
		return nil, nil, model.ErrNoData
	}

	window := s.arch.Window
	closes := series.Closes()
	dates := series.Dates()
	trainLen := int(math.Ceil(float64(len(closes)) * TrainSplit))

	// train needs a full window of examples, test at least one
	if trainLen < 2*window || len(closes)-trainLen <= window {
		return nil, nil, &model.InsufficientDataError{Need: minSeriesLength(window), Got: len(closes)}
	}

	trainSet, err := feature.PrepareWindows(closes[:trainLen], window)
	if err != nil {
		return nil, nil, err
	}
	testSet, err := feature.ApplyWindows(closes[trainLen:], window, trainSet.Scaler)
	if err != nil {
		return nil, nil, err
	}

	net, err := lstm.NewNetwork(s.arch)
	if err != nil {
		return nil, nil, err
	}

	_, err = net.Fit(ctx, trainSet.Inputs, trainSet.Targets, lstm.FitOptions{
		Epochs:    req.Epochs,
		BatchSize: req.BatchSize,
		OnEpoch: func(epoch int, loss float64) {
			s.logger.Debug("Epoch completed",
				zap.Int("epoch", epoch),
				zap.Int("epochs", req.Epochs),
				zap.Float64("loss", loss))
			if progress != nil {
				progress(model.TrainingProgress{Epoch: epoch, TotalEpochs: req.Epochs, Loss: loss})
			}
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("fit aborted: %w", err)
	}

	trainPred, err := net.PredictAll(ctx, trainSet.Inputs)
	if err != nil {
		return nil, nil, err
	}
	testPred, err := net.PredictAll(ctx, testSet.Inputs)
	if err != nil {
		return nil, nil, err
	}

	scaler := trainSet.Scaler
	train := model.SplitPoints{
		Dates:     dates[window:trainLen],
		Actual:    scaler.InverseAll(trainSet.Targets),
		Predicted: scaler.InverseAll(trainPred),
	}
	test := model.SplitPoints{
		Dates:     dates[trainLen+window:],
		Actual:    scaler.InverseAll(testSet.Targets),
		Predicted: scaler.InverseAll(testPred),
	}

	return net, &model.EvaluationResult{
		Ticker:     req.Ticker,
		Start:      req.Start,
		End:        req.End,
		DataPoints: len(closes),
		FirstPrice: closes[0],
		LastPrice:  closes[len(closes)-1],
		Metrics: model.Metrics{
			TrainMAE:  lstm.MAE(train.Actual, train.Predicted),
			TrainRMSE: lstm.RMSE(train.Actual, train.Predicted),
			TestMAE:   lstm.MAE(test.Actual, test.Predicted),
			TestRMSE:  lstm.RMSE(test.Actual, test.Predicted),
		},
		Train: train,
		Test:  test,
	}, nil
}

// minSeriesLength is the shortest series whose 80/20 split gives the train
// segment a window of examples and the test segment at least one
func minSeriesLength(window int) int {
	for n := window + 1; ; n++ {
		trainLen := int(math.Ceil(float64(n) * TrainSplit))
		if trainLen >= 2*window && n-trainLen > window {
			return n
		}
	}
}

func trainParams(req model.TrainRequest, window int, eval *model.EvaluationResult) map[string]string {
	return map[string]string{
		"ticker":      req.Ticker,
		"epochs":      strconv.Itoa(req.Epochs),
		"batch_size":  strconv.Itoa(req.BatchSize),
		"window":      strconv.Itoa(window),
		"start_date":  req.Start.Format(model.DateLayout),
		"end_date":    req.End.Format(model.DateLayout),
		"data_points": strconv.Itoa(eval.DataPoints),
		"train_size":  strconv.Itoa(len(eval.Train.Actual)),
		"test_size":   strconv.Itoa(len(eval.Test.Actual)),
	}
}
