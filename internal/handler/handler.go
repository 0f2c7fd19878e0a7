package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/yourorg/stock-forecast/internal/client"
	"github.com/yourorg/stock-forecast/internal/model"
)

// Predictor is the prediction service used by the handlers
type Predictor interface {
	Predict(ctx context.Context, req model.PredictRequest) (*model.PredictionResult, error)
	History() ([]model.PredictionHistoryRow, error)
}

// StockInfoProvider builds the recent summary of a ticker
type StockInfoProvider interface {
	GetInfo(ctx context.Context, ticker string) (*model.StockInfo, []byte, error)
}

// TrainingController starts, cancels and reports background training
type TrainingController interface {
	Start(req model.TrainRequest) (time.Time, error)
	Status() model.TrainingStatus
	Cancel() error
}

// Archiver zips the experiment store and resolves download names
type Archiver interface {
	ZipStore() (string, error)
	ResolveDownload(name string) (string, error)
}

// Monitor exposes prediction performance and process resources
type Monitor interface {
	PerformanceMetrics(ctx context.Context) (*model.PerformanceMetrics, error)
	ResourceUsage() model.ResourceUsage
	RecordActual(ctx context.Context, ticker string, actual float64) (int64, error)
}

// statusFor maps a domain error to the HTTP status of the training and monitoring routes.
// Prediction and stock info failures are always 400.
func statusFor(err error) int {
	var (
		insufficient *model.InsufficientDataError
		inProgress   *model.TrainingInProgressError
		upstream     *client.StatusError
	)
	switch {
	case errors.Is(err, model.ErrNoData),
		errors.Is(err, model.ErrNoModelFound),
		errors.As(err, &insufficient),
		errors.As(err, &inProgress):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNoTrainingRunning):
		return http.StatusConflict
	case errors.Is(err, model.ErrNoPendingPrediction):
		return http.StatusNotFound
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func encodeChart(png []byte) string {
	return base64.StdEncoding.EncodeToString(png)
}
