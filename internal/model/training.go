package model

import (
	"time"
)

// TimestampLayout is the wall-clock format used in API responses and history rows
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the calendar date format used for request parameters and charts
const DateLayout = "2006-01-02"

// TrainingState is the lifecycle state of the training status record
type TrainingState string

const (
	TrainingIdle      TrainingState = "idle"
	TrainingRunning   TrainingState = "running"
	TrainingSucceeded TrainingState = "succeeded"
	TrainingFailed    TrainingState = "failed"
)

// Terminal reports whether the state ends a run
func (s TrainingState) Terminal() bool {
	return s == TrainingSucceeded || s == TrainingFailed
}

// TrainRequest configures a single training invocation
type TrainRequest struct {
	Ticker     string    `json:"ticker"`
	Start      time.Time `json:"start_date"`
	End        time.Time `json:"end_date"`
	Epochs     int       `json:"epochs"`
	BatchSize  int       `json:"batch_size"`
	Experiment string    `json:"experiment"`
}

// TrainingRequest is the form accepted by the training trigger endpoint
type TrainingRequest struct {
	Ticker    string `form:"ticker" binding:"omitempty,ticker"`
	Epochs    int    `form:"epochs" binding:"omitempty,min=1,max=500"`
	BatchSize int    `form:"batch_size" binding:"omitempty,min=1,max=4096"`
	StartDate string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
}

// Metrics holds the accuracy figures of a trained model, in price units
type Metrics struct {
	TrainMAE  float64 `json:"train_mae" yaml:"train_mae"`
	TrainRMSE float64 `json:"train_rmse" yaml:"train_rmse"`
	TestMAE   float64 `json:"test_mae" yaml:"test_mae"`
	TestRMSE  float64 `json:"test_rmse" yaml:"test_rmse"`
}

// MetricsSummary is the human readable metric block shown by the status endpoint
type MetricsSummary struct {
	Train string `json:"train"`
	Test  string `json:"test"`
}

// TrainingProgress reports the last completed epoch of a running fit
type TrainingProgress struct {
	Epoch       int     `json:"epoch"`
	TotalEpochs int     `json:"total_epochs"`
	Loss        float64 `json:"loss"`
}

// SplitPoints holds actual and predicted prices for one split, aligned by date
type SplitPoints struct {
	Dates     []time.Time `json:"dates"`
	Actual    []float64   `json:"actual"`
	Predicted []float64   `json:"predicted"`
}

// EvaluationResult is the outcome of fitting and scoring without registration
type EvaluationResult struct {
	Ticker     string      `json:"ticker"`
	Start      time.Time   `json:"start_date"`
	End        time.Time   `json:"end_date"`
	DataPoints int         `json:"data_points"`
	FirstPrice float64     `json:"first_price"`
	LastPrice  float64     `json:"last_price"`
	Metrics    Metrics     `json:"metrics"`
	Train      SplitPoints `json:"-"`
	Test       SplitPoints `json:"-"`
}

// TrainingResult is the outcome of a registered training run
type TrainingResult struct {
	RunID        string    `json:"run_id"`
	ExperimentID string    `json:"experiment_id"`
	Ticker       string    `json:"ticker"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Metrics      Metrics   `json:"metrics"`
	ChartPath    string    `json:"chart_path"`
}

// TrainingStatus is the single status record polled by clients
type TrainingStatus struct {
	State     TrainingState     `json:"state"`
	IsRunning bool              `json:"is_running"`
	StartTime *time.Time        `json:"-"`
	EndTime   *time.Time        `json:"-"`
	RunID     string            `json:"run_id,omitempty"`
	Error     string            `json:"error,omitempty"`
	Metrics   *MetricsSummary   `json:"metrics"`
	Progress  *TrainingProgress `json:"progress,omitempty"`
}

// TrainingStatusResponse is the wire shape of the status endpoint
type TrainingStatusResponse struct {
	State     TrainingState     `json:"state"`
	IsRunning bool              `json:"is_running"`
	StartTime *string           `json:"start_time"`
	EndTime   *string           `json:"end_time"`
	RunID     *string           `json:"run_id"`
	Error     *string           `json:"error"`
	Metrics   *MetricsSummary   `json:"metrics"`
	Progress  *TrainingProgress `json:"progress,omitempty"`
	Graph     *string           `json:"graph"`
}

// PeriodComparison is one row of a multi-period evaluation
type PeriodComparison struct {
	Label  string           `json:"label"`
	Result EvaluationResult `json:"result"`
}

// TrainingEvent is published on the training lifecycle topic
type TrainingEvent struct {
	Type      string     `json:"type"`
	RunID     string     `json:"run_id,omitempty"`
	Ticker    string     `json:"ticker"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Error     string     `json:"error,omitempty"`
	Metrics   *Metrics   `json:"metrics,omitempty"`
}

const (
	EventTrainingStarted   = "training.started"
	EventTrainingSucceeded = "training.succeeded"
	EventTrainingFailed    = "training.failed"
)
