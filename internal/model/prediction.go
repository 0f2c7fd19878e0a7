package model

import (
	"time"
)

// PredictionRequest is the form accepted by the prediction endpoint
type PredictionRequest struct {
	Ticker      string `form:"ticker" binding:"omitempty,ticker"`
	SaveHistory bool   `form:"salvar_historico"`
}

// ActualValueRequest reports the realised close for the latest prediction of a ticker
type ActualValueRequest struct {
	Ticker string  `form:"ticker" binding:"required,ticker"`
	Actual float64 `form:"valor_real" binding:"required,gt=0"`
}

// PredictRequest configures one prediction
type PredictRequest struct {
	Ticker      string
	SaveHistory bool
}

// PredictionResult is a single next-step price prediction
type PredictionResult struct {
	Ticker        string    `json:"ticker"`
	RunID         string    `json:"run_id"`
	Prediction    float64   `json:"prediction"`
	LastPrice     float64   `json:"last_price"`
	ChangePercent float64   `json:"change_percent"`
	LastDate      time.Time `json:"last_date"`
	PredictedDate time.Time `json:"predicted_date"`
	Chart         []byte    `json:"-"`
}

// PredictionHistoryRow is one line of the prediction history file
type PredictionHistoryRow struct {
	Date          string `json:"Data"`
	LastPrice     string `json:"Último Preço"`
	Prediction    string `json:"Previsão"`
	ChangePercent string `json:"Variação (%)"`
}

// PredictionLog is one monitored prediction
type PredictionLog struct {
	ID          int64     `json:"id" db:"id"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
	Ticker      string    `json:"ticker" db:"ticker"`
	Prediction  float64   `json:"prediction" db:"prediction"`
	ActualValue *float64  `json:"actual_value" db:"actual_value"`
	Latency     float64   `json:"latency" db:"latency"`
	MemoryUsage uint64    `json:"memory_usage" db:"memory_usage"`
	CPUUsage    float64   `json:"cpu_usage" db:"cpu_usage"`
}

// PerformanceMetrics aggregates the prediction log
type PerformanceMetrics struct {
	AvgLatency       float64   `json:"avg_latency" db:"avg_latency"`
	MaxLatency       float64   `json:"max_latency" db:"max_latency"`
	AvgMemoryUsage   float64   `json:"avg_memory_usage" db:"avg_memory_usage"`
	AvgCPUUsage      float64   `json:"avg_cpu_usage" db:"avg_cpu_usage"`
	TotalPredictions int       `json:"total_predictions" db:"total_predictions"`
	MSE              *float64  `json:"mse,omitempty" db:"-"`
	RMSE             *float64  `json:"rmse,omitempty" db:"-"`
	Timestamp        time.Time `json:"timestamp" db:"-"`
}

// ResourceUsage is a snapshot of the process resources
type ResourceUsage struct {
	MemoryUsage uint64  `json:"memory_usage"`
	HeapAlloc   uint64  `json:"heap_alloc"`
	CPUUsage    float64 `json:"cpu_usage"`
	Goroutines  int     `json:"goroutines"`
	CPUCores    int     `json:"cpu_cores"`
}
