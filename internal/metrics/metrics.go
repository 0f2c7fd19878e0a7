package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Time spent processing prediction requests",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_total",
			Help: "Total number of predictions made",
		},
		[]string{"ticker"},
	)

	PredictionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_errors_total",
			Help: "Total number of failed predictions",
		},
		[]string{"reason"},
	)

	ModelAccuracy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_accuracy",
			Help: "Error metrics of the latest trained model, in price units",
		},
		[]string{"split", "metric"},
	)

	MemoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memory_usage_bytes",
			Help: "Memory obtained from the OS by the process",
		},
	)

	CPUUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cpu_usage_percent",
			Help: "Process CPU usage since the previous sample",
		},
	)

	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Training runs by final state",
		},
		[]string{"state"},
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Wall time of completed training runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// ObserveModel publishes the error metrics of a freshly trained model
func ObserveModel(trainMAE, trainRMSE, testMAE, testRMSE float64) {
	ModelAccuracy.WithLabelValues("train", "mae").Set(trainMAE)
	ModelAccuracy.WithLabelValues("train", "rmse").Set(trainRMSE)
	ModelAccuracy.WithLabelValues("test", "mae").Set(testMAE)
	ModelAccuracy.WithLabelValues("test", "rmse").Set(testRMSE)
}
