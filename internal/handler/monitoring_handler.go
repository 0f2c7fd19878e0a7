package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/model"
	"github.com/yourorg/stock-forecast/internal/utils"
)

// MonitoringHandler exposes prediction performance and resource usage
type MonitoringHandler struct {
	monitor Monitor
	logger  *zap.Logger
}

// NewMonitoringHandler creates a new monitoring handler
func NewMonitoringHandler(monitor Monitor, logger *zap.Logger) *MonitoringHandler {
	return &MonitoringHandler{
		monitor: monitor,
		logger:  logger,
	}
}

// GET /monitoramento/metricas
func (h *MonitoringHandler) Performance(c *gin.Context) {
	perf, err := h.monitor.PerformanceMetrics(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to compute performance metrics", zap.Error(err))
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Failed to compute performance metrics")
		return
	}
	c.JSON(http.StatusOK, perf)
}

// GET /monitoramento/recursos
func (h *MonitoringHandler) Resources(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.ResourceUsage())
}

// RecordActual stores the realised close of a ticker against its latest prediction
// POST /monitoramento/valor_real
func (h *MonitoringHandler) RecordActual(c *gin.Context) {
	var request model.ActualValueRequest
	if err := c.ShouldBind(&request); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.monitor.RecordActual(c.Request.Context(), request.Ticker, request.Actual)
	if err != nil {
		h.logger.Error("Failed to record actual value",
			zap.Error(err),
			zap.String("ticker", request.Ticker))
		utils.SendErrorResponse(c, statusFor(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         id,
		"ticker":     request.Ticker,
		"valor_real": request.Actual,
	})
}
