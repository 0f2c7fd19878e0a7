package handler

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/model"
	"github.com/yourorg/stock-forecast/internal/utils"
)

// TrainingHandler handles the background training endpoints
type TrainingHandler struct {
	trainer   TrainingController
	chartPath string
	logger    *zap.Logger
}

// NewTrainingHandler creates a new training handler. chartPath is the comparison
// chart attached to finished status records.
func NewTrainingHandler(trainer TrainingController, chartPath string, logger *zap.Logger) *TrainingHandler {
	return &TrainingHandler{
		trainer:   trainer,
		chartPath: chartPath,
		logger:    logger,
	}
}

// Train starts a training job in the background
// POST /treinamentomodelo/treinar
func (h *TrainingHandler) Train(c *gin.Context) {
	var request model.TrainingRequest
	if err := c.ShouldBind(&request); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	req := model.TrainRequest{
		Ticker:    request.Ticker,
		Epochs:    request.Epochs,
		BatchSize: request.BatchSize,
	}
	if request.StartDate != "" {
		// the binding tag has already checked the layout
		req.Start, _ = time.Parse(model.DateLayout, request.StartDate)
	}

	start, err := h.trainer.Start(req)
	var inProgress *model.TrainingInProgressError
	if errors.As(err, &inProgress) {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":     "erro",
			"message":    "Já existe um treinamento em andamento",
			"start_time": inProgress.StartTime.Format(model.TimestampLayout),
		})
		return
	}
	if err != nil {
		h.logger.Error("Failed to start training", zap.Error(err))
		utils.SendErrorResponse(c, statusFor(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "iniciado",
		"message":    "Treinamento iniciado com sucesso",
		"start_time": start.Format(model.TimestampLayout),
	})
}

// Status returns the training status record, with the comparison chart once finished
// GET /treinamentomodelo/status
func (h *TrainingHandler) Status(c *gin.Context) {
	status := h.trainer.Status()

	resp := model.TrainingStatusResponse{
		State:     status.State,
		IsRunning: status.IsRunning,
		StartTime: formatTime(status.StartTime),
		EndTime:   formatTime(status.EndTime),
		RunID:     optional(status.RunID),
		Error:     optional(status.Error),
		Metrics:   status.Metrics,
		Progress:  status.Progress,
	}

	if status.State.Terminal() && status.EndTime != nil && h.chartPath != "" {
		if png, err := os.ReadFile(h.chartPath); err == nil {
			graph := encodeChart(png)
			resp.Graph = &graph
		} else if !errors.Is(err, os.ErrNotExist) {
			h.logger.Warn("Failed to read training chart", zap.String("path", h.chartPath), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Cancel stops the running training job
// POST /treinamentomodelo/cancelar
func (h *TrainingHandler) Cancel(c *gin.Context) {
	if err := h.trainer.Cancel(); err != nil {
		utils.SendErrorResponse(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelado"})
}

// Health reports that the training API is up
// GET /treinamentomodelo/saude
func (h *TrainingHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "saudavel",
		"timestamp": time.Now().Format(model.TimestampLayout),
	})
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(model.TimestampLayout)
	return &s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
