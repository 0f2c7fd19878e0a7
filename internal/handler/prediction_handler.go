package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/model"
	"github.com/yourorg/stock-forecast/internal/utils"
)

// maxHistoryPage caps the page size of the history endpoint
const maxHistoryPage = 500

// PredictionHandler handles prediction HTTP requests
type PredictionHandler struct {
	predictor Predictor
	logger    *zap.Logger
}

// NewPredictionHandler creates a new prediction handler
func NewPredictionHandler(predictor Predictor, logger *zap.Logger) *PredictionHandler {
	return &PredictionHandler{
		predictor: predictor,
		logger:    logger,
	}
}

// Predict handles a next-close prediction
// POST /fazer_previsao
func (h *PredictionHandler) Predict(c *gin.Context) {
	var request model.PredictionRequest
	if err := c.ShouldBind(&request); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.predictor.Predict(c.Request.Context(), model.PredictRequest{
		Ticker:      request.Ticker,
		SaveHistory: request.SaveHistory,
	})
	if err != nil {
		h.logger.Error("Failed to make prediction",
			zap.Error(err),
			zap.String("ticker", request.Ticker))
		utils.SendErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prediction":   utils.FormatMoney(result.Prediction),
		"ultimo_preco": utils.FormatMoney(result.LastPrice),
		"variacao":     utils.FormatPercent(result.ChangePercent),
		"graph":        encodeChart(result.Chart),
	})
}

// History returns the saved predictions, optionally paginated with page and limit
// GET /fazer_previsao/historico
func (h *PredictionHandler) History(c *gin.Context) {
	rows, err := h.predictor.History()
	if err != nil {
		h.logger.Error("Failed to read prediction history", zap.Error(err))
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Failed to read prediction history")
		return
	}

	params := utils.ParsePaginationParams(c, maxHistoryPage)
	start, end := params.Bounds(len(rows))

	c.JSON(http.StatusOK, gin.H{
		"historico": rows[start:end],
		"total":     len(rows),
	})
}
