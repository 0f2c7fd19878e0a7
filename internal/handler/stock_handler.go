package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/model"
	"github.com/yourorg/stock-forecast/internal/utils"
)

// StockHandler handles stock information requests
type StockHandler struct {
	info   StockInfoProvider
	logger *zap.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(info StockInfoProvider, logger *zap.Logger) *StockHandler {
	return &StockHandler{
		info:   info,
		logger: logger,
	}
}

// GetInfo returns the five day summary and price chart of a ticker
// POST /obter_info_acao
func (h *StockHandler) GetInfo(c *gin.Context) {
	var request model.StockInfoRequest
	if err := c.ShouldBind(&request); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	info, png, err := h.info.GetInfo(c.Request.Context(), request.Ticker)
	if err != nil {
		h.logger.Error("Failed to get stock info",
			zap.Error(err),
			zap.String("ticker", request.Ticker))
		if errors.Is(err, model.ErrNoData) {
			utils.SendErrorResponse(c, http.StatusBadRequest, "Não foi possível obter informações da ação")
			return
		}
		utils.SendErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stock_info": info,
		"graph":      encodeChart(png),
	})
}
