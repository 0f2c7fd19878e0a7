package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/chart"
	"github.com/yourorg/stock-forecast/internal/model"
	"github.com/yourorg/stock-forecast/internal/utils"
)

// recentRange is the Yahoo range token of the stock summary
const recentRange = "5d"

const notAvailable = "N/A"

// StockInfoService builds the recent trading summary of a ticker
type StockInfoService struct {
	fetcher MarketDataFetcher
	ticker  string
	logger  *zap.Logger
}

// NewStockInfoService creates a new stock info service
func NewStockInfoService(fetcher MarketDataFetcher, defaultTicker string, logger *zap.Logger) *StockInfoService {
	return &StockInfoService{
		fetcher: fetcher,
		ticker:  defaultTicker,
		logger:  logger,
	}
}

// GetInfo returns the five day summary of a ticker and a chart of its closes
func (s *StockInfoService) GetInfo(ctx context.Context, ticker string) (*model.StockInfo, []byte, error) {
	if ticker == "" {
		ticker = s.ticker
	}

	series, meta, err := s.fetcher.GetRecent(ctx, ticker, recentRange)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch recent prices: %w", err)
	}
	if series.Empty() {
		return nil, nil, model.ErrNoData
	}
	if meta == nil {
		meta = &model.QuoteMeta{}
	}

	info := summarize(ticker, series, meta)

	name := meta.LongName
	if name == "" {
		name = ticker
	}
	png, err := chart.RecentPrices(fmt.Sprintf("Preços Recentes - %s (%s)", name, ticker), series)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render price chart: %w", err)
	}

	s.logger.Debug("Built stock info", zap.String("ticker", ticker), zap.Int("bars", series.Len()))
	return info, png, nil
}

func summarize(ticker string, series *model.PriceSeries, meta *model.QuoteMeta) *model.StockInfo {
	first, last := series.Bars[0], series.Last()

	var volume, high, low float64
	high, low = first.High, first.Low
	for _, b := range series.Bars {
		volume += b.Volume
		high = max(high, b.High)
		low = min(low, b.Low)
	}
	volume /= float64(series.Len())

	var change float64
	if first.Close != 0 {
		change = (last.Close - first.Close) / first.Close * 100
	}

	fields := []model.InfoField{
		{Key: "Ticker", Value: ticker},
		{Key: "Data Último Preço", Value: last.Date.Format(model.DateLayout)},
		{Key: "Último Preço", Value: utils.FormatMoney(last.Close)},
		{Key: "Variação 5d", Value: utils.FormatPercent(change)},
		{Key: "Volume Médio (5d)", Value: utils.FormatThousands(volume)},
		{Key: "Preço Máximo (5d)", Value: utils.FormatMoney(high)},
		{Key: "Preço Mínimo (5d)", Value: utils.FormatMoney(low)},
		{Key: "Nome Empresa", Value: orNA(meta.LongName)},
		{Key: "Bolsa", Value: orNA(meta.ExchangeName)},
		{Key: "Moeda", Value: orNA(meta.Currency)},
		{Key: "Setor", Value: notAvailable},
		{Key: "Indústria", Value: notAvailable},
		{Key: "Máxima 52 semanas", Value: moneyOrNA(meta.FiftyTwoWeekHigh)},
		{Key: "Mínima 52 semanas", Value: moneyOrNA(meta.FiftyTwoWeekLow)},
	}

	return &model.StockInfo{
		Ticker:   ticker,
		LastDate: last.Date,
		Fields:   fields,
		Recent:   series,
	}
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

func moneyOrNA(v float64) string {
	if v == 0 {
		return notAvailable
	}
	return utils.FormatMoney(v)
}
