package service

import (
	"context"
	"time"

	"github.com/yourorg/stock-forecast/internal/model"
)

// MarketDataFetcher retrieves daily price history
type MarketDataFetcher interface {
	GetHistory(ctx context.Context, ticker string, start, end time.Time) (*model.PriceSeries, error)
	GetRecent(ctx context.Context, ticker, rng string) (*model.PriceSeries, *model.QuoteMeta, error)
}
