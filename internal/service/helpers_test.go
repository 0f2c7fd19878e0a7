package service

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/yourorg/stock-forecast/internal/config"
	"github.com/yourorg/stock-forecast/internal/lstm"
	"github.com/yourorg/stock-forecast/internal/model"
)

// testArch keeps fits fast while using the production window
var testArch = lstm.Architecture{Window: 60, Units1: 4, Units2: 4, Hidden: 4, Seed: 7}

type fakeFetcher struct {
	mu      sync.Mutex
	series  *model.PriceSeries
	meta    *model.QuoteMeta
	err     error
	calls   int
	lastRng string
	block   chan struct{}
}

func (f *fakeFetcher) GetHistory(ctx context.Context, ticker string, start, end time.Time) (*model.PriceSeries, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.series == nil {
		return &model.PriceSeries{Ticker: ticker}, nil
	}
	return f.series, nil
}

func (f *fakeFetcher) GetRecent(ctx context.Context, ticker, rng string) (*model.PriceSeries, *model.QuoteMeta, error) {
	f.mu.Lock()
	f.lastRng = rng
	f.mu.Unlock()
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.series, f.meta, nil
}

// rampSeries returns n daily bars starting 2020-01-01 with a gentle wave on a ramp
func rampSeries(n int) *model.PriceSeries {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, n)
	for i := range bars {
		c := 100 + float64(i)*0.1 + 2*math.Sin(float64(i)/8)
		bars[i] = model.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000 + float64(i),
		}
	}
	return &model.PriceSeries{Ticker: "TEST", Bars: bars}
}

// risingSeries returns n daily bars whose close increases strictly every day
func risingSeries(n int) *model.PriceSeries {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, n)
	for i := range bars {
		c := 50 + float64(i)*0.25
		bars[i] = model.PriceBar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return &model.PriceSeries{Ticker: "TEST", Bars: bars}
}

func testTrainingConfig(dir string) config.TrainingConfig {
	return config.TrainingConfig{
		Ticker:     "TEST",
		StartDate:  "2020-01-01",
		Epochs:     1,
		BatchSize:  32,
		Experiment: "Default",
		ChartPath:  dir + "/previsoes_completas.png",
	}
}
