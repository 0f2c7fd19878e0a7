package service

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/model"
)

func TestGetInfo(t *testing.T) {
	series := rampSeries(5)
	series.Bars[2].High = 250
	series.Bars[3].Low = 10
	fetcher := &fakeFetcher{
		series: series,
		meta: &model.QuoteMeta{
			LongName:         "Ambarella, Inc.",
			Currency:         "USD",
			ExchangeName:     "NasdaqGS",
			FiftyTwoWeekHigh: 90.5,
		},
	}
	service := NewStockInfoService(fetcher, "AMBA", zap.NewNop())

	info, chartPNG, err := service.GetInfo(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "5d", fetcher.lastRng)
	assert.Equal(t, "AMBA", info.Ticker)

	keys := make([]string, 0, len(info.Fields))
	for _, f := range info.Fields {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{
		"Ticker", "Data Último Preço", "Último Preço", "Variação 5d", "Volume Médio (5d)",
		"Preço Máximo (5d)", "Preço Mínimo (5d)", "Nome Empresa", "Bolsa", "Moeda",
		"Setor", "Indústria", "Máxima 52 semanas", "Mínima 52 semanas",
	}, keys)

	get := func(key string) string {
		v, ok := info.Get(key)
		require.True(t, ok, key)
		return v
	}
	assert.Equal(t, "2020-01-05", get("Data Último Preço"))
	assert.Equal(t, "$250.00", get("Preço Máximo (5d)"))
	assert.Equal(t, "$10.00", get("Preço Mínimo (5d)"))
	assert.Equal(t, "1,002", get("Volume Médio (5d)"))
	assert.Equal(t, "Ambarella, Inc.", get("Nome Empresa"))
	assert.Equal(t, "N/A", get("Setor"))
	assert.Equal(t, "$90.50", get("Máxima 52 semanas"))
	assert.Equal(t, "N/A", get("Mínima 52 semanas"))

	_, err = png.Decode(bytes.NewReader(chartPNG))
	require.NoError(t, err)
}

func TestGetInfoNoData(t *testing.T) {
	service := NewStockInfoService(&fakeFetcher{series: &model.PriceSeries{}}, "AMBA", zap.NewNop())

	_, _, err := service.GetInfo(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, model.ErrNoData)
}
