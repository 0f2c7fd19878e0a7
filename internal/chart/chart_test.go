package chart

import (
	"bytes"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/stock-forecast/internal/model"
)

func days(n int) []time.Time {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func decode(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestRenderProducesPNG(t *testing.T) {
	data, err := Render([]Panel{{
		Title:  "Teste",
		Series: []Series{{Label: "a", Dates: days(3), Values: []float64{1, 3, 2}, Color: ColorActual}},
		Note:   "MAE: $1.00\nRMSE: $2.00",
	}}, 300, 200)
	require.NoError(t, err)

	w, h := decode(t, data)
	assert.Equal(t, 300, w)
	assert.Equal(t, 200, h)
}

func TestRenderRejectsBadInput(t *testing.T) {
	_, err := Render(nil, 100, 100)
	assert.Error(t, err)

	_, err = Render([]Panel{{}}, 0, 100)
	assert.Error(t, err)
}

func TestRenderHandlesEmptyAndFlatSeries(t *testing.T) {
	_, err := Render([]Panel{
		{Title: "vazio"},
		{Title: "plano", Series: []Series{{Dates: days(1), Values: []float64{5}, Color: ColorActual}}},
	}, 400, 200)
	assert.NoError(t, err)
}

func TestComparisonChart(t *testing.T) {
	result := &model.EvaluationResult{
		Metrics: model.Metrics{TrainMAE: 1, TrainRMSE: 1.5, TestMAE: 2, TestRMSE: 2.5},
		Train:   model.SplitPoints{Dates: days(10), Actual: make([]float64, 10), Predicted: make([]float64, 10)},
		Test:    model.SplitPoints{Dates: days(4), Actual: []float64{1, 2, 3, 4}, Predicted: []float64{1.1, 2.1, 2.9, 4.2}},
	}
	data, err := Comparison("AMBA", result)
	require.NoError(t, err)

	w, h := decode(t, data)
	assert.Equal(t, 1400, w)
	assert.Equal(t, 600, h)
}

func TestForecastChart(t *testing.T) {
	series := &model.PriceSeries{Ticker: "AMBA"}
	for i, d := range days(30) {
		series.Bars = append(series.Bars, model.PriceBar{Date: d, Close: 100 + float64(i)})
	}

	data, err := Forecast("AMBA", series, series.Last().Date.AddDate(0, 0, 1), 131, 1.5)
	require.NoError(t, err)
	w, _ := decode(t, data)
	assert.Equal(t, 1000, w)

	data, err = RecentPrices("Preços Recentes - Ambarella (AMBA)", series.Tail(5))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRenderSkipsNonFiniteValues(t *testing.T) {
	data, err := Render([]Panel{{
		Title:  "Previsão de Preço",
		YLabel: "Preço (USD)",
		Series: []Series{
			{Label: "Histórico", Dates: days(4), Values: []float64{1, math.NaN(), math.Inf(1), 2}, Color: ColorActual},
			{Dates: days(2), Values: []float64{3}, Color: ColorForecast, Points: true},
		},
		Note: "Último Preço: $2.00",
	}}, 320, 240)
	require.NoError(t, err)

	w, h := decode(t, data)
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)
}

func TestRenderDrawsSeriesColor(t *testing.T) {
	data, err := Render([]Panel{{
		Series: []Series{{Dates: days(3), Values: []float64{1, 2, 3}, Color: ColorForecast}},
	}}, 400, 300)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	found := false
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y && !found; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r>>8 > 180 && g>>8 < 80 && bl>>8 < 80 {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "forecast line not drawn")
}
