package chart

import (
	"fmt"
	"time"

	"github.com/yourorg/stock-forecast/internal/model"
	"github.com/yourorg/stock-forecast/internal/utils"
)

const (
	comparisonWidth  = 1400
	comparisonHeight = 600
	forecastWidth    = 1000
	forecastHeight   = 500
)

// Comparison renders actual against predicted prices for the train and test splits,
// side by side, each with its error metrics
func Comparison(ticker string, r *model.EvaluationResult) ([]byte, error) {
	panels := []Panel{
		splitPanel(fmt.Sprintf("%s - Treino: Real vs Previsto", ticker), r.Train,
			fmt.Sprintf("Métricas de Treino:\nMAE: %s\nRMSE: %s", utils.FormatMoney(r.Metrics.TrainMAE), utils.FormatMoney(r.Metrics.TrainRMSE))),
		splitPanel(fmt.Sprintf("%s - Teste: Real vs Previsto", ticker), r.Test,
			fmt.Sprintf("Métricas de Teste:\nMAE: %s\nRMSE: %s", utils.FormatMoney(r.Metrics.TestMAE), utils.FormatMoney(r.Metrics.TestRMSE))),
	}
	return Render(panels, comparisonWidth, comparisonHeight)
}

func splitPanel(title string, points model.SplitPoints, note string) Panel {
	return Panel{
		Title:  title,
		XLabel: "Data",
		YLabel: "Preço (USD)",
		Series: []Series{
			{Label: "Real", Dates: points.Dates, Values: points.Actual, Color: ColorActual},
			{Label: "Previsto", Dates: points.Dates, Values: points.Predicted, Color: ColorPredicted},
		},
		Note: note,
	}
}

// Forecast renders the recent closes with the predicted next point and a summary box
func Forecast(ticker string, recent *model.PriceSeries, predictedDate time.Time, prediction, changePercent float64) ([]byte, error) {
	last := recent.Last()
	note := fmt.Sprintf("Último Preço: %s\nPrevisão: %s\nVariação: %s",
		utils.FormatMoney(last.Close), utils.FormatMoney(prediction), utils.FormatPercent(changePercent))

	panel := Panel{
		Title:  fmt.Sprintf("Previsão de Preço - %s", ticker),
		XLabel: "Data",
		YLabel: "Preço (USD)",
		Series: []Series{
			{Label: "Histórico", Dates: recent.Dates(), Values: recent.Closes(), Color: ColorActual},
			{Label: "Próximo dia", Dates: []time.Time{last.Date, predictedDate}, Values: []float64{last.Close, prediction}, Color: ColorForecast},
			{Dates: []time.Time{predictedDate}, Values: []float64{prediction}, Color: ColorForecast, Points: true},
		},
		Note: note,
	}
	return Render([]Panel{panel}, forecastWidth, forecastHeight)
}

// RecentPrices renders the closing prices of a short series and highlights the last one
func RecentPrices(title string, series *model.PriceSeries) ([]byte, error) {
	last := series.Last()
	panel := Panel{
		Title:  title,
		XLabel: "Data",
		YLabel: "Preço ($)",
		Series: []Series{
			{Label: "Preço de Fechamento", Dates: series.Dates(), Values: series.Closes(), Color: ColorActual},
			{Label: "Último Preço", Dates: []time.Time{last.Date}, Values: []float64{last.Close}, Color: ColorForecast, Points: true},
		},
	}
	return Render([]Panel{panel}, forecastWidth, forecastHeight)
}
