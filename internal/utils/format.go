package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMoney renders a price as "$X.XX"
func FormatMoney(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

// FormatPercent renders a percentage as "X.XX%"
func FormatPercent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2) + "%"
}

// FormatNumber renders a value with two decimals and no unit
func FormatNumber(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// MetricsSummary renders an error pair as "MAE: $x.xx, RMSE: $y.yy"
func MetricsSummary(mae, rmse float64) string {
	return "MAE: " + FormatMoney(mae) + ", RMSE: " + FormatMoney(rmse)
}

// FormatThousands renders a value rounded to an integer with comma grouping, e.g. "1,234,567"
func FormatThousands(v float64) string {
	digits := decimal.NewFromFloat(v).Round(0).String()
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}
