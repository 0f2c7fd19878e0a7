package lstm

import "math"

// MAE returns the mean absolute error of predicted against actual
func MAE(actual, predicted []float64) float64 {
	n := min(len(actual), len(predicted))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(n)
}

// MSE returns the mean squared error of predicted against actual
func MSE(actual, predicted []float64) float64 {
	n := min(len(actual), len(predicted))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return sum / float64(n)
}

// RMSE returns the root mean squared error of predicted against actual
func RMSE(actual, predicted []float64) float64 {
	return math.Sqrt(MSE(actual, predicted))
}
