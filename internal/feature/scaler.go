package feature

import (
	"math"
)

// MinMaxScaler maps values of the fitted segment onto [0, 1].
// Values outside the fitted segment map outside [0, 1]; that is expected when
// a scaler fitted on one segment is applied to a later one.
type MinMaxScaler struct {
	Min    float64 `json:"min" msgpack:"min"`
	Max    float64 `json:"max" msgpack:"max"`
	Fitted bool    `json:"fitted" msgpack:"fitted"`
}

// FitMinMax returns a scaler fitted on values
func FitMinMax(values []float64) *MinMaxScaler {
	s := &MinMaxScaler{}
	s.Fit(values)
	return s
}

// Fit records the min and max of values
func (s *MinMaxScaler) Fit(values []float64) {
	if len(values) == 0 {
		s.Min, s.Max, s.Fitted = 0, 0, false
		return
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	s.Min, s.Max, s.Fitted = lo, hi, true
}

// scale is max-min, or 1 for a constant segment so it maps onto 0
func (s *MinMaxScaler) scale() float64 {
	r := s.Max - s.Min
	if r == 0 {
		return 1
	}
	return r
}

// Transform scales a single value
func (s *MinMaxScaler) Transform(v float64) float64 {
	return (v - s.Min) / s.scale()
}

// TransformAll scales every value into a new slice
func (s *MinMaxScaler) TransformAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.Transform(v)
	}
	return out
}

// Inverse maps a scaled value back to price units
func (s *MinMaxScaler) Inverse(scaled float64) float64 {
	return scaled*s.scale() + s.Min
}

// InverseAll maps every scaled value back to price units
func (s *MinMaxScaler) InverseAll(scaled []float64) []float64 {
	out := make([]float64, len(scaled))
	for i, v := range scaled {
		out[i] = s.Inverse(v)
	}
	return out
}
