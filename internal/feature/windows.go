package feature

import (
	"fmt"

	"github.com/yourorg/stock-forecast/internal/model"
)

// DefaultWindow is the number of past closes fed to the model
const DefaultWindow = 60

// WindowedDataset is a supervised dataset of fixed length input windows
type WindowedDataset struct {
	Window  int
	Inputs  [][]float64
	Targets []float64
	Scaler  *MinMaxScaler
}

// Len returns the number of examples
func (d *WindowedDataset) Len() int {
	return len(d.Targets)
}

// PrepareWindows fits a min-max scaler on closes and slices them into windows.
// Pass only the segment that should define the scale.
func PrepareWindows(closes []float64, window int) (*WindowedDataset, error) {
	if err := checkLength(closes, window); err != nil {
		return nil, err
	}
	return ApplyWindows(closes, window, FitMinMax(closes))
}

// ApplyWindows slices closes into windows using an already fitted scaler
func ApplyWindows(closes []float64, window int, scaler *MinMaxScaler) (*WindowedDataset, error) {
	if err := checkLength(closes, window); err != nil {
		return nil, err
	}
	if scaler == nil || !scaler.Fitted {
		return nil, fmt.Errorf("scaler is not fitted")
	}

	scaled := scaler.TransformAll(closes)
	n := len(scaled) - window
	ds := &WindowedDataset{
		Window:  window,
		Inputs:  make([][]float64, n),
		Targets: make([]float64, n),
		Scaler:  scaler,
	}
	for i := 0; i < n; i++ {
		ds.Inputs[i] = scaled[i : i+window]
		ds.Targets[i] = scaled[i+window]
	}
	return ds, nil
}

// LastWindow fits a scaler on exactly the last window closes and returns them scaled
func LastWindow(closes []float64, window int) ([]float64, *MinMaxScaler, error) {
	if window <= 0 {
		return nil, nil, fmt.Errorf("window must be positive, got %d", window)
	}
	if len(closes) < window {
		return nil, nil, &model.InsufficientDataError{Need: window, Got: len(closes)}
	}
	tail := closes[len(closes)-window:]
	scaler := FitMinMax(tail)
	return scaler.TransformAll(tail), scaler, nil
}

func checkLength(closes []float64, window int) error {
	if window <= 0 {
		return fmt.Errorf("window must be positive, got %d", window)
	}
	if len(closes) <= window {
		return &model.InsufficientDataError{Need: window + 1, Got: len(closes)}
	}
	return nil
}
