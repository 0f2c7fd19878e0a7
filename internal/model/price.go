package model

import (
	"time"
)

// PriceBar is one daily OHLCV bar for a ticker
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is an ordered run of daily bars for one ticker.
// Dates are strictly increasing. An empty series means the upstream had no data.
type PriceSeries struct {
	Ticker string     `json:"ticker"`
	Bars   []PriceBar `json:"bars"`
}

// Len returns the number of bars
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Empty reports whether the series carries no bars
func (s *PriceSeries) Empty() bool {
	return s.Len() == 0
}

// Closes returns the closing prices in date order
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, s.Len())
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Dates returns the bar dates in order
func (s *PriceSeries) Dates() []time.Time {
	dates := make([]time.Time, s.Len())
	for i, b := range s.Bars {
		dates[i] = b.Date
	}
	return dates
}

// Last returns the most recent bar. The caller must check Empty first.
func (s *PriceSeries) Last() PriceBar {
	return s.Bars[len(s.Bars)-1]
}

// Tail returns a series holding at most the last n bars
func (s *PriceSeries) Tail(n int) *PriceSeries {
	if n >= s.Len() {
		return &PriceSeries{Ticker: s.Ticker, Bars: s.Bars}
	}
	return &PriceSeries{Ticker: s.Ticker, Bars: s.Bars[s.Len()-n:]}
}

// DateRange represents a range of dates
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
