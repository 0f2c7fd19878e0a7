package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// QuoteMeta is the descriptive metadata the chart API reports for a ticker
type QuoteMeta struct {
	Symbol           string  `json:"symbol"`
	LongName         string  `json:"longName"`
	ShortName        string  `json:"shortName"`
	Currency         string  `json:"currency"`
	ExchangeName     string  `json:"fullExchangeName"`
	InstrumentType   string  `json:"instrumentType"`
	FiftyTwoWeekHigh float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow  float64 `json:"fiftyTwoWeekLow"`
}

// StockInfoRequest is the form accepted by the stock info endpoint
type StockInfoRequest struct {
	Ticker string `form:"ticker" binding:"omitempty,ticker"`
}

// InfoField is one labelled value of a stock summary
type InfoField struct {
	Key   string
	Value string
}

// StockInfo is an ordered stock summary. It marshals as a JSON object keeping field order.
type StockInfo struct {
	Ticker   string
	LastDate time.Time
	Fields   []InfoField
	Recent   *PriceSeries
}

// Get returns the value stored under key
func (s *StockInfo) Get(key string) (string, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// MarshalJSON writes the fields as an object in insertion order
func (s StockInfo) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
