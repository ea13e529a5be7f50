package model

import (
	"encoding/json"
	"time"
)

// isoLayout matches the millisecond ISO-8601 form used in rendered prompts.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t in UTC with millisecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// Candle represents a single OHLCV bar.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// MarshalJSON emits the candle with its time as an ISO string.
func (c Candle) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Time   string  `json:"time"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	}{FormatTime(c.Time), c.Open, c.High, c.Low, c.Close, c.Volume})
}

// Closes extracts the close prices of the given candles.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high prices of the given candles.
func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low prices of the given candles.
func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// PriceLevel is one [price, amount] entry of an order book side.
type PriceLevel [2]float64

// OrderBook is a snapshot of bids and asks for one symbol.
type OrderBook struct {
	Symbol string       `json:"symbol"`
	Bids   []PriceLevel `json:"bids"`
	Asks   []PriceLevel `json:"asks"`
	Nonce  int64        `json:"nonce"`
}
