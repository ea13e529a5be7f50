package indicator

import (
	"math"

	"MarketPrompt/internal/model"
)

// Input holds the price arrays an indicator may read.
type Input struct {
	Close []float64
	High  []float64
	Low   []float64
}

// InputFromCandles extracts the price arrays from candles.
func InputFromCandles(candles []model.Candle) Input {
	return Input{
		Close: model.Closes(candles),
		High:  model.Highs(candles),
		Low:   model.Lows(candles),
	}
}

// Len returns the number of input points.
func (in Input) Len() int { return len(in.Close) }

// Series is the output of one indicator over an input of InputLen points.
// Lines holds one slice per part of Spec.Kind, in Parts order.
type Series struct {
	Spec   Spec
	Offset int
	Lines  [][]float64
}

// NewSeries builds a series and derives its offset from the input length and
// the length of the primary line.
func NewSeries(spec Spec, inputLen int, lines ...[]float64) Series {
	s := Series{Spec: spec, Lines: lines}
	s.Offset = inputLen - s.Len()
	return s
}

// ID identifies the series in offset maps.
func (s Series) ID() string { return string(s.Spec.Kind) }

// Len returns how many points the primary line covers.
func (s Series) Len() int {
	p := s.Spec.Kind.primaryPart()
	if p >= len(s.Lines) {
		return 0
	}
	return len(s.Lines[p])
}

// At returns the value of a part at index i. ok is false when the index is
// outside the line or the value is not finite.
func (s Series) At(part, i int) (v float64, ok bool) {
	if part < 0 || part >= len(s.Lines) {
		return 0, false
	}
	line := s.Lines[part]
	if i < 0 || i >= len(line) {
		return 0, false
	}
	v = line[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
