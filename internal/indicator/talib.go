package indicator

import (
	"context"
	"fmt"

	"github.com/markcheno/go-talib"
)

// TalibComputer computes indicators with go-talib. talib returns arrays as
// long as the input with the lookback region zero filled; that region is cut
// off so the result is suffix aligned.
type TalibComputer struct{}

// NewTalibComputer creates a go-talib backed Computer.
func NewTalibComputer() *TalibComputer { return &TalibComputer{} }

func (TalibComputer) Compute(ctx context.Context, spec Spec, in Input) (s Series, err error) {
	if err := ctx.Err(); err != nil {
		return Series{}, err
	}
	if err := spec.Validate(); err != nil {
		return Series{}, err
	}
	n := in.Len()
	lb := spec.Lookback()
	if n <= lb {
		empty := make([][]float64, len(spec.Kind.Parts()))
		for i := range empty {
			empty[i] = []float64{}
		}
		return NewSeries(spec, n, empty...), nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("talib %s: %v", spec, r)
		}
	}()

	trim := func(v []float64) []float64 { return v[lb:] }

	switch spec.Kind {
	case SMA:
		return NewSeries(spec, n, trim(talib.Sma(in.Close, spec.Period))), nil
	case EMA:
		return NewSeries(spec, n, trim(talib.Ema(in.Close, spec.Period))), nil
	case RSI:
		return NewSeries(spec, n, trim(talib.Rsi(in.Close, spec.Period))), nil
	case ATR:
		if len(in.High) != n || len(in.Low) != n {
			return Series{}, fmt.Errorf("atr: high/low/close lengths differ")
		}
		return NewSeries(spec, n, trim(talib.Atr(in.High, in.Low, in.Close, spec.Period))), nil
	case MACD:
		macd, signal, hist := macdLines(in.Close, spec)
		return NewSeries(spec, n, macd, signal, hist), nil
	case BBANDS:
		upper, middle, lower := talib.BBands(in.Close, spec.Period, spec.StdDev, spec.StdDev, talib.SMA)
		return NewSeries(spec, n, trim(lower), trim(middle), trim(upper)), nil
	}
	return Series{}, fmt.Errorf("unsupported indicator kind %q", spec.Kind)
}

// macdLines derives MACD from two EMAs. The signal EMA runs over the defined
// part of the MACD line only; talib.Macd seeds it with the zero-filled
// lookback region, which skews the early signal and hist values.
func macdLines(closes []float64, spec Spec) (macd, signal, hist []float64) {
	fast := talib.Ema(closes, spec.Short)
	slow := talib.Ema(closes, spec.Long)

	start := spec.Long - 1
	line := make([]float64, len(closes)-start)
	for i := range line {
		line[i] = fast[start+i] - slow[start+i]
	}

	skip := spec.Signal - 1
	macd = line[skip:]
	signal = talib.Ema(line, spec.Signal)[skip:]
	hist = make([]float64, len(macd))
	for i := range hist {
		hist[i] = macd[i] - signal[i]
	}
	return macd, signal, hist
}
