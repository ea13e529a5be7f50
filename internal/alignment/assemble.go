package alignment

import (
	"encoding/json"

	"MarketPrompt/internal/indicator"
	"MarketPrompt/internal/model"
)

// MACDValue is one MACD point.
type MACDValue struct {
	MACD   *float64 `json:"macd,omitempty"`
	Signal *float64 `json:"signal,omitempty"`
	Hist   *float64 `json:"hist,omitempty"`
}

// BandsValue is one Bollinger Bands point.
type BandsValue struct {
	Lower  *float64 `json:"lower,omitempty"`
	Middle *float64 `json:"middle,omitempty"`
	Upper  *float64 `json:"upper,omitempty"`
}

// Row is one aligned output position. Indicators without a value at the
// position are left nil and omitted from JSON.
type Row struct {
	Candle model.Candle `json:"-"`
	Time   string       `json:"time"`
	SMA    *float64     `json:"sma,omitempty"`
	EMA    *float64     `json:"ema,omitempty"`
	RSI    *float64     `json:"rsi,omitempty"`
	MACD   *MACDValue   `json:"macd,omitempty"`
	ATR    *float64     `json:"atr,omitempty"`
	BBands *BandsValue  `json:"bbands,omitempty"`
}

func (r *Row) set(kind indicator.Kind, parts []*float64) {
	switch kind {
	case indicator.SMA:
		r.SMA = parts[0]
	case indicator.EMA:
		r.EMA = parts[0]
	case indicator.RSI:
		r.RSI = parts[0]
	case indicator.ATR:
		r.ATR = parts[0]
	case indicator.MACD:
		if parts[0] != nil || parts[1] != nil || parts[2] != nil {
			r.MACD = &MACDValue{MACD: parts[0], Signal: parts[1], Hist: parts[2]}
		}
	case indicator.BBANDS:
		if parts[0] != nil || parts[1] != nil || parts[2] != nil {
			r.BBands = &BandsValue{Lower: parts[0], Middle: parts[1], Upper: parts[2]}
		}
	}
}

// Table is the assembled output for one candle series.
type Table struct {
	Window  Window         `json:"-"`
	Candles []model.Candle `json:"candles"`
	Rows    []Row          `json:"indicators"`
}

// Insufficient reports whether the history was too short for any row.
func (t Table) Insufficient() bool { return t.Window.Insufficient() }

// MarshalJSON keeps empty tables as empty arrays rather than null.
func (t Table) MarshalJSON() ([]byte, error) {
	type plain Table
	p := plain(t)
	if p.Candles == nil {
		p.Candles = []model.Candle{}
	}
	if p.Rows == nil {
		p.Rows = []Row{}
	}
	return json.Marshal(p)
}

// Assemble builds the rows of window w. Indicator values are rounded to 2
// decimals; values outside a series or not finite are left absent.
func Assemble(candles []model.Candle, series []indicator.Series, w Window) Table {
	t := Table{
		Window:  w,
		Candles: make([]model.Candle, 0, w.Count),
		Rows:    make([]Row, 0, w.Count),
	}
	for i := 0; i < w.Count; i++ {
		ci := w.CandleIndex(i)
		if ci < 0 || ci >= len(candles) {
			continue
		}
		c := candles[ci]
		row := Row{Candle: c, Time: model.FormatTime(c.Time)}
		for _, s := range series {
			idx := w.IndicatorIndex(i, s.Offset)
			parts := make([]*float64, len(s.Spec.Kind.Parts()))
			for p := range parts {
				if v, ok := s.At(p, idx); ok {
					if r, ok := Round(v); ok {
						parts[p] = &r
					}
				}
			}
			row.set(s.Spec.Kind, parts)
		}
		t.Candles = append(t.Candles, c)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Align runs the full pipeline over computed series: global offset, window
// selection and assembly. requested <= 0 emits every valid row.
func Align(candles []model.Candle, series []indicator.Series, requested int) (Table, error) {
	offsets := make(map[string]int, len(series))
	coverage := make([]Coverage, 0, len(series))
	for _, s := range series {
		offsets[s.ID()] = s.Offset
		coverage = append(coverage, Coverage{Offset: s.Offset, Length: s.Len()})
	}
	g, err := GlobalOffset(len(candles), offsets)
	if err != nil {
		return Table{}, err
	}
	w := SelectWindow(len(candles), g, coverage, requested)
	return Assemble(candles, series, w), nil
}
