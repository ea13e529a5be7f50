package indicator

import (
	"context"
	"math"
	"testing"
)

func rampInput(n int) Input {
	in := Input{
		Close: make([]float64, n),
		High:  make([]float64, n),
		Low:   make([]float64, n),
	}
	for i := 0; i < n; i++ {
		c := float64(i + 1)
		in.Close[i] = c
		in.High[i] = c + 1
		in.Low[i] = c - 1
	}
	return in
}

func TestTalibComputer_Coverage(t *testing.T) {
	tests := []struct {
		name       string
		spec       Spec
		n          int
		wantLen    int
		wantOffset int
	}{
		{"sma 10 on 30", Spec{Kind: SMA, Period: 10}, 30, 21, 9},
		{"ema 10 on 30", Spec{Kind: EMA, Period: 10}, 30, 21, 9},
		{"rsi 14 on 30", Spec{Kind: RSI, Period: 14}, 30, 16, 14},
		{"atr 14 on 30", Spec{Kind: ATR, Period: 14}, 30, 16, 14},
		{"bbands 20 on 30", Spec{Kind: BBANDS, Period: 20, StdDev: 2}, 30, 11, 19},
		{"macd on 60", Spec{Kind: MACD, Short: 12, Long: 26, Signal: 9}, 60, 27, 33},
		{"macd on 20 is empty", Spec{Kind: MACD, Short: 12, Long: 26, Signal: 9}, 20, 0, 20},
		{"sma longer than input", Spec{Kind: SMA, Period: 50}, 30, 0, 30},
	}

	c := NewTalibComputer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := c.Compute(context.Background(), tt.spec, rampInput(tt.n))
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if s.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", s.Len(), tt.wantLen)
			}
			if s.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", s.Offset, tt.wantOffset)
			}
			if len(s.Lines) != len(tt.spec.Kind.Parts()) {
				t.Errorf("got %d lines, want %d", len(s.Lines), len(tt.spec.Kind.Parts()))
			}
		})
	}
}

func TestTalibComputer_SMAValues(t *testing.T) {
	s, err := NewTalibComputer().Compute(context.Background(), Spec{Kind: SMA, Period: 10}, rampInput(30))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	// mean of 1..10 and of 21..30
	first, ok := s.At(0, 0)
	if !ok || math.Abs(first-5.5) > 1e-9 {
		t.Errorf("first = %v (ok=%v), want 5.5", first, ok)
	}
	last, ok := s.At(0, s.Len()-1)
	if !ok || math.Abs(last-25.5) > 1e-9 {
		t.Errorf("last = %v (ok=%v), want 25.5", last, ok)
	}
}

func TestTalibComputer_BBandsMiddleIsSMA(t *testing.T) {
	in := rampInput(40)
	c := NewTalibComputer()
	bb, err := c.Compute(context.Background(), Spec{Kind: BBANDS, Period: 20, StdDev: 2}, in)
	if err != nil {
		t.Fatalf("Compute bbands: %v", err)
	}
	sma, err := c.Compute(context.Background(), Spec{Kind: SMA, Period: 20}, in)
	if err != nil {
		t.Fatalf("Compute sma: %v", err)
	}
	for i := 0; i < sma.Len(); i++ {
		mid, _ := bb.At(1, i)
		want, _ := sma.At(0, i)
		if math.Abs(mid-want) > 1e-9 {
			t.Fatalf("middle[%d] = %v, want %v", i, mid, want)
		}
		lower, _ := bb.At(0, i)
		upper, _ := bb.At(2, i)
		if !(lower <= mid && mid <= upper) {
			t.Fatalf("band order broken at %d: %v %v %v", i, lower, mid, upper)
		}
	}
}

func TestTalibComputer_InvalidSpec(t *testing.T) {
	specs := []Spec{
		{Kind: SMA, Period: 0},
		{Kind: RSI, Period: 1},
		{Kind: MACD, Short: 26, Long: 12, Signal: 9},
		{Kind: BBANDS, Period: 20},
		{Kind: "vwap", Period: 10},
	}
	c := NewTalibComputer()
	for _, spec := range specs {
		if _, err := c.Compute(context.Background(), spec, rampInput(30)); err == nil {
			t.Errorf("Compute(%s) expected error", spec)
		}
	}
}

func TestTalibComputer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewTalibComputer().Compute(ctx, Spec{Kind: SMA, Period: 5}, rampInput(10)); err == nil {
		t.Error("expected context error")
	}
}

// zigzagInput rises slowly while alternating around the trend, so gains and
// losses both occur and true range differs from high minus low.
func zigzagInput(n int) Input {
	in := Input{
		Close: make([]float64, n),
		High:  make([]float64, n),
		Low:   make([]float64, n),
	}
	for i := 0; i < n; i++ {
		c := 100 + 0.5*float64(i)
		if i%2 == 0 {
			c += 3
		} else {
			c -= 3
		}
		in.Close[i] = c
		in.High[i] = c + 1 + float64(i%3)
		in.Low[i] = c - 1
	}
	return in
}

// refEMA seeds with the SMA of the first p values and returns the values
// from index p-1 on.
func refEMA(v []float64, p int) []float64 {
	if len(v) < p {
		return nil
	}
	k := 2 / float64(p+1)
	sum := 0.0
	for _, x := range v[:p] {
		sum += x
	}
	out := []float64{sum / float64(p)}
	for _, x := range v[p:] {
		prev := out[len(out)-1]
		out = append(out, prev+(x-prev)*k)
	}
	return out
}

func refFirstRSI(closes []float64, p int) float64 {
	gain, loss := 0.0, 0.0
	for i := 1; i <= p; i++ {
		d := closes[i] - closes[i-1]
		if d < 0 {
			loss -= d
		} else {
			gain += d
		}
	}
	return 100 * gain / (gain + loss)
}

func refFirstATR(in Input, p int) float64 {
	sum := 0.0
	for i := 1; i <= p; i++ {
		prev := in.Close[i-1]
		sum += math.Max(in.High[i]-in.Low[i], math.Max(math.Abs(in.High[i]-prev), math.Abs(in.Low[i]-prev)))
	}
	return sum / float64(p)
}

func refMACD(closes []float64, short, long, signal int) (macd, sig, hist []float64) {
	fast := refEMA(closes, short)
	slow := refEMA(closes, long)
	line := make([]float64, len(slow))
	for j := range line {
		line[j] = fast[j+long-short] - slow[j]
	}
	sig = refEMA(line, signal)
	macd = line[signal-1:]
	hist = make([]float64, len(sig))
	for i := range hist {
		hist[i] = macd[i] - sig[i]
	}
	return macd, sig, hist
}

func TestTalibComputer_FirstValues(t *testing.T) {
	in := zigzagInput(60)
	tests := []struct {
		name string
		spec Spec
		want float64
	}{
		{"ema 10", Spec{Kind: EMA, Period: 10}, refEMA(in.Close, 10)[0]},
		{"rsi 14", Spec{Kind: RSI, Period: 14}, refFirstRSI(in.Close, 14)},
		{"atr 14", Spec{Kind: ATR, Period: 14}, refFirstATR(in, 14)},
	}

	c := NewTalibComputer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := c.Compute(context.Background(), tt.spec, in)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			got, ok := s.At(0, 0)
			if !ok {
				t.Fatalf("no first value, Len() = %d", s.Len())
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("first value = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTalibComputer_EMAFollowsRecurrence(t *testing.T) {
	in := zigzagInput(40)
	s, err := NewTalibComputer().Compute(context.Background(), Spec{Kind: EMA, Period: 10}, in)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := refEMA(in.Close, 10)
	if s.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", s.Len(), len(want))
	}
	for i, w := range want {
		got, _ := s.At(0, i)
		if math.Abs(got-w) > 1e-9 {
			t.Fatalf("ema[%d] = %v, want %v", i, got, w)
		}
	}
}

func TestTalibComputer_MACDSignalSeededFromDefinedLine(t *testing.T) {
	tests := []struct {
		name                string
		n                   int
		short, long, signal int
	}{
		{"12/26/9 on 60", 60, 12, 26, 9},
		{"12/26/9 on exact lookback", 34, 12, 26, 9},
		{"5/10/4 on 30", 30, 5, 10, 4},
	}

	c := NewTalibComputer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := zigzagInput(tt.n)
			spec := Spec{Kind: MACD, Short: tt.short, Long: tt.long, Signal: tt.signal}
			s, err := c.Compute(context.Background(), spec, in)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			macd, sig, hist := refMACD(in.Close, tt.short, tt.long, tt.signal)
			if s.Len() != len(macd) {
				t.Fatalf("Len() = %d, want %d", s.Len(), len(macd))
			}
			if s.Offset != tt.n-len(macd) {
				t.Errorf("Offset = %d, want %d", s.Offset, tt.n-len(macd))
			}
			for i := range macd {
				for part, want := range []float64{macd[i], sig[i], hist[i]} {
					got, ok := s.At(part, i)
					if !ok || math.Abs(got-want) > 1e-9 {
						t.Fatalf("%s[%d] = %v (ok=%v), want %v", spec.Kind.Parts()[part], i, got, ok, want)
					}
				}
			}
		})
	}
}
