// Package indicator wraps technical-indicator computation behind a small
// capability interface. Every series it returns is suffix aligned: it covers
// the trailing part of the input and misses only leading points.
package indicator

import (
	"errors"
	"fmt"
)

// Kind identifies a technical indicator.
type Kind string

const (
	SMA    Kind = "sma"
	EMA    Kind = "ema"
	RSI    Kind = "rsi"
	MACD   Kind = "macd"
	ATR    Kind = "atr"
	BBANDS Kind = "bbands"
)

// Kinds lists every kind in output order.
var Kinds = []Kind{SMA, EMA, RSI, MACD, ATR, BBANDS}

// Parts names the values a kind produces per point. Scalar kinds have one
// part named after the kind itself.
func (k Kind) Parts() []string {
	switch k {
	case MACD:
		return []string{"macd", "signal", "hist"}
	case BBANDS:
		return []string{"lower", "middle", "upper"}
	default:
		return []string{string(k)}
	}
}

// primaryPart is the line whose length defines the series coverage.
func (k Kind) primaryPart() int {
	if k == BBANDS {
		return 1
	}
	return 0
}

// Spec is one requested indicator with its parameters. Period and StdDev
// are used by the single-window kinds; Short, Long and Signal by MACD.
type Spec struct {
	Kind   Kind
	Period int
	Short  int
	Long   int
	Signal int
	StdDev float64
}

// Lookback returns how many leading input points the indicator cannot cover.
func (s Spec) Lookback() int {
	switch s.Kind {
	case SMA, EMA, BBANDS:
		return s.Period - 1
	case RSI, ATR:
		return s.Period
	case MACD:
		return (s.Long - 1) + (s.Signal - 1)
	default:
		return 0
	}
}

// Validate checks the indicator parameters.
func (s Spec) Validate() error {
	switch s.Kind {
	case SMA, EMA:
		if s.Period <= 0 {
			return fmt.Errorf("%s: period must be positive", s.Kind)
		}
	case RSI, ATR:
		if s.Period < 2 {
			return fmt.Errorf("%s: period must be at least 2", s.Kind)
		}
	case BBANDS:
		if s.Period < 2 {
			return fmt.Errorf("%s: period must be at least 2", s.Kind)
		}
		if s.StdDev <= 0 {
			return fmt.Errorf("%s: stddev must be positive", s.Kind)
		}
	case MACD:
		if s.Short <= 0 || s.Signal <= 0 {
			return errors.New("macd: short and signal periods must be positive")
		}
		if s.Long <= s.Short {
			return errors.New("macd: long period must be greater than short period")
		}
	default:
		return fmt.Errorf("unknown indicator kind %q", s.Kind)
	}
	return nil
}

func (s Spec) String() string {
	switch s.Kind {
	case MACD:
		return fmt.Sprintf("macd(%d,%d,%d)", s.Short, s.Long, s.Signal)
	case BBANDS:
		return fmt.Sprintf("bbands(%d,%g)", s.Period, s.StdDev)
	default:
		return fmt.Sprintf("%s(%d)", s.Kind, s.Period)
	}
}
