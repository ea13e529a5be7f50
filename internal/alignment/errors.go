package alignment

import (
	"errors"
	"fmt"
)

// ErrInvalidOffset reports an indicator offset outside [0, candleCount].
var ErrInvalidOffset = errors.New("invalid indicator offset")

// InvalidOffsetError carries the offending indicator.
type InvalidOffsetError struct {
	Indicator   string
	Offset      int
	CandleCount int
}

func (e *InvalidOffsetError) Error() string {
	return fmt.Sprintf("indicator %s: offset %d outside [0, %d]", e.Indicator, e.Offset, e.CandleCount)
}

func (e *InvalidOffsetError) Unwrap() error { return ErrInvalidOffset }
