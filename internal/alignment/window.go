package alignment

// Coverage describes where one indicator series sits relative to the candles.
type Coverage struct {
	Offset int
	Length int
}

// Window is the slice of aligned rows to emit.
//
// Rows are numbered 0..Count-1. Row i maps to candle GlobalOffset+Start+i and
// to index Start+i+(GlobalOffset-offset) of a series with the given offset.
type Window struct {
	GlobalOffset int
	ValidLength  int
	Start        int
	Count        int
}

// SelectWindow computes the trailing window of at most requested rows that
// every series covers. A requested count of zero or less selects no rows. A
// window with no valid rows is a normal outcome.
func SelectWindow(candleCount, globalOffset int, coverage []Coverage, requested int) Window {
	valid := candleCount - globalOffset
	for _, c := range coverage {
		if avail := c.Length - (globalOffset - c.Offset); avail < valid {
			valid = avail
		}
	}
	if valid < 0 {
		valid = 0
	}

	count := min(valid, max(requested, 0))
	return Window{
		GlobalOffset: globalOffset,
		ValidLength:  valid,
		Start:        valid - count,
		Count:        count,
	}
}

// Insufficient reports whether the history was too short to emit any row.
func (w Window) Insufficient() bool { return w.ValidLength == 0 }

// CandleIndex returns the candle index of row i.
func (w Window) CandleIndex(i int) int { return w.GlobalOffset + w.Start + i }

// IndicatorIndex returns the index of row i inside a series with the given offset.
func (w Window) IndicatorIndex(i, offset int) int {
	return w.Start + i + (w.GlobalOffset - offset)
}
