// Package alignment lines indicator series up against the candles they were
// computed from and cuts the trailing window every requested indicator fully
// covers.
//
// Indicator series are suffix aligned: a series with offset k starts at
// candle k and has no value for the first k candles. The global offset is
// the largest of these, i.e. the first candle where every series has data.
package alignment

import "sort"

// GlobalOffset returns the largest offset in offsets, or 0 when there are
// none. Every offset must lie in [0, candleCount].
func GlobalOffset(candleCount int, offsets map[string]int) (int, error) {
	ids := make([]string, 0, len(offsets))
	for id := range offsets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	global := 0
	for _, id := range ids {
		off := offsets[id]
		if off < 0 || off > candleCount {
			return 0, &InvalidOffsetError{Indicator: id, Offset: off, CandleCount: candleCount}
		}
		if off > global {
			global = off
		}
	}
	return global, nil
}
