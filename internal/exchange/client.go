// Package exchange is the market data boundary. Every client returns candles
// in ascending time order without duplicate timestamps, and every failure
// wraps ErrDataUnavailable.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"MarketPrompt/internal/model"
)

// ErrDataUnavailable is wrapped by every fetch failure.
var ErrDataUnavailable = errors.New("market data unavailable")

// Client fetches market data from one venue.
type Client interface {
	Name() string
	FetchCandles(ctx context.Context, symbol, timeframe string, since *time.Time, limit int) ([]model.Candle, error)
	FetchOrderBook(ctx context.Context, symbol string, limit int) (*model.OrderBook, error)
}

func unavailable(venue, op string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrDataUnavailable, venue, op, err)
}

var timeframes = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"8h":  8 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  72 * time.Hour,
	"1w":  7 * 24 * time.Hour,
	"1M":  30 * 24 * time.Hour,
}

// TimeframeDuration returns the approximate length of one candle.
func TimeframeDuration(tf string) (time.Duration, error) {
	d, ok := timeframes[tf]
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe %q", tf)
	}
	return d, nil
}

// MarketID converts a unified symbol such as "BTC/USDC" to "BTCUSDC".
func MarketID(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

// normalize sorts candles by time and drops duplicate timestamps, keeping the
// last one seen.
func normalize(candles []model.Candle) []model.Candle {
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	out := candles[:0]
	for _, c := range candles {
		if n := len(out); n > 0 && out[n-1].Time.Equal(c.Time) {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	return out
}

// tail keeps the last n candles.
func tail(candles []model.Candle, n int) []model.Candle {
	if n > 0 && len(candles) > n {
		return candles[len(candles)-n:]
	}
	return candles
}
