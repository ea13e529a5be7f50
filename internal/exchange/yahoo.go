package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"MarketPrompt/internal/httpclient"
	"MarketPrompt/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// Yahoo implements Client using the public Yahoo Finance chart API. It has
// no order book.
type Yahoo struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // unified symbol -> Yahoo ticker
	now       func() time.Time
}

// NewYahoo creates a Yahoo Finance client.
func NewYahoo(client *http.Client) *Yahoo {
	return &Yahoo{
		BaseURL: yahooBaseURL,
		Client:  client,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
		now: time.Now,
	}
}

func (y *Yahoo) Name() string { return "yahoo" }

var yahooIntervals = map[string]string{
	"1m":  "1m",
	"5m":  "5m",
	"15m": "15m",
	"30m": "30m",
	"1h":  "60m",
	"1d":  "1d",
	"1w":  "1wk",
	"1M":  "1mo",
}

// ticker maps "BTC/USD" style symbols to Yahoo's "BTC-USD".
func (y *Yahoo) ticker(symbol string) string {
	if mapped, ok := y.SymbolMap[symbol]; ok {
		return mapped
	}
	for i := 0; i < len(symbol); i++ {
		if symbol[i] == '/' {
			return symbol[:i] + "-" + symbol[i+1:]
		}
	}
	return symbol
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}

// FetchCandles requests the period between since (or enough candles back
// from now) and now, then keeps limit candles.
func (y *Yahoo) FetchCandles(ctx context.Context, symbol, timeframe string, since *time.Time, limit int) ([]model.Candle, error) {
	interval, ok := yahooIntervals[timeframe]
	if !ok {
		return nil, unavailable(y.Name(), "candles", fmt.Errorf("unsupported timeframe %q", timeframe))
	}
	if limit <= 0 {
		limit = 100
	}
	d, _ := TimeframeDuration(timeframe)

	now := y.now()
	from := now.Add(-d * time.Duration(limit) * 3 / 2)
	if d >= 24*time.Hour {
		// weekends and holidays leave gaps in daily data
		from = now.Add(-d * time.Duration(limit) * 2)
	}
	if since != nil {
		from = *since
	}

	q := url.Values{}
	q.Set("interval", interval)
	q.Set("period1", strconv.FormatInt(from.Unix(), 10))
	q.Set("period2", strconv.FormatInt(now.Unix(), 10))
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.BaseURL, url.PathEscape(y.ticker(symbol)), q.Encode())

	bars, err := y.fetchChart(ctx, u)
	if err != nil {
		return nil, unavailable(y.Name(), "candles", err)
	}
	if since != nil && len(bars) > limit {
		return bars[:limit], nil
	}
	return tail(bars, limit), nil
}

func (y *Yahoo) fetchChart(ctx context.Context, u string) ([]model.Candle, error) {
	body, err := httpclient.Get(ctx, y.Client, u, nil)
	if err != nil {
		return nil, err
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, errors.New("no data returned")
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // null bars (holidays etc.)
		}
		bars = append(bars, model.Candle{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}
	return normalize(bars), nil
}

// FetchOrderBook is not offered by Yahoo.
func (y *Yahoo) FetchOrderBook(_ context.Context, symbol string, _ int) (*model.OrderBook, error) {
	return nil, unavailable(y.Name(), "order book", fmt.Errorf("not supported for %s", symbol))
}
