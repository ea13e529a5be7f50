package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"MarketPrompt/internal/httpclient"
	"MarketPrompt/internal/model"
)

// REST implements Client for a self-hosted bar API:
//
//	GET {base}/api/v1/bars?symbol=&interval=&limit=[&since=]
//	GET {base}/api/v1/orderbook?symbol=&limit=
//
// Weekly bars fall back to aggregating daily bars when the API has none.
type REST struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewREST creates a client for the bar API at baseURL.
func NewREST(baseURL, apiKey string, client *http.Client) *REST {
	return &REST{BaseURL: baseURL, APIKey: apiKey, Client: client}
}

func (r *REST) Name() string { return "rest" }

type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (r *REST) header() http.Header {
	h := http.Header{}
	if r.APIKey != "" {
		h.Set("Authorization", "Bearer "+r.APIKey)
	}
	return h
}

func (r *REST) FetchCandles(ctx context.Context, symbol, timeframe string, since *time.Time, limit int) ([]model.Candle, error) {
	bars, err := r.fetchBars(ctx, symbol, timeframe, since, limit)
	if err == nil {
		return tail(bars, limit), nil
	}
	if timeframe != "1w" {
		return nil, unavailable(r.Name(), "candles", err)
	}

	daily, dailyErr := r.fetchBars(ctx, symbol, "1d", since, limit*7)
	if dailyErr != nil {
		return nil, unavailable(r.Name(), "candles", fmt.Errorf("weekly fetch failed: %w; daily fallback also failed: %w", err, dailyErr))
	}
	return tail(aggregateWeekly(daily), limit), nil
}

func (r *REST) fetchBars(ctx context.Context, symbol, timeframe string, since *time.Time, limit int) ([]model.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", timeframe)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if since != nil {
		q.Set("since", strconv.FormatInt(since.Unix(), 10))
	}

	body, err := httpclient.Get(ctx, r.Client, r.BaseURL+"/api/v1/bars?"+q.Encode(), r.header())
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	var raw []restBar
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.Candle, len(raw))
	for i, b := range raw {
		bars[i] = model.Candle{
			Time:   time.Unix(b.Timestamp, 0).UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return normalize(bars), nil
}

func (r *REST) FetchOrderBook(ctx context.Context, symbol string, limit int) (*model.OrderBook, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	body, err := httpclient.Get(ctx, r.Client, r.BaseURL+"/api/v1/orderbook?"+q.Encode(), r.header())
	if err != nil {
		return nil, unavailable(r.Name(), "order book", err)
	}
	var book model.OrderBook
	if err := json.Unmarshal(body, &book); err != nil {
		return nil, unavailable(r.Name(), "order book", fmt.Errorf("decode order book: %w", err))
	}
	if book.Symbol == "" {
		book.Symbol = symbol
	}
	return &book, nil
}

// aggregateWeekly folds ascending daily candles into ISO-week candles.
func aggregateWeekly(daily []model.Candle) []model.Candle {
	var weekly []model.Candle
	for _, d := range daily {
		if n := len(weekly); n > 0 && sameISOWeek(weekly[n-1].Time, d.Time) {
			w := &weekly[n-1]
			w.High = max(w.High, d.High)
			w.Low = min(w.Low, d.Low)
			w.Close = d.Close
			w.Volume += d.Volume
			continue
		}
		weekly = append(weekly, d)
	}
	return weekly
}

func sameISOWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}
