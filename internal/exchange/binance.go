package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"MarketPrompt/internal/httpclient"
	"MarketPrompt/internal/model"
)

const (
	binanceBaseURL  = "https://api.binance.com"
	binanceMaxLimit = 1000
)

// Binance implements Client over the public Binance spot REST API.
type Binance struct {
	BaseURL string
	Client  *http.Client
}

// NewBinance creates a Binance client.
func NewBinance(client *http.Client) *Binance {
	return &Binance{BaseURL: binanceBaseURL, Client: client}
}

func (b *Binance) Name() string { return "binance" }

// FetchCandles pages through /api/v3/klines. Without since it walks
// backwards from now; with since it walks forward.
func (b *Binance) FetchCandles(ctx context.Context, symbol, timeframe string, since *time.Time, limit int) ([]model.Candle, error) {
	if _, err := TimeframeDuration(timeframe); err != nil {
		return nil, unavailable(b.Name(), "candles", err)
	}
	if limit <= 0 {
		limit = 500
	}

	var all []model.Candle
	var start, end *int64
	if since != nil {
		ms := since.UnixMilli()
		start = &ms
	}
	for len(all) < limit {
		page := min(limit-len(all), binanceMaxLimit)
		bars, err := b.klines(ctx, MarketID(symbol), timeframe, page, start, end)
		if err != nil {
			return nil, unavailable(b.Name(), "candles", err)
		}
		if len(bars) == 0 {
			break
		}
		if since != nil {
			all = append(all, bars...)
			next := bars[len(bars)-1].Time.UnixMilli() + 1
			start = &next
		} else {
			all = append(bars, all...)
			prev := bars[0].Time.UnixMilli() - 1
			end = &prev
		}
		if len(bars) < page {
			break
		}
	}

	all = normalize(all)
	if since != nil && len(all) > limit {
		all = all[:limit]
	}
	return tail(all, limit), nil
}

func (b *Binance) klines(ctx context.Context, market, interval string, limit int, start, end *int64) ([]model.Candle, error) {
	q := url.Values{}
	q.Set("symbol", market)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))
	if start != nil {
		q.Set("startTime", strconv.FormatInt(*start, 10))
	}
	if end != nil {
		q.Set("endTime", strconv.FormatInt(*end, 10))
	}

	body, err := httpclient.Get(ctx, b.Client, b.BaseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	bars := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline has %d fields", len(row))
		}
		var openTime int64
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			return nil, fmt.Errorf("decode open time: %w", err)
		}
		var vals [5]float64
		for i := range vals {
			v, err := decimalString(row[i+1])
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		bars = append(bars, model.Candle{
			Time:   time.UnixMilli(openTime).UTC(),
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	return bars, nil
}

// decimalString parses a JSON string holding a decimal number.
func decimalString(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("decode decimal: %w", err)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

type binanceDepth struct {
	LastUpdateID int64               `json:"lastUpdateId"`
	Bids         [][]json.RawMessage `json:"bids"`
	Asks         [][]json.RawMessage `json:"asks"`
}

// FetchOrderBook reads /api/v3/depth.
func (b *Binance) FetchOrderBook(ctx context.Context, symbol string, limit int) (*model.OrderBook, error) {
	if limit <= 0 {
		limit = 100
	}
	q := url.Values{}
	q.Set("symbol", MarketID(symbol))
	q.Set("limit", strconv.Itoa(limit))

	body, err := httpclient.Get(ctx, b.Client, b.BaseURL+"/api/v3/depth?"+q.Encode(), nil)
	if err != nil {
		return nil, unavailable(b.Name(), "order book", err)
	}
	var depth binanceDepth
	if err := json.Unmarshal(body, &depth); err != nil {
		return nil, unavailable(b.Name(), "order book", fmt.Errorf("decode depth: %w", err))
	}
	bids, err := priceLevels(depth.Bids)
	if err != nil {
		return nil, unavailable(b.Name(), "order book", err)
	}
	asks, err := priceLevels(depth.Asks)
	if err != nil {
		return nil, unavailable(b.Name(), "order book", err)
	}
	return &model.OrderBook{
		Symbol: symbol,
		Bids:   bids,
		Asks:   asks,
		Nonce:  depth.LastUpdateID,
	}, nil
}

func priceLevels(rows [][]json.RawMessage) ([]model.PriceLevel, error) {
	out := make([]model.PriceLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("price level has %d fields", len(row))
		}
		price, err := decimalString(row[0])
		if err != nil {
			return nil, err
		}
		amount, err := decimalString(row[1])
		if err != nil {
			return nil, err
		}
		out = append(out, model.PriceLevel{price, amount})
	}
	return out, nil
}
