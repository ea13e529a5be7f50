package components

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"MarketPrompt/internal/exchange"
	"MarketPrompt/internal/model"
	"MarketPrompt/internal/prompt"
)

const (
	ohlcvError = `{"error": "Error fetching OHLCV data"}`

	ohlcvDescription = `The following JSON array contains historical market data for the trading pair {{symbol}} over a {{timeframe}} timeframe. Each object in the array represents a interval and includes a timestamp in the "date" field, as well as the "open", "high", "low", and "close" prices for that period, along with the "volume" traded during that interval.`

	defaultExchange  = "binance"
	defaultSymbol    = "BTC/USDC"
	defaultTimeframe = "1d"
	defaultCandles   = 30
)

// OHLCVConfig configures the candle component. Since is a Unix time in
// milliseconds.
type OHLCVConfig struct {
	Description string `yaml:"description"`
	Exchange    string `yaml:"exchange"`
	Symbol      string `yaml:"symbol"`
	Timeframe   string `yaml:"timeframe"`
	Since       *int64 `yaml:"since"`
	Limit       int    `yaml:"limit"`
}

// DefaultOHLCVConfig returns the defaults applied before decoding options.
func DefaultOHLCVConfig() OHLCVConfig {
	return OHLCVConfig{
		Description: ohlcvDescription,
		Exchange:    defaultExchange,
		Symbol:      defaultSymbol,
		Timeframe:   defaultTimeframe,
		Limit:       defaultCandles,
	}
}

// OHLCV renders candles as a JSON array of {date, open, high, low, close, volume}.
type OHLCV struct {
	prompt.Base
	cfg    OHLCVConfig
	client exchange.Client
}

// NewOHLCV creates a candle component reading from client.
func NewOHLCV(cfg OHLCVConfig, client exchange.Client) *OHLCV {
	return &OHLCV{
		Base: prompt.Base{Template: cfg.Description, Vars: map[string]any{
			"exchange":  cfg.Exchange,
			"symbol":    cfg.Symbol,
			"timeframe": cfg.Timeframe,
			"since":     optional(cfg.Since),
			"limit":     cfg.Limit,
		}},
		cfg:    cfg,
		client: client,
	}
}

func (o *OHLCV) Name() string { return "ohlcv" }

type datedCandle struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func (o *OHLCV) Content(ctx context.Context) (string, error) {
	candles, err := o.client.FetchCandles(ctx, o.cfg.Symbol, o.cfg.Timeframe, sinceTime(o.cfg.Since), o.cfg.Limit)
	if err != nil {
		return "", prompt.Fail(ohlcvError, fmt.Errorf("exchange=%s symbol=%s timeframe=%s: %w", o.cfg.Exchange, o.cfg.Symbol, o.cfg.Timeframe, err))
	}
	out := make([]datedCandle, len(candles))
	for i, c := range candles {
		out[i] = datedCandle{model.FormatTime(c.Time), c.Open, c.High, c.Low, c.Close, c.Volume}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", prompt.Fail(ohlcvError, err)
	}
	return string(data), nil
}

func buildOHLCV(opts *yaml.Node, deps Deps) (prompt.Component, error) {
	cfg := DefaultOHLCVConfig()
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}
	if _, err := exchange.TimeframeDuration(cfg.Timeframe); err != nil {
		return nil, err
	}
	client, err := deps.Exchange(cfg.Exchange)
	if err != nil {
		return nil, err
	}
	return NewOHLCV(cfg, client), nil
}

const orderBookDescription = `The following JSON document represents an order book for a trading pair. It includes a "symbol" field that specifies the trading pair, two arrays called "bids" and "asks" where each entry is a two-element array containing the price and amount respectively, and a "nonce" field that serves as a sequential identifier for the order book snapshot.`

const orderBookError = `{"error": "Error fetching order book"}`

// OrderBookConfig configures the order book component.
type OrderBookConfig struct {
	Description string `yaml:"description"`
	Exchange    string `yaml:"exchange"`
	Symbol      string `yaml:"symbol"`
	Limit       int    `yaml:"limit"`
}

// OrderBook renders an order book snapshot.
type OrderBook struct {
	prompt.Base
	cfg    OrderBookConfig
	client exchange.Client
}

// NewOrderBook creates an order book component.
func NewOrderBook(cfg OrderBookConfig, client exchange.Client) *OrderBook {
	return &OrderBook{
		Base: prompt.Base{Template: cfg.Description, Vars: map[string]any{
			"exchange": cfg.Exchange,
			"symbol":   cfg.Symbol,
			"limit":    cfg.Limit,
		}},
		cfg:    cfg,
		client: client,
	}
}

func (o *OrderBook) Name() string { return "orderbook" }

func (o *OrderBook) Content(ctx context.Context) (string, error) {
	book, err := o.client.FetchOrderBook(ctx, o.cfg.Symbol, o.cfg.Limit)
	if err != nil {
		return "", prompt.Fail(orderBookError, fmt.Errorf("exchange=%s symbol=%s: %w", o.cfg.Exchange, o.cfg.Symbol, err))
	}
	if book.Bids == nil {
		book.Bids = []model.PriceLevel{}
	}
	if book.Asks == nil {
		book.Asks = []model.PriceLevel{}
	}
	data, err := json.Marshal(book)
	if err != nil {
		return "", prompt.Fail(orderBookError, err)
	}
	return string(data), nil
}

func buildOrderBook(opts *yaml.Node, deps Deps) (prompt.Component, error) {
	cfg := OrderBookConfig{
		Description: orderBookDescription,
		Exchange:    defaultExchange,
		Symbol:      defaultSymbol,
	}
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}
	client, err := deps.Exchange(cfg.Exchange)
	if err != nil {
		return nil, err
	}
	return NewOrderBook(cfg, client), nil
}
