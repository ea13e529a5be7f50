package components

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
)

// leadingCandleKeys are emitted first, in this order.
var leadingCandleKeys = []string{"date", "open", "high", "low", "close", "volume"}

// ErrFreqtradeBody marks a webhook body that cannot be turned into candles.
var ErrFreqtradeBody = errors.New("invalid freqtrade body")

// droppedCandleKeys are signal columns that must not reach the prompt.
var droppedCandleKeys = map[string]bool{"enter_tag": true, "enter_long": true, "enter_short": true}

// Freqtrade renders the candles of a freqtrade webhook body. It is built
// from a request, not from configuration.
type Freqtrade struct {
	Exchange  string
	Pair      string
	Timeframe string
	candles   string
}

// NewFreqtrade parses a webhook body of the form
// {exchange, timeframe, metadata: {pair}, candles: [...]}.
func NewFreqtrade(body []byte) (*Freqtrade, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrFreqtradeBody)
	}
	doc := gjson.ParseBytes(body)
	candles := doc.Get("candles")
	if !candles.IsArray() {
		return nil, fmt.Errorf("%w: candles must be an array", ErrFreqtradeBody)
	}
	pair := doc.Get("metadata.pair")
	if !pair.Exists() {
		return nil, fmt.Errorf("%w: metadata.pair is missing", ErrFreqtradeBody)
	}

	var items []string
	var err error
	candles.ForEach(func(_, c gjson.Result) bool {
		var item string
		item, err = transformCandle(c)
		if err != nil {
			return false
		}
		items = append(items, item)
		return true
	})
	if err != nil {
		return nil, err
	}

	return &Freqtrade{
		Exchange:  doc.Get("exchange").String(),
		Pair:      pair.String(),
		Timeframe: doc.Get("timeframe").String(),
		candles:   "[" + strings.Join(items, ",") + "]",
	}, nil
}

func transformCandle(c gjson.Result) (string, error) {
	if !c.IsObject() {
		return "", fmt.Errorf("%w: candle is not an object: %s", ErrFreqtradeBody, c.Raw)
	}
	var fields []string
	for _, k := range leadingCandleKeys {
		if v, ok := lookupKey(c, k); ok {
			fields = append(fields, fmt.Sprintf("%q:%s", k, v.Raw))
		}
	}
	c.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if slices.Contains(leadingCandleKeys, key) || droppedCandleKeys[key] {
			return true
		}
		fields = append(fields, k.Raw+":"+v.Raw)
		return true
	})
	return compactJSON([]byte("{" + strings.Join(fields, ",") + "}"))
}

func lookupKey(obj gjson.Result, key string) (gjson.Result, bool) {
	var found gjson.Result
	var ok bool
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			found, ok = v, true
		}
		return true
	})
	return found, ok
}

func (f *Freqtrade) Name() string { return "freqtrade" }

func (f *Freqtrade) Description() string {
	return fmt.Sprintf("Historical market data from %s for trading pair %s and timeframe %s", f.Exchange, f.Pair, f.Timeframe)
}

func (f *Freqtrade) Content(context.Context) (string, error) { return f.candles, nil }
