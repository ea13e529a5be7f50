package exchange

import (
	"context"
	"time"

	"MarketPrompt/internal/model"
)

// Mock returns fixed or generated data for development and tests.
type Mock struct {
	Price   float64
	Candles []model.Candle
	Book    *model.OrderBook
	Err     error
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) FetchCandles(_ context.Context, _ string, timeframe string, _ *time.Time, limit int) ([]model.Candle, error) {
	if m.Err != nil {
		return nil, unavailable(m.Name(), "candles", m.Err)
	}
	if m.Candles != nil {
		return tail(m.Candles, limit), nil
	}
	d, err := TimeframeDuration(timeframe)
	if err != nil {
		return nil, unavailable(m.Name(), "candles", err)
	}
	return GenerateCandles(m.Price, limit, d, time.Now().UTC().Truncate(d)), nil
}

func (m *Mock) FetchOrderBook(_ context.Context, symbol string, limit int) (*model.OrderBook, error) {
	if m.Err != nil {
		return nil, unavailable(m.Name(), "order book", m.Err)
	}
	if m.Book != nil {
		return m.Book, nil
	}
	if limit <= 0 {
		limit = 5
	}
	book := &model.OrderBook{Symbol: symbol, Nonce: 1}
	for i := 1; i <= limit; i++ {
		step := float64(i) * 0.0005
		book.Bids = append(book.Bids, model.PriceLevel{m.Price * (1 - step), 1})
		book.Asks = append(book.Asks, model.PriceLevel{m.Price * (1 + step), 1})
	}
	return book, nil
}

// GenerateCandles builds count ascending candles ending at end, drifting
// gently around basePrice.
func GenerateCandles(basePrice float64, count int, step time.Duration, end time.Time) []model.Candle {
	if count < 0 {
		count = 0
	}
	bars := make([]model.Candle, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Candle{
			Time:   end.Add(-step * time.Duration(count-1-i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
