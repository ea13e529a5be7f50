package components

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"MarketPrompt/internal/alignment"
	"MarketPrompt/internal/exchange"
	"MarketPrompt/internal/indicator"
	"MarketPrompt/internal/prompt"
)

const (
	indicatorsError       = `{"error":"Error fetching OHLCV data"}`
	indicatorsDescription = `The following JSON array contains historical market data for the trading pair {{symbol}} over a {{timeframe}} timeframe.`
)

// OHLCVIndicatorsConfig configures the candle component with technical
// indicators. OutputCandles defaults to InputCandles when unset; an explicit
// zero emits no rows.
type OHLCVIndicatorsConfig struct {
	Description   string           `yaml:"description"`
	Exchange      string           `yaml:"exchange"`
	Symbol        string           `yaml:"symbol"`
	Timeframe     string           `yaml:"timeframe"`
	Since         *int64           `yaml:"since"`
	InputCandles  int              `yaml:"input_candles"`
	OutputCandles *int             `yaml:"output_candles"`
	Indicators    indicator.Config `yaml:"indicators"`
}

// DefaultOHLCVIndicatorsConfig returns the defaults applied before decoding
// options.
func DefaultOHLCVIndicatorsConfig() OHLCVIndicatorsConfig {
	return OHLCVIndicatorsConfig{
		Description:  indicatorsDescription,
		Exchange:     defaultExchange,
		Symbol:       defaultSymbol,
		Timeframe:    defaultTimeframe,
		InputCandles: defaultCandles,
	}
}

func (c OHLCVIndicatorsConfig) outputCandles() int {
	if c.OutputCandles == nil {
		return c.InputCandles
	}
	return *c.OutputCandles
}

// OHLCVIndicators fetches InputCandles candles, computes the requested
// indicators over them and emits the trailing rows where every indicator
// has a value:
//
//	{"<timeframe>": {"candles": [...], "indicators": [{"time": ..., "sma": ...}]}}
type OHLCVIndicators struct {
	prompt.Base
	cfg      OHLCVIndicatorsConfig
	specs    []indicator.Spec
	client   exchange.Client
	computer indicator.Computer
	log      logrus.FieldLogger
}

// NewOHLCVIndicators creates the component.
func NewOHLCVIndicators(cfg OHLCVIndicatorsConfig, client exchange.Client, computer indicator.Computer, log logrus.FieldLogger) *OHLCVIndicators {
	return &OHLCVIndicators{
		Base: prompt.Base{Template: cfg.Description, Vars: map[string]any{
			"exchange":       cfg.Exchange,
			"symbol":         cfg.Symbol,
			"timeframe":      cfg.Timeframe,
			"since":          optional(cfg.Since),
			"input_candles":  cfg.InputCandles,
			"output_candles": cfg.outputCandles(),
		}},
		cfg:      cfg,
		specs:    cfg.Indicators.Specs(),
		client:   client,
		computer: computer,
		log:      log,
	}
}

func (o *OHLCVIndicators) Name() string { return "ohlcv_indicators" }

func (o *OHLCVIndicators) fail(err error) error {
	return prompt.Fail(indicatorsError, fmt.Errorf("exchange=%s symbol=%s timeframe=%s: %w",
		o.cfg.Exchange, o.cfg.Symbol, o.cfg.Timeframe, err))
}

func (o *OHLCVIndicators) Content(ctx context.Context) (string, error) {
	candles, err := o.client.FetchCandles(ctx, o.cfg.Symbol, o.cfg.Timeframe, sinceTime(o.cfg.Since), o.cfg.InputCandles)
	if err != nil {
		return "", o.fail(err)
	}

	series, err := indicator.ComputeAll(ctx, o.computer, o.specs, indicator.InputFromCandles(candles))
	if err != nil {
		return "", o.fail(err)
	}

	table, err := alignment.Align(candles, series, o.cfg.outputCandles())
	if err != nil {
		return "", o.fail(err)
	}
	if table.Insufficient() {
		o.log.WithFields(logrus.Fields{
			"symbol":        o.cfg.Symbol,
			"timeframe":     o.cfg.Timeframe,
			"candles":       len(candles),
			"global_offset": table.Window.GlobalOffset,
		}).Warn("not enough history for the requested indicators")
	}

	data, err := json.Marshal(map[string]alignment.Table{o.cfg.Timeframe: table})
	if err != nil {
		return "", o.fail(err)
	}
	return string(data), nil
}

func buildOHLCVIndicators(opts *yaml.Node, deps Deps) (prompt.Component, error) {
	cfg := DefaultOHLCVIndicatorsConfig()
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}
	if _, err := exchange.TimeframeDuration(cfg.Timeframe); err != nil {
		return nil, err
	}
	if cfg.InputCandles <= 0 {
		return nil, fmt.Errorf("input_candles must be positive")
	}
	if cfg.OutputCandles != nil && *cfg.OutputCandles < 0 {
		return nil, fmt.Errorf("output_candles must not be negative")
	}
	if err := cfg.Indicators.Validate(); err != nil {
		return nil, err
	}
	client, err := deps.Exchange(cfg.Exchange)
	if err != nil {
		return nil, err
	}
	return NewOHLCVIndicators(cfg, client, deps.Computer, deps.Log), nil
}
