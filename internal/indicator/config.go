package indicator

// PeriodConfig configures a single-window indicator.
type PeriodConfig struct {
	Period int `yaml:"period"`
}

// MACDConfig configures MACD.
type MACDConfig struct {
	ShortPeriod  int `yaml:"short_period"`
	LongPeriod   int `yaml:"long_period"`
	SignalPeriod int `yaml:"signal_period"`
}

// BBandsConfig configures Bollinger Bands.
type BBandsConfig struct {
	Period int     `yaml:"period"`
	StdDev float64 `yaml:"stddev"`
}

// Config is the set of indicators requested for one candle series. Nil
// entries are not computed.
type Config struct {
	SMA    *PeriodConfig `yaml:"sma"`
	EMA    *PeriodConfig `yaml:"ema"`
	RSI    *PeriodConfig `yaml:"rsi"`
	MACD   *MACDConfig   `yaml:"macd"`
	ATR    *PeriodConfig `yaml:"atr"`
	BBands *BBandsConfig `yaml:"bbands"`
}

// Specs returns the requested indicators in output order.
func (c Config) Specs() []Spec {
	var specs []Spec
	if c.SMA != nil {
		specs = append(specs, Spec{Kind: SMA, Period: c.SMA.Period})
	}
	if c.EMA != nil {
		specs = append(specs, Spec{Kind: EMA, Period: c.EMA.Period})
	}
	if c.RSI != nil {
		specs = append(specs, Spec{Kind: RSI, Period: c.RSI.Period})
	}
	if c.MACD != nil {
		specs = append(specs, Spec{Kind: MACD, Short: c.MACD.ShortPeriod, Long: c.MACD.LongPeriod, Signal: c.MACD.SignalPeriod})
	}
	if c.ATR != nil {
		specs = append(specs, Spec{Kind: ATR, Period: c.ATR.Period})
	}
	if c.BBands != nil {
		specs = append(specs, Spec{Kind: BBANDS, Period: c.BBands.Period, StdDev: c.BBands.StdDev})
	}
	return specs
}

// Validate checks every requested indicator.
func (c Config) Validate() error {
	for _, s := range c.Specs() {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
