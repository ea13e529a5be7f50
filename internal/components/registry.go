// Package components holds the prompt components a job can be built from.
// Every component is configured from a YAML options block and renders its
// fetched data as JSON or text.
package components

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"MarketPrompt/internal/exchange"
	"MarketPrompt/internal/httpclient"
	"MarketPrompt/internal/indicator"
	"MarketPrompt/internal/prompt"
)

// Deps are the collaborators shared by all components.
type Deps struct {
	HTTP     *http.Client
	Exchange func(name string) (exchange.Client, error)
	Computer indicator.Computer
	Log      logrus.FieldLogger
	Getenv   func(string) string
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.HTTP == nil {
		d.HTTP = httpclient.New("", 0)
	}
	if d.Exchange == nil {
		client := d.HTTP
		d.Exchange = func(name string) (exchange.Client, error) {
			return exchange.New(name, client, exchange.Options{})
		}
	}
	if d.Computer == nil {
		d.Computer = indicator.NewTalibComputer()
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Getenv == nil {
		d.Getenv = os.Getenv
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

type builder func(opts *yaml.Node, deps Deps) (prompt.Component, error)

var builders = map[string]builder{
	"text":             buildText,
	"file":             buildFile,
	"ohlcv":            buildOHLCV,
	"ohlcv_indicators": buildOHLCVIndicators,
	"orderbook":        buildOrderBook,
	"fear_greed":       buildFearGreed,
	"alpha_vantage":    buildAlphaVantage,
	"rss":              buildRSS,
	"web_scraper":      buildWebScraper,
	"rest_jwt":         buildRestJWT,
	"sql":              buildSQL,
	"mongo":            buildMongo,
}

// Types lists the component types that can be built from configuration.
func Types() []string {
	out := make([]string, 0, len(builders))
	for t := range builders {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Known reports whether typ can be built from configuration.
func Known(typ string) bool {
	_, ok := builders[typ]
	return ok
}

// Build creates the component of type typ from its options.
func Build(typ string, opts *yaml.Node, deps Deps) (prompt.Component, error) {
	b, ok := builders[typ]
	if !ok {
		return nil, fmt.Errorf("unknown component type %q", typ)
	}
	c, err := b(opts, deps.withDefaults())
	if err != nil {
		return nil, fmt.Errorf("component %s: %w", typ, err)
	}
	return c, nil
}

// decode fills cfg from opts. An empty node leaves the defaults untouched.
func decode(opts *yaml.Node, cfg any) error {
	if opts == nil || opts.Kind == 0 {
		return nil
	}
	if err := opts.Decode(cfg); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	return nil
}

func sinceTime(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}

func optional[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
