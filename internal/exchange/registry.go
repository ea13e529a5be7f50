package exchange

import (
	"fmt"
	"net/http"
)

// Options configures clients that need more than an HTTP client.
type Options struct {
	RESTBaseURL string
	RESTAPIKey  string
	MockPrice   float64
}

// New returns the client registered under name.
func New(name string, client *http.Client, opts Options) (Client, error) {
	switch name {
	case "binance":
		return NewBinance(client), nil
	case "yahoo":
		return NewYahoo(client), nil
	case "rest":
		if opts.RESTBaseURL == "" {
			return nil, fmt.Errorf("exchange rest: base url not configured")
		}
		return NewREST(opts.RESTBaseURL, opts.RESTAPIKey, client), nil
	case "mock":
		price := opts.MockPrice
		if price == 0 {
			price = 50000
		}
		return &Mock{Price: price}, nil
	default:
		return nil, fmt.Errorf("unknown exchange %q", name)
	}
}

// Names lists the registered exchanges.
func Names() []string { return []string{"binance", "yahoo", "rest", "mock"} }
