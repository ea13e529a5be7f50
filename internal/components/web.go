package components

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"MarketPrompt/internal/httpclient"
	"MarketPrompt/internal/model"
	"MarketPrompt/internal/prompt"
)

const (
	fearGreedURL         = "https://production.dataviz.cnn.io/index/fearandgreed/graphdata"
	fearGreedError       = `{"error": "Error fetching fear and greed index"}`
	fearGreedDescription = `The following JSON document contains comprehensive market sentiment information based on the Fear and Greed index and several related indicators. It includes an overall Fear and Greed metric with its current score, rating, timestamp, and historical comparison values (from the previous close, week, month, and year). In addition, it provides detailed sentiment data for various market aspects such as market momentum for major indices (S&P 500 and S&P 125), stock price strength and breadth, put-call options ratios, and market volatility as measured by the VIX and its 50-day variant. Other metrics include indicators for junk bond demand and safe haven demand. Each of these indicators is presented with a timestamp, numerical score, qualitative rating (for example, “fear” or “extreme greed”), and, where applicable, an array of time-stamped data points that offer additional insights into the metric's evolution.`
	browserUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.93 Safari/537.36"
)

// FearGreedConfig configures the CNN fear and greed component. Date is
// YYYY-MM-DD and defaults to today.
type FearGreedConfig struct {
	Description string `yaml:"description"`
	Date        string `yaml:"date"`
	BaseURL     string `yaml:"base_url"`
}

// FearGreed fetches the CNN fear and greed index.
type FearGreed struct {
	prompt.Base
	cfg    FearGreedConfig
	client *http.Client
}

// NewFearGreed creates a fear and greed component.
func NewFearGreed(cfg FearGreedConfig, client *http.Client) *FearGreed {
	if cfg.BaseURL == "" {
		cfg.BaseURL = fearGreedURL
	}
	return &FearGreed{
		Base:   prompt.Base{Template: cfg.Description, Vars: map[string]any{"date": cfg.Date}},
		cfg:    cfg,
		client: client,
	}
}

func (f *FearGreed) Name() string { return "fear_greed" }

func (f *FearGreed) Content(ctx context.Context) (string, error) {
	u := strings.TrimRight(f.cfg.BaseURL, "/") + "/" + f.cfg.Date
	body, err := httpclient.Get(ctx, f.client, u, http.Header{
		"Accept":     {"application/json"},
		"User-Agent": {browserUserAgent},
	})
	if err != nil {
		return "", prompt.Fail(fearGreedError, err)
	}
	out, err := compactJSON(body)
	if err != nil {
		return "", prompt.Fail(fearGreedError, err)
	}
	return out, nil
}

func buildFearGreed(opts *yaml.Node, deps Deps) (prompt.Component, error) {
	cfg := FearGreedConfig{Description: fearGreedDescription}
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}
	if cfg.Date == "" {
		cfg.Date = deps.Now().Format("2006-01-02")
	}
	return NewFearGreed(cfg, deps.HTTP), nil
}

const (
	alphaVantageURL   = "https://www.alphavantage.co/query"
	alphaVantageError = `{"error": "Error fetching data from Alpha Vantage"}`
	alphaVantageEnv   = "ALPHA_VANTAGE_API_KEY"
)

// ErrMissingAPIKey is returned when a required API key is not set.
var ErrMissingAPIKey = errors.New("api key not set in environment")

// AlphaVantageConfig configures an Alpha Vantage query. Params are passed
// as query parameters, e.g. function: NEWS_SENTIMENT.
type AlphaVantageConfig struct {
	Description string            `yaml:"description"`
	Params      map[string]string `yaml:"params"`
	BaseURL     string            `yaml:"base_url"`
}

// AlphaVantage queries the Alpha Vantage API.
type AlphaVantage struct {
	prompt.Base
	cfg    AlphaVantageConfig
	client *http.Client
	getenv func(string) string
}

// NewAlphaVantage creates an Alpha Vantage component. The API key is read
// from ALPHA_VANTAGE_API_KEY through getenv on every fetch.
func NewAlphaVantage(cfg AlphaVantageConfig, client *http.Client, getenv func(string) string) *AlphaVantage {
	if cfg.BaseURL == "" {
		cfg.BaseURL = alphaVantageURL
	}
	vars := map[string]any{}
	for k, v := range cfg.Params {
		vars[k] = v
	}
	return &AlphaVantage{
		Base:   prompt.Base{Template: cfg.Description, Vars: vars},
		cfg:    cfg,
		client: client,
		getenv: getenv,
	}
}

func (a *AlphaVantage) Name() string { return "alpha_vantage" }

// Content fails hard when the API key is missing; that is a setup error
// rather than a fetch failure.
func (a *AlphaVantage) Content(ctx context.Context) (string, error) {
	key := a.getenv(alphaVantageEnv)
	if key == "" {
		return "", fmt.Errorf("alpha vantage: %w", ErrMissingAPIKey)
	}
	q := url.Values{}
	for k, v := range a.cfg.Params {
		q.Set(k, v)
	}
	q.Set("apikey", key)

	body, err := httpclient.Get(ctx, a.client, a.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", prompt.Fail(alphaVantageError, err)
	}
	out, err := compactJSON(body)
	if err != nil {
		return "", prompt.Fail(alphaVantageError, err)
	}
	return out, nil
}

func buildAlphaVantage(opts *yaml.Node, deps Deps) (prompt.Component, error) {
	var cfg AlphaVantageConfig
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}
	return NewAlphaVantage(cfg, deps.HTTP, deps.Getenv), nil
}

const (
	defaultFeedURL = "https://news.bitcoin.com/feed/"
	rssError       = `{"error": "Error parsing rss feed"}`
	rssDescription = `The following JSON document from {{feedUrl}} is an array of objects, each representing an RSS feed item.`
)

// RSSConfig configures the feed component. A zero Limit keeps every item.
type RSSConfig struct {
	Description string `yaml:"description"`
	FeedURL     string `yaml:"feed_url"`
	Limit       int    `yaml:"limit"`
}

// RSS renders the items of an RSS or Atom feed as articles with HTML
// stripped from their content.
type RSS struct {
	prompt.Base
	cfg    RSSConfig
	parser *gofeed.Parser
}

// NewRSS creates a feed component.
func NewRSS(cfg RSSConfig, client *http.Client) *RSS {
	parser := gofeed.NewParser()
	parser.Client = client
	return &RSS{
		Base: prompt.Base{Template: cfg.Description, Vars: map[string]any{
			"feedUrl":  cfg.FeedURL,
			"feed_url": cfg.FeedURL,
			"limit":    cfg.Limit,
		}},
		cfg:    cfg,
		parser: parser,
	}
}

func (r *RSS) Name() string { return "rss" }

func (r *RSS) Content(ctx context.Context) (string, error) {
	feed, err := r.parser.ParseURLWithContext(r.cfg.FeedURL, ctx)
	if err != nil {
		return "", prompt.Fail(rssError, fmt.Errorf("feed %s: %w", r.cfg.FeedURL, err))
	}

	articles := make([]model.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		content := item.Content
		if content == "" {
			content = item.Description
		}
		articles = append(articles, model.Article{
			PubDate: item.Published,
			Title:   item.Title,
			Content: StripTags(content),
		})
	}
	if r.cfg.Limit > 0 && len(articles) > r.cfg.Limit {
		articles = articles[:r.cfg.Limit]
	}

	data, err := json.Marshal(articles)
	if err != nil {
		return "", prompt.Fail(rssError, err)
	}
	return string(data), nil
}

func buildRSS(opts *yaml.Node, deps Deps) (prompt.Component, error) {
	cfg := RSSConfig{Description: rssDescription, FeedURL: defaultFeedURL}
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}
	return NewRSS(cfg, deps.HTTP), nil
}

// StripTags removes HTML markup and keeps the text in document order.
func StripTags(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			sb.Write(z.Text())
		}
	}
}

const webScraperError = `{"error": "Error fetching website"}`

// WebScraperConfig configures the web page component.
type WebScraperConfig struct {
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
}

// WebScraper renders the visible body text of a web page.
type WebScraper struct {
	prompt.Base
	cfg    WebScraperConfig
	client *http.Client
}

// NewWebScraper creates a web page component.
func NewWebScraper(cfg WebScraperConfig, client *http.Client) *WebScraper {
	return &WebScraper{
		Base:   prompt.Base{Template: cfg.Description, Vars: map[string]any{"url": cfg.URL}},
		cfg:    cfg,
		client: client,
	}
}

func (w *WebScraper) Name() string { return "web_scraper" }

func (w *WebScraper) Content(ctx context.Context) (string, error) {
	body, err := httpclient.Get(ctx, w.client, w.cfg.URL, nil)
	if err != nil {
		return "", prompt.Fail(webScraperError, fmt.Errorf("url=%s: %w", w.cfg.URL, err))
	}
	text, err := BodyText(body)
	if err != nil {
		return "", prompt.Fail(webScraperError, fmt.Errorf("url=%s: %w", w.cfg.URL, err))
	}
	return text, nil
}

func buildWebScraper(opts *yaml.Node, deps Deps) (prompt.Component, error) {
	var cfg WebScraperConfig
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	return NewWebScraper(cfg, deps.HTTP), nil
}

var skippedElements = map[string]bool{"script": true, "style": true, "noscript": true}

// BodyText returns the text of the <body> element without script, style and
// noscript content, with whitespace runs collapsed to single spaces.
func BodyText(page []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	body := findElement(doc, "body")
	if body == nil {
		return "", nil
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	return strings.Join(strings.Fields(sb.String()), " "), nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// compactJSON validates and compacts a JSON response body.
func compactJSON(body []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return "", fmt.Errorf("invalid json: %w", err)
	}
	return buf.String(), nil
}
