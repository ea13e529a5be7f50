package components

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"MarketPrompt/internal/prompt"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>News</title>
<item><title>First</title><pubDate>Mon, 01 Jan 2024 10:00:00 +0000</pubDate><description><![CDATA[<p>Bitcoin <b>up</b></p>]]></description></item>
<item><title>Second</title><pubDate>Tue, 02 Jan 2024 10:00:00 +0000</pubDate><description>plain</description></item>
<item><title>Third</title><description>third</description></item>
</channel></rss>`

func TestRSS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, sampleFeed)
	}))
	defer srv.Close()

	c := NewRSS(RSSConfig{Description: rssDescription, FeedURL: srv.URL, Limit: 2}, srv.Client())
	if !strings.Contains(c.Description(), "from "+srv.URL+" is an array") {
		t.Errorf("Description() = %q", c.Description())
	}
	content, err := c.Content(context.Background())
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	want := `[{"pubDate":"Mon, 01 Jan 2024 10:00:00 +0000","title":"First","content":"Bitcoin up"},` +
		`{"pubDate":"Tue, 02 Jan 2024 10:00:00 +0000","title":"Second","content":"plain"}]`
	if content != want {
		t.Errorf("content =\n%s\nwant\n%s", content, want)
	}
}

func TestRSS_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not a feed")
	}))
	defer srv.Close()

	_, err := NewRSS(RSSConfig{FeedURL: srv.URL}, srv.Client()).Content(context.Background())
	var fe *prompt.FailureError
	if !errors.As(err, &fe) || fe.Payload != rssError {
		t.Errorf("err = %v", err)
	}
}

func TestBodyText(t *testing.T) {
	page := `<html><head><title>T</title><style>p{}</style></head>
<body><script>var x = 1;</script>
  <h1>Market</h1>
  <p>BTC   at <b>60k</b></p><noscript>enable js</noscript>
</body></html>`
	got, err := BodyText([]byte(page))
	if err != nil {
		t.Fatalf("BodyText: %v", err)
	}
	if got != "Market BTC at 60k" {
		t.Errorf("BodyText = %q", got)
	}
}

func TestWebScraper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "<body><p>hello</p></body>")
	}))
	defer srv.Close()

	got, err := NewWebScraper(WebScraperConfig{URL: srv.URL}, srv.Client()).Content(context.Background())
	if err != nil || got != "hello" {
		t.Errorf("Content = %q, %v", got, err)
	}
	_, err = NewWebScraper(WebScraperConfig{URL: srv.URL + "/missing"}, srv.Client()).Content(context.Background())
	var fe *prompt.FailureError
	if !errors.As(err, &fe) || fe.Payload != webScraperError {
		t.Errorf("err = %v", err)
	}
}

func TestStripTags(t *testing.T) {
	if got := StripTags(`<p>a &amp; <a href="x">b</a></p>`); got != "a & b" {
		t.Errorf("StripTags = %q", got)
	}
}

func TestFearGreed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graphdata/2025-03-07" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if !strings.Contains(r.Header.Get("User-Agent"), "Chrome") {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		fmt.Fprint(w, `{ "fear_and_greed": { "score": 21.5, "rating": "extreme fear" } }`)
	}))
	defer srv.Close()

	deps := mockDeps(nil)
	deps.HTTP = srv.Client()
	c, err := Build("fear_greed", yamlNode(t, "base_url: "+srv.URL+"/graphdata"), deps)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, err := c.Content(context.Background())
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if got != `{"fear_and_greed":{"score":21.5,"rating":"extreme fear"}}` {
		t.Errorf("content = %s", got)
	}
}

func TestAlphaVantage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("apikey") != "demo" || q.Get("function") != "NEWS_SENTIMENT" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"feed": []}`)
	}))
	defer srv.Close()

	cfg := AlphaVantageConfig{
		Description: "News for {{tickers}}",
		Params:      map[string]string{"function": "NEWS_SENTIMENT", "tickers": "CRYPTO:BTC"},
		BaseURL:     srv.URL,
	}
	c := NewAlphaVantage(cfg, srv.Client(), func(k string) string {
		if k == alphaVantageEnv {
			return "demo"
		}
		return ""
	})
	if c.Description() != "News for CRYPTO:BTC" {
		t.Errorf("Description() = %q", c.Description())
	}
	if got, err := c.Content(context.Background()); err != nil || got != `{"feed":[]}` {
		t.Errorf("Content = %q, %v", got, err)
	}

	noKey := NewAlphaVantage(cfg, srv.Client(), func(string) string { return "" })
	_, err := noKey.Content(context.Background())
	var fe *prompt.FailureError
	if !errors.Is(err, ErrMissingAPIKey) || errors.As(err, &fe) {
		t.Errorf("missing key err = %v, want hard ErrMissingAPIKey", err)
	}
}

func TestRestJWT(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/token/login", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if r.Method != http.MethodPost || !ok || user != "bot" || pass != "secret" {
			http.Error(w, "denied", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok123","refresh_token":"r"}`)
	})
	mux.HandleFunc("/api/v1/trades", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok123" {
			http.Error(w, "no token", http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `{"trades": [ {"pair": "BTC/USDT", "limit": %q} ]}`, r.URL.Query().Get("limit"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewRestJWT(RestJWTConfig{
		Username: "bot",
		Password: "secret",
		URL:      srv.URL + "/api/v1/trades",
		Params:   map[string]string{"limit": "5"},
	}, srv.Client())
	got, err := c.Content(context.Background())
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if got != `{"trades":[{"pair":"BTC/USDT","limit":"5"}]}` {
		t.Errorf("content = %s", got)
	}

	bad := NewRestJWT(RestJWTConfig{Username: "bot", Password: "wrong", URL: srv.URL + "/api/v1/trades"}, srv.Client())
	_, err = bad.Content(context.Background())
	var fe *prompt.FailureError
	if !errors.As(err, &fe) || !strings.HasPrefix(fe.Payload, "Error: ") {
		t.Errorf("err = %v", err)
	}
}

func TestSQL_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "trades.db")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{
		`CREATE TABLE trades (pair TEXT, profit REAL, note BLOB)`,
		`INSERT INTO trades VALUES ('BTC/USDT', 1.5, 'ok'), ('ETH/USDT', -0.25, NULL), ('SOL/USDT', 3, 'x')`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	db.Close()

	c, err := Build("sql", yamlNode(t, fmt.Sprintf(`
driver: sqlite
dsn: %s
query: SELECT pair, profit, note FROM trades WHERE profit < ? ORDER BY pair
args: [2]
`, dsn)), mockDeps(nil))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, err := c.Content(context.Background())
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	want := `[{"pair":"BTC/USDT","profit":1.5,"note":"ok"},{"pair":"ETH/USDT","profit":-0.25,"note":null}]`
	if got != want {
		t.Errorf("content = %s, want %s", got, want)
	}

	broken := NewSQL(SQLConfig{Driver: "sqlite", DSN: dsn, Query: "SELECT * FROM nope"})
	_, err = broken.Content(context.Background())
	var fe *prompt.FailureError
	if !errors.As(err, &fe) || fe.Payload != sqlError {
		t.Errorf("err = %v", err)
	}

	if _, err := Build("sql", yamlNode(t, "driver: mysql\ndsn: x\nquery: y"), mockDeps(nil)); err == nil {
		t.Error("unsupported driver should fail")
	}
}
