package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"MarketPrompt/internal/chat"
	"MarketPrompt/internal/prompt"
)

var (
	_ prompt.Observer = (*Metrics)(nil)
	_ chat.Observer   = (*Metrics)(nil)
)

func newTestMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

func TestObserveComponent(t *testing.T) {
	m := newTestMetrics()
	m.ObserveComponent("rss", 120*time.Millisecond, false)
	m.ObserveComponent("rss", 80*time.Millisecond, true)

	if got := testutil.ToFloat64(m.ComponentFailures.WithLabelValues("rss")); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.ComponentDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestObserveChatAndRun(t *testing.T) {
	m := newTestMetrics()
	m.ObserveChat("openai", time.Second, nil)
	m.ObserveChat("openai", time.Second, errors.New("boom"))
	m.ObserveRun("btc", "CRON", nil)

	if got := testutil.ToFloat64(m.ChatCalls.WithLabelValues("openai", "ok")); got != 1 {
		t.Errorf("ok calls = %v", got)
	}
	if got := testutil.ToFloat64(m.ChatCalls.WithLabelValues("openai", "error")); got != 1 {
		t.Errorf("error calls = %v", got)
	}
	if got := testutil.ToFloat64(m.Runs.WithLabelValues("btc", "CRON", "ok")); got != 1 {
		t.Errorf("runs = %v", got)
	}
}

func TestHandler(t *testing.T) {
	m := newTestMetrics()
	m.ObservePrompt(250, 1500)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "prompter_prompt_words_count 1") {
		t.Errorf("metrics output missing prompt words:\n%s", body)
	}
}
