// Package metrics exposes Prometheus instruments for prompt composition,
// chat calls and job runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "prompter"

// Metrics holds all Prometheus metrics of the process.
type Metrics struct {
	ComponentDuration *prometheus.HistogramVec // labels: component
	ComponentFailures *prometheus.CounterVec   // labels: component
	PromptWords       prometheus.Histogram
	PromptChars       prometheus.Histogram
	ChatDuration      *prometheus.HistogramVec // labels: provider
	ChatCalls         *prometheus.CounterVec   // labels: provider, status
	Runs              *prometheus.CounterVec   // labels: job, trigger, status

	gatherer prometheus.Gatherer
}

// New registers and returns all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers on reg and serves from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		ComponentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "component_fetch_seconds",
			Help:      "Time spent fetching one prompt component",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"component"}),
		ComponentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "component_failures_total",
			Help:      "Components that rendered an error payload",
		}, []string{"component"}),
		PromptWords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prompt_words",
			Help:      "Words per composed prompt",
			Buckets:   prometheus.ExponentialBuckets(100, 2, 10),
		}),
		PromptChars: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prompt_characters",
			Help:      "Characters per composed prompt",
			Buckets:   prometheus.ExponentialBuckets(500, 2, 10),
		}),
		ChatDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_seconds",
			Help:      "Chat model call latency",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"provider"}),
		ChatCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_calls_total",
			Help:      "Chat model calls by outcome",
		}, []string{"provider", "status"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Job runs by trigger and outcome",
		}, []string{"job", "trigger", "status"}),
		gatherer: g,
	}

	reg.MustRegister(
		m.ComponentDuration,
		m.ComponentFailures,
		m.PromptWords,
		m.PromptChars,
		m.ChatDuration,
		m.ChatCalls,
		m.Runs,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveComponent records one component fetch.
func (m *Metrics) ObserveComponent(name string, elapsed time.Duration, failed bool) {
	m.ComponentDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if failed {
		m.ComponentFailures.WithLabelValues(name).Inc()
	}
}

// ObservePrompt records the size of a composed prompt.
func (m *Metrics) ObservePrompt(words, chars int) {
	m.PromptWords.Observe(float64(words))
	m.PromptChars.Observe(float64(chars))
}

// ObserveChat records one chat call.
func (m *Metrics) ObserveChat(provider string, elapsed time.Duration, err error) {
	m.ChatDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	m.ChatCalls.WithLabelValues(provider, status(err)).Inc()
}

// ObserveRun records one job run.
func (m *Metrics) ObserveRun(job, trigger string, err error) {
	m.Runs.WithLabelValues(job, trigger, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
