// Package chat sends prompts to a chat model.
package chat

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Provider is a chat model backend.
type Provider interface {
	Name() string
	Invoke(ctx context.Context, prompt string) (string, error)
	// Stream calls fn for each chunk of the answer as it arrives.
	Stream(ctx context.Context, prompt string, fn func(chunk string) error) error
}

// Config selects and configures a provider.
type Config struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	NumCtx      int     `yaml:"num_ctx"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
}

// New builds the provider named by cfg.Provider ("openai" or "ollama").
func New(cfg Config, httpClient *http.Client) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai: api key not configured")
		}
		return NewOpenAI(OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		}, httpClient), nil
	case "ollama":
		return NewOllama(OllamaConfig{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			NumCtx:      cfg.NumCtx,
		}, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Provider)
	}
}
