package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"MarketPrompt/internal/httpclient"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "qwen2.5:latest"
	defaultOllamaCtx   = 32768
)

// OllamaConfig configures the Ollama provider.
type OllamaConfig struct {
	BaseURL     string
	Model       string
	Temperature float32
	NumCtx      int
}

// Ollama talks to the native Ollama /api/chat endpoint.
type Ollama struct {
	cfg    OllamaConfig
	client *http.Client
}

// NewOllama creates an Ollama provider.
func NewOllama(cfg OllamaConfig, httpClient *http.Client) *Ollama {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultOllamaModel
	}
	if cfg.NumCtx <= 0 {
		cfg.NumCtx = defaultOllamaCtx
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Ollama{cfg: cfg, client: httpClient}
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  struct {
		Temperature float32 `json:"temperature"`
		NumCtx      int     `json:"num_ctx"`
	} `json:"options"`
}

type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error"`
}

func (o *Ollama) newRequest(ctx context.Context, prompt string, stream bool) (*http.Request, error) {
	body := ollamaRequest{
		Model:    o.cfg.Model,
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
		Stream:   stream,
	}
	body.Options.Temperature = o.cfg.Temperature
	body.Options.NumCtx = o.cfg.NumCtx

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (o *Ollama) Invoke(ctx context.Context, prompt string) (string, error) {
	req, err := o.newRequest(ctx, prompt, false)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	body, err := httpclient.Do(o.client, req)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	var resp ollamaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("ollama decode: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama chat: %s", resp.Error)
	}
	return resp.Message.Content, nil
}

// Stream reads the newline-delimited JSON stream of /api/chat.
func (o *Ollama) Stream(ctx context.Context, prompt string, fn func(string) error) error {
	req, err := o.newRequest(ctx, prompt, true)
	if err != nil {
		return fmt.Errorf("ollama request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama stream: status %d", resp.StatusCode)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("ollama decode chunk: %w", err)
		}
		if chunk.Error != "" {
			return errors.New("ollama stream: " + chunk.Error)
		}
		if chunk.Message.Content != "" {
			if err := fn(chunk.Message.Content); err != nil {
				return err
			}
		}
		if chunk.Done {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("ollama stream: %w", err)
	}
	return nil
}
