package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type fakeProvider struct {
	chunks []string
	err    error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Invoke(context.Context, string) (string, error) {
	return strings.Join(f.chunks, ""), f.err
}

func (f *fakeProvider) Stream(_ context.Context, _ string, fn func(string) error) error {
	for _, c := range f.chunks {
		if err := fn(c); err != nil {
			return err
		}
	}
	return f.err
}

type countingObserver struct {
	calls  int
	failed int
}

func (c *countingObserver) ObserveChat(_ string, _ time.Duration, err error) {
	c.calls++
	if err != nil {
		c.failed++
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestClient_StreamTo(t *testing.T) {
	obs := &countingObserver{}
	c := NewClient(&fakeProvider{chunks: []string{"hé", "llo ", "world"}}, quietLogger()).WithObserver(obs)
	c.Pace = time.Millisecond

	var buf bytes.Buffer
	got, err := c.StreamTo(context.Background(), &buf, "hi")
	if err != nil {
		t.Fatalf("StreamTo: %v", err)
	}
	if got != "héllo world" {
		t.Errorf("answer = %q", got)
	}
	if buf.String() != "héllo world\n" {
		t.Errorf("written = %q", buf.String())
	}
	if obs.calls != 1 || obs.failed != 0 {
		t.Errorf("observer = %+v", obs)
	}
}

func TestClient_StreamToError(t *testing.T) {
	boom := errors.New("boom")
	obs := &countingObserver{}
	c := NewClient(&fakeProvider{chunks: []string{"par"}, err: boom}, quietLogger()).WithObserver(obs)
	c.Pace = 0

	var buf bytes.Buffer
	got, err := c.StreamTo(context.Background(), &buf, "hi")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if got != "par" || buf.String() != "par" {
		t.Errorf("partial = %q / %q", got, buf.String())
	}
	if obs.failed != 1 {
		t.Errorf("failure not observed")
	}
}

func TestClient_StreamToCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewClient(&fakeProvider{chunks: []string{"abc"}}, quietLogger())
	if _, err := c.StreamTo(ctx, io.Discard, "hi"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestOllama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Model != defaultOllamaModel || req.Options.NumCtx != defaultOllamaCtx || req.Options.Temperature != 0 {
			t.Errorf("request = %+v", req)
		}
		if req.Messages[0].Content != "question" {
			t.Errorf("prompt = %q", req.Messages[0].Content)
		}
		if !req.Stream {
			fmt.Fprint(w, `{"model":"qwen2.5:latest","message":{"role":"assistant","content":"full answer"},"done":true}`)
			return
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"part "},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"two"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer srv.Close()

	p := NewOllama(OllamaConfig{BaseURL: srv.URL + "/"}, srv.Client())
	got, err := p.Invoke(context.Background(), "question")
	if err != nil || got != "full answer" {
		t.Fatalf("Invoke = %q, %v", got, err)
	}

	var chunks []string
	err = p.Stream(context.Background(), "question", func(s string) error {
		chunks = append(chunks, s)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if strings.Join(chunks, "|") != "part |two" {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestOllama_StreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"error":"model not found"}`)
	}))
	defer srv.Close()

	p := NewOllama(OllamaConfig{BaseURL: srv.URL}, srv.Client())
	err := p.Stream(context.Background(), "q", func(string) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Errorf("err = %v", err)
	}
}

func TestOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req["model"] != defaultOpenAIModel {
			t.Errorf("model = %v", req["model"])
		}
		if temp, ok := req["temperature"].(float64); !ok || temp > 1e-6 {
			t.Errorf("temperature = %v, want ~0", req["temperature"])
		}
		if stream, _ := req["stream"].(bool); stream {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hel\"}}]}\n\n")
			fmt.Fprint(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"lo\"}}]}\n\n")
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Hello"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	p := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, srv.Client())
	got, err := p.Invoke(context.Background(), "hi")
	if err != nil || got != "Hello" {
		t.Fatalf("Invoke = %q, %v", got, err)
	}

	var sb strings.Builder
	err = p.Stream(context.Background(), "hi", func(s string) error {
		sb.WriteString(s)
		return nil
	})
	if err != nil || sb.String() != "Hello" {
		t.Errorf("Stream = %q, %v", sb.String(), err)
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Config{Provider: "openai"}, nil); err == nil {
		t.Error("openai without key should fail")
	}
	p, err := New(Config{Provider: "Ollama"}, nil)
	if err != nil || p.Name() != "ollama" {
		t.Errorf("New(ollama) = %v, %v", p, err)
	}
	if _, err := New(Config{Provider: "bard"}, nil); err == nil {
		t.Error("unknown provider should fail")
	}
}
