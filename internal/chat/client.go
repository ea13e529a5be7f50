package chat

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPace is the delay between streamed characters.
const DefaultPace = 10 * time.Millisecond

// Observer receives chat call measurements.
type Observer interface {
	ObserveChat(provider string, elapsed time.Duration, err error)
}

// Client wraps a provider with logging, metrics and paced streaming.
type Client struct {
	provider Provider
	log      logrus.FieldLogger
	observer Observer
	Pace     time.Duration
}

// NewClient creates a client for p.
func NewClient(p Provider, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{provider: p, log: log, Pace: DefaultPace}
}

// WithObserver sets the measurement sink.
func (c *Client) WithObserver(o Observer) *Client {
	c.observer = o
	return c
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider { return c.provider }

func (c *Client) observe(began time.Time, err error) {
	if c.observer != nil {
		c.observer.ObserveChat(c.provider.Name(), time.Since(began), err)
	}
}

// Invoke sends prompt and returns the whole answer.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	began := time.Now()
	c.log.WithField("provider", c.provider.Name()).Debug("chat invoke")
	answer, err := c.provider.Invoke(ctx, prompt)
	c.observe(began, err)
	if err != nil {
		return "", err
	}
	return answer, nil
}

// StreamTo streams the answer to w one character at a time, followed by a
// newline, and returns the complete answer.
func (c *Client) StreamTo(ctx context.Context, w io.Writer, prompt string) (string, error) {
	began := time.Now()
	var sb strings.Builder
	err := c.provider.Stream(ctx, prompt, func(chunk string) error {
		sb.WriteString(chunk)
		for _, r := range chunk {
			if _, err := io.WriteString(w, string(r)); err != nil {
				return fmt.Errorf("write stream: %w", err)
			}
			if c.Pace > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(c.Pace):
				}
			}
		}
		return nil
	})
	c.observe(began, err)
	if err != nil {
		return sb.String(), err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return sb.String(), fmt.Errorf("write stream: %w", err)
	}
	return sb.String(), nil
}
