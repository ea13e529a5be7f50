package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"MarketPrompt/internal/httpclient"
)

// DefaultBaseURL is the Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BaseURL  string
	BotToken string
	ChatID   string
	Client   *http.Client
	// Backoff is the first retry delay of SendWithRetry; it doubles per attempt.
	Backoff time.Duration
	// RetryDelay is the pause after a failed poll.
	RetryDelay time.Duration
	// PollTimeout is the long-polling timeout sent to getUpdates.
	PollTimeout time.Duration

	log logrus.FieldLogger
}

// NewTelegramNotifier creates a notifier. client may be nil.
func NewTelegramNotifier(botToken, chatID string, client *http.Client, log logrus.FieldLogger) *TelegramNotifier {
	if client == nil {
		client = httpclient.New("", 0)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TelegramNotifier{
		BaseURL:     DefaultBaseURL,
		BotToken:    botToken,
		ChatID:      chatID,
		Client:      client,
		Backoff:     time.Second,
		RetryDelay:  5 * time.Second,
		PollTimeout: 30 * time.Second,
		log:         log.WithField("notifier", "telegram"),
	}
}

func (t *TelegramNotifier) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.BaseURL, t.BotToken, name)
}

// Send delivers text to the configured chat, split into as many messages as
// the Telegram size limit requires. Text is sent without parse mode since
// model output is not valid Telegram HTML.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	for _, part := range Split(text, MaxMessageLength) {
		if err := t.sendOne(ctx, part); err != nil {
			return err
		}
	}
	return nil
}

func (t *TelegramNotifier) sendOne(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id": t.ChatID,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.method("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if _, err := httpclient.Do(t.Client, req); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(ctx, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := t.Backoff << uint(i)
		t.log.WithError(err).WithFields(logrus.Fields{
			"attempt": i + 1,
			"of":      maxRetries + 1,
			"backoff": backoff,
		}).Warn("telegram send failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
