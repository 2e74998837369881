package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"SP500Tracker/internal/retry"
)

// DefaultTelegramURL is the Telegram Bot API endpoint.
const DefaultTelegramURL = "https://api.telegram.org"

// Sender delivers a formatted message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	ChatID string
	Retry  retry.Policy

	token  string
	client *resty.Client
}

// NewTelegramNotifier creates a notifier with optional proxy support. An empty baseURL uses the public API.
func NewTelegramNotifier(baseURL, botToken, chatID, proxyURL string) *TelegramNotifier {
	if baseURL == "" {
		baseURL = DefaultTelegramURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second)
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &TelegramNotifier{
		ChatID: chatID,
		Retry:  retry.DefaultPolicy(),
		token:  botToken,
		client: client,
	}
}

// Send posts text to the configured chat, backing off while Telegram rate limits us.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	_, err := retry.Do(ctx, t.Retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.send(ctx, text)
	})
	return err
}

func (t *TelegramNotifier) send(ctx context.Context, text string) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id":    t.ChatID,
			"text":       text,
			"parse_mode": "HTML",
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", t.token))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if resp.IsSuccess() {
		return nil
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return fmt.Errorf("telegram: status %d: %w", resp.StatusCode(), retry.ErrRateLimited)
	}
	return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
}
