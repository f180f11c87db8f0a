package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sarapul-news-bot/internal/domain"
	"sarapul-news-bot/internal/infra/metrics"
	"sarapul-news-bot/internal/infra/retry"
)

// Max отправляет сообщения через MAX Bot API (botapi.max.ru).
type Max struct {
	client  *http.Client
	policy  retry.Policy
	baseURL string
	token   string
	sent    domain.SentCache
}

// NewMax создаёт отправителя для MAX.
func NewMax(client *http.Client, baseURL, token string, sent domain.SentCache) *Max {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = "https://botapi.max.ru"
	}
	return &Max{
		client:  client,
		policy:  retry.Default(),
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		sent:    sent,
	}
}

type maxMessageBody struct {
	Text   string `json:"text"`
	Format string `json:"format,omitempty"`
}

// Send доставляет текст пользователю MAX, разбивая его на части по лимиту.
// Тот же текст тому же получателю в пределах TTL кэша не отправляется повторно.
func (m *Max) Send(ctx context.Context, rawUserID, text string) error {
	key := sendKey(domain.ChannelMax, rawUserID, text)
	if m.sent != nil {
		if seen, err := m.sent.Seen(ctx, key); err == nil && seen {
			return nil
		}
	}

	for _, part := range SplitText(text) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.sendPart(ctx, rawUserID, part); err != nil {
			return fmt.Errorf("max: send to %s: %w", rawUserID, err)
		}
	}
	if m.sent != nil {
		m.sent.Mark(ctx, key)
	}
	return nil
}

func (m *Max) sendPart(ctx context.Context, rawUserID, text string) error {
	endpoint := fmt.Sprintf("%s/messages?access_token=%s&user_id=%s",
		m.baseURL, url.QueryEscape(m.token), url.QueryEscape(rawUserID))
	payload, err := json.Marshal(maxMessageBody{Text: text, Format: "markdown"})
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	return m.policy.Do(ctx, func() error {
		return m.doSend(ctx, rawUserID, endpoint, payload)
	})
}

func (m *Max) doSend(ctx context.Context, rawUserID, endpoint string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("max_bot", "send_message", rawUserID, start, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		statusErr := &retry.StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		metrics.ObserveNetworkRequest("max_bot", "send_message", rawUserID, start, statusErr)
		return statusErr
	}
	metrics.ObserveNetworkRequest("max_bot", "send_message", rawUserID, start, nil)
	return nil
}
