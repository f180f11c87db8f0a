package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"sarapul-news-bot/internal/domain"
	"sarapul-news-bot/internal/infra/retry"
)

const rsshubSourceName = "rsshub"

// RSSHub читает Telegram-каналы через RSSHub-прокси. Список каналов берётся
// из настроек при каждом вызове, чтобы администратор мог менять его на лету.
type RSSHub struct {
	client   *http.Client
	policy   retry.Policy
	baseURL  string
	settings domain.SettingsRepo
	parser   *gofeed.Parser
}

var _ domain.Source = (*RSSHub)(nil)

// NewRSSHub создаёт источник поверх RSSHub по адресу baseURL.
func NewRSSHub(client *http.Client, baseURL string, settings domain.SettingsRepo) *RSSHub {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = "http://localhost:1200"
	}
	return &RSSHub{
		client:   client,
		policy:   retry.Default(),
		baseURL:  strings.TrimRight(baseURL, "/"),
		settings: settings,
		parser:   gofeed.NewParser(),
	}
}

// Name возвращает имя источника.
func (s *RSSHub) Name() string { return rsshubSourceName }

// Fetch обходит каналы из настроек. Недоступный канал пропускается, чтобы один
// упавший фид не ронял весь цикл.
func (s *RSSHub) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	settings, err := s.settings.ReadSettings()
	if err != nil {
		return nil, fmt.Errorf("rsshub settings: %w", err)
	}

	var items []domain.Candidate
	for _, channel := range settings.TelegramChannels {
		channelItems, err := s.fetchChannel(ctx, channel)
		if err != nil {
			if ctx.Err() != nil {
				return items, ctx.Err()
			}
			continue
		}
		items = append(items, channelItems...)
	}
	return items, nil
}

func (s *RSSHub) fetchChannel(ctx context.Context, channel string) ([]domain.Candidate, error) {
	url := fmt.Sprintf("%s/telegram/channel/%s", s.baseURL, channel)
	body, err := fetchBody(ctx, s.client, s.policy, rsshubSourceName, channel, url)
	if err != nil {
		return nil, fmt.Errorf("fetch channel %s: %w", channel, err)
	}
	feed, err := s.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse channel %s: %w", channel, err)
	}
	return feedCandidates(feed, channel), nil
}

func feedCandidates(feed *gofeed.Feed, channel string) []domain.Candidate {
	items := make([]domain.Candidate, 0, len(feed.Items))
	for _, entry := range feed.Items {
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			continue
		}
		content := strings.TrimSpace(entry.Description)
		if content == "" {
			content = strings.TrimSpace(entry.Content)
		}
		if content == "" {
			content = title
		}
		items = append(items, domain.Candidate{
			Source:      "telegram:" + channel,
			URL:         strings.TrimSpace(entry.Link),
			Title:       title,
			Content:     content,
			PublishedAt: feedTimestamp(entry),
		})
	}
	return items
}

func feedTimestamp(entry *gofeed.Item) int64 {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UnixMilli()
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.UnixMilli()
	}
	return 0
}
