package broadcast

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sarapul-news-bot/internal/domain"
	"sarapul-news-bot/internal/infra/metrics"
)

// Рассылка идёт последовательно: Bot API ограничивает ~30 сообщений в секунду.
const defaultSendDelay = 34 * time.Millisecond

// Service выполняет рассылку дайджеста всем активным подписчикам.
type Service struct {
	store    domain.ContentStore
	sender   domain.Sender
	log      zerolog.Logger
	delay    time.Duration
	loc      *time.Location
	now      func() int64
	newRunID func() string
}

// NewService создаёт сервис рассылки.
func NewService(store domain.ContentStore, sender domain.Sender, loc *time.Location, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:    store,
		sender:   sender,
		log:      log,
		delay:    defaultSendDelay,
		loc:      loc,
		now:      domain.Now,
		newRunID: uuid.NewString,
	}
}

// WithDelay подменяет паузу между отправками.
func (s *Service) WithDelay(delay time.Duration) *Service {
	s.delay = delay
	return s
}

// WithClock подменяет источник времени и генератор идентификаторов запуска.
func (s *Service) WithClock(now func() int64, newRunID func() string) *Service {
	s.now = now
	s.newRunID = newRunID
	return s
}

// Run рассылает дайджест. При явном списке newsIDs отправляются именно эти
// новости независимо от статуса, иначе — отфильтрованные новости в порядке
// хранения, не больше maxNewsPerDigest. Пустой выбор не меняет состояние.
func (s *Service) Run(ctx context.Context, typ domain.BroadcastType, newsIDs []string) (domain.BroadcastResult, error) {
	metrics.BroadcastRuns.WithLabelValues(string(typ)).Inc()
	started := time.Now()
	defer func() { metrics.BroadcastDuration.Observe(time.Since(started).Seconds()) }()

	users, err := s.store.ReadUsers()
	if err != nil {
		return domain.BroadcastResult{}, fmt.Errorf("read users: %w", err)
	}
	news, err := s.store.ReadNews()
	if err != nil {
		return domain.BroadcastResult{}, fmt.Errorf("read news: %w", err)
	}
	settings, err := s.store.ReadSettings()
	if err != nil {
		return domain.BroadcastResult{}, fmt.Errorf("read settings: %w", err)
	}

	toPublish := selectNews(news.Items, newsIDs, settings.MaxNewsPerDigest)
	if len(toPublish) == 0 {
		return domain.BroadcastResult{Error: "No news to publish"}, nil
	}

	digest := FormatDigest(itemsByIndex(news.Items, toPublish), time.UnixMilli(s.now()).In(s.loc))

	result := domain.BroadcastResult{NewsCount: len(toPublish)}
	for _, key := range activeSubscribers(users) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		user := users[key]
		sendErr := s.sender.Send(ctx, user.Channel, rawUserID(key, user.Channel), digest)
		if sendErr == nil {
			result.Sent++
			user.LastBroadcast = s.now()
			users[key] = user
			metrics.BroadcastSends.WithLabelValues(string(user.Channel), "success").Inc()
		} else {
			result.Failed++
			metrics.BroadcastSends.WithLabelValues(string(user.Channel), "error").Inc()
			if domain.IsPermanentSendError(sendErr) {
				user.Blocked = true
				users[key] = user
				result.BlockedUsers = append(result.BlockedUsers, key)
				s.log.Info().Str("user", key).Msg("broadcast: подписчик заблокировал бота")
			} else {
				s.log.Error().Err(sendErr).Str("user", key).Msg("broadcast: отправка не удалась")
			}
		}
		// Пауза после каждой попытки, удачной или нет: лимит Bot API
		// считает и неудачные запросы.
		if s.delay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}

	now := s.now()
	published, err := s.store.ReadPublished()
	if err != nil {
		return result, fmt.Errorf("read published: %w", err)
	}
	ids := make([]string, 0, len(toPublish))
	for _, idx := range toPublish {
		news.Items[idx].Status = domain.StatusPublished
		news.Items[idx].PublishedAt = now
		ids = append(ids, news.Items[idx].ID)
	}
	published.Records = append(published.Records, domain.PublicationRecord{
		RunID:          s.newRunID(),
		NewsID:         strings.Join(ids, ","),
		BroadcastType:  typ,
		SentAt:         now,
		RecipientCount: result.Sent,
	})
	if err := s.store.WriteNews(news); err != nil {
		return result, fmt.Errorf("write news: %w", err)
	}
	if err := s.store.WritePublished(published); err != nil {
		return result, fmt.Errorf("write published: %w", err)
	}
	settings.LastBroadcast = now
	if err := s.store.WriteSettings(settings); err != nil {
		return result, fmt.Errorf("write settings: %w", err)
	}
	if err := s.store.WriteUsers(users); err != nil {
		return result, fmt.Errorf("write users: %w", err)
	}

	s.log.Info().
		Str("type", string(typ)).
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Int("news", result.NewsCount).
		Msg("broadcast: рассылка завершена")
	return result, nil
}

// selectNews возвращает индексы новостей к публикации в порядке хранения.
func selectNews(items []domain.NewsItem, newsIDs []string, maxPerDigest int) []int {
	var picked []int
	if len(newsIDs) > 0 {
		wanted := make(map[string]bool, len(newsIDs))
		for _, id := range newsIDs {
			wanted[id] = true
		}
		for i, item := range items {
			if wanted[item.ID] {
				picked = append(picked, i)
			}
		}
		return picked
	}
	for i, item := range items {
		if item.Status != domain.StatusFiltered {
			continue
		}
		picked = append(picked, i)
		if maxPerDigest > 0 && len(picked) >= maxPerDigest {
			break
		}
	}
	return picked
}

func itemsByIndex(items []domain.NewsItem, indexes []int) []domain.NewsItem {
	selected := make([]domain.NewsItem, 0, len(indexes))
	for _, idx := range indexes {
		selected = append(selected, items[idx])
	}
	return selected
}

// activeSubscribers возвращает ключи активных подписчиков в стабильном порядке.
func activeSubscribers(users domain.UsersFile) []string {
	keys := make([]string, 0, len(users))
	for key, user := range users {
		if user.Subscribed && !user.Blocked {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// rawUserID отрезает префикс канала от ключа подписчика.
func rawUserID(key string, channel domain.ChannelType) string {
	if raw, ok := strings.CutPrefix(key, string(channel)+"_"); ok {
		return raw
	}
	if _, raw, ok := strings.Cut(key, "_"); ok {
		return raw
	}
	return key
}
