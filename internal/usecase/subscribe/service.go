// Package subscribe управляет подписками и отдаёт сводки для команд бота.
package subscribe

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sarapul-news-bot/internal/domain"
	"sarapul-news-bot/internal/hash"
)

// Ответы пользователю на команды подписки.
const (
	MsgSubscribed       = "Пользователь подписан"
	MsgAlreadySub       = "Пользователь уже подписан"
	MsgUnsubscribed     = "Пользователь отписан"
	MsgWasNotSubscribed = "Пользователь не был подписан"
)

// Service реализует операции подписки и статистики.
type Service struct {
	store domain.ContentStore
	loc   *time.Location
	log   zerolog.Logger
	now   func() int64
}

// NewService создаёт сервис. loc задаёт часовой пояс для границ суток.
func NewService(store domain.ContentStore, loc *time.Location, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, loc: loc, log: log, now: domain.Now}
}

// WithClock подменяет источник времени.
func (s *Service) WithClock(now func() int64) *Service {
	s.now = now
	return s
}

// Subscribe подписывает пользователя. Повторная подписка не трогает
// subscribedAt, подписка после блокировки снимает флаг blocked.
func (s *Service) Subscribe(rawUserID string, channel domain.ChannelType) (string, error) {
	key := hash.UserID(rawUserID, channel)
	users, err := s.store.ReadUsers()
	if err != nil {
		return "", fmt.Errorf("read users: %w", err)
	}

	existing, ok := users[key]
	if ok && existing.Subscribed && !existing.Blocked {
		return MsgAlreadySub, nil
	}

	user := domain.Subscriber{
		Subscribed:   true,
		SubscribedAt: s.now(),
		Channel:      channel,
	}
	if ok {
		user.SubscribedAt = existing.SubscribedAt
		user.LastBroadcast = existing.LastBroadcast
	}
	users[key] = user
	if err := s.store.WriteUsers(users); err != nil {
		return "", fmt.Errorf("write users: %w", err)
	}
	s.log.Info().Str("user", key).Msg("subscribe: пользователь подписан")
	return MsgSubscribed, nil
}

// Unsubscribe отписывает пользователя. rawUserID сопоставляется с ключами
// по суффиксу «_id» или по полному совпадению, канал знать не обязательно.
func (s *Service) Unsubscribe(rawUserID string) (string, error) {
	users, err := s.store.ReadUsers()
	if err != nil {
		return "", fmt.Errorf("read users: %w", err)
	}

	found := false
	for key, user := range users {
		if key != rawUserID && !strings.HasSuffix(key, "_"+rawUserID) {
			continue
		}
		if user.Subscribed {
			user.Subscribed = false
			users[key] = user
			found = true
		}
	}
	if !found {
		return MsgWasNotSubscribed, nil
	}
	if err := s.store.WriteUsers(users); err != nil {
		return "", fmt.Errorf("write users: %w", err)
	}
	s.log.Info().Str("user", rawUserID).Msg("subscribe: пользователь отписан")
	return MsgUnsubscribed, nil
}

// RecentNews возвращает опубликованные за hoursBack часов новости, свежие
// первыми, не больше limit.
func (s *Service) RecentNews(limit, hoursBack int) ([]domain.NewsItem, error) {
	if limit <= 0 {
		limit = 3
	}
	if hoursBack <= 0 {
		hoursBack = 24
	}
	news, err := s.store.ReadNews()
	if err != nil {
		return nil, fmt.Errorf("read news: %w", err)
	}

	cutoff := s.now() - int64(hoursBack)*3600_000
	var recent []domain.NewsItem
	for _, item := range news.Items {
		if item.Status == domain.StatusPublished && item.PublishedAt > cutoff {
			recent = append(recent, item)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].PublishedAt > recent[j].PublishedAt
	})
	if len(recent) > limit {
		recent = recent[:limit]
	}
	return recent, nil
}

// Status возвращает сводку для администратора. Граница «сегодня» считается
// в часовом поясе сервиса.
func (s *Service) Status() (domain.BotStatus, error) {
	users, err := s.store.ReadUsers()
	if err != nil {
		return domain.BotStatus{}, fmt.Errorf("read users: %w", err)
	}
	news, err := s.store.ReadNews()
	if err != nil {
		return domain.BotStatus{}, fmt.Errorf("read news: %w", err)
	}
	settings, err := s.store.ReadSettings()
	if err != nil {
		return domain.BotStatus{}, fmt.Errorf("read settings: %w", err)
	}

	now := time.UnixMilli(s.now()).In(s.loc)
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc).UnixMilli()

	status := domain.BotStatus{
		TotalNews:     len(news.Items),
		LastParsed:    news.LastParsed,
		LastBroadcast: settings.LastBroadcast,
	}
	for _, user := range users {
		if user.Blocked {
			status.Blocked++
		} else if user.Subscribed {
			status.Subscribers++
		}
	}
	for _, item := range news.Items {
		if item.Status == domain.StatusPublished && item.PublishedAt > todayStart {
			status.PublishedToday++
		}
	}
	return status, nil
}

var periodDurations = map[string]time.Duration{
	"day":   24 * time.Hour,
	"week":  7 * 24 * time.Hour,
	"month": 30 * 24 * time.Hour,
}

// Stats возвращает аналитику за период day, week или month.
func (s *Service) Stats(period string) (domain.PeriodStats, error) {
	window, ok := periodDurations[period]
	if !ok {
		period = "week"
		window = periodDurations[period]
	}
	cutoff := s.now() - window.Milliseconds()

	news, err := s.store.ReadNews()
	if err != nil {
		return domain.PeriodStats{}, fmt.Errorf("read news: %w", err)
	}
	users, err := s.store.ReadUsers()
	if err != nil {
		return domain.PeriodStats{}, fmt.Errorf("read users: %w", err)
	}
	published, err := s.store.ReadPublished()
	if err != nil {
		return domain.PeriodStats{}, fmt.Errorf("read published: %w", err)
	}

	stats := domain.PeriodStats{Period: period}
	for _, item := range news.Items {
		if item.CreatedAt <= cutoff {
			continue
		}
		stats.NewsTotal++
		switch item.Status {
		case domain.StatusPublished:
			stats.NewsPublished++
		case domain.StatusRejected:
			stats.NewsRejected++
		}
	}
	for _, rec := range published.Records {
		if rec.SentAt > cutoff {
			stats.BroadcastsSent++
		}
	}
	for _, user := range users {
		if user.Subscribed && user.SubscribedAt > cutoff {
			stats.SubscribersGained++
		}
		if !user.Subscribed && user.SubscribedAt < cutoff {
			stats.SubscribersLost++
		}
	}
	return stats, nil
}
