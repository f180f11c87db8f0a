package subscribe

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sarapul-news-bot/internal/domain"
	"sarapul-news-bot/internal/hash"
)

type storeStub struct {
	news     domain.NewsFile
	users    domain.UsersFile
	settings domain.Settings
	pub      domain.PublishedFile
	writes   int
}

func (s *storeStub) ReadNews() (domain.NewsFile, error)           { return s.news, nil }
func (s *storeStub) WriteNews(n domain.NewsFile) error            { s.news = n; s.writes++; return nil }
func (s *storeStub) ReadUsers() (domain.UsersFile, error)         { return s.users, nil }
func (s *storeStub) WriteUsers(u domain.UsersFile) error          { s.users = u; s.writes++; return nil }
func (s *storeStub) ReadSettings() (domain.Settings, error)       { return s.settings, nil }
func (s *storeStub) WriteSettings(st domain.Settings) error       { s.settings = st; s.writes++; return nil }
func (s *storeStub) ReadPublished() (domain.PublishedFile, error) { return s.pub, nil }
func (s *storeStub) WritePublished(p domain.PublishedFile) error  { s.pub = p; s.writes++; return nil }

const hour = int64(3600_000)

func newTestService(store *storeStub, nowMillis int64) *Service {
	return NewService(store, time.UTC, zerolog.Nop()).WithClock(func() int64 { return nowMillis })
}

func TestSubscribeNewUser(t *testing.T) {
	store := &storeStub{users: domain.UsersFile{}}
	svc := newTestService(store, 1000)

	msg, err := svc.Subscribe("12345", domain.ChannelTelegram)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if msg != MsgSubscribed {
		t.Errorf("неверный ответ: %q", msg)
	}
	user, ok := store.users["telegram_12345"]
	if !ok {
		t.Fatalf("пользователь не сохранён, ключи: %v", store.users)
	}
	if !user.Subscribed || user.SubscribedAt != 1000 || user.Channel != domain.ChannelTelegram {
		t.Errorf("неверное состояние подписчика: %+v", user)
	}
}

func TestSubscribeKeyUsesChannelType(t *testing.T) {
	store := &storeStub{users: domain.UsersFile{}}
	svc := newTestService(store, 1000)

	if _, err := svc.Subscribe("9", domain.ChannelMax); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, ok := store.users[hash.UserID("9", domain.ChannelMax)]; !ok {
		t.Fatalf("ключ подписчика должен совпадать с hash.UserID: %v", store.users)
	}
}

func TestSubscribeIdempotent(t *testing.T) {
	store := &storeStub{users: domain.UsersFile{
		"telegram_1": {Subscribed: true, SubscribedAt: 500, Channel: domain.ChannelTelegram},
	}}
	svc := newTestService(store, 1000)

	msg, err := svc.Subscribe("1", domain.ChannelTelegram)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if msg != MsgAlreadySub {
		t.Errorf("ожидали ответ о повторной подписке, получили %q", msg)
	}
	if store.writes != 0 {
		t.Errorf("повторная подписка не должна писать в хранилище")
	}
	if store.users["telegram_1"].SubscribedAt != 500 {
		t.Errorf("subscribedAt не должен меняться")
	}
}

func TestSubscribeAfterBlockClearsFlag(t *testing.T) {
	store := &storeStub{users: domain.UsersFile{
		"max_7": {Subscribed: true, SubscribedAt: 500, Channel: domain.ChannelMax, Blocked: true},
	}}
	svc := newTestService(store, 1000)

	msg, err := svc.Subscribe("7", domain.ChannelMax)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if msg != MsgSubscribed {
		t.Errorf("возврат после блокировки — это новая подписка: %q", msg)
	}
	user := store.users["max_7"]
	if user.Blocked {
		t.Errorf("флаг blocked должен сниматься")
	}
	if user.SubscribedAt != 500 {
		t.Errorf("subscribedAt должен сохраняться: %d", user.SubscribedAt)
	}
}

func TestUnsubscribeBySuffix(t *testing.T) {
	store := &storeStub{users: domain.UsersFile{
		"telegram_42":  {Subscribed: true, Channel: domain.ChannelTelegram},
		"max_42":       {Subscribed: true, Channel: domain.ChannelMax},
		"telegram_421": {Subscribed: true, Channel: domain.ChannelTelegram},
	}}
	svc := newTestService(store, 1000)

	msg, err := svc.Unsubscribe("42")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if msg != MsgUnsubscribed {
		t.Errorf("неверный ответ: %q", msg)
	}
	if store.users["telegram_42"].Subscribed || store.users["max_42"].Subscribed {
		t.Errorf("оба канала пользователя должны отписаться")
	}
	if !store.users["telegram_421"].Subscribed {
		t.Errorf("чужой пользователь не должен отписываться")
	}
}

func TestUnsubscribeUnknownUser(t *testing.T) {
	store := &storeStub{users: domain.UsersFile{}}
	svc := newTestService(store, 1000)

	msg, err := svc.Unsubscribe("99")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if msg != MsgWasNotSubscribed {
		t.Errorf("неверный ответ: %q", msg)
	}
	if store.writes != 0 {
		t.Errorf("неизвестный пользователь не должен вызывать запись")
	}
}

func TestRecentNews(t *testing.T) {
	now := 100 * hour
	store := &storeStub{news: domain.NewsFile{Items: []domain.NewsItem{
		{ID: "news_old", Status: domain.StatusPublished, PublishedAt: now - 30*hour},
		{ID: "news_a", Status: domain.StatusPublished, PublishedAt: now - 2*hour},
		{ID: "news_b", Status: domain.StatusPublished, PublishedAt: now - 1*hour},
		{ID: "news_c", Status: domain.StatusFiltered, PublishedAt: now - 1*hour},
	}}}
	svc := newTestService(store, now)

	recent, err := svc.RecentNews(3, 24)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("ожидали 2 новости, получили %d", len(recent))
	}
	if recent[0].ID != "news_b" || recent[1].ID != "news_a" {
		t.Errorf("новости должны идти свежими вперёд: %v", []string{recent[0].ID, recent[1].ID})
	}
}

func TestRecentNewsLimit(t *testing.T) {
	now := 100 * hour
	items := make([]domain.NewsItem, 0, 5)
	for i := 0; i < 5; i++ {
		items = append(items, domain.NewsItem{
			ID:          "news_" + string(rune('a'+i)),
			Status:      domain.StatusPublished,
			PublishedAt: now - int64(i)*hour,
		})
	}
	store := &storeStub{news: domain.NewsFile{Items: items}}
	svc := newTestService(store, now)

	recent, err := svc.RecentNews(2, 24)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("лимит не сработал: %d", len(recent))
	}
}

func TestStatus(t *testing.T) {
	now := time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC).UnixMilli()
	todayMorning := time.Date(2026, time.August, 28, 8, 30, 0, 0, time.UTC).UnixMilli()
	yesterday := time.Date(2026, time.August, 27, 18, 30, 0, 0, time.UTC).UnixMilli()

	store := &storeStub{
		news: domain.NewsFile{
			Items: []domain.NewsItem{
				{Status: domain.StatusPublished, PublishedAt: todayMorning},
				{Status: domain.StatusPublished, PublishedAt: yesterday},
				{Status: domain.StatusRejected},
			},
			LastParsed: now,
		},
		users: domain.UsersFile{
			"telegram_1": {Subscribed: true},
			"telegram_2": {Subscribed: true, Blocked: true},
			"telegram_3": {Subscribed: false},
		},
		settings: domain.Settings{LastBroadcast: todayMorning},
	}
	svc := newTestService(store, now)

	status, err := svc.Status()
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if status.Subscribers != 1 || status.Blocked != 1 {
		t.Errorf("неверный счёт подписчиков: %+v", status)
	}
	if status.TotalNews != 3 || status.PublishedToday != 1 {
		t.Errorf("неверный счёт новостей: %+v", status)
	}
	if status.LastBroadcast != todayMorning {
		t.Errorf("lastBroadcast не передан: %+v", status)
	}
}

func TestStats(t *testing.T) {
	now := 1000 * hour
	dayAgo := now - 20*hour
	longAgo := now - 300*hour

	store := &storeStub{
		news: domain.NewsFile{Items: []domain.NewsItem{
			{Status: domain.StatusPublished, CreatedAt: dayAgo},
			{Status: domain.StatusRejected, CreatedAt: dayAgo},
			{Status: domain.StatusFiltered, CreatedAt: dayAgo},
			{Status: domain.StatusPublished, CreatedAt: longAgo},
		}},
		users: domain.UsersFile{
			"telegram_1": {Subscribed: true, SubscribedAt: dayAgo},
			"telegram_2": {Subscribed: false, SubscribedAt: longAgo},
		},
		pub: domain.PublishedFile{Records: []domain.PublicationRecord{
			{SentAt: dayAgo},
			{SentAt: longAgo},
		}},
	}
	svc := newTestService(store, now)

	stats, err := svc.Stats("day")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if stats.Period != "day" {
		t.Errorf("неверный период: %q", stats.Period)
	}
	if stats.NewsTotal != 3 || stats.NewsPublished != 1 || stats.NewsRejected != 1 {
		t.Errorf("неверный счёт новостей: %+v", stats)
	}
	if stats.BroadcastsSent != 1 {
		t.Errorf("неверный счёт рассылок: %+v", stats)
	}
	if stats.SubscribersGained != 1 || stats.SubscribersLost != 1 {
		t.Errorf("неверный счёт подписчиков: %+v", stats)
	}
}

func TestStatsUnknownPeriodFallsBackToWeek(t *testing.T) {
	store := &storeStub{}
	svc := newTestService(store, 1000)

	stats, err := svc.Stats("year")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if stats.Period != "week" {
		t.Errorf("неизвестный период должен заменяться неделей: %q", stats.Period)
	}
}
