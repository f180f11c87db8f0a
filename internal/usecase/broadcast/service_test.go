package broadcast

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sarapul-news-bot/internal/domain"
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

type senderStub struct {
	sent    map[string]string
	failFor map[string]error
}

func newSenderStub() *senderStub {
	return &senderStub{sent: map[string]string{}, failFor: map[string]error{}}
}

func (s *senderStub) Send(_ context.Context, channel domain.ChannelType, rawUserID, text string) error {
	key := string(channel) + "_" + rawUserID
	if err, ok := s.failFor[key]; ok {
		return err
	}
	s.sent[key] = text
	return nil
}

func filteredItem(id, title string) domain.NewsItem {
	return domain.NewsItem{
		ID:      id,
		Source:  "adm-sarapul",
		Title:   title,
		Content: "Текст: " + title,
		Status:  domain.StatusFiltered,
	}
}

func subscriber(channel domain.ChannelType) domain.Subscriber {
	return domain.Subscriber{Subscribed: true, SubscribedAt: 1, Channel: channel}
}

func newTestService(store *storeStub, sender domain.Sender) *Service {
	return NewService(store, sender, time.UTC, zerolog.Nop()).
		WithDelay(0).
		WithClock(func() int64 { return 5000 }, func() string { return "run-1" })
}

func TestRunCapsDigestSize(t *testing.T) {
	store := &storeStub{
		news: domain.NewsFile{Items: []domain.NewsItem{
			filteredItem("news_1", "Первая"), filteredItem("news_2", "Вторая"),
			filteredItem("news_3", "Третья"), filteredItem("news_4", "Четвёртая"),
			filteredItem("news_5", "Пятая"),
		}},
		users:    domain.UsersFile{"telegram_1": subscriber(domain.ChannelTelegram)},
		settings: domain.Settings{MaxNewsPerDigest: 2, MinRelevanceScore: 4},
	}
	sender := newSenderStub()

	result, err := newTestService(store, sender).Run(context.Background(), domain.BroadcastMorning, nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if result.NewsCount != 2 || result.Sent != 1 || result.Failed != 0 {
		t.Fatalf("неверный результат: %+v", result)
	}

	published := 0
	for _, item := range store.news.Items {
		if item.Status == domain.StatusPublished {
			published++
			if item.PublishedAt != 5000 {
				t.Errorf("publishedAt не проставлен: %+v", item)
			}
		}
	}
	if published != 2 {
		t.Errorf("опубликовано %d новостей, ожидали 2", published)
	}
	if store.news.Items[2].Status != domain.StatusFiltered {
		t.Errorf("третья новость не должна публиковаться")
	}

	if len(store.pub.Records) != 1 {
		t.Fatalf("журнал должен получить одну запись на запуск, получили %d", len(store.pub.Records))
	}
	rec := store.pub.Records[0]
	if rec.RunID != "run-1" || rec.RecipientCount != 1 || rec.BroadcastType != domain.BroadcastMorning {
		t.Errorf("неверная запись журнала: %+v", rec)
	}
	if rec.NewsID != "news_1,news_2" {
		t.Errorf("newsId должен содержать ID через запятую: %q", rec.NewsID)
	}
	if store.settings.LastBroadcast != 5000 {
		t.Errorf("lastBroadcast не обновлён")
	}

	digest := sender.sent["telegram_1"]
	if !strings.HasPrefix(digest, "📰 Новости Сарапула — ") {
		t.Errorf("неверный заголовок дайджеста: %q", digest)
	}
	if !strings.Contains(digest, "🔹 Первая") || strings.Contains(digest, "Третья") {
		t.Errorf("неверный состав дайджеста: %q", digest)
	}
}

func TestRunNoNewsIsNoOp(t *testing.T) {
	store := &storeStub{
		news:     domain.NewsFile{Items: []domain.NewsItem{{ID: "news_1", Status: domain.StatusRejected}}},
		users:    domain.UsersFile{"telegram_1": subscriber(domain.ChannelTelegram)},
		settings: domain.Settings{MaxNewsPerDigest: 3},
	}
	sender := newSenderStub()

	result, err := newTestService(store, sender).Run(context.Background(), domain.BroadcastEvening, nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if result.Error == "" || result.Sent != 0 || result.NewsCount != 0 {
		t.Fatalf("ожидали пустой результат с ошибкой: %+v", result)
	}
	if store.writes != 0 {
		t.Errorf("пустая рассылка не должна трогать хранилище, записей: %d", store.writes)
	}
	if len(sender.sent) != 0 {
		t.Errorf("ничего не должно отправляться")
	}
}

func TestRunMarksBlockedSubscriber(t *testing.T) {
	store := &storeStub{
		news: domain.NewsFile{Items: []domain.NewsItem{filteredItem("news_1", "Новость")}},
		users: domain.UsersFile{
			"telegram_1": subscriber(domain.ChannelTelegram),
			"telegram_2": subscriber(domain.ChannelTelegram),
		},
		settings: domain.Settings{MaxNewsPerDigest: 3},
	}
	sender := newSenderStub()
	sender.failFor["telegram_1"] = errors.New("Forbidden: bot was blocked by the user")

	result, err := newTestService(store, sender).Run(context.Background(), domain.BroadcastMorning, nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if result.Sent != 1 || result.Failed != 1 {
		t.Fatalf("неверный счёт: %+v", result)
	}
	if len(result.BlockedUsers) != 1 || result.BlockedUsers[0] != "telegram_1" {
		t.Fatalf("неверный список заблокировавших: %v", result.BlockedUsers)
	}
	if !store.users["telegram_1"].Blocked {
		t.Errorf("подписчик должен быть помечен заблокировавшим")
	}
	if store.users["telegram_2"].Blocked {
		t.Errorf("второй подписчик не должен страдать")
	}
	if store.users["telegram_2"].LastBroadcast != 5000 {
		t.Errorf("lastBroadcast успешной доставки не обновлён")
	}
}

func TestRunTransientFailureDoesNotBlock(t *testing.T) {
	store := &storeStub{
		news:     domain.NewsFile{Items: []domain.NewsItem{filteredItem("news_1", "Новость")}},
		users:    domain.UsersFile{"telegram_1": subscriber(domain.ChannelTelegram)},
		settings: domain.Settings{MaxNewsPerDigest: 3},
	}
	sender := newSenderStub()
	sender.failFor["telegram_1"] = errors.New("timeout")

	result, err := newTestService(store, sender).Run(context.Background(), domain.BroadcastMorning, nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if result.Failed != 1 || len(result.BlockedUsers) != 0 {
		t.Fatalf("временная ошибка не должна блокировать: %+v", result)
	}
	if store.users["telegram_1"].Blocked {
		t.Errorf("подписчик ошибочно помечен заблокировавшим")
	}
}

func TestRunExplicitIDsResendPublished(t *testing.T) {
	old := filteredItem("news_1", "Срочная")
	old.Status = domain.StatusPublished
	store := &storeStub{
		news:     domain.NewsFile{Items: []domain.NewsItem{old, filteredItem("news_2", "Обычная")}},
		users:    domain.UsersFile{"max_9": subscriber(domain.ChannelMax)},
		settings: domain.Settings{MaxNewsPerDigest: 1},
	}
	sender := newSenderStub()

	result, err := newTestService(store, sender).Run(context.Background(), domain.BroadcastUrgent, []string{"news_1"})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if result.NewsCount != 1 {
		t.Fatalf("явный список должен игнорировать статус: %+v", result)
	}
	digest := sender.sent["max_9"]
	if !strings.Contains(digest, "Срочная") || strings.Contains(digest, "Обычная") {
		t.Errorf("неверный состав срочной рассылки: %q", digest)
	}
}

func TestRunSkipsUnsubscribedAndBlocked(t *testing.T) {
	unsubscribed := domain.Subscriber{Subscribed: false, Channel: domain.ChannelTelegram}
	blocked := domain.Subscriber{Subscribed: true, Blocked: true, Channel: domain.ChannelTelegram}
	store := &storeStub{
		news: domain.NewsFile{Items: []domain.NewsItem{filteredItem("news_1", "Новость")}},
		users: domain.UsersFile{
			"telegram_1": subscriber(domain.ChannelTelegram),
			"telegram_2": unsubscribed,
			"telegram_3": blocked,
		},
		settings: domain.Settings{MaxNewsPerDigest: 3},
	}
	sender := newSenderStub()

	result, err := newTestService(store, sender).Run(context.Background(), domain.BroadcastMorning, nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if result.Sent != 1 || len(sender.sent) != 1 {
		t.Fatalf("рассылка только активным: %+v", result)
	}
	if _, ok := sender.sent["telegram_1"]; !ok {
		t.Errorf("активный подписчик не получил дайджест")
	}
}

func TestFormatDigest(t *testing.T) {
	items := []domain.NewsItem{
		{Title: "Первая", Content: "Текст первой"},
		{Title: "Вторая", Content: "Текст второй"},
	}
	at := time.Date(2026, time.August, 28, 8, 30, 0, 0, time.UTC)
	got := FormatDigest(items, at)

	if !strings.HasPrefix(got, "📰 Новости Сарапула — 28 августа") {
		t.Errorf("неверный заголовок: %q", got)
	}
	if !strings.Contains(got, "🔹 Первая\nТекст первой") {
		t.Errorf("неверный блок новости: %q", got)
	}
	if strings.Count(got, "🔹") != 2 {
		t.Errorf("ожидали два блока: %q", got)
	}
}
