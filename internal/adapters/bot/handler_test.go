package bot

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"sarapul-news-bot/internal/domain"
)

type settingsStub struct {
	settings domain.Settings
}

func (s *settingsStub) ReadSettings() (domain.Settings, error) { return s.settings, nil }
func (s *settingsStub) WriteSettings(domain.Settings) error    { return nil }

func TestIsAdmin(t *testing.T) {
	settings := &settingsStub{settings: domain.Settings{AdminUsers: []string{"100", "@mayor"}}}
	h := NewHandler(nil, zerolog.Nop(), nil, settings, nil)

	cases := []struct {
		name string
		from *tgbotapi.User
		want bool
	}{
		{"по ID", &tgbotapi.User{ID: 100}, true},
		{"по username", &tgbotapi.User{ID: 200, UserName: "mayor"}, true},
		{"посторонний", &tgbotapi.User{ID: 300, UserName: "guest"}, false},
		{"nil", nil, false},
	}
	for _, c := range cases {
		if got := h.isAdmin(c.from); got != c.want {
			t.Errorf("%s: isAdmin = %v, ожидали %v", c.name, got, c.want)
		}
	}
}

func TestFormatStatus(t *testing.T) {
	got := formatStatus(domain.BotStatus{
		Subscribers:    12,
		Blocked:        2,
		TotalNews:      40,
		PublishedToday: 3,
		LastBroadcast:  1756367400000,
	})
	if !strings.Contains(got, "Подписчиков: 12") || !strings.Contains(got, "Опубликовано сегодня: 3") {
		t.Errorf("неполная сводка: %q", got)
	}
	if !strings.Contains(got, "Последняя рассылка:") {
		t.Errorf("нет времени рассылки: %q", got)
	}
	if strings.Contains(got, "Последний парсинг:") {
		t.Errorf("нулевой lastParsed не должен показываться: %q", got)
	}
}

func TestFormatStats(t *testing.T) {
	got := formatStats(domain.PeriodStats{
		Period:            "week",
		NewsTotal:         10,
		NewsPublished:     4,
		NewsRejected:      5,
		BroadcastsSent:    14,
		SubscribersGained: 2,
		SubscribersLost:   1,
	})
	if !strings.Contains(got, "за неделю") || !strings.Contains(got, "Рассылок: 14") {
		t.Errorf("неполная аналитика: %q", got)
	}
}
