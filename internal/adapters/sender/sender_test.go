package sender

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sarapul-news-bot/internal/domain"
)

type tgStub struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *tgStub) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	msg := c.(tgbotapi.MessageConfig)
	s.sent = append(s.sent, msg)
	return tgbotapi.Message{MessageID: len(s.sent)}, nil
}

type sentCacheStub struct {
	marked []string
	seen   bool
}

func (s *sentCacheStub) Mark(_ context.Context, key string) error {
	s.marked = append(s.marked, key)
	return nil
}

func (s *sentCacheStub) Seen(context.Context, string) (bool, error) { return s.seen, nil }

func TestTelegramSend(t *testing.T) {
	stub := &tgStub{}
	cache := &sentCacheStub{}
	tg := NewTelegram(stub, cache)

	if err := tg.Send(context.Background(), "12345", "Привет, Сарапул"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(stub.sent) != 1 {
		t.Fatalf("ожидали 1 сообщение, получили %d", len(stub.sent))
	}
	if stub.sent[0].ChatID != 12345 {
		t.Errorf("неверный chat id: %d", stub.sent[0].ChatID)
	}
	if len(cache.marked) != 1 || !strings.HasPrefix(cache.marked[0], "telegram_12345_") {
		t.Errorf("доставка не помечена в кэше: %v", cache.marked)
	}
}

func TestTelegramSendSkipsRecentDuplicate(t *testing.T) {
	stub := &tgStub{}
	cache := &sentCacheStub{seen: true}
	tg := NewTelegram(stub, cache)

	if err := tg.Send(context.Background(), "12345", "Привет, Сарапул"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(stub.sent) != 0 {
		t.Fatalf("недавно доставленный текст не должен уходить повторно")
	}
	if len(cache.marked) != 0 {
		t.Errorf("пропущенная доставка не должна помечаться заново")
	}
}

func TestTelegramSendSplitsLongText(t *testing.T) {
	stub := &tgStub{}
	tg := NewTelegram(stub, nil)

	long := strings.Repeat("а", 4000) + "\n" + strings.Repeat("б", 4000)
	if err := tg.Send(context.Background(), "1", long); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(stub.sent) != 2 {
		t.Fatalf("длинный текст должен уйти двумя сообщениями, получили %d", len(stub.sent))
	}
	for _, msg := range stub.sent {
		if len([]rune(msg.Text)) > messageLimit {
			t.Errorf("часть превышает лимит: %d символов", len([]rune(msg.Text)))
		}
	}
}

func TestTelegramSendBadChatID(t *testing.T) {
	tg := NewTelegram(&tgStub{}, nil)
	if err := tg.Send(context.Background(), "not-a-number", "текст"); err == nil {
		t.Fatalf("ожидали ошибку на нечисловом chat id")
	}
}

func TestMaxSend(t *testing.T) {
	var gotUserID, gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = r.URL.Query().Get("user_id")
		gotToken = r.URL.Query().Get("access_token")
		w.Write([]byte(`{"message":{"body":{"mid":"mid-1"}}}`))
	}))
	defer server.Close()

	cache := &sentCacheStub{}
	m := NewMax(server.Client(), server.URL, "secret", cache)

	if err := m.Send(context.Background(), "777", "Новости города"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if gotUserID != "777" || gotToken != "secret" {
		t.Errorf("неверные параметры запроса: user_id=%q token=%q", gotUserID, gotToken)
	}
	if len(cache.marked) != 1 || !strings.HasPrefix(cache.marked[0], "max_777_") {
		t.Errorf("доставка не помечена в кэше: %v", cache.marked)
	}
}

func TestMaxSendSkipsRecentDuplicate(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	m := NewMax(server.Client(), server.URL, "secret", &sentCacheStub{seen: true})
	if err := m.Send(context.Background(), "777", "Новости города"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if requests != 0 {
		t.Fatalf("недавно доставленный текст не должен уходить повторно, запросов: %d", requests)
	}
}

func TestMaxSendForbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	m := NewMax(server.Client(), server.URL, "secret", nil)
	err := m.Send(context.Background(), "777", "текст")
	if err == nil {
		t.Fatalf("ожидали ошибку на 403")
	}
	if !domain.IsPermanentSendError(err) {
		t.Errorf("403 должен распознаваться как постоянная ошибка: %v", err)
	}
}

func TestRouterDispatch(t *testing.T) {
	stub := &tgStub{}
	router := NewRouter(NewTelegram(stub, nil), nil)

	if err := router.Send(context.Background(), domain.ChannelTelegram, "1", "текст"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(stub.sent) != 1 {
		t.Fatalf("сообщение не дошло до telegram-отправителя")
	}

	err := router.Send(context.Background(), domain.ChannelMax, "1", "текст")
	if !errors.Is(err, domain.ErrUnsupportedChannel) {
		t.Fatalf("ожидали ErrUnsupportedChannel, получили %v", err)
	}
}

func TestSplitTextShort(t *testing.T) {
	parts := SplitText("  короткий текст  ")
	if len(parts) != 1 || parts[0] != "короткий текст" {
		t.Fatalf("неверный результат: %v", parts)
	}
	if SplitText("   ") != nil {
		t.Fatalf("пустой текст не должен давать частей")
	}
}
