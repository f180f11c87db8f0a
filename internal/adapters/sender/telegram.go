package sender

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sarapul-news-bot/internal/domain"
	"sarapul-news-bot/internal/hash"
	"sarapul-news-bot/internal/infra/metrics"
)

// telegramAPI — часть tgbotapi.BotAPI, нужная отправителю.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram отправляет сообщения через Telegram Bot API.
type Telegram struct {
	bot  telegramAPI
	sent domain.SentCache
}

// NewTelegram создаёт отправителя. sent может быть nil, тогда повторные
// доставки не подавляются.
func NewTelegram(bot telegramAPI, sent domain.SentCache) *Telegram {
	return &Telegram{bot: bot, sent: sent}
}

// Send доставляет текст пользователю, при необходимости разбивая его на части.
// Тот же текст тому же получателю в пределах TTL кэша не отправляется повторно.
func (t *Telegram) Send(ctx context.Context, rawUserID, text string) error {
	chatID, err := strconv.ParseInt(rawUserID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: некорректный chat id %q: %w", rawUserID, err)
	}

	key := sendKey(domain.ChannelTelegram, rawUserID, text)
	if t.sent != nil {
		if seen, err := t.sent.Seen(ctx, key); err == nil && seen {
			return nil
		}
	}

	for _, part := range SplitText(text) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.DisableWebPagePreview = true

		start := time.Now()
		_, err := t.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", rawUserID, start, err)
		if err != nil {
			return fmt.Errorf("telegram: send to %s: %w", rawUserID, err)
		}
	}
	if t.sent != nil {
		t.sent.Mark(ctx, key)
	}
	return nil
}

// sendKey — ключ кэша отправленных: канал, получатель и дайджест текста.
func sendKey(channel domain.ChannelType, rawUserID, text string) string {
	return fmt.Sprintf("%s_%s_%s", channel, rawUserID, hash.Normalized(text))
}
