// Package bot обслуживает команды Telegram-бота.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sarapul-news-bot/internal/adapters/sender"
	"sarapul-news-bot/internal/domain"
	"sarapul-news-bot/internal/infra/metrics"
	"sarapul-news-bot/internal/usecase/subscribe"
)

const helpText = `Команды:
/start — подписаться на новости
/stop — отписаться
/news — последние новости
/help — эта справка`

const adminHelpText = `
Команды администратора:
/status — состояние бота
/stats [day|week|month] — аналитика
/broadcast — срочная рассылка отфильтрованных новостей`

// Handler обслуживает входящие апдейты бота.
type Handler struct {
	bot      *tgbotapi.BotAPI
	log      zerolog.Logger
	subs     *subscribe.Service
	settings domain.SettingsRepo
	jobs     domain.BroadcastQueue
}

// NewHandler создаёт обработчик.
func NewHandler(bot *tgbotapi.BotAPI, log zerolog.Logger, subs *subscribe.Service, settings domain.SettingsRepo, jobs domain.BroadcastQueue) *Handler {
	return &Handler{bot: bot, log: log, subs: subs, settings: settings, jobs: jobs}
}

// Run читает апдейты длинным поллингом до отмены контекста.
func (h *Handler) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := h.bot.GetUpdatesChan(cfg)
	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			h.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate обрабатывает один апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	h.handleMessage(ctx, upd.Message)
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		h.handleStart(msg)
	case strings.HasPrefix(text, "/stop"):
		h.handleStop(msg)
	case strings.HasPrefix(text, "/news"):
		h.handleNews(msg)
	case strings.HasPrefix(text, "/status"):
		h.handleStatus(msg)
	case strings.HasPrefix(text, "/stats"):
		period := strings.TrimSpace(strings.TrimPrefix(text, "/stats"))
		h.handleStats(msg, period)
	case strings.HasPrefix(text, "/broadcast"):
		h.handleBroadcast(ctx, msg)
	case strings.HasPrefix(text, "/help"):
		h.handleHelp(msg)
	default:
		h.reply(msg.Chat.ID, "Неизвестная команда. Используйте /help")
	}
}

func (h *Handler) handleStart(msg *tgbotapi.Message) {
	answer, err := h.subs.Subscribe(strconv.FormatInt(msg.From.ID, 10), domain.ChannelTelegram)
	if err != nil {
		h.log.Error().Err(err).Msg("bot: подписка не удалась")
		h.reply(msg.Chat.ID, "Не получилось оформить подписку, попробуйте позже")
		return
	}
	if answer == subscribe.MsgAlreadySub {
		h.reply(msg.Chat.ID, "Вы уже подписаны на новости Сарапула")
		return
	}
	h.reply(msg.Chat.ID, "Вы подписаны на новости Сарапула. Дайджест приходит утром и вечером.\n\n"+helpText)
}

func (h *Handler) handleStop(msg *tgbotapi.Message) {
	answer, err := h.subs.Unsubscribe(strconv.FormatInt(msg.From.ID, 10))
	if err != nil {
		h.log.Error().Err(err).Msg("bot: отписка не удалась")
		h.reply(msg.Chat.ID, "Не получилось отписаться, попробуйте позже")
		return
	}
	if answer == subscribe.MsgWasNotSubscribed {
		h.reply(msg.Chat.ID, "Вы и не были подписаны")
		return
	}
	h.reply(msg.Chat.ID, "Вы отписаны от рассылки. Вернуться можно командой /start")
}

func (h *Handler) handleNews(msg *tgbotapi.Message) {
	recent, err := h.subs.RecentNews(3, 24)
	if err != nil {
		h.log.Error().Err(err).Msg("bot: не удалось получить новости")
		h.reply(msg.Chat.ID, "Новости временно недоступны")
		return
	}
	if len(recent) == 0 {
		h.reply(msg.Chat.ID, "За последние сутки публикаций не было")
		return
	}
	var b strings.Builder
	b.WriteString("Последние новости:\n")
	for _, item := range recent {
		b.WriteString("\n🔹 ")
		b.WriteString(item.Title)
		b.WriteString("\n")
		b.WriteString(item.Content)
		b.WriteString("\n")
	}
	h.reply(msg.Chat.ID, strings.TrimSpace(b.String()))
}

func (h *Handler) handleStatus(msg *tgbotapi.Message) {
	if !h.isAdmin(msg.From) {
		h.reply(msg.Chat.ID, "Команда доступна только администраторам")
		return
	}
	status, err := h.subs.Status()
	if err != nil {
		h.log.Error().Err(err).Msg("bot: не удалось собрать статус")
		h.reply(msg.Chat.ID, "Не удалось собрать статус")
		return
	}
	h.reply(msg.Chat.ID, formatStatus(status))
}

func (h *Handler) handleStats(msg *tgbotapi.Message, period string) {
	if !h.isAdmin(msg.From) {
		h.reply(msg.Chat.ID, "Команда доступна только администраторам")
		return
	}
	if period == "" {
		period = "week"
	}
	stats, err := h.subs.Stats(period)
	if err != nil {
		h.log.Error().Err(err).Msg("bot: не удалось собрать аналитику")
		h.reply(msg.Chat.ID, "Не удалось собрать аналитику")
		return
	}
	h.reply(msg.Chat.ID, formatStats(stats))
}

func (h *Handler) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	if !h.isAdmin(msg.From) {
		h.reply(msg.Chat.ID, "Команда доступна только администраторам")
		return
	}
	job := domain.BroadcastJob{
		ID:          uuid.NewString(),
		Type:        domain.BroadcastUrgent,
		RequestedAt: domain.Now(),
	}
	if err := h.jobs.Enqueue(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("bot: не удалось поставить рассылку в очередь")
		h.reply(msg.Chat.ID, "Не удалось запустить рассылку")
		return
	}
	h.reply(msg.Chat.ID, "Срочная рассылка поставлена в очередь")
}

func (h *Handler) handleHelp(msg *tgbotapi.Message) {
	text := helpText
	if h.isAdmin(msg.From) {
		text += "\n" + adminHelpText
	}
	h.reply(msg.Chat.ID, text)
}

// isAdmin сверяет пользователя со списком администраторов из настроек:
// подходит и числовой ID, и @username.
func (h *Handler) isAdmin(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	settings, err := h.settings.ReadSettings()
	if err != nil {
		h.log.Error().Err(err).Msg("bot: не удалось прочитать настройки")
		return false
	}
	id := strconv.FormatInt(from.ID, 10)
	for _, admin := range settings.AdminUsers {
		if admin == id || (from.UserName != "" && strings.TrimPrefix(admin, "@") == from.UserName) {
			return true
		}
	}
	return false
}

func (h *Handler) reply(chatID int64, text string) {
	for _, part := range sender.SplitText(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		start := time.Now()
		_, err := h.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			h.log.Error().Err(err).Int64("chat", chatID).Msg("bot: не удалось отправить сообщение")
			return
		}
	}
}

func formatStatus(status domain.BotStatus) string {
	var b strings.Builder
	b.WriteString("Состояние бота:\n")
	fmt.Fprintf(&b, "Подписчиков: %d\n", status.Subscribers)
	fmt.Fprintf(&b, "Заблокировали: %d\n", status.Blocked)
	fmt.Fprintf(&b, "Новостей в базе: %d\n", status.TotalNews)
	fmt.Fprintf(&b, "Опубликовано сегодня: %d\n", status.PublishedToday)
	if status.LastParsed > 0 {
		fmt.Fprintf(&b, "Последний парсинг: %s\n", formatMillis(status.LastParsed))
	}
	if status.LastBroadcast > 0 {
		fmt.Fprintf(&b, "Последняя рассылка: %s\n", formatMillis(status.LastBroadcast))
	}
	return strings.TrimSpace(b.String())
}

var periodTitles = map[string]string{
	"day":   "за день",
	"week":  "за неделю",
	"month": "за месяц",
}

func formatStats(stats domain.PeriodStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Статистика %s:\n", periodTitles[stats.Period])
	fmt.Fprintf(&b, "Новостей собрано: %d\n", stats.NewsTotal)
	fmt.Fprintf(&b, "Опубликовано: %d\n", stats.NewsPublished)
	fmt.Fprintf(&b, "Отклонено: %d\n", stats.NewsRejected)
	fmt.Fprintf(&b, "Рассылок: %d\n", stats.BroadcastsSent)
	fmt.Fprintf(&b, "Новых подписчиков: %d\n", stats.SubscribersGained)
	fmt.Fprintf(&b, "Отписалось: %d", stats.SubscribersLost)
	return b.String()
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Format("02.01.2006 15:04")
}
