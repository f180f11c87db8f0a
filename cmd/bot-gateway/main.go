package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"sarapul-news-bot/internal/adapters/bot"
	"sarapul-news-bot/internal/adapters/repo"
	"sarapul-news-bot/internal/infra/config"
	"sarapul-news-bot/internal/infra/log"
	"sarapul-news-bot/internal/infra/metrics"
	"sarapul-news-bot/internal/infra/queue"
	"sarapul-news-bot/internal/usecase/subscribe"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("bot-gateway: неизвестный часовой пояс")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := repo.NewFiles(cfg.DataDir, cfg.AdminUsers)
	subscribeService := subscribe.NewService(store, loc, logger)

	jobs, err := queue.New(cfg.Queue.Driver, cfg.RedisAddr, cfg.Queue.Key, cfg.Queue.AMQPURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot-gateway: не удалось создать очередь рассылок")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot-gateway: не удалось создать бота")
	}
	logger.Info().Str("bot", botAPI.Self.UserName).Msg("bot-gateway: бот запущен")

	metrics.StartServer(ctx, logger, fmt.Sprintf(":%d", cfg.Port))

	handler := bot.NewHandler(botAPI, logger, subscribeService, store, jobs)
	handler.Run(ctx)
	logger.Info().Msg("bot-gateway: остановлен")
}
