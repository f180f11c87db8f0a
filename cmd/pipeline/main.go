package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"sarapul-news-bot/internal/adapters/ai"
	"sarapul-news-bot/internal/adapters/repo"
	"sarapul-news-bot/internal/adapters/sender"
	"sarapul-news-bot/internal/adapters/sources"
	"sarapul-news-bot/internal/domain"
	"sarapul-news-bot/internal/infra/cache"
	"sarapul-news-bot/internal/infra/config"
	"sarapul-news-bot/internal/infra/llm"
	"sarapul-news-bot/internal/infra/log"
	"sarapul-news-bot/internal/infra/metrics"
	"sarapul-news-bot/internal/infra/queue"
	"sarapul-news-bot/internal/usecase/broadcast"
	"sarapul-news-bot/internal/usecase/pipeline"
)

const sentCacheTTL = 5 * time.Minute

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("pipeline: неизвестный часовой пояс")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := repo.NewFiles(cfg.DataDir, cfg.AdminUsers)

	llmClient := llm.NewClient(cfg.OpenRouter.APIKey, cfg.OpenRouter.BaseURL, cfg.OpenRouter.Timeout)
	classifier := ai.NewClassifier(llmClient, cfg.OpenRouter.ClassifierModel)
	rewriter := ai.NewRewriter(llmClient, cfg.OpenRouter.RewriterModel)

	newsSources := []domain.Source{
		sources.NewAdmSarapul(nil, cfg.Sources.AdmBaseURL, cfg.Sources.ParseLimit, loc),
		sources.NewRSSHub(nil, cfg.Sources.RSSHubURL, store),
	}
	pipelineService := pipeline.NewService(store, newsSources, classifier, rewriter, logger)

	sent := newSentCache(ctx, cfg)
	broadcastService := broadcast.NewService(store, newSenderRouter(cfg, sent, logger), loc, logger).
		WithDelay(cfg.Broadcast.SendDelay)

	jobs, err := queue.New(cfg.Queue.Driver, cfg.RedisAddr, cfg.Queue.Key, cfg.Queue.AMQPURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("pipeline: не удалось создать очередь рассылок")
	}

	metrics.StartServer(ctx, logger, fmt.Sprintf(":%d", cfg.Port))

	go runParseLoop(ctx, pipelineService, cfg.ParseInterval, logger)
	go runScheduler(ctx, store, jobs, loc, logger)
	runWorker(ctx, jobs, broadcastService, logger)
	logger.Info().Msg("pipeline: остановлен")
}

func newSentCache(ctx context.Context, cfg config.AppConfig) domain.SentCache {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return cache.NewRedis(client, sentCacheTTL)
	}
	mem := cache.NewMemory(sentCacheTTL)
	mem.StartSweeper(ctx, time.Minute)
	return mem
}

func newSenderRouter(cfg config.AppConfig, sent domain.SentCache, logger zerolog.Logger) *sender.Router {
	var telegram *sender.Telegram
	if cfg.Telegram.Token != "" {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("pipeline: не удалось создать telegram-бота")
		}
		telegram = sender.NewTelegram(botAPI, sent)
	}
	var max *sender.Max
	if cfg.Max.Token != "" {
		max = sender.NewMax(&http.Client{Timeout: 30 * time.Second}, cfg.Max.BaseURL, cfg.Max.Token, sent)
	}
	if telegram == nil && max == nil {
		logger.Fatal().Msg("pipeline: не задан токен ни одного канала доставки")
	}
	if telegram == nil {
		return sender.NewRouter(nil, max)
	}
	if max == nil {
		return sender.NewRouter(telegram, nil)
	}
	return sender.NewRouter(telegram, max)
}

// runParseLoop запускает цикл парсинга сразу и далее по интервалу.
func runParseLoop(ctx context.Context, svc *pipeline.Service, interval time.Duration, logger zerolog.Logger) {
	if _, err := svc.RunParseCycle(ctx); err != nil {
		logger.Error().Err(err).Msg("pipeline: цикл парсинга не удался")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.RunParseCycle(ctx); err != nil {
				logger.Error().Err(err).Msg("pipeline: цикл парсинга не удался")
			}
		}
	}
}

// runScheduler раз в минуту сверяет локальное время с расписанием рассылок
// и ставит задачу в очередь. fired защищает от повторного срабатывания
// в ту же минуту.
func runScheduler(ctx context.Context, settings domain.SettingsRepo, jobs domain.BroadcastQueue, loc *time.Location, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	fired := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := time.Now().In(loc)
		minute := now.Format("2006-01-02 15:04")
		if minute == fired {
			continue
		}
		cfg, err := settings.ReadSettings()
		if err != nil {
			logger.Error().Err(err).Msg("pipeline: не удалось прочитать расписание")
			continue
		}
		for _, at := range cfg.BroadcastTimes {
			if now.Format("15:04") != at {
				continue
			}
			fired = minute
			typ := domain.BroadcastEvening
			if now.Hour() < 12 {
				typ = domain.BroadcastMorning
			}
			job := domain.BroadcastJob{
				ID:          uuid.NewString(),
				Type:        typ,
				RequestedAt: domain.Now(),
			}
			if err := jobs.Enqueue(ctx, job); err != nil {
				logger.Error().Err(err).Msg("pipeline: не удалось поставить рассылку в очередь")
				continue
			}
			logger.Info().Str("type", string(typ)).Str("at", at).Msg("pipeline: рассылка по расписанию")
		}
	}
}

// runWorker разбирает очередь задач на рассылку.
func runWorker(ctx context.Context, jobs domain.BroadcastQueue, svc *broadcast.Service, logger zerolog.Logger) {
	for {
		job, err := jobs.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error().Err(err).Msg("pipeline: ошибка чтения очереди")
			continue
		}
		result, err := svc.Run(ctx, job.Type, job.NewsIDs)
		if err != nil {
			logger.Error().Err(err).Str("job", job.ID).Msg("pipeline: рассылка не удалась")
			continue
		}
		if result.Error != "" {
			logger.Info().Str("job", job.ID).Str("reason", result.Error).Msg("pipeline: рассылка пропущена")
		}
	}
}
