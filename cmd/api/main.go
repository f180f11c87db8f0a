package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sarapul-news-bot/internal/adapters/ai"
	"sarapul-news-bot/internal/adapters/api"
	"sarapul-news-bot/internal/adapters/repo"
	"sarapul-news-bot/internal/adapters/sources"
	"sarapul-news-bot/internal/domain"
	"sarapul-news-bot/internal/infra/config"
	httpinfra "sarapul-news-bot/internal/infra/http"
	"sarapul-news-bot/internal/infra/llm"
	"sarapul-news-bot/internal/infra/log"
	"sarapul-news-bot/internal/infra/metrics"
	"sarapul-news-bot/internal/infra/queue"
	"sarapul-news-bot/internal/usecase/pipeline"
	"sarapul-news-bot/internal/usecase/subscribe"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("api: неизвестный часовой пояс")
	}

	store := repo.NewFiles(cfg.DataDir, cfg.AdminUsers)

	llmClient := llm.NewClient(cfg.OpenRouter.APIKey, cfg.OpenRouter.BaseURL, cfg.OpenRouter.Timeout)
	classifier := ai.NewClassifier(llmClient, cfg.OpenRouter.ClassifierModel)
	rewriter := ai.NewRewriter(llmClient, cfg.OpenRouter.RewriterModel)

	newsSources := []domain.Source{
		sources.NewAdmSarapul(nil, cfg.Sources.AdmBaseURL, cfg.Sources.ParseLimit, loc),
		sources.NewRSSHub(nil, cfg.Sources.RSSHubURL, store),
	}
	pipelineService := pipeline.NewService(store, newsSources, classifier, rewriter, logger)
	subscribeService := subscribe.NewService(store, loc, logger)

	jobs, err := queue.New(cfg.Queue.Driver, cfg.RedisAddr, cfg.Queue.Key, cfg.Queue.AMQPURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось создать очередь рассылок")
	}

	srv := httpinfra.NewServer(logger)
	handler := api.NewHandler(store, subscribeService, pipelineService, classifier, rewriter, jobs, logger)
	handler.Register(srv.Router)

	if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Fatal().Err(err).Msg("api: HTTP сервер остановлен")
	}
}
