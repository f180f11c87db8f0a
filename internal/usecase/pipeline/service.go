package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"sarapul-news-bot/internal/domain"
	"sarapul-news-bot/internal/hash"
	"sarapul-news-bot/internal/infra/metrics"
)

// Service выполняет цикл парсинга: сбор кандидатов, дедупликация, оценка
// релевантности и переписывание прошедших порог новостей.
type Service struct {
	store      domain.ContentStore
	sources    []domain.Source
	classifier domain.Classifier
	rewriter   domain.Rewriter
	log        zerolog.Logger
	now        func() int64
}

// NewService создаёт сервис пайплайна.
func NewService(store domain.ContentStore, sources []domain.Source, classifier domain.Classifier, rewriter domain.Rewriter, log zerolog.Logger) *Service {
	return &Service{
		store:      store,
		sources:    sources,
		classifier: classifier,
		rewriter:   rewriter,
		log:        log,
		now:        domain.Now,
	}
}

// WithClock подменяет источник времени.
func (s *Service) WithClock(now func() int64) *Service {
	s.now = now
	return s
}

// RunParseCycle обходит источники и сохраняет новые новости. Упавший источник
// пропускается, цикл продолжается на остальных.
func (s *Service) RunParseCycle(ctx context.Context) (domain.ParseStats, error) {
	metrics.ParseCycleRuns.Inc()

	settings, err := s.store.ReadSettings()
	if err != nil {
		return domain.ParseStats{}, fmt.Errorf("read settings: %w", err)
	}
	news, err := s.store.ReadNews()
	if err != nil {
		return domain.ParseStats{}, fmt.Errorf("read news: %w", err)
	}

	var stats domain.ParseStats
	for _, source := range s.sources {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		candidates, err := source.Fetch(ctx)
		if err != nil {
			metrics.ParseCycleErrors.Inc()
			s.log.Error().Err(err).Str("source", source.Name()).Msg("pipeline: источник недоступен")
			continue
		}
		stats.Parsed += len(candidates)

		for _, candidate := range candidates {
			item, saved := s.ingest(ctx, news.Items, candidate, settings.MinRelevanceScore)
			if !saved {
				continue
			}
			news.Items = append(news.Items, item)
			stats.Unique++
			if item.Status == domain.StatusFiltered {
				stats.Relevant++
			} else {
				stats.Rejected++
			}
		}
	}

	news.LastParsed = s.now()
	if err := s.store.WriteNews(news); err != nil {
		return stats, fmt.Errorf("write news: %w", err)
	}
	s.log.Info().
		Int("parsed", stats.Parsed).
		Int("unique", stats.Unique).
		Int("relevant", stats.Relevant).
		Int("rejected", stats.Rejected).
		Msg("pipeline: цикл завершён")
	return stats, nil
}

// ingest проверяет кандидата на дубликат и проводит его через AI-воронку.
// Возвращает false, если кандидат отброшен как дубликат.
func (s *Service) ingest(ctx context.Context, existing []domain.NewsItem, candidate domain.Candidate, minScore int) (domain.NewsItem, bool) {
	urlKey := candidate.URL
	if urlKey == "" {
		urlKey = candidate.Title
	}
	id := hash.NewsID(candidate.Source, urlKey)
	titleHash := hash.Title(candidate.Title)
	contentHash := hash.Content(candidate.Content)

	for _, item := range existing {
		if item.ID == id {
			metrics.NewsDuplicates.WithLabelValues(ReasonSameURL).Inc()
			return domain.NewsItem{}, false
		}
	}
	if match := FindDuplicate(existing, candidate.URL, titleHash, contentHash); match.Duplicate {
		metrics.NewsDuplicates.WithLabelValues(match.Reason).Inc()
		s.log.Debug().
			Str("id", id).
			Str("reason", match.Reason).
			Str("duplicate_of", match.DuplicateID).
			Msg("pipeline: дубликат отброшен")
		return domain.NewsItem{}, false
	}

	item := domain.NewsItem{
		ID:          id,
		Source:      candidate.Source,
		SourceURL:   candidate.URL,
		Title:       candidate.Title,
		Content:     candidate.Content,
		TitleHash:   titleHash,
		ContentHash: contentHash,
		CreatedAt:   s.now(),
		PublishedAt: candidate.PublishedAt,
	}

	verdict := s.classify(ctx, candidate)
	item.RelevanceScore = verdict.Score
	item.IsRelevant = verdict.IsRelevant
	item.AIReason = verdict.Reason

	if verdict.Score >= minScore && verdict.IsRelevant {
		item.Status = domain.StatusFiltered
		s.applyRewrite(ctx, &item)
	} else {
		item.Status = domain.StatusRejected
	}
	metrics.NewsSaved.WithLabelValues(string(item.Status)).Inc()
	return item, true
}

// classify оценивает новость. При ошибке классификатора новость считается
// релевантной со средней оценкой, чтобы сбой внешнего API не глушил ленту.
func (s *Service) classify(ctx context.Context, candidate domain.Candidate) domain.Classification {
	verdict, err := s.classifier.Classify(ctx, candidate.Title, candidate.Content, candidate.Source)
	if err != nil {
		s.log.Warn().Err(err).Str("title", candidate.Title).Msg("pipeline: классификатор недоступен")
		return domain.Classification{Score: 5, IsRelevant: true, Reason: fmt.Sprintf("Error: %v", err)}
	}
	return verdict
}

// applyRewrite переписывает новость, сохраняя оригинал. Ошибка редактора
// оставляет исходные заголовок и текст и дописывается в aiReason.
func (s *Service) applyRewrite(ctx context.Context, item *domain.NewsItem) {
	rewritten, err := s.rewriter.Rewrite(ctx, item.Title, item.Content)
	if err != nil {
		s.log.Warn().Err(err).Str("id", item.ID).Msg("pipeline: редактор недоступен, оставляем оригинал")
		reason := fmt.Sprintf("Rewrite error: %v", err)
		if item.AIReason != "" {
			reason = item.AIReason + "; " + reason
		}
		item.AIReason = reason
		return
	}
	item.OriginalContent = item.Content
	item.Title = rewritten.Title
	item.Content = rewritten.Content
}
