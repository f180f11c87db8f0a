// Package api отдаёт операции пайплайна и подписки по HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sarapul-news-bot/internal/domain"
	"sarapul-news-bot/internal/usecase/pipeline"
	"sarapul-news-bot/internal/usecase/subscribe"
)

// Handler регистрирует маршруты /api/v1.
type Handler struct {
	store      domain.ContentStore
	subs       *subscribe.Service
	pipe       *pipeline.Service
	classifier domain.Classifier
	rewriter   domain.Rewriter
	jobs       domain.BroadcastQueue
	log        zerolog.Logger
}

// NewHandler создаёт HTTP-обработчик.
func NewHandler(store domain.ContentStore, subs *subscribe.Service, pipe *pipeline.Service, classifier domain.Classifier, rewriter domain.Rewriter, jobs domain.BroadcastQueue, log zerolog.Logger) *Handler {
	return &Handler{
		store:      store,
		subs:       subs,
		pipe:       pipe,
		classifier: classifier,
		rewriter:   rewriter,
		jobs:       jobs,
		log:        log,
	}
}

// Register вешает маршруты на роутер.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/subscribe_user", h.subscribeUser)
		r.Post("/unsubscribe_user", h.unsubscribeUser)
		r.Post("/get_recent_news", h.getRecentNews)
		r.Post("/save_news", h.saveNews)
		r.Post("/dedupe_news", h.dedupeNews)
		r.Post("/classify_news", h.classifyNews)
		r.Post("/rewrite_news", h.rewriteNews)
		r.Post("/run_parse_cycle", h.runParseCycle)
		r.Post("/run_broadcast", h.runBroadcast)
		r.Post("/get_bot_status", h.getBotStatus)
		r.Post("/get_stats", h.getStats)
	})
}

type subscribeRequest struct {
	UserID  string `json:"userId"`
	Channel string `json:"channel"`
}

func (h *Handler) subscribeUser(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	channel := domain.ChannelType(req.Channel)
	if channel != domain.ChannelTelegram && channel != domain.ChannelMax {
		writeError(w, http.StatusBadRequest, "channel must be telegram or max")
		return
	}
	message, err := h.subs.Subscribe(req.UserID, channel)
	if err != nil {
		h.log.Error().Err(err).Msg("api: subscribe_user")
		writeError(w, http.StatusInternalServerError, "failed to subscribe user")
		return
	}
	writeJSON(w, map[string]any{"success": true, "message": message})
}

type unsubscribeRequest struct {
	UserID string `json:"userId"`
}

func (h *Handler) unsubscribeUser(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	message, err := h.subs.Unsubscribe(req.UserID)
	if err != nil {
		h.log.Error().Err(err).Msg("api: unsubscribe_user")
		writeError(w, http.StatusInternalServerError, "failed to unsubscribe user")
		return
	}
	writeJSON(w, map[string]any{"success": true, "message": message})
}

type recentNewsRequest struct {
	Limit     int `json:"limit"`
	HoursBack int `json:"hoursBack"`
}

func (h *Handler) getRecentNews(w http.ResponseWriter, r *http.Request) {
	var req recentNewsRequest
	if !decode(w, r, &req) {
		return
	}
	recent, err := h.subs.RecentNews(req.Limit, req.HoursBack)
	if err != nil {
		h.log.Error().Err(err).Msg("api: get_recent_news")
		writeError(w, http.StatusInternalServerError, "failed to read news")
		return
	}
	type newsView struct {
		Title       string `json:"title"`
		Content     string `json:"content"`
		Source      string `json:"source"`
		PublishedAt int64  `json:"publishedAt"`
	}
	views := make([]newsView, 0, len(recent))
	for _, item := range recent {
		views = append(views, newsView{
			Title:       item.Title,
			Content:     item.Content,
			Source:      item.Source,
			PublishedAt: item.PublishedAt,
		})
	}
	writeJSON(w, map[string]any{"news": views, "count": len(views)})
}

type saveNewsRequest struct {
	Items []saveNewsItem `json:"items"`
}

type saveNewsItem struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	SourceURL   string `json:"sourceUrl"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	TitleHash   string `json:"titleHash"`
	ContentHash string `json:"contentHash"`
}

func (h *Handler) saveNews(w http.ResponseWriter, r *http.Request) {
	var req saveNewsRequest
	if !decode(w, r, &req) {
		return
	}
	for i, item := range req.Items {
		if item.ID == "" || item.Title == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("items[%d]: id and title are required", i))
			return
		}
	}
	news, err := h.store.ReadNews()
	if err != nil {
		h.log.Error().Err(err).Msg("api: save_news")
		writeError(w, http.StatusInternalServerError, "failed to read news")
		return
	}
	existing := make(map[string]bool, len(news.Items))
	for _, item := range news.Items {
		existing[item.ID] = true
	}

	saved := 0
	now := domain.Now()
	for _, item := range req.Items {
		if existing[item.ID] {
			continue
		}
		news.Items = append(news.Items, domain.NewsItem{
			ID:              item.ID,
			Source:          item.Source,
			SourceURL:       item.SourceURL,
			Title:           item.Title,
			Content:         item.Content,
			OriginalContent: item.Content,
			TitleHash:       item.TitleHash,
			ContentHash:     item.ContentHash,
			Status:          domain.StatusNew,
			CreatedAt:       now,
		})
		existing[item.ID] = true
		saved++
	}
	news.LastParsed = now
	if err := h.store.WriteNews(news); err != nil {
		h.log.Error().Err(err).Msg("api: save_news")
		writeError(w, http.StatusInternalServerError, "failed to write news")
		return
	}
	writeJSON(w, map[string]any{"saved": saved, "skipped": len(req.Items) - saved})
}

type dedupeRequest struct {
	TitleHash   string `json:"titleHash"`
	ContentHash string `json:"contentHash"`
	SourceURL   string `json:"sourceUrl"`
}

func (h *Handler) dedupeNews(w http.ResponseWriter, r *http.Request) {
	var req dedupeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.TitleHash == "" || req.ContentHash == "" || req.SourceURL == "" {
		writeError(w, http.StatusBadRequest, "titleHash, contentHash and sourceUrl are required")
		return
	}
	news, err := h.store.ReadNews()
	if err != nil {
		h.log.Error().Err(err).Msg("api: dedupe_news")
		writeError(w, http.StatusInternalServerError, "failed to read news")
		return
	}
	match := pipeline.FindDuplicate(news.Items, req.SourceURL, req.TitleHash, req.ContentHash)
	writeJSON(w, map[string]any{
		"isDuplicate": match.Duplicate,
		"reason":      match.Reason,
		"duplicateId": match.DuplicateID,
	})
}

type classifyRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

func (h *Handler) classifyNews(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Title == "" || req.Content == "" || req.Source == "" {
		writeError(w, http.StatusBadRequest, "title, content and source are required")
		return
	}
	verdict, err := h.classifier.Classify(r.Context(), req.Title, req.Content, req.Source)
	if err != nil {
		// Сбой классификатора не блокирует пайплайн: новость проходит
		// дальше со средней оценкой.
		verdict = domain.Classification{Score: 5, IsRelevant: true, Reason: fmt.Sprintf("Error: %v", err)}
	}
	writeJSON(w, verdict)
}

type rewriteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *Handler) rewriteNews(w http.ResponseWriter, r *http.Request) {
	var req rewriteRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Title == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}
	rewritten, err := h.rewriter.Rewrite(r.Context(), req.Title, req.Content)
	if err != nil {
		writeJSON(w, map[string]any{"title": req.Title, "content": req.Content, "error": err.Error()})
		return
	}
	writeJSON(w, rewritten)
}

func (h *Handler) runParseCycle(w http.ResponseWriter, r *http.Request) {
	stats, err := h.pipe.RunParseCycle(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("api: run_parse_cycle")
		writeError(w, http.StatusInternalServerError, "parse cycle failed")
		return
	}
	writeJSON(w, stats)
}

type runBroadcastRequest struct {
	Type    string   `json:"type"`
	NewsIDs []string `json:"newsIds"`
}

func (h *Handler) runBroadcast(w http.ResponseWriter, r *http.Request) {
	var req runBroadcastRequest
	if !decode(w, r, &req) {
		return
	}
	typ := domain.BroadcastType(req.Type)
	if typ == "" {
		typ = domain.BroadcastMorning
	}
	switch typ {
	case domain.BroadcastMorning, domain.BroadcastEvening, domain.BroadcastUrgent:
	default:
		writeError(w, http.StatusBadRequest, "type must be morning, evening or urgent")
		return
	}
	job := domain.BroadcastJob{
		ID:          uuid.NewString(),
		Type:        typ,
		NewsIDs:     req.NewsIDs,
		RequestedAt: domain.Now(),
	}
	if err := h.jobs.Enqueue(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("api: run_broadcast")
		writeError(w, http.StatusInternalServerError, "failed to enqueue broadcast")
		return
	}
	writeJSON(w, map[string]any{"queued": true, "jobId": job.ID})
}

func (h *Handler) getBotStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.subs.Status()
	if err != nil {
		h.log.Error().Err(err).Msg("api: get_bot_status")
		writeError(w, http.StatusInternalServerError, "failed to collect status")
		return
	}
	writeJSON(w, status)
}

type statsRequest struct {
	Period string `json:"period"`
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	var req statsRequest
	if !decode(w, r, &req) {
		return
	}
	stats, err := h.subs.Stats(req.Period)
	if err != nil {
		h.log.Error().Err(err).Msg("api: get_stats")
		writeError(w, http.StatusInternalServerError, "failed to collect stats")
		return
	}
	writeJSON(w, stats)
}

// decode читает JSON-тело. Пустое тело допустимо: все поля получают нулевые
// значения.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
