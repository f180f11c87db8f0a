package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"sarapul-news-bot/internal/domain"
)

const rewriterPrompt = `Ты — редактор новостей города Сарапул. Перепиши новость:

1. Сохрани ВСЕ факты и цифры
2. Пиши простым языком, без канцеляризмов
3. Заголовок до 60 символов, цепляющий
4. Текст до 500 символов
5. 1-2 эмодзи где уместно
6. Не придумывай факты
7. Нейтральный тон

Верни только JSON: {"title": "...", "content": "..."}`

// Rewriter переписывает новость в формат, пригодный для рассылки.
type Rewriter struct {
	client chatClient
	model  string
}

var _ domain.Rewriter = (*Rewriter)(nil)

// NewRewriter создаёт редактора на указанной модели.
func NewRewriter(client chatClient, model string) *Rewriter {
	if model == "" {
		model = "anthropic/claude-3.5-haiku"
	}
	return &Rewriter{client: client, model: model}
}

// Rewrite возвращает переписанные заголовок и текст.
func (r *Rewriter) Rewrite(ctx context.Context, title, content string) (domain.Rewrite, error) {
	user := fmt.Sprintf("Заголовок: %s\nТекст: %s", title, content)
	raw, err := complete(ctx, r.client, r.model, rewriterPrompt, user)
	if err != nil {
		return domain.Rewrite{}, err
	}

	var result domain.Rewrite
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.Rewrite{}, fmt.Errorf("decode rewrite: %w", err)
	}
	if result.Title == "" {
		result.Title = title
	}
	if result.Content == "" {
		result.Content = content
	}
	return result, nil
}
