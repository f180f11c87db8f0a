// Package ai оценивает и переписывает новости через OpenRouter-совместимые модели.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sarapul-news-bot/internal/domain"
	"sarapul-news-bot/internal/infra/llm"
)

const classifierPrompt = `Ты — редактор новостей города Сарапул. Оцени важность новости по шкале 1-10.

ВАЖНЫЕ (8-10): открытие/закрытие соцобъектов, изменения в транспорте/ЖКХ, решения администрации, крупные мероприятия, ЧС.
СРЕДНИЕ (4-7): спортивные достижения, культурные события, благоустройство.
НЕВАЖНЫЕ (1-3): афиша без ценности, реклама, рутина, новости не про Сарапул.

Верни только JSON: {"score": N, "is_relevant": true/false, "reason": "..."}`

// Параметры генерации общие для классификатора и редактора.
const (
	completionTemperature = 0.3
	completionMaxTokens   = 500
)

// chatClient — минимальный контракт LLM-клиента, нужный адаптерам.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req llm.ChatCompletionRequest) (llm.ChatCompletionResponse, error)
}

// Classifier оценивает релевантность новости для городской рассылки.
type Classifier struct {
	client chatClient
	model  string
}

var _ domain.Classifier = (*Classifier)(nil)

// NewClassifier создаёт классификатор на указанной модели.
func NewClassifier(client chatClient, model string) *Classifier {
	if model == "" {
		model = "google/gemini-2.0-flash-lite-001"
	}
	return &Classifier{client: client, model: model}
}

// Classify возвращает оценку 1-10 и флаг релевантности.
func (c *Classifier) Classify(ctx context.Context, title, content, source string) (domain.Classification, error) {
	user := fmt.Sprintf("Источник: %s\nЗаголовок: %s\nТекст: %s", source, title, content)
	raw, err := complete(ctx, c.client, c.model, classifierPrompt, user)
	if err != nil {
		return domain.Classification{}, err
	}

	var result domain.Classification
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.Classification{}, fmt.Errorf("decode classification: %w", err)
	}
	return result, nil
}

func complete(ctx context.Context, client chatClient, model, system, user string) ([]byte, error) {
	resp, err := client.CreateChatCompletion(ctx, llm.ChatCompletionRequest{
		Model: model,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		Temperature: completionTemperature,
		MaxTokens:   completionMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion")
	}
	raw := extractJSON(resp.Choices[0].Message.Content)
	if raw == "" {
		return nil, fmt.Errorf("no json in completion")
	}
	return []byte(raw), nil
}

// extractJSON вырезает JSON-объект из ответа модели: от первой «{» до последней «}».
// Модели часто оборачивают объект в markdown или пояснительный текст.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}
