// Package pipeline превращает сырые кандидаты из источников в готовые
// к рассылке новости: дедупликация, оценка релевантности, переписывание.
package pipeline

import "sarapul-news-bot/internal/domain"

// Причины отбраковки дубликата в порядке убывания приоритета.
const (
	ReasonSameURL        = "Same URL"
	ReasonSameTitle      = "Same title"
	ReasonSimilarContent = "Similar content"
)

// DedupMatch — результат проверки кандидата на дубликат.
type DedupMatch struct {
	Duplicate   bool   `json:"duplicate"`
	Reason      string `json:"reason,omitempty"`
	DuplicateID string `json:"duplicateId,omitempty"`
}

// FindDuplicate ищет дубликат по трём ключам: точное совпадение ссылки,
// совпадение хэша заголовка, совпадение хэша начала текста. Коллекция
// просматривается в порядке хранения, побеждает первое совпадение.
func FindDuplicate(items []domain.NewsItem, sourceURL, titleHash, contentHash string) DedupMatch {
	for _, item := range items {
		switch {
		case sourceURL != "" && item.SourceURL == sourceURL:
			return DedupMatch{Duplicate: true, Reason: ReasonSameURL, DuplicateID: item.ID}
		case titleHash != "" && item.TitleHash == titleHash:
			return DedupMatch{Duplicate: true, Reason: ReasonSameTitle, DuplicateID: item.ID}
		case contentHash != "" && item.ContentHash == contentHash:
			return DedupMatch{Duplicate: true, Reason: ReasonSimilarContent, DuplicateID: item.ID}
		}
	}
	return DedupMatch{}
}
