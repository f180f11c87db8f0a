// Package broadcast рассылает дайджест новостей подписчикам.
package broadcast

import (
	"fmt"
	"strings"
	"time"

	"sarapul-news-bot/internal/domain"
)

var monthNames = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatDigest собирает текст рассылки: заголовок с датой и блоки новостей,
// разделённые пустой строкой.
func FormatDigest(items []domain.NewsItem, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📰 Новости Сарапула — %d %s\n", at.Day(), monthNames[at.Month()-1])
	for _, item := range items {
		b.WriteString("\n🔹 ")
		b.WriteString(item.Title)
		b.WriteString("\n")
		b.WriteString(item.Content)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
