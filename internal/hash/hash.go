// Package hash строит детерминированные идентификаторы и ключи дедупликации.
package hash

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"sarapul-news-bot/internal/domain"
)

const (
	digestLen     = 16
	contentWindow = 200
)

// Normalized приводит текст к нижнему регистру, обрезает пробелы и
// возвращает первые 16 hex-символов md5-дайджеста.
func Normalized(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])[:digestLen]
}

// Title возвращает ключ дедупликации по заголовку.
func Title(title string) string {
	return Normalized(title)
}

// Content возвращает ключ дедупликации по первым 200 символам текста.
// Усечение намеренное: повторные скрейпы одной новости различаются хвостом.
func Content(content string) string {
	trimmed := strings.TrimSpace(content)
	if runes := []rune(trimmed); len(runes) > contentWindow {
		trimmed = string(runes[:contentWindow])
	}
	return Normalized(trimmed)
}

// NewsID строит стабильный идентификатор новости по источнику и URL.
func NewsID(source, sourceURL string) string {
	return "news_" + Normalized(fmt.Sprintf("%s:%s", source, sourceURL))
}

// UserID строит составной ключ подписчика вида channel_rawID.
func UserID(rawID string, channel domain.ChannelType) string {
	return fmt.Sprintf("%s_%s", channel, rawID)
}
