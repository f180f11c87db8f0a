package domain

import (
	"context"
	"time"
)

// NewsRepo управляет коллекцией новостей.
type NewsRepo interface {
	ReadNews() (NewsFile, error)
	WriteNews(NewsFile) error
}

// UserRepo управляет коллекцией подписчиков.
type UserRepo interface {
	ReadUsers() (UsersFile, error)
	WriteUsers(UsersFile) error
}

// SettingsRepo управляет настройками рассылки.
type SettingsRepo interface {
	ReadSettings() (Settings, error)
	WriteSettings(Settings) error
}

// PublishedRepo управляет журналом рассылок.
type PublishedRepo interface {
	ReadPublished() (PublishedFile, error)
	WritePublished(PublishedFile) error
}

// ContentStore объединяет четыре коллекции файлового хранилища.
type ContentStore interface {
	NewsRepo
	UserRepo
	SettingsRepo
	PublishedRepo
}

// Source выдаёт кандидатов новостей из одного источника.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Candidate, error)
}

// Classifier оценивает релевантность новости.
type Classifier interface {
	Classify(ctx context.Context, title, content, source string) (Classification, error)
}

// Rewriter переписывает новость для публикации.
type Rewriter interface {
	Rewrite(ctx context.Context, title, content string) (Rewrite, error)
}

// Sender отправляет текст одному получателю выбранного канала.
type Sender interface {
	Send(ctx context.Context, channel ChannelType, rawUserID, text string) error
}

// SentCache запоминает ключи недавно отправленных сообщений. Отправители
// пропускают доставку, если ключ уже отмечен в пределах TTL.
type SentCache interface {
	Mark(ctx context.Context, key string) error
	Seen(ctx context.Context, key string) (bool, error)
}

// BroadcastQueue — очередь задач на рассылку.
type BroadcastQueue interface {
	Enqueue(ctx context.Context, job BroadcastJob) error
	Pop(ctx context.Context) (BroadcastJob, error)
}

// Now возвращает текущее время в unix-миллисекундах.
func Now() int64 {
	return time.Now().UnixMilli()
}
