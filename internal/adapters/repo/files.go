// Package repo хранит четыре коллекции пайплайна в JSON-файлах.
package repo

import (
	"path/filepath"
	"strings"

	"sarapul-news-bot/internal/domain"
	"sarapul-news-bot/internal/infra/store"
)

// Files реализует domain.ContentStore поверх каталога с четырьмя документами:
// news.json, users.json, settings.json, published.json. Каждый Read заново
// читает файл с диска, кэша в процессе нет.
type Files struct {
	dir       string
	envAdmins []string
}

var _ domain.ContentStore = (*Files)(nil)

// NewFiles создаёт хранилище в указанном каталоге. envAdmins подставляются
// в настройки, когда сохранённый список администраторов пуст.
func NewFiles(dir string, envAdmins string) *Files {
	return &Files{dir: dir, envAdmins: splitAdmins(envAdmins)}
}

func splitAdmins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	admins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			admins = append(admins, trimmed)
		}
	}
	return admins
}

// DefaultSettings — настройки при первом запуске.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		TelegramChannels:  []string{"admsarapul", "sarapul_news", "glava_sarapul"},
		BroadcastTimes:    []string{"08:30", "18:30"},
		AdminUsers:        []string{},
		MaxNewsPerDigest:  3,
		MinRelevanceScore: 4,
	}
}

func (f *Files) newsPath() string      { return filepath.Join(f.dir, "news.json") }
func (f *Files) usersPath() string     { return filepath.Join(f.dir, "users.json") }
func (f *Files) settingsPath() string  { return filepath.Join(f.dir, "settings.json") }
func (f *Files) publishedPath() string { return filepath.Join(f.dir, "published.json") }

// ReadNews возвращает коллекцию новостей.
func (f *Files) ReadNews() (domain.NewsFile, error) {
	return store.ReadJSON(f.newsPath(), domain.NewsFile{Items: []domain.NewsItem{}})
}

// WriteNews сохраняет коллекцию новостей.
func (f *Files) WriteNews(news domain.NewsFile) error {
	return store.WriteJSON(f.newsPath(), news)
}

// ReadUsers возвращает коллекцию подписчиков.
func (f *Files) ReadUsers() (domain.UsersFile, error) {
	return store.ReadJSON(f.usersPath(), domain.UsersFile{})
}

// WriteUsers сохраняет коллекцию подписчиков.
func (f *Files) WriteUsers(users domain.UsersFile) error {
	return store.WriteJSON(f.usersPath(), users)
}

// ReadSettings возвращает настройки, подставляя администраторов из окружения,
// если сохранённый список пуст.
func (f *Files) ReadSettings() (domain.Settings, error) {
	settings, err := store.ReadJSON(f.settingsPath(), DefaultSettings())
	if err != nil {
		return settings, err
	}
	if len(settings.AdminUsers) == 0 && len(f.envAdmins) > 0 {
		settings.AdminUsers = append([]string(nil), f.envAdmins...)
	}
	return settings, nil
}

// WriteSettings сохраняет настройки.
func (f *Files) WriteSettings(settings domain.Settings) error {
	return store.WriteJSON(f.settingsPath(), settings)
}

// ReadPublished возвращает журнал рассылок.
func (f *Files) ReadPublished() (domain.PublishedFile, error) {
	return store.ReadJSON(f.publishedPath(), domain.PublishedFile{Records: []domain.PublicationRecord{}})
}

// WritePublished сохраняет журнал рассылок.
func (f *Files) WritePublished(published domain.PublishedFile) error {
	return store.WriteJSON(f.publishedPath(), published)
}
