package pipeline

import (
	"testing"

	"sarapul-news-bot/internal/domain"
)

func TestFindDuplicatePriorities(t *testing.T) {
	items := []domain.NewsItem{
		{ID: "news_1", SourceURL: "https://a.ru/1", TitleHash: "t1", ContentHash: "c1"},
		{ID: "news_2", SourceURL: "https://a.ru/2", TitleHash: "t2", ContentHash: "c2"},
	}

	cases := []struct {
		name        string
		url         string
		titleHash   string
		contentHash string
		wantReason  string
		wantID      string
	}{
		{"по ссылке", "https://a.ru/2", "x", "x", ReasonSameURL, "news_2"},
		{"по заголовку", "https://a.ru/9", "t1", "x", ReasonSameTitle, "news_1"},
		{"по тексту", "https://a.ru/9", "x", "c2", ReasonSimilarContent, "news_2"},
	}
	for _, c := range cases {
		got := FindDuplicate(items, c.url, c.titleHash, c.contentHash)
		if !got.Duplicate || got.Reason != c.wantReason || got.DuplicateID != c.wantID {
			t.Errorf("%s: получили %+v", c.name, got)
		}
	}
}

func TestFindDuplicateNoMatch(t *testing.T) {
	items := []domain.NewsItem{{SourceURL: "https://a.ru/1", TitleHash: "t1", ContentHash: "c1"}}
	if got := FindDuplicate(items, "https://a.ru/9", "x", "y"); got.Duplicate {
		t.Fatalf("не ожидали дубликат: %+v", got)
	}
}

func TestFindDuplicateEmptyKeysIgnored(t *testing.T) {
	items := []domain.NewsItem{{SourceURL: "", TitleHash: "", ContentHash: ""}}
	if got := FindDuplicate(items, "", "", ""); got.Duplicate {
		t.Fatalf("пустые ключи не должны совпадать: %+v", got)
	}
}
