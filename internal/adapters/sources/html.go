package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sarapul-news-bot/internal/domain"
	"sarapul-news-bot/internal/infra/retry"
)

const admSourceName = "adm-sarapul"

// Заголовки короче пяти символов — навигационный мусор, а не новости.
const minTitleLen = 5

// AdmSarapul парсит ленту новостей с сайта администрации города.
type AdmSarapul struct {
	client  *http.Client
	policy  retry.Policy
	baseURL string
	limit   int
	loc     *time.Location
}

var _ domain.Source = (*AdmSarapul)(nil)

// NewAdmSarapul создаёт источник. limit ограничивает число карточек за цикл.
func NewAdmSarapul(client *http.Client, baseURL string, limit int, loc *time.Location) *AdmSarapul {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = "https://adm-sarapul.ru"
	}
	if limit <= 0 {
		limit = 10
	}
	return &AdmSarapul{
		client:  client,
		policy:  retry.Default(),
		baseURL: strings.TrimRight(baseURL, "/"),
		limit:   limit,
		loc:     loc,
	}
}

// Name возвращает имя источника.
func (s *AdmSarapul) Name() string { return admSourceName }

// Fetch загружает страницу /news/ и разбирает карточки новостей.
func (s *AdmSarapul) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	body, err := fetchBody(ctx, s.client, s.policy, admSourceName, "news_page", s.baseURL+"/news/")
	if err != nil {
		return nil, fmt.Errorf("adm-sarapul fetch: %w", err)
	}
	return s.parse(body)
}

func (s *AdmSarapul) parse(html []byte) ([]domain.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("adm-sarapul parse: %w", err)
	}

	var items []domain.Candidate
	doc.Find(".news-item, .news__item, article, .item").EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if len(items) >= s.limit {
			return false
		}
		title := strings.TrimSpace(card.Find("h2, h3, h4, .title, .news-title, a").First().Text())
		if len([]rune(title)) < minTitleLen {
			return true
		}
		content := strings.TrimSpace(card.Find("p, .content, .description, .preview, .text").First().Text())
		if content == "" {
			content = title
		}
		href, _ := card.Find("a[href]").First().Attr("href")
		dateText := strings.TrimSpace(card.Find("time, .date, .news-date").First().Text())

		items = append(items, domain.Candidate{
			Source:      admSourceName,
			URL:         s.resolveURL(href, true),
			Title:       title,
			Content:     content,
			PublishedAt: ParseRussianDate(dateText, s.loc),
		})
		return true
	})

	// Если разметка карточек не совпала, собираем хотя бы ссылки на новости.
	if len(items) == 0 {
		doc.Find("a[href*='/news/']").EachWithBreak(func(_ int, link *goquery.Selection) bool {
			if len(items) >= s.limit {
				return false
			}
			title := strings.TrimSpace(link.Text())
			if len([]rune(title)) < minTitleLen {
				return true
			}
			href, _ := link.Attr("href")
			items = append(items, domain.Candidate{
				Source:  admSourceName,
				URL:     s.resolveURL(href, false),
				Title:   title,
				Content: title,
			})
			return true
		})
	}
	return items, nil
}

func (s *AdmSarapul) resolveURL(href string, underNews bool) string {
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "http"):
		return href
	case strings.HasPrefix(href, "/"):
		return s.baseURL + href
	case underNews:
		return s.baseURL + "/news/" + href
	default:
		return s.baseURL + "/" + href
	}
}
