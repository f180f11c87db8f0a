// Package sources собирает кандидатов новостей с сайта администрации и из
// Telegram-каналов через RSSHub.
package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"sarapul-news-bot/internal/infra/metrics"
	"sarapul-news-bot/internal/infra/retry"
)

// Сайт администрации отдаёт пустые страницы ботам без браузерного User-Agent.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

func fetchBody(ctx context.Context, client *http.Client, policy retry.Policy, component, target, url string) ([]byte, error) {
	var body []byte
	err := policy.Do(ctx, func() error {
		var reqErr error
		body, reqErr = doFetch(ctx, client, component, target, url)
		return reqErr
	})
	return body, err
}

func doFetch(ctx context.Context, client *http.Client, component, target, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest(component, "fetch", target, start, err)
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		statusErr := &retry.StatusError{Status: resp.StatusCode}
		metrics.ObserveNetworkRequest(component, "fetch", target, start, statusErr)
		return nil, statusErr
	}
	body, err := io.ReadAll(resp.Body)
	metrics.ObserveNetworkRequest(component, "fetch", target, start, err)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
