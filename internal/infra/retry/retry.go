// Package retry описывает явную политику повторов для внешних вызовов.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Policy задаёт дисциплину повторов: количество попыток, проверку
// повторяемости ошибки и задержку между попытками.
type Policy struct {
	MaxAttempts int
	Retryable   func(error) bool
	Backoff     func(attempt int) time.Duration
}

// Default — политика для HTTP-вызовов: повторяем сетевые ошибки, 429 и 5xx,
// остальное отдаём сразу.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		Retryable:   RetryableHTTP,
		Backoff:     ExponentialBackoff(500 * time.Millisecond),
	}
}

// StatusError несёт HTTP-статус неудачного запроса.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("неожиданный статус %d", e.Status)
	}
	return fmt.Sprintf("неожиданный статус %d: %s", e.Status, e.Body)
}

// RetryableHTTP повторяет 429, 5xx и сетевые ошибки без статуса.
func RetryableHTTP(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status == 429 || statusErr.Status >= 500
	}
	// Ошибка без статуса — сетевая, её имеет смысл повторить.
	return !strings.Contains(err.Error(), "context canceled")
}

// ExponentialBackoff удваивает базовую задержку на каждой попытке.
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		delay := base
		for i := 1; i < attempt; i++ {
			delay *= 2
		}
		return delay
	}
}

// Do выполняет fn по политике. Последняя ошибка возвращается, когда попытки
// исчерпаны или ошибка не подлежит повтору.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 && p.Backoff != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff(attempt - 1)):
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
