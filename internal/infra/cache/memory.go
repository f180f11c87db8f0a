// Package cache хранит идентификаторы недавно отправленных сообщений.
package cache

import (
	"context"
	"sync"
	"time"
)

// Memory — внутрипроцессный кэш с TTL. Часы инжектируются, чтобы тесты
// управляли временем.
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory создаёт кэш с заданным TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock подменяет источник времени.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Mark запоминает идентификатор сообщения.
func (m *Memory) Mark(_ context.Context, messageID string) error {
	if messageID == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[messageID] = m.now()
	return nil
}

// Seen сообщает, отправлялось ли сообщение в пределах TTL.
func (m *Memory) Seen(_ context.Context, messageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.entries[messageID]
	if !ok {
		return false, nil
	}
	if m.now().Sub(ts) > m.ttl {
		delete(m.entries, messageID)
		return false, nil
	}
	return true, nil
}

// Sweep удаляет просроченные записи.
func (m *Memory) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, ts := range m.entries {
		if now.Sub(ts) > m.ttl {
			delete(m.entries, id)
		}
	}
}

// StartSweeper периодически вызывает Sweep до отмены контекста.
func (m *Memory) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}
