package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis реализует domain.SentCache поверх Redis: ключи с TTL истекают сами.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis создаёт кэш отправленных сообщений.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, prefix: "sent:"}
}

// Mark запоминает идентификатор сообщения.
func (r *Redis) Mark(ctx context.Context, messageID string) error {
	if messageID == "" {
		return nil
	}
	return r.client.Set(ctx, r.prefix+messageID, "1", r.ttl).Err()
}

// Seen сообщает, отправлялось ли сообщение в пределах TTL.
func (r *Redis) Seen(ctx context.Context, messageID string) (bool, error) {
	err := r.client.Get(ctx, r.prefix+messageID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
