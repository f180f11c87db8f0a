package queue

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"sarapul-news-bot/internal/domain"
)

// New создаёт очередь по имени драйвера: redis или rabbitmq.
func New(driver, redisAddr, key, amqpURL string) (domain.BroadcastQueue, error) {
	switch driver {
	case "redis":
		if redisAddr == "" {
			return nil, fmt.Errorf("queue: REDIS_ADDR не задан")
		}
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		return NewRedisBroadcastQueue(client, key), nil
	case "rabbitmq":
		return NewAMQPBroadcastQueue(amqpURL, key)
	default:
		return nil, fmt.Errorf("queue: неизвестный драйвер %q", driver)
	}
}
