package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"sarapul-news-bot/internal/domain"
)

const consumePollInterval = time.Second

// AMQPBroadcastQueue реализует очередь задач поверх RabbitMQ.
type AMQPBroadcastQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

var _ domain.BroadcastQueue = (*AMQPBroadcastQueue)(nil)

// NewAMQPBroadcastQueue подключается к RabbitMQ и объявляет durable-очередь.
func NewAMQPBroadcastQueue(amqpURL, queue string) (*AMQPBroadcastQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	return &AMQPBroadcastQueue{conn: conn, ch: ch, queue: queue}, nil
}

// Close освобождает соединение.
func (q *AMQPBroadcastQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

// Enqueue публикует задачу в очередь.
func (q *AMQPBroadcastQueue) Enqueue(ctx context.Context, job domain.BroadcastJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *AMQPBroadcastQueue) Pop(ctx context.Context) (domain.BroadcastJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.BroadcastJob{}, err
		}
		msg, ok, err := q.ch.Get(q.queue, true)
		if err != nil {
			return domain.BroadcastJob{}, fmt.Errorf("amqp get: %w", err)
		}
		if !ok {
			select {
			case <-ctx.Done():
				return domain.BroadcastJob{}, ctx.Err()
			case <-time.After(consumePollInterval):
			}
			continue
		}
		var job domain.BroadcastJob
		if err := json.Unmarshal(msg.Body, &job); err != nil {
			return domain.BroadcastJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}
