package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"deal-hub/internal/domain"
	"deal-hub/internal/infra/metrics"
)

// RabbitSubmissionQueue реализует очередь черновиков поверх AMQP.
type RabbitSubmissionQueue struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	queue      string
	deliveries <-chan amqp.Delivery
}

// NewRabbitSubmissionQueue подключается к брокеру и объявляет durable-очередь.
func NewRabbitSubmissionQueue(amqpURL, queue string) (*RabbitSubmissionQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &RabbitSubmissionQueue{conn: conn, channel: ch, queue: queue}, nil
}

// Enqueue публикует черновик в очередь.
func (q *RabbitSubmissionQueue) Enqueue(ctx context.Context, job domain.SubmissionJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.channel.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Pop блокирующе читает черновик из очереди. Сообщение подтверждается
// сразу после декодирования; нечитаемые сообщения отбрасываются без requeue.
func (q *RabbitSubmissionQueue) Pop(ctx context.Context) (domain.SubmissionJob, error) {
	if q.deliveries == nil {
		deliveries, err := q.channel.Consume(q.queue, "", false, false, false, false, nil)
		if err != nil {
			return domain.SubmissionJob{}, fmt.Errorf("consume: %w", err)
		}
		q.deliveries = deliveries
	}
	for {
		select {
		case <-ctx.Done():
			return domain.SubmissionJob{}, ctx.Err()
		case delivery, ok := <-q.deliveries:
			if !ok {
				return domain.SubmissionJob{}, errors.New("rabbitmq: delivery channel closed")
			}
			var job domain.SubmissionJob
			if err := json.Unmarshal(delivery.Body, &job); err != nil {
				_ = delivery.Nack(false, false)
				continue
			}
			if err := delivery.Ack(false); err != nil {
				return domain.SubmissionJob{}, fmt.Errorf("ack: %w", err)
			}
			return job, nil
		}
	}
}

// Close освобождает канал и соединение.
func (q *RabbitSubmissionQueue) Close() error {
	if q.channel != nil {
		_ = q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
