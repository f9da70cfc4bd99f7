package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue is the work queue between the enrichment and fare stages,
// backed by a Redis stream with consumer-group delivery. Message
// bodies are JSON-serialized trip records.
type Queue struct {
	client *redis.Client
	key    string
}

// Delivery is one dequeued message. ID must be acknowledged after the
// handler has run, or the transport will redeliver it.
type Delivery struct {
	ID   string
	Body []byte
}

func New(client *redis.Client, region, name string) *Queue {
	return &Queue{
		client: client,
		key:    region + ":" + name,
	}
}

// Enqueue appends one message body to the queue.
func (q *Queue) Enqueue(ctx context.Context, body []byte) error {
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.key,
		Values: map[string]interface{}{
			"body": string(body),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueueing to %s: %w", q.key, err)
	}
	return nil
}

// EnsureGroup creates the consumer group, tolerating one that already
// exists.
func (q *Queue) EnsureGroup(ctx context.Context, group string) error {
	err := q.client.XGroupCreateMkStream(ctx, q.key, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group %s on %s: %w", group, q.key, err)
	}
	return nil
}

// ReadBatch blocks up to blockTime for at most count messages. A
// timeout returns an empty batch, not an error.
func (q *Queue) ReadBatch(ctx context.Context, group, consumer string, count int, blockTime time.Duration) ([]Delivery, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{q.key, ">"},
		Count:    int64(count),
		Block:    blockTime,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("reading from %s: %w", q.key, err)
	}

	var deliveries []Delivery
	for _, s := range streams {
		for _, m := range s.Messages {
			body, _ := m.Values["body"].(string)
			deliveries = append(deliveries, Delivery{ID: m.ID, Body: []byte(body)})
		}
	}
	return deliveries, nil
}

// Ack acknowledges handled deliveries.
func (q *Queue) Ack(ctx context.Context, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := q.client.XAck(ctx, q.key, group, ids...).Err(); err != nil {
		return fmt.Errorf("acking %d messages on %s: %w", len(ids), q.key, err)
	}
	return nil
}
