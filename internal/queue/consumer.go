package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tripstream-data/internal/common/logger"
)

// Handler is invoked once per dequeued batch. It must absorb
// per-record failures; the consumer acknowledges the whole batch after
// it returns.
type Handler func(ctx context.Context, deliveries []Delivery)

// Consumer polls the work queue and feeds batches to a Handler.
type Consumer struct {
	queue        *Queue
	group        string
	consumerName string
	batchSize    int
	blockTime    time.Duration
	handler      Handler
	logger       logger.Logger

	mu        sync.Mutex
	isRunning bool
	wg        sync.WaitGroup
}

func NewConsumer(q *Queue, group, consumerName string, batchSize int, handler Handler, log logger.Logger) *Consumer {
	if batchSize < 1 {
		batchSize = 10
	}
	return &Consumer{
		queue:        q,
		group:        group,
		consumerName: consumerName,
		batchSize:    batchSize,
		blockTime:    2 * time.Second,
		handler:      handler,
		logger:       log,
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isRunning {
		return fmt.Errorf("queue consumer is already running")
	}

	if err := c.queue.EnsureGroup(ctx, c.group); err != nil {
		return err
	}

	c.logger.Info("Starting queue consumer", "group", c.group, "consumer", c.consumerName)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()

	c.isRunning = true
	return nil
}

// Wait blocks until the poll loop has stopped.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		deliveries, err := c.queue.ReadBatch(ctx, c.group, c.consumerName, c.batchSize, c.blockTime)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("Queue read failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if len(deliveries) == 0 {
			continue
		}

		c.handler(ctx, deliveries)

		ids := make([]string, len(deliveries))
		for i, d := range deliveries {
			ids[i] = d.ID
		}
		if err := c.queue.Ack(ctx, c.group, ids...); err != nil {
			c.logger.Error("Failed to ack queue batch", "count", len(ids), "error", err)
		}
	}
}
