package stream

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tripstream-data/internal/common/logger"
)

// Handler is invoked once per delivered batch of stream messages. It
// must never fail past the batch boundary; per-message problems are
// its own to absorb.
type Handler func(ctx context.Context, msgs []Message)

// Consumer reads the sharded ingress stream through a consumer group,
// one goroutine per shard, and feeds batches to a Handler. Messages
// are acknowledged after the handler returns, so delivery is
// at-least-once.
type Consumer struct {
	client       *redis.Client
	region       string
	stream       string
	shards       int
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

type ConsumerConfig struct {
	Region       string
	Stream       string
	Shards       int
	Group        string
	ConsumerName string
	BatchSize    int
	BlockTime    time.Duration
}

func NewConsumer(client *redis.Client, cfg ConsumerConfig, handler Handler, log logger.Logger) *Consumer {
	if cfg.Shards < 1 {
		cfg.Shards = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 10
	}
	if cfg.BlockTime <= 0 {
		cfg.BlockTime = 2 * time.Second
	}
	return &Consumer{
		client:       client,
		region:       cfg.Region,
		stream:       cfg.Stream,
		shards:       cfg.Shards,
		group:        cfg.Group,
		consumerName: cfg.ConsumerName,
		batchSize:    cfg.BatchSize,
		blockTime:    cfg.BlockTime,
		handler:      handler,
		logger:       log,
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isRunning {
		return fmt.Errorf("stream consumer is already running")
	}

	for shard := 0; shard < c.shards; shard++ {
		stream := shardStream(c.region, c.stream, shard)
		if err := c.ensureGroup(ctx, stream); err != nil {
			return err
		}
	}

	c.logger.Info("Starting stream consumer",
		"stream", c.stream,
		"shards", c.shards,
		"group", c.group,
		"consumer", c.consumerName,
	)

	for shard := 0; shard < c.shards; shard++ {
		c.wg.Add(1)
		go func(shard int) {
			defer c.wg.Done()
			c.consumeShard(ctx, shardStream(c.region, c.stream, shard))
		}(shard)
	}

	c.isRunning = true
	return nil
}

// Wait blocks until all shard readers have stopped.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) ensureGroup(ctx context.Context, stream string) error {
	err := c.client.XGroupCreateMkStream(ctx, stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group %s on %s: %w", c.group, stream, err)
	}
	return nil
}

func (c *Consumer) consumeShard(ctx context.Context, stream string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumerName,
			Streams:  []string{stream, ">"},
			Count:    int64(c.batchSize),
			Block:    c.blockTime,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			c.logger.Error("Stream read failed", "stream", stream, "error", err)
			// Back off briefly so a dead transport does not spin.
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, s := range streams {
			if len(s.Messages) == 0 {
				continue
			}
			msgs := make([]Message, 0, len(s.Messages))
			ids := make([]string, 0, len(s.Messages))
			for _, m := range s.Messages {
				msgs = append(msgs, Message{
					ID:           m.ID,
					Data:         stringValue(m.Values, "data"),
					PartitionKey: stringValue(m.Values, "key"),
				})
				ids = append(ids, m.ID)
			}

			c.handler(ctx, msgs)

			if err := c.client.XAck(ctx, stream, c.group, ids...).Err(); err != nil {
				c.logger.Error("Failed to ack stream batch", "stream", stream, "count", len(ids), "error", err)
			}
		}
	}
}

func stringValue(values map[string]interface{}, key string) string {
	if v, ok := values[key].(string); ok {
		return v
	}
	return ""
}
