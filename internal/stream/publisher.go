package stream

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tripstream-data/internal/common/logger"
)

// Publisher writes trip records onto the sharded ingress stream. One
// XADD per record, pipelined per batch.
type Publisher struct {
	client *redis.Client
	region string
	shards int
	logger logger.Logger
}

func NewPublisher(client *redis.Client, region string, shards int, log logger.Logger) *Publisher {
	if shards < 1 {
		shards = 1
	}
	return &Publisher{
		client: client,
		region: region,
		shards: shards,
		logger: log,
	}
}

// PutRecords publishes a batch, routing each record to the shard its
// partition key hashes to. It returns the number of records the
// transport rejected; a non-nil error means the whole batch failed.
func (p *Publisher) PutRecords(ctx context.Context, streamName string, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	pipe := p.client.Pipeline()
	cmds := make([]*redis.StringCmd, 0, len(records))
	for _, rec := range records {
		shard := ShardFor(rec.PartitionKey, p.shards)
		cmds = append(cmds, pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: shardStream(p.region, streamName, shard),
			Values: map[string]interface{}{
				"data": EncodePayload(rec.Data),
				"key":  rec.PartitionKey,
			},
		}))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		// Distinguish a dead transport from partial rejection: if
		// every command failed, report the batch as failed.
		failed := 0
		for _, cmd := range cmds {
			if cmd.Err() != nil {
				failed++
			}
		}
		if failed == len(cmds) {
			return failed, fmt.Errorf("publishing batch of %d records: %w", len(records), err)
		}
		p.logger.Warn("Stream rejected part of a batch", "failed", failed, "total", len(records))
		return failed, nil
	}

	return 0, nil
}
