package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tripstream-data/internal/common/logger"
)

// New connects to the Redis instance carrying the ingress stream, the
// work queue and the analytics delivery stream. The returned client is
// safe for concurrent use and is meant to be built once per process
// and shared by every stage.
func New(addr string, log logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	log.Info("Redis connection established", "addr", addr)
	return client, nil
}
