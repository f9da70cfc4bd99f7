// Package sink feeds the analytics delivery stream: one
// newline-terminated JSON document per finalized trip, batched on the
// client before delivery.
package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/tripstream-data/internal/common/logger"
)

// Analytics buffers documents and delivers them in pipelined batches.
// Not safe for concurrent use; each stage handler owns its sink.
type Analytics struct {
	client    *redis.Client
	stream    string
	batchSize int
	buf       []string
	logger    logger.Logger
}

func New(client *redis.Client, region, stream string, batchSize int, log logger.Logger) *Analytics {
	if batchSize < 1 {
		batchSize = 25
	}
	return &Analytics{
		client:    client,
		stream:    region + ":" + stream,
		batchSize: batchSize,
		logger:    log,
	}
}

// Put appends one document to the delivery buffer, flushing when the
// buffer reaches the delivery batch size. The document is stored as a
// newline-terminated line so downstream batch files concatenate
// cleanly. The returned flag reports whether this put triggered a
// delivery attempt; callers use it to account for documents that were
// only buffered until now.
func (a *Analytics) Put(ctx context.Context, doc []byte) (bool, error) {
	line := string(doc)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	a.buf = append(a.buf, line)
	if len(a.buf) >= a.batchSize {
		return true, a.flush(ctx)
	}
	return false, nil
}

// Flush delivers whatever is buffered. Call at the end of each handler
// batch.
func (a *Analytics) Flush(ctx context.Context) error {
	if len(a.buf) == 0 {
		return nil
	}
	return a.flush(ctx)
}

func (a *Analytics) flush(ctx context.Context) error {
	batch := a.buf
	// The buffer is dropped whether or not delivery succeeds; the core
	// never retries, redelivery is the transport's job.
	a.buf = nil

	pipe := a.client.Pipeline()
	for _, line := range batch {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: a.stream,
			Values: map[string]interface{}{
				"data": line,
			},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delivering batch of %d documents to %s: %w", len(batch), a.stream, err)
	}

	a.logger.Debug("Delivered analytics batch", "stream", a.stream, "count", len(batch))
	return nil
}
