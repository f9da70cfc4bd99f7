package stream

import (
	"encoding/base64"
	"fmt"
	"hash/fnv"
)

// Record is one outbound trip event: the JSON payload plus the
// partition key that pins all events of a trip to one shard's order
// domain.
type Record struct {
	Data         []byte
	PartitionKey string
}

// Message is one inbound stream entry as delivered to a stage handler.
// Data carries the base64 transport encoding of the JSON payload.
type Message struct {
	ID           string
	Data         string
	PartitionKey string
}

// EncodePayload applies the transport encoding used on the ingress
// stream.
func EncodePayload(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodePayload reverses EncodePayload. Malformed input is a
// per-message decode error for the consumer to skip.
func DecodePayload(data string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decoding transport payload: %w", err)
	}
	return b, nil
}

// ShardFor hashes a partition key onto one of the stream's shards.
// The same key always lands on the same shard.
func ShardFor(partitionKey string, shards int) int {
	if shards <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(partitionKey))
	return int(h.Sum32() % uint32(shards))
}

// shardStream names one shard of a stream within a region namespace.
func shardStream(region, stream string, shard int) string {
	return fmt.Sprintf("%s:%s:%d", region, stream, shard)
}
