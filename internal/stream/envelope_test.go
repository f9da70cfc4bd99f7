package stream

import "testing"

func TestPayloadRoundTrip(t *testing.T) {
	payload := []byte(`{"trip_id":"T1"}`)
	decoded, err := DecodePayload(EncodePayload(payload))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(decoded) != string(payload) {
		t.Errorf("Expected %s, got %s", payload, decoded)
	}
}

func TestDecodePayloadRejectsMalformedInput(t *testing.T) {
	if _, err := DecodePayload("%%% not base64 %%%"); err == nil {
		t.Error("Expected decode error for malformed input")
	}
}

func TestShardForIsStable(t *testing.T) {
	shards := 4
	first := ShardFor("T1", shards)
	for i := 0; i < 10; i++ {
		if got := ShardFor("T1", shards); got != first {
			t.Fatalf("Expected stable shard for one key, got %d then %d", first, got)
		}
	}
	if first < 0 || first >= shards {
		t.Errorf("Expected shard in [0,%d), got %d", shards, first)
	}
}

func TestShardForSingleShard(t *testing.T) {
	if got := ShardFor("anything", 1); got != 0 {
		t.Errorf("Expected shard 0 for a single-shard stream, got %d", got)
	}
	if got := ShardFor("anything", 0); got != 0 {
		t.Errorf("Expected shard 0 when shard count is unset, got %d", got)
	}
}

func TestShardStreamNaming(t *testing.T) {
	if got := shardStream("ap-south-1", "taxi-trip-stream", 2); got != "ap-south-1:taxi-trip-stream:2" {
		t.Errorf("Unexpected shard stream name: %s", got)
	}
}
