package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tripstream-data/internal/common/logger"
	"github.com/tripstream-data/internal/stream"
	"github.com/tripstream-data/pkg/trip/models"
)

type fakePublisher struct {
	batches  [][]stream.Record
	err      error
	rejected int
}

func (f *fakePublisher) PutRecords(ctx context.Context, streamName string, records []stream.Record) (int, error) {
	if f.err != nil {
		return len(records), f.err
	}
	f.batches = append(f.batches, records)
	return f.rejected, nil
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trips.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test csv: %v", err)
	}
	return path
}

const header = "trip_id,taxi_id,pickup_datetime,latitude,longitude,pickup_lat,pickup_long,drop_lat,drop_long,distance_km,passenger_count,fare_amount,extra_charges,tip_amount,tolls_amount,total_amount,zone_name\n"

func TestSendAllPublishesRows(t *testing.T) {
	path := writeCSV(t, header+
		`T1,TX1,2024-01-01T10:00:00,12.9,77.6,12.9,77.6,12.95,77.65,8.2,2,100,5,10,0,115,"Downtown"`+"\n")

	pub := &fakePublisher{}
	p := New(pub, 0, logger.Discard())

	sent, err := p.SendAll(context.Background(), path, "trips", 100)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sent != 1 {
		t.Errorf("Expected 1 record sent, got %d", sent)
	}
	if len(pub.batches) != 1 || len(pub.batches[0]) != 1 {
		t.Fatalf("Expected one batch of one record, got %v", pub.batches)
	}

	rec := pub.batches[0][0]
	if rec.PartitionKey != "T1" {
		t.Errorf("Expected partition key T1, got %s", rec.PartitionKey)
	}

	var trip models.TripRecord
	if err := json.Unmarshal(rec.Data, &trip); err != nil {
		t.Fatalf("Unexpected payload: %v", err)
	}
	if trip.ID() != "T1" {
		t.Errorf("Expected trip_id T1, got %s", trip.ID())
	}
	if trip.DistanceKM.FloatOr(0) != 8.2 {
		t.Errorf("Expected distance 8.2, got %v", trip.DistanceKM.FloatOr(0))
	}
	if trip.Latitude.FloatOr(-1) != 12.9 || trip.Longitude.FloatOr(-1) != 77.6 {
		t.Errorf("Expected legacy aliases 12.9/77.6, got %v/%v", trip.Latitude, trip.Longitude)
	}
	if *trip.PassengerCount != 2 {
		t.Errorf("Expected passenger_count 2, got %d", *trip.PassengerCount)
	}
	if trip.ZoneName != "Downtown" {
		t.Errorf("Expected quotes stripped from zone, got %q", trip.ZoneName)
	}
}

func TestSendAllSkipsRowsWithoutPickupDatetime(t *testing.T) {
	path := writeCSV(t, header+
		"T1,TX1,,12.9,77.6,12.9,77.6,12.95,77.65,8.2,0,0,0,0,0,0,Zone\n"+
		"T2,TX2,2024-01-01T10:00:00,12.9,77.6,12.9,77.6,12.95,77.65,3,0,0,0,0,0,0,Zone\n")

	pub := &fakePublisher{}
	p := New(pub, 0, logger.Discard())

	sent, err := p.SendAll(context.Background(), path, "trips", 100)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sent != 1 {
		t.Errorf("Expected only the admitted row to be sent, got %d", sent)
	}
	if pub.batches[0][0].PartitionKey != "T2" {
		t.Errorf("Expected T2 to survive admission, got %s", pub.batches[0][0].PartitionKey)
	}
}

func TestSendAllCoercesMissingNumericFields(t *testing.T) {
	path := writeCSV(t, "trip_id,taxi_id,pickup_datetime\n"+
		"T1,TX1,2024-01-01T10:00:00\n")

	pub := &fakePublisher{}
	p := New(pub, 0, logger.Discard())

	if _, err := p.SendAll(context.Background(), path, "trips", 100); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var trip models.TripRecord
	if err := json.Unmarshal(pub.batches[0][0].Data, &trip); err != nil {
		t.Fatalf("Unexpected payload: %v", err)
	}
	if trip.DistanceKM.FloatOr(-1) != 0 {
		t.Errorf("Expected absent distance to coerce to 0, got %v", trip.DistanceKM.FloatOr(-1))
	}
	if trip.Latitude.FloatOr(-1) != 0 || trip.Longitude.FloatOr(-1) != 0 {
		t.Errorf("Expected absent coordinates to coerce to 0, got %v/%v", trip.Latitude, trip.Longitude)
	}
	if *trip.PassengerCount != 0 {
		t.Errorf("Expected absent passenger_count to coerce to 0, got %d", *trip.PassengerCount)
	}
}

func TestSendAllBatchesAndFlushesRemainder(t *testing.T) {
	rows := header
	for _, id := range []string{"T1", "T2", "T3", "T4", "T5"} {
		rows += id + ",TX,2024-01-01T10:00:00,1,1,1,1,2,2,1,0,0,0,0,0,0,Zone\n"
	}
	path := writeCSV(t, rows)

	pub := &fakePublisher{}
	p := New(pub, 0, logger.Discard())

	sent, err := p.SendAll(context.Background(), path, "trips", 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sent != 5 {
		t.Errorf("Expected 5 records sent, got %d", sent)
	}
	if len(pub.batches) != 3 {
		t.Fatalf("Expected 3 batches, got %d", len(pub.batches))
	}
	sizes := []int{len(pub.batches[0]), len(pub.batches[1]), len(pub.batches[2])}
	if sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
		t.Errorf("Expected batch sizes 2,2,1, got %v", sizes)
	}
}

func TestSendAllMissingSourceIsFatal(t *testing.T) {
	pub := &fakePublisher{}
	p := New(pub, 0, logger.Discard())

	_, err := p.SendAll(context.Background(), "/nonexistent/trips.csv", "trips", 100)
	if err == nil {
		t.Fatal("Expected missing source file to be a fatal error")
	}
	if len(pub.batches) != 0 {
		t.Error("Expected nothing published for a missing source")
	}
}

func TestSendAllDropsFailedBatches(t *testing.T) {
	path := writeCSV(t, header+
		"T1,TX,2024-01-01T10:00:00,1,1,1,1,2,2,1,0,0,0,0,0,0,Zone\n")

	pub := &fakePublisher{err: errors.New("stream unavailable")}
	p := New(pub, 0, logger.Discard())

	sent, err := p.SendAll(context.Background(), path, "trips", 100)
	if err != nil {
		t.Fatalf("Expected publish failures to be non-fatal, got %v", err)
	}
	if sent != 0 {
		t.Errorf("Expected 0 records counted for a failed batch, got %d", sent)
	}
}

func TestSendAllCountsRejectedRecords(t *testing.T) {
	path := writeCSV(t, header+
		"T1,TX,2024-01-01T10:00:00,1,1,1,1,2,2,1,0,0,0,0,0,0,Zone\n"+
		"T2,TX,2024-01-01T11:00:00,1,1,1,1,2,2,1,0,0,0,0,0,0,Zone\n")

	pub := &fakePublisher{rejected: 1}
	p := New(pub, 0, logger.Discard())

	sent, err := p.SendAll(context.Background(), path, "trips", 100)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sent != 1 {
		t.Errorf("Expected 1 delivered record after 1 rejection, got %d", sent)
	}
}
