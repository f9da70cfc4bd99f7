package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/tripstream-data/internal/common/logger"
	"github.com/tripstream-data/internal/geocode"
	"github.com/tripstream-data/internal/stream"
	"github.com/tripstream-data/pkg/trip/models"
)

type fakeGeocoder struct {
	places []geocode.Place
	err    error
}

func (f *fakeGeocoder) SearchNearest(ctx context.Context, longitude, latitude float64, maxResults int) ([]geocode.Place, error) {
	return f.places, f.err
}

type fakeQueue struct {
	bodies [][]byte
	err    error
}

func (f *fakeQueue) Enqueue(ctx context.Context, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.bodies = append(f.bodies, body)
	return nil
}

func message(t *testing.T, rec *models.TripRecord) stream.Message {
	t.Helper()
	payload, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Unexpected marshal error: %v", err)
	}
	return stream.Message{
		ID:           "1-0",
		Data:         stream.EncodePayload(payload),
		PartitionKey: rec.ID(),
	}
}

func tripMessage(t *testing.T, tripID string) stream.Message {
	lat := models.NewNumber("12.9")
	long := models.NewNumber("77.6")
	return message(t, &models.TripRecord{
		TripID:    &tripID,
		PickupLat: &lat, PickupLong: &long,
		Latitude: &lat, Longitude: &long,
	})
}

func TestHandleBatchAttachesZone(t *testing.T) {
	q := &fakeQueue{}
	e := New(&fakeGeocoder{places: []geocode.Place{{Label: "Downtown Plaza"}}}, q, nil, logger.Discard())

	res := e.HandleBatch(context.Background(), []stream.Message{tripMessage(t, "T1")})

	if res.Processed != 1 || res.Skipped != 0 || res.Total != 1 {
		t.Errorf("Expected processed=1 skipped=0 total=1, got %+v", res)
	}
	if len(q.bodies) != 1 {
		t.Fatalf("Expected 1 enqueued record, got %d", len(q.bodies))
	}

	var rec models.TripRecord
	if err := json.Unmarshal(q.bodies[0], &rec); err != nil {
		t.Fatalf("Unexpected enqueued payload: %v", err)
	}
	if rec.ZoneName != "Downtown Plaza" {
		t.Errorf("Expected zone Downtown Plaza, got %s", rec.ZoneName)
	}
	if rec.ID() != "T1" {
		t.Errorf("Expected trip_id T1, got %s", rec.ID())
	}
}

func TestHandleBatchUnknownZoneFallback(t *testing.T) {
	q := &fakeQueue{}
	e := New(&fakeGeocoder{}, q, nil, logger.Discard())

	res := e.HandleBatch(context.Background(), []stream.Message{tripMessage(t, "T1")})

	if res.Processed != 1 {
		t.Fatalf("Expected empty geocoding result to be a non-error, got %+v", res)
	}
	var rec models.TripRecord
	if err := json.Unmarshal(q.bodies[0], &rec); err != nil {
		t.Fatalf("Unexpected enqueued payload: %v", err)
	}
	if rec.ZoneName != models.UnknownZone {
		t.Errorf("Expected zone %q, got %q", models.UnknownZone, rec.ZoneName)
	}
}

func TestHandleBatchSkipsUndecodableMessage(t *testing.T) {
	q := &fakeQueue{}
	e := New(&fakeGeocoder{places: []geocode.Place{{Label: "Downtown"}}}, q, nil, logger.Discard())

	res := e.HandleBatch(context.Background(), []stream.Message{
		{ID: "1-0", Data: "%%% not base64 %%%"},
		{ID: "1-1", Data: stream.EncodePayload([]byte("{not json"))},
		tripMessage(t, "T3"),
	})

	if res.Processed != 1 || res.Skipped != 2 || res.Total != 3 {
		t.Errorf("Expected processed=1 skipped=2 total=3, got %+v", res)
	}
	if len(q.bodies) != 1 {
		t.Errorf("Expected only the well-formed record enqueued, got %d", len(q.bodies))
	}
}

func TestHandleBatchSkipsRecordWithoutCoordinates(t *testing.T) {
	q := &fakeQueue{}
	e := New(&fakeGeocoder{places: []geocode.Place{{Label: "Downtown"}}}, q, nil, logger.Discard())

	tripID := "T-nocoords"
	distance := models.NewNumber("8.2")
	noCoords := message(t, &models.TripRecord{TripID: &tripID, DistanceKM: &distance})

	res := e.HandleBatch(context.Background(), []stream.Message{
		noCoords,
		tripMessage(t, "T2"),
	})

	if res.Processed != 1 || res.Skipped != 1 || res.Total != 2 {
		t.Errorf("Expected processed=1 skipped=1 total=2, got %+v", res)
	}
	if len(q.bodies) != 1 {
		t.Fatalf("Expected only the located record enqueued, got %d", len(q.bodies))
	}
	var rec models.TripRecord
	if err := json.Unmarshal(q.bodies[0], &rec); err != nil {
		t.Fatalf("Unexpected enqueued payload: %v", err)
	}
	if rec.ID() != "T2" {
		t.Errorf("Expected the coordinate-less record to stay out of the queue, enqueued %s", rec.ID())
	}
}

func TestHandleBatchSkipsNonNumericCoordinates(t *testing.T) {
	q := &fakeQueue{}
	e := New(&fakeGeocoder{places: []geocode.Place{{Label: "Downtown"}}}, q, nil, logger.Discard())

	tripID := "T-badcoords"
	lat := models.NewNumber("not-a-latitude")
	long := models.NewNumber("77.6")
	bad := message(t, &models.TripRecord{TripID: &tripID, Latitude: &lat, Longitude: &long})

	res := e.HandleBatch(context.Background(), []stream.Message{bad})

	if res.Processed != 0 || res.Skipped != 1 {
		t.Errorf("Expected processed=0 skipped=1, got %+v", res)
	}
	if len(q.bodies) != 0 {
		t.Errorf("Expected nothing enqueued, got %d", len(q.bodies))
	}
}

func TestHandleBatchGeocoderFailureSkipsRecord(t *testing.T) {
	q := &fakeQueue{}
	e := New(&fakeGeocoder{err: errors.New("index offline")}, q, nil, logger.Discard())

	res := e.HandleBatch(context.Background(), []stream.Message{tripMessage(t, "T1")})

	if res.Processed != 0 || res.Skipped != 1 {
		t.Errorf("Expected processed=0 skipped=1, got %+v", res)
	}
	if len(q.bodies) != 0 {
		t.Errorf("Expected nothing enqueued, got %d", len(q.bodies))
	}
}

func TestHandleBatchPublishFailureSkipsRecord(t *testing.T) {
	q := &fakeQueue{err: errors.New("queue full")}
	e := New(&fakeGeocoder{places: []geocode.Place{{Label: "Downtown"}}}, q, nil, logger.Discard())

	res := e.HandleBatch(context.Background(), []stream.Message{
		tripMessage(t, "T1"),
		tripMessage(t, "T2"),
	})

	if res.Processed != 0 || res.Skipped != 2 || res.Total != 2 {
		t.Errorf("Expected processed=0 skipped=2 total=2, got %+v", res)
	}
}

func TestHandleBatchDeadLettersDecodeFailures(t *testing.T) {
	q := &fakeQueue{}
	dlq := &fakeQueue{}
	e := New(&fakeGeocoder{}, q, dlq, logger.Discard())

	e.HandleBatch(context.Background(), []stream.Message{
		{ID: "9-0", Data: "%%% not base64 %%%", PartitionKey: "T9"},
	})

	if len(dlq.bodies) != 1 {
		t.Fatalf("Expected 1 dead-lettered message, got %d", len(dlq.bodies))
	}
	var dead deadLetterMessage
	if err := json.Unmarshal(dlq.bodies[0], &dead); err != nil {
		t.Fatalf("Unexpected dead-letter payload: %v", err)
	}
	if dead.MessageID != "9-0" || dead.PartitionKey != "T9" {
		t.Errorf("Expected original message identity, got %+v", dead)
	}
	if dead.Error == "" {
		t.Error("Expected decode cause to be recorded")
	}
}

func TestHandleBatchGeocoderFailureNotDeadLettered(t *testing.T) {
	dlq := &fakeQueue{}
	e := New(&fakeGeocoder{err: errors.New("index offline")}, &fakeQueue{}, dlq, logger.Discard())

	e.HandleBatch(context.Background(), []stream.Message{tripMessage(t, "T1")})

	if len(dlq.bodies) != 0 {
		t.Errorf("Expected downstream failures to stay off the dead-letter stream, got %d", len(dlq.bodies))
	}
}
