// Package enrich implements the enrichment stage: decode one stream
// message, attach the pickup zone by reverse geocoding, and republish
// the record to the work queue.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tripstream-data/internal/common/logger"
	"github.com/tripstream-data/internal/geocode"
	"github.com/tripstream-data/internal/stream"
	"github.com/tripstream-data/pkg/trip/models"
)

// QueuePublisher is the outbound edge to the next stage.
type QueuePublisher interface {
	Enqueue(ctx context.Context, body []byte) error
}

// Result is what the stage reports to its invoking transport: counts,
// never per-record status.
type Result struct {
	Processed int
	Skipped   int
	Total     int
}

// Enricher handles one batch of ingress-stream messages per
// invocation. Every failure class is local to its message; the batch
// always runs to completion.
type Enricher struct {
	geocoder   geocode.Geocoder
	queue      QueuePublisher
	deadLetter QueuePublisher // optional; nil drops undecodable messages
	logger     logger.Logger
}

func New(geocoder geocode.Geocoder, queue QueuePublisher, deadLetter QueuePublisher, log logger.Logger) *Enricher {
	return &Enricher{
		geocoder:   geocoder,
		queue:      queue,
		deadLetter: deadLetter,
		logger:     log,
	}
}

// HandleBatch processes the delivered messages strictly in order and
// returns the batch counters.
func (e *Enricher) HandleBatch(ctx context.Context, msgs []stream.Message) Result {
	res := Result{Total: len(msgs)}
	for _, msg := range msgs {
		if err := e.handleMessage(ctx, msg); err != nil {
			res.Skipped++
			continue
		}
		res.Processed++
	}
	return res
}

func (e *Enricher) handleMessage(ctx context.Context, msg stream.Message) error {
	payload, err := stream.DecodePayload(msg.Data)
	if err != nil {
		e.logger.Error("Skipping undecodable stream message", "message_id", msg.ID, "error", err)
		e.forwardDeadLetter(ctx, msg, err)
		return err
	}

	var rec models.TripRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		err = fmt.Errorf("decoding trip payload: %w", err)
		e.logger.Error("Skipping malformed trip payload", "message_id", msg.ID, "error", err)
		e.forwardDeadLetter(ctx, msg, err)
		return err
	}

	longitude, latitude, err := pickupCoordinates(&rec)
	if err != nil {
		e.logger.Warn("Skipping record without pickup coordinates", "trip_id", rec.ID(), "error", err)
		return err
	}

	places, err := e.geocoder.SearchNearest(ctx, longitude, latitude, 1)
	if err != nil {
		e.logger.Error("Zone lookup failed", "trip_id", rec.ID(), "error", err)
		return err
	}
	if len(places) > 0 {
		rec.ZoneName = places[0].Label
		e.logger.Debug("Found zone", "trip_id", rec.ID(), "zone", rec.ZoneName)
	} else {
		rec.ZoneName = models.UnknownZone
		e.logger.Debug("No zone for coordinates", "trip_id", rec.ID(),
			"longitude", longitude, "latitude", latitude)
	}

	body, err := json.Marshal(&rec)
	if err != nil {
		e.logger.Error("Failed to serialize enriched record", "trip_id", rec.ID(), "error", err)
		return err
	}

	if err := e.queue.Enqueue(ctx, body); err != nil {
		e.logger.Error("Failed to publish enriched record", "trip_id", rec.ID(), "error", err)
		return err
	}
	return nil
}

// pickupCoordinates extracts the geocoding point from the legacy alias
// fields. A record missing either coordinate, or carrying a non-numeric
// one, cannot be placed in a zone.
func pickupCoordinates(rec *models.TripRecord) (longitude, latitude float64, err error) {
	if rec.Latitude == nil || rec.Longitude == nil {
		return 0, 0, fmt.Errorf("record is missing pickup coordinates")
	}
	latitude, err = rec.Latitude.Float()
	if err != nil {
		return 0, 0, fmt.Errorf("reading latitude: %w", err)
	}
	longitude, err = rec.Longitude.Float()
	if err != nil {
		return 0, 0, fmt.Errorf("reading longitude: %w", err)
	}
	return longitude, latitude, nil
}

// deadLetterMessage wraps an undecodable envelope with its decode
// error for offline inspection.
type deadLetterMessage struct {
	MessageID    string `json:"message_id"`
	Data         string `json:"data"`
	PartitionKey string `json:"partition_key,omitempty"`
	Error        string `json:"error"`
}

func (e *Enricher) forwardDeadLetter(ctx context.Context, msg stream.Message, cause error) {
	if e.deadLetter == nil {
		return
	}
	body, err := json.Marshal(deadLetterMessage{
		MessageID:    msg.ID,
		Data:         msg.Data,
		PartitionKey: msg.PartitionKey,
		Error:        cause.Error(),
	})
	if err != nil {
		return
	}
	if err := e.deadLetter.Enqueue(ctx, body); err != nil {
		e.logger.Error("Failed to forward to dead-letter stream", "message_id", msg.ID, "error", err)
	}
}
