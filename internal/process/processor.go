// Package process implements the fare & persistence stage: validate
// each queued record, price it, fill defaults, and dual-write it to
// the primary store and the analytics sink.
package process

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tripstream-data/internal/common/logger"
	"github.com/tripstream-data/internal/fare"
	"github.com/tripstream-data/internal/queue"
	"github.com/tripstream-data/internal/store"
	"github.com/tripstream-data/pkg/trip/models"
)

// Store is the primary keyed store for finalized trips.
type Store interface {
	Put(ctx context.Context, item *store.TripItem) error
}

// Sink is the analytics delivery stream. Put buffers a document and
// reports whether it triggered a delivery attempt; Flush delivers
// whatever is still buffered.
type Sink interface {
	Put(ctx context.Context, doc []byte) (bool, error)
	Flush(ctx context.Context) error
}

// Result is the stage's batch report: counters only, never a fault
// visible to the invoking transport.
type Result struct {
	Processed int
	Failed    int
	Total     int
}

// Processor handles one batch of queued records per invocation,
// strictly in order, with every failure isolated to its record.
type Processor struct {
	store  Store
	sink   Sink
	logger logger.Logger
}

func New(store Store, sink Sink, log logger.Logger) *Processor {
	return &Processor{
		store:  store,
		sink:   sink,
		logger: log,
	}
}

// HandleBatch runs the full validate → fare → default → dual-write
// sequence for each delivery and returns the batch counters. Records
// whose analytics documents are dropped by a failed delivery count as
// failed, even when the primary store write already succeeded.
func (p *Processor) HandleBatch(ctx context.Context, deliveries []queue.Delivery) Result {
	res := Result{Total: len(deliveries)}

	// Trip ids counted as processed whose analytics documents are
	// still buffered in the sink. A failed delivery fails them all.
	var pending []string

	for _, d := range deliveries {
		tripID, delivered, err := p.processRecord(ctx, d.Body)
		if err != nil {
			res.Failed++
			if delivered {
				pending = p.failPending(&res, pending)
			}
			continue
		}
		res.Processed++
		if delivered {
			pending = nil
		} else {
			pending = append(pending, tripID)
		}
	}

	if err := p.sink.Flush(ctx); err != nil {
		p.logger.Error("Analytics sink flush failed", "count", len(pending), "error", err)
		pending = p.failPending(&res, pending)
	}

	p.logger.Info("Batch processed",
		"processed", res.Processed,
		"failed", res.Failed,
		"total", res.Total,
	)
	return res
}

// failPending reclassifies records whose buffered analytics documents
// were dropped by a failed delivery.
func (p *Processor) failPending(res *Result, pending []string) []string {
	for _, id := range pending {
		p.logger.Error("Analytics document dropped by failed delivery", "trip_id", id)
	}
	res.Processed -= len(pending)
	res.Failed += len(pending)
	return nil
}

// processRecord handles one queued record. It returns the trip id,
// whether the analytics document left the sink's buffer in a delivery
// attempt, and the record's failure if any.
func (p *Processor) processRecord(ctx context.Context, body []byte) (string, bool, error) {
	var rec models.TripRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		p.logger.Error("Skipping undecodable queue message", "error", err)
		return "", false, fmt.Errorf("decoding queued record: %w", err)
	}

	if err := Validate(&rec); err != nil {
		p.logger.Warn("Validation failed", "trip_id", rec.ID(), "error", err)
		return rec.ID(), false, err
	}

	// Distance survived the numeric gate above; the zero fallback only
	// matters for callers pricing unvalidated input.
	rec.FareAmount = fare.Calculate(rec.DistanceKM.FloatOr(0), rec.ZoneName)

	ApplyDefaults(&rec)

	rec.TotalAmount = fare.Total(
		rec.FareAmount,
		rec.ExtraCharges.FloatOr(0),
		rec.TipAmount.FloatOr(0),
		rec.TollsAmount.FloatOr(0),
	)

	if err := p.store.Put(ctx, buildTripItem(&rec)); err != nil {
		p.logger.Error("Primary store write failed", "trip_id", rec.ID(), "error", err)
		return rec.ID(), false, err
	}

	doc, err := json.Marshal(models.NewAnalyticsRecord(&rec))
	if err != nil {
		p.logger.Error("Failed to serialize analytics record", "trip_id", rec.ID(), "error", err)
		return rec.ID(), false, err
	}
	delivered, err := p.sink.Put(ctx, doc)
	if err != nil {
		p.logger.Error("Analytics sink write failed", "trip_id", rec.ID(), "error", err)
		return rec.ID(), delivered, err
	}

	return rec.ID(), delivered, nil
}

// buildTripItem maps a validated, defaulted record onto the primary
// store row. Geometry and billing decimals come from the record's raw
// textual values, the computed amounts from their shortest exact
// decimal form.
func buildTripItem(rec *models.TripRecord) *store.TripItem {
	return &store.TripItem{
		TripID:         *rec.TripID,
		TaxiID:         *rec.TaxiID,
		PickupDatetime: *rec.PickupDatetime,
		PickupLat:      decimalFrom(rec.PickupLat),
		PickupLong:     decimalFrom(rec.PickupLong),
		DropLat:        decimalFrom(rec.DropLat),
		DropLong:       decimalFrom(rec.DropLong),
		DistanceKM:     decimalFrom(rec.DistanceKM),
		ZoneName:       rec.ZoneName,
		FareAmount:     decimal.NewFromFloat(rec.FareAmount),
		PassengerCount: *rec.PassengerCount,
		ExtraCharges:   decimalFrom(rec.ExtraCharges),
		TipAmount:      decimalFrom(rec.TipAmount),
		TollsAmount:    decimalFrom(rec.TollsAmount),
		TotalAmount:    decimal.NewFromFloat(rec.TotalAmount),
		PaymentType:    rec.PaymentType,
	}
}

func decimalFrom(n *models.Number) decimal.Decimal {
	if n == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
