// Package ingest implements the producer: read trip rows from a CSV
// source and publish them to the ingress stream in fixed-size batches,
// partitioned by trip id.
package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tripstream-data/internal/common/logger"
	"github.com/tripstream-data/internal/stream"
	"github.com/tripstream-data/pkg/trip/models"
)

// Publisher is the outbound stream edge.
type Publisher interface {
	PutRecords(ctx context.Context, streamName string, records []stream.Record) (int, error)
}

// Producer reads a bounded CSV source sequentially and publishes
// normalized records. Failed batches are logged and dropped, never
// re-buffered.
type Producer struct {
	publisher  Publisher
	batchPause time.Duration
	logger     logger.Logger
}

func New(publisher Publisher, batchPause time.Duration, log logger.Logger) *Producer {
	return &Producer{
		publisher:  publisher,
		batchPause: batchPause,
		logger:     log,
	}
}

// SendAll streams the source file to the named stream in batches of
// batchSize, flushing the final partial batch unconditionally. It
// returns the number of records handed to the transport. A missing
// source file is fatal for the run.
func (p *Producer) SendAll(ctx context.Context, sourcePath, streamName string, batchSize int) (int, error) {
	if batchSize < 1 {
		batchSize = 100
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return 0, fmt.Errorf("opening source file %s: %w", sourcePath, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("reading source header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	p.logger.Info("Sending trip data", "source", sourcePath, "stream", streamName, "batch_size", batchSize)

	var (
		batch []stream.Record
		sent  int
	)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sent, fmt.Errorf("reading source row: %w", err)
		}

		r := rowReader{cols: cols, row: row}

		// Admission rule: a row without a pickup timestamp never
		// enters the pipeline.
		if strings.TrimSpace(r.get("pickup_datetime")) == "" {
			p.logger.Warn("Skipping row without pickup_datetime", "trip_id", r.getOr("trip_id", "N/A"))
			continue
		}

		rec := buildRecord(r)
		data, err := json.Marshal(rec)
		if err != nil {
			p.logger.Warn("Skipping unserializable row", "trip_id", rec.ID(), "error", err)
			continue
		}

		batch = append(batch, stream.Record{
			Data:         data,
			PartitionKey: rec.ID(),
		})

		if len(batch) >= batchSize {
			sent += p.publishBatch(ctx, streamName, batch)
			batch = nil

			// Bound the outbound rate between full batches.
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case <-time.After(p.batchPause):
			}
		}
	}

	if len(batch) > 0 {
		sent += p.publishBatch(ctx, streamName, batch)
	}

	p.logger.Info("Finished sending trip data", "sent", sent)
	return sent, nil
}

func (p *Producer) publishBatch(ctx context.Context, streamName string, batch []stream.Record) int {
	failed, err := p.publisher.PutRecords(ctx, streamName, batch)
	if err != nil {
		p.logger.Error("Batch publish failed, records dropped", "count", len(batch), "error", err)
		return 0
	}
	if failed > 0 {
		p.logger.Warn("Some records in batch were rejected", "failed", failed, "count", len(batch))
	}
	p.logger.Debug("Sent batch", "count", len(batch))
	return len(batch) - failed
}

// buildRecord normalizes one CSV row into the canonical record shape:
// geometry and distance coerce to numbers with a zero fallback, money
// fields default to zero, and the zone loses any surrounding quotes.
func buildRecord(r rowReader) *models.TripRecord {
	tripID := r.get("trip_id")
	taxiID := r.get("taxi_id")
	pickup := r.get("pickup_datetime")

	// extra_charges historically arrived under "extra" in some
	// exports.
	extra := r.get("extra_charges")
	if strings.TrimSpace(extra) == "" {
		extra = r.get("extra")
	}

	rec := &models.TripRecord{
		TripID:         &tripID,
		TaxiID:         &taxiID,
		PickupDatetime: &pickup,
		PickupLat:      coerce(r.get("pickup_lat")),
		PickupLong:     coerce(r.get("pickup_long")),
		DropLat:        coerce(r.get("drop_lat")),
		DropLong:       coerce(r.get("drop_long")),
		DistanceKM:     coerce(r.get("distance_km")),
		Latitude:       coerce(r.get("latitude")),
		Longitude:      coerce(r.get("longitude")),
		ZoneName:       strings.Trim(r.get("zone_name"), `"`),
		FareAmount:     parseFloatOr(r.get("fare_amount"), 0),
		ExtraCharges:   coerce(extra),
		TipAmount:      coerce(r.get("tip_amount")),
		TollsAmount:    coerce(r.get("tolls_amount")),
		TotalAmount:    parseFloatOr(r.get("total_amount"), 0),
		PaymentType:    r.get("payment_type"),
	}

	count := parseIntOr(r.get("passenger_count"), 0)
	rec.PassengerCount = &count

	return rec
}

func coerce(s string) *models.Number {
	n := models.CoerceNumber(s)
	return &n
}

func parseFloatOr(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseIntOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

// rowReader maps header names onto a CSV row.
type rowReader struct {
	cols map[string]int
	row  []string
}

func (r rowReader) get(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.row) {
		return ""
	}
	return r.row[i]
}

func (r rowReader) getOr(col, fallback string) string {
	if v := strings.TrimSpace(r.get(col)); v != "" {
		return v
	}
	return fallback
}
