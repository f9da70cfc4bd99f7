// Package store persists finalized trips to the primary keyed store.
package store

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/tripstream-data/internal/common/db"
)

// TripItem is the fully-enumerated row written to the primary store,
// keyed by trip id. Numeric fields are exact decimals built from the
// record's textual values; a float64 never touches them, so the store
// sees no binary-floating-point artifacts.
type TripItem struct {
	TripID         string
	TaxiID         string
	PickupDatetime string
	PickupLat      decimal.Decimal
	PickupLong     decimal.Decimal
	DropLat        decimal.Decimal
	DropLong       decimal.Decimal
	DistanceKM     decimal.Decimal
	ZoneName       string
	FareAmount     decimal.Decimal
	PassengerCount int
	ExtraCharges   decimal.Decimal
	TipAmount      decimal.Decimal
	TollsAmount    decimal.Decimal
	TotalAmount    decimal.Decimal
	PaymentType    string
}

// TripStore writes trips into a configurable Postgres table.
type TripStore struct {
	db    *db.DB
	table string
}

func New(database *db.DB, table string) *TripStore {
	return &TripStore{
		db:    database,
		table: table,
	}
}

// EnsureSchema creates the trips table when it does not exist yet.
func (s *TripStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			trip_id         TEXT PRIMARY KEY,
			taxi_id         TEXT NOT NULL,
			pickup_datetime TEXT NOT NULL,
			pickup_lat      NUMERIC NOT NULL,
			pickup_long     NUMERIC NOT NULL,
			drop_lat        NUMERIC NOT NULL,
			drop_long       NUMERIC NOT NULL,
			distance_km     NUMERIC NOT NULL,
			zone_name       TEXT NOT NULL DEFAULT '',
			fare_amount     NUMERIC NOT NULL,
			passenger_count INTEGER NOT NULL DEFAULT 0,
			extra_charges   NUMERIC NOT NULL DEFAULT 0,
			tip_amount      NUMERIC NOT NULL DEFAULT 0,
			tolls_amount    NUMERIC NOT NULL DEFAULT 0,
			total_amount    NUMERIC NOT NULL,
			payment_type    TEXT NOT NULL DEFAULT 'CASH'
		)
	`, pq.QuoteIdentifier(s.table))

	if _, err := s.db.DB().ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	return nil
}

// Put upserts one trip keyed by trip_id. The pipeline never updates a
// trip after persistence; the upsert only absorbs at-least-once
// redelivery of the same record.
func (s *TripStore) Put(ctx context.Context, item *TripItem) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			trip_id, taxi_id, pickup_datetime,
			pickup_lat, pickup_long, drop_lat, drop_long, distance_km,
			zone_name, fare_amount, passenger_count,
			extra_charges, tip_amount, tolls_amount, total_amount, payment_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (trip_id) DO UPDATE SET
			taxi_id         = EXCLUDED.taxi_id,
			pickup_datetime = EXCLUDED.pickup_datetime,
			pickup_lat      = EXCLUDED.pickup_lat,
			pickup_long     = EXCLUDED.pickup_long,
			drop_lat        = EXCLUDED.drop_lat,
			drop_long       = EXCLUDED.drop_long,
			distance_km     = EXCLUDED.distance_km,
			zone_name       = EXCLUDED.zone_name,
			fare_amount     = EXCLUDED.fare_amount,
			passenger_count = EXCLUDED.passenger_count,
			extra_charges   = EXCLUDED.extra_charges,
			tip_amount      = EXCLUDED.tip_amount,
			tolls_amount    = EXCLUDED.tolls_amount,
			total_amount    = EXCLUDED.total_amount,
			payment_type    = EXCLUDED.payment_type
	`, pq.QuoteIdentifier(s.table))

	_, err := s.db.DB().ExecContext(ctx, query,
		item.TripID,
		item.TaxiID,
		item.PickupDatetime,
		item.PickupLat,
		item.PickupLong,
		item.DropLat,
		item.DropLong,
		item.DistanceKM,
		item.ZoneName,
		item.FareAmount,
		item.PassengerCount,
		item.ExtraCharges,
		item.TipAmount,
		item.TollsAmount,
		item.TotalAmount,
		item.PaymentType,
	)
	if err != nil {
		return fmt.Errorf("storing trip %s: %w", item.TripID, err)
	}
	return nil
}
