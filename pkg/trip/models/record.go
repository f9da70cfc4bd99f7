package models

// UnknownZone is attached when reverse geocoding finds no place for a
// pickup coordinate.
const UnknownZone = "Unknown"

// DefaultPaymentType is applied to records that reach persistence
// without a payment type.
const DefaultPaymentType = "CASH"

// TripRecord is the canonical entity flowing through the pipeline. The
// producer creates it from a CSV row, the enrichment stage attaches the
// zone, and the fare stage fills billing fields before persistence.
//
// Required fields use pointers so a missing or null field is
// distinguishable from a present zero value; validation depends on
// that distinction.
type TripRecord struct {
	TripID         *string `json:"trip_id,omitempty"`
	TaxiID         *string `json:"taxi_id,omitempty"`
	PickupDatetime *string `json:"pickup_datetime,omitempty"`

	PickupLat  *Number `json:"pickup_lat,omitempty"`
	PickupLong *Number `json:"pickup_long,omitempty"`
	DropLat    *Number `json:"drop_lat,omitempty"`
	DropLong   *Number `json:"drop_long,omitempty"`
	DistanceKM *Number `json:"distance_km,omitempty"`

	// Legacy aliases for the pickup point, kept by the producer for
	// consumers that predate the pickup_lat/pickup_long fields. The
	// enrichment stage geocodes from these; a record missing either
	// never reaches the work queue.
	Latitude  *Number `json:"latitude,omitempty"`
	Longitude *Number `json:"longitude,omitempty"`

	ZoneName string `json:"zone_name,omitempty"`

	PassengerCount *int    `json:"passenger_count,omitempty"`
	FareAmount     float64 `json:"fare_amount"`
	ExtraCharges   *Number `json:"extra_charges,omitempty"`
	TipAmount      *Number `json:"tip_amount,omitempty"`
	TollsAmount    *Number `json:"tolls_amount,omitempty"`
	TotalAmount    float64 `json:"total_amount"`
	PaymentType    string  `json:"payment_type,omitempty"`
}

// ID returns the trip identifier, or "N/A" for records that never had
// one, so log lines always carry something addressable.
func (r *TripRecord) ID() string {
	if r.TripID == nil || *r.TripID == "" {
		return "N/A"
	}
	return *r.TripID
}

// AnalyticsRecord is the analytics-sink shape of a finalized trip: the
// canonical record plus redundant alias fields the downstream warehouse
// schema expects. DropoffDatetime is always emitted, as null when the
// pipeline never learned it.
type AnalyticsRecord struct {
	TripRecord
	DropoffDatetime  *string `json:"dropoff_datetime"`
	PickupLatitude   *Number `json:"pickup_latitude,omitempty"`
	PickupLongitude  *Number `json:"pickup_longitude,omitempty"`
	DropoffLatitude  *Number `json:"dropoff_latitude,omitempty"`
	DropoffLongitude *Number `json:"dropoff_longitude,omitempty"`
}

// NewAnalyticsRecord copies rec and mirrors the canonical coordinates
// into the warehouse alias fields.
func NewAnalyticsRecord(rec *TripRecord) *AnalyticsRecord {
	return &AnalyticsRecord{
		TripRecord:       *rec,
		PickupLatitude:   rec.PickupLat,
		PickupLongitude:  rec.PickupLong,
		DropoffLatitude:  rec.DropLat,
		DropoffLongitude: rec.DropLong,
	}
}
