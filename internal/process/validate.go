package process

import (
	"fmt"

	"github.com/tripstream-data/pkg/trip/models"
)

// requiredFields lists the fields a record must carry to be persisted,
// in the order they are reported when absent.
var requiredFields = []string{
	"trip_id",
	"taxi_id",
	"pickup_datetime",
	"pickup_lat",
	"pickup_long",
	"drop_lat",
	"drop_long",
	"distance_km",
}

// Validate gates a record before any side effect. It names every
// missing or null required field, then fails on the first required
// numeric field that does not parse.
func Validate(rec *models.TripRecord) error {
	var missing []string
	for _, field := range requiredFields {
		if !present(rec, field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %v", missing)
	}

	numeric := []struct {
		name  string
		value *models.Number
	}{
		{"pickup_lat", rec.PickupLat},
		{"pickup_long", rec.PickupLong},
		{"drop_lat", rec.DropLat},
		{"drop_long", rec.DropLong},
		{"distance_km", rec.DistanceKM},
	}
	for _, field := range numeric {
		if _, err := field.value.Float(); err != nil {
			return fmt.Errorf("invalid numeric value for %s: %s", field.name, field.value.String())
		}
	}

	return nil
}

func present(rec *models.TripRecord, field string) bool {
	switch field {
	case "trip_id":
		return rec.TripID != nil && *rec.TripID != ""
	case "taxi_id":
		return rec.TaxiID != nil
	case "pickup_datetime":
		return rec.PickupDatetime != nil
	case "pickup_lat":
		return rec.PickupLat != nil
	case "pickup_long":
		return rec.PickupLong != nil
	case "drop_lat":
		return rec.DropLat != nil
	case "drop_long":
		return rec.DropLong != nil
	case "distance_km":
		return rec.DistanceKM != nil
	}
	return false
}
