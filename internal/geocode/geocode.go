package geocode

import (
	"context"
	"math"
)

// Place is one reverse-geocoding candidate: a catalog entry with a
// human-readable label.
type Place struct {
	Label     string
	Latitude  float64
	Longitude float64
}

// Geocoder resolves a coordinate to the best-matching places in a
// catalog. An empty result is a valid miss, not an error.
type Geocoder interface {
	SearchNearest(ctx context.Context, longitude, latitude float64, maxResults int) ([]Place, error)
}

const earthRadiusKM = 6371.0

// distanceKM is the haversine great-circle distance between two
// coordinates.
func distanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
