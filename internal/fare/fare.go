// Package fare holds the pricing rules applied before persistence.
// Everything here is pure: same inputs, same fare.
package fare

import (
	"math"
	"strings"
)

const (
	baseFare         = 50.0
	ratePerKM        = 18.5
	airportSurcharge = 100.0
)

// Calculate prices a trip from its distance and enriched zone. Trips
// touching an airport zone carry a flat surcharge.
func Calculate(distanceKM float64, zoneName string) float64 {
	fare := baseFare + distanceKM*ratePerKM
	if strings.Contains(zoneName, "Airport") {
		fare += airportSurcharge
	}
	return Round2(fare)
}

// Total is the charge persisted for a trip: fare plus all extras,
// recomputed here and never trusted from upstream.
func Total(fare, extraCharges, tipAmount, tollsAmount float64) float64 {
	return Round2(fare + extraCharges + tipAmount + tollsAmount)
}

// Round2 rounds to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
