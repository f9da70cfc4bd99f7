package process

import "github.com/tripstream-data/pkg/trip/models"

// ApplyDefaults fills the optional billing fields of a validated
// record. Idempotent: fields that already carry a value are left
// alone.
func ApplyDefaults(rec *models.TripRecord) {
	if rec.PassengerCount == nil {
		zero := 0
		rec.PassengerCount = &zero
	}
	if rec.ExtraCharges == nil {
		n := models.NewNumber("0")
		rec.ExtraCharges = &n
	}
	if rec.TipAmount == nil {
		n := models.NewNumber("0")
		rec.TipAmount = &n
	}
	if rec.TollsAmount == nil {
		n := models.NewNumber("0")
		rec.TollsAmount = &n
	}
	if rec.PaymentType == "" {
		rec.PaymentType = models.DefaultPaymentType
	}
}
