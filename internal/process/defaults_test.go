package process

import (
	"encoding/json"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	rec := validRecord()
	ApplyDefaults(rec)

	if rec.PassengerCount == nil || *rec.PassengerCount != 0 {
		t.Error("Expected passenger_count to default to 0")
	}
	if rec.ExtraCharges == nil || rec.ExtraCharges.FloatOr(-1) != 0 {
		t.Error("Expected extra_charges to default to 0.0")
	}
	if rec.TipAmount == nil || rec.TipAmount.FloatOr(-1) != 0 {
		t.Error("Expected tip_amount to default to 0.0")
	}
	if rec.TollsAmount == nil || rec.TollsAmount.FloatOr(-1) != 0 {
		t.Error("Expected tolls_amount to default to 0.0")
	}
	if rec.PaymentType != "CASH" {
		t.Errorf("Expected payment_type CASH, got %s", rec.PaymentType)
	}
}

func TestApplyDefaultsPreservesValues(t *testing.T) {
	rec := validRecord()
	two := 2
	rec.PassengerCount = &two
	rec.TipAmount = numPtr("15.5")
	rec.PaymentType = "CARD"

	ApplyDefaults(rec)

	if *rec.PassengerCount != 2 {
		t.Errorf("Expected passenger_count 2, got %d", *rec.PassengerCount)
	}
	if rec.TipAmount.FloatOr(0) != 15.5 {
		t.Errorf("Expected tip_amount 15.5, got %v", rec.TipAmount.FloatOr(0))
	}
	if rec.PaymentType != "CARD" {
		t.Errorf("Expected payment_type CARD, got %s", rec.PaymentType)
	}
}

func TestApplyDefaultsIdempotent(t *testing.T) {
	rec := validRecord()
	ApplyDefaults(rec)
	once, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Unexpected marshal error: %v", err)
	}

	ApplyDefaults(rec)
	twice, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Unexpected marshal error: %v", err)
	}

	if string(once) != string(twice) {
		t.Errorf("Expected defaulting to be idempotent, got %s then %s", once, twice)
	}
}
