package fare

import "testing"

func TestCalculate(t *testing.T) {
	cases := []struct {
		name       string
		distanceKM float64
		zoneName   string
		expected   float64
	}{
		{"airport surcharge", 10, "Airport Terminal", 335.0},
		{"zero distance", 0, "Downtown", 50.0},
		{"plain zone", 8.2, "Downtown Plaza", 201.7},
		{"airport substring anywhere", 2, "City Airport Rd", 187.0},
		{"no zone", 1, "", 68.5},
		{"unknown zone", 0, "Unknown", 50.0},
	}

	for _, tc := range cases {
		got := Calculate(tc.distanceKM, tc.zoneName)
		if got != tc.expected {
			t.Errorf("%s: expected fare %v, got %v", tc.name, tc.expected, got)
		}
	}
}

func TestTotal(t *testing.T) {
	cases := []struct {
		name                    string
		fare, extra, tip, tolls float64
		expected                float64
	}{
		{"all zero extras", 201.7, 0, 0, 0, 201.7},
		{"additivity", 50.0, 10.5, 5.25, 2.0, 67.75},
		{"rounding", 50.0, 0.006, 0, 0, 50.01},
	}

	for _, tc := range cases {
		got := Total(tc.fare, tc.extra, tc.tip, tc.tolls)
		if got != tc.expected {
			t.Errorf("%s: expected total %v, got %v", tc.name, tc.expected, got)
		}
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(201.70000000000002); got != 201.7 {
		t.Errorf("Expected 201.7, got %v", got)
	}
	if got := Round2(1.006); got != 1.01 {
		t.Errorf("Expected 1.01, got %v", got)
	}
}
