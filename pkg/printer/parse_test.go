package printer

import (
	"math"
	"testing"
)

func TestParseDurationMinutes(t *testing.T) {
	cases := []struct {
		input    string
		expected int
	}{
		{"90", 90},
		{"1h30m", 90},
		{"1h 30m", 90},
		{"1H 30M", 90},
		{"  2h  ", 120},
		{"45m", 45},
		{"45.7", 45},
		{"0", 0},
		{"", 0},
		{"   ", 0},
		{"soon", 0},
		{"-5", 0},
	}

	for _, tc := range cases {
		if got := ParseDurationMinutes(tc.input); got != tc.expected {
			t.Errorf("ParseDurationMinutes(%q) = %d, expected %d", tc.input, got, tc.expected)
		}
	}
}

func TestParseMassGrams(t *testing.T) {
	cases := []struct {
		input    string
		expected float64
	}{
		{"100g", 100.0},
		{"100", 100.0},
		{"12.5 grams", 12.5},
		{"3 gram", 3.0},
		{"10m", 29.6},
		{"100mm", 100.0},
		{"", 0.0},
		{"a lot", 0.0},
	}

	for _, tc := range cases {
		if got := ParseMassGrams(tc.input); math.Abs(got-tc.expected) > 0.01 {
			t.Errorf("ParseMassGrams(%q) = %f, expected %f", tc.input, got, tc.expected)
		}
	}
}
