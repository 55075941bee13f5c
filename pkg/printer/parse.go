package printer

import (
	"regexp"
	"strconv"
	"strings"
)

// Grams of filament per meter, calibrated for 1.75 mm PLA. A simplification:
// other materials and diameters differ, but the sensors this feeds are
// informational only.
const gramsPerMeter = 2.96

var durationPattern = regexp.MustCompile(`(?i)^\s*(?:(\d+(?:\.\d+)?)\s*h)?\s*(?:(\d+(?:\.\d+)?)\s*m)?\s*$`)

// ParseDurationMinutes converts a free-form remaining-time string into whole
// minutes. Accepts plain integer or decimal minutes ("90", "45.7"), or
// composite hour/minute forms ("2h", "30m", "1h30m", "1h 30m"), any case,
// arbitrary whitespace. Decimal values truncate toward zero. Unparsable input
// yields 0; callers must treat 0 as unknown-or-none, not authoritative.
func ParseDurationMinutes(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v < 0 {
			return 0
		}
		return int(v)
	}

	m := durationPattern.FindStringSubmatch(s)
	if m == nil || (m[1] == "" && m[2] == "") {
		return 0
	}

	var minutes float64
	if m[1] != "" {
		h, _ := strconv.ParseFloat(m[1], 64)
		minutes += h * 60
	}
	if m[2] != "" {
		mm, _ := strconv.ParseFloat(m[2], 64)
		minutes += mm
	}
	return int(minutes)
}

// ParseMassGrams converts a filament-usage string into grams. Accepts plain
// grams (optionally suffixed "g", "gram" or "grams") or a length in meters
// (suffix "m", explicitly not "mm") converted at gramsPerMeter. Unparsable
// input yields 0.
func ParseMassGrams(raw string) float64 {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0
	}

	isMeters := false
	switch {
	case strings.HasSuffix(s, "grams"):
		s = s[:len(s)-5]
	case strings.HasSuffix(s, "gram"):
		s = s[:len(s)-4]
	case strings.HasSuffix(s, "mm"):
		// Millimeters are not meters. Treat the number as-is.
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "g"):
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "m"):
		s = s[:len(s)-1]
		isMeters = true
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}

	if isMeters {
		return v * gramsPerMeter
	}
	return v
}
