package homeassistant

import "testing"

func TestEntityDomainAndObjectID(t *testing.T) {
	tests := []struct {
		entityID string
		domain   string
		objectID string
	}{
		{"sensor.h2s_print_progress", "sensor", "h2s_print_progress"},
		{"image.h2s_cover_image", "image", "h2s_cover_image"},
		{"no_separator", "", ""},
		{".leading_dot", "", ""},
		{"trailing_dot.", "", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.entityID, func(t *testing.T) {
			e := &Entity{EntityID: tt.entityID}
			if got := e.Domain(); got != tt.domain {
				t.Errorf("Domain() = %q, expected %q", got, tt.domain)
			}
			if got := e.ObjectID(); got != tt.objectID {
				t.Errorf("ObjectID() = %q, expected %q", got, tt.objectID)
			}
		})
	}
}

func TestStringAttr(t *testing.T) {
	e := &Entity{Attributes: map[string]any{
		"name":    "PLA Basic",
		"remain":  66.5,
		"active":  true,
		"nothing": nil,
	}}

	if got := e.StringAttr("name"); got != "PLA Basic" {
		t.Errorf("Expected 'PLA Basic', got %q", got)
	}
	if got := e.StringAttr("remain"); got != "66.5" {
		t.Errorf("Expected '66.5', got %q", got)
	}
	if got := e.StringAttr("active"); got != "true" {
		t.Errorf("Expected 'true', got %q", got)
	}
	if got := e.StringAttr("nothing"); got != "" {
		t.Errorf("Expected empty string for nil value, got %q", got)
	}
	if got := e.StringAttr("missing"); got != "" {
		t.Errorf("Expected empty string for missing key, got %q", got)
	}
}

func TestFloatAttr(t *testing.T) {
	e := &Entity{Attributes: map[string]any{
		"remain":  66.5,
		"count":   3,
		"textual": "42.5",
		"junk":    "not a number",
	}}

	if v, ok := e.FloatAttr("remain"); !ok || v != 66.5 {
		t.Errorf("Expected 66.5, got %f ok=%v", v, ok)
	}
	if v, ok := e.FloatAttr("count"); !ok || v != 3 {
		t.Errorf("Expected 3, got %f ok=%v", v, ok)
	}
	if v, ok := e.FloatAttr("textual"); !ok || v != 42.5 {
		t.Errorf("Expected coerced 42.5, got %f ok=%v", v, ok)
	}
	if _, ok := e.FloatAttr("junk"); ok {
		t.Error("Expected unparseable string to report not-ok")
	}
	if _, ok := e.FloatAttr("missing"); ok {
		t.Error("Expected missing key to report not-ok")
	}
}

func TestBoolAttrThreeValued(t *testing.T) {
	e := &Entity{Attributes: map[string]any{
		"native_true":  true,
		"native_false": false,
		"string_true":  "True",
		"string_zero":  "0",
		"numeric":      1.0,
		"garbage":      "maybe",
	}}

	assertBool := func(key string, expected bool) {
		t.Helper()
		b := e.BoolAttr(key)
		if b == nil {
			t.Fatalf("Expected %s to coerce, got nil", key)
		}
		if *b != expected {
			t.Errorf("Expected %s = %v, got %v", key, expected, *b)
		}
	}

	assertBool("native_true", true)
	assertBool("native_false", false)
	assertBool("string_true", true)
	assertBool("string_zero", false)
	assertBool("numeric", true)

	if e.BoolAttr("garbage") != nil {
		t.Error("Unintelligible value must yield nil, not a guess")
	}
	if e.BoolAttr("missing") != nil {
		t.Error("Absent attribute must yield nil")
	}
}
