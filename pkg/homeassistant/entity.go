package homeassistant

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Entity represents a single entity state record from the Home Assistant
// REST API (/api/states/<entity_id>).
type Entity struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged string         `json:"last_changed,omitempty"`
	LastUpdated string         `json:"last_updated,omitempty"`
}

// Domain returns the entity's category segment ("sensor" for
// "sensor.h2s_print_progress"). Empty if the id has no separator or an
// empty segment.
func (e *Entity) Domain() string {
	domain, object, ok := splitEntityID(e.EntityID)
	if !ok || object == "" {
		return ""
	}
	return domain
}

// ObjectID returns the part of the entity id after the category separator.
func (e *Entity) ObjectID() string {
	_, object, _ := splitEntityID(e.EntityID)
	return object
}

func splitEntityID(id string) (domain, object string, ok bool) {
	i := strings.IndexByte(id, '.')
	if i <= 0 || i == len(id)-1 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}

// StringAttr returns the named attribute as a string. Numbers and booleans
// are formatted, anything else yields "".
func (e *Entity) StringAttr(key string) string {
	v, ok := e.Attributes[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// FloatAttr returns the named attribute as a float64, coercing numeric
// strings. The second result reports whether a usable value was present.
func (e *Entity) FloatAttr(key string) (float64, bool) {
	v, ok := e.Attributes[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// IntAttr returns the named attribute as an int, truncating floats.
func (e *Entity) IntAttr(key string) (int, bool) {
	f, ok := e.FloatAttr(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// BoolAttr returns the named attribute as a three-valued boolean: nil when
// the attribute is absent or unintelligible, so callers can distinguish
// "not reported" from "reported false". Accepts native booleans, the strings
// "true"/"false"/"1"/"0" (case-insensitive) and zero/nonzero numbers.
func (e *Entity) BoolAttr(key string) *bool {
	v, ok := e.Attributes[key]
	if !ok || v == nil {
		return nil
	}
	return coerceBoolValue(v)
}

func coerceBoolValue(v any) *bool {
	switch t := v.(type) {
	case bool:
		b := t
		return &b
	case float64:
		b := t != 0
		return &b
	case int:
		b := t != 0
		return &b
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil
		}
		b := f != 0
		return &b
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1":
			b := true
			return &b
		case "false", "0":
			b := false
			return &b
		}
		return nil
	default:
		return nil
	}
}
