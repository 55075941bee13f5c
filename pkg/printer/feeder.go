package printer

import (
	"strings"

	"github.com/davidalonso/homeassistant-printer-bridge/pkg/homeassistant"
)

// neutralColor is the placeholder the integration reports for an unloaded
// slot. A color equal to it carries no evidence either way.
const neutralColor = "808080"

// ReadSlot resolves one feeder slot entity into a SlotReading. The emptiness
// and identity heuristics are multi-factor: no single attribute is
// authoritative (see isSlotEmpty).
func ReadSlot(e *homeassistant.Entity, slotIndex int) SlotReading {
	reading := SlotReading{
		SlotIndex:    slotIndex,
		ColorHex:     e.StringAttr("color"),
		MaterialType: e.StringAttr("type"),
		MaterialName: e.StringAttr("name"),
	}

	if remain, ok := e.FloatAttr("remain"); ok {
		reading.RemainingPercent = clampPercent(remain)
	}
	if min, ok := e.IntAttr("nozzle_temp_min"); ok {
		reading.NozzleTempMin = min
	}
	if max, ok := e.IntAttr("nozzle_temp_max"); ok {
		reading.NozzleTempMax = max
	}

	if active := e.BoolAttr("active"); active != nil {
		reading.IsActive = *active
	} else if inUse := e.BoolAttr("in_use"); inUse != nil {
		reading.IsActive = *inUse
	}

	remain, hasRemain := e.FloatAttr("remain")
	reading.IsEmpty = isSlotEmpty(e, remain, hasRemain)

	// Identity verification (was the spool tag read electronically) overlaps
	// the emptiness inputs but is an independent heuristic: a positive
	// calibration constant, or a plausible remaining percentage.
	if k, ok := e.FloatAttr("k"); ok && k > 0 {
		reading.HasVerifiedIdentity = true
	} else if hasRemain && remain > 0 && remain <= 100 {
		reading.HasVerifiedIdentity = true
	}

	return reading
}

// isSlotEmpty decides emptiness from layered evidence:
//   - an explicit "empty" attribute set true is still overridden by stronger
//     positive evidence (positive remaining amount or a real material type),
//   - an explicit false is trusted directly,
//   - with no explicit attribute, the slot is empty only when material type,
//     name, remaining amount and color all say nothing.
func isSlotEmpty(e *homeassistant.Entity, remain float64, hasRemain bool) bool {
	hasMaterial := isValidMaterialType(e.StringAttr("type"))
	hasRemaining := hasRemain && remain > 0

	if explicit := e.BoolAttr("empty"); explicit != nil {
		if !*explicit {
			return false
		}
		return !hasRemaining && !hasMaterial
	}

	hasName := strings.TrimSpace(e.StringAttr("name")) != ""
	return !hasMaterial && !hasName && !hasRemaining && !hasMeaningfulColor(e.StringAttr("color"))
}

func isValidMaterialType(materialType string) bool {
	t := strings.ToLower(strings.TrimSpace(materialType))
	return t != "" && t != "empty" && t != "unknown"
}

func hasMeaningfulColor(color string) bool {
	c := strings.TrimPrefix(strings.TrimSpace(color), "#")
	return c != "" && !strings.EqualFold(c, neutralColor)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
