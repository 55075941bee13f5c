package printer

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/davidalonso/homeassistant-printer-bridge/pkg/homeassistant"
)

// Prefix inference only considers sensor entities; other categories (camera,
// image, binary_sensor) still count toward richness once a prefix is known.
const sensorDomain = "sensor"

// maxFeederSlots bounds slot probing to tray indices 1..4. Feeder units with
// more physical slots are not discovered beyond that; this mirrors the
// upstream integration and changing it is a product decision, not a bug fix.
const maxFeederSlots = 4

// printerSuffixes is the closed list of sensor suffixes that identify a
// printer prefix. Matching is exact: "_progress" alone is not
// "_print_progress".
var printerSuffixes = []string{
	"print_progress",
	"print_status",
	"current_layer",
	"total_layer_count",
	"remaining_time",
	"task_name",
	"nozzle_temperature",
	"bed_temperature",
	"current_stage",
}

var (
	trayPattern        = regexp.MustCompile(`_tray_\d+$`)
	humiditySuffixes   = []string{"humidity_index", "humidity"}
	feederTempSuffixes = []string{"temperature", "temp"}
)

// DiscoveredPrinter describes one printer inferred from entity naming.
type DiscoveredPrinter struct {
	Prefix             string `json:"prefix"`
	DisplayName        string `json:"display_name"`
	Model              Model  `json:"model,omitempty"`
	MatchedEntityCount int    `json:"matched_entity_count"`
}

// DiscoveredFeeder describes one multi-slot material feeder unit.
type DiscoveredFeeder struct {
	Prefix           string   `json:"prefix"`
	DisplayName      string   `json:"display_name"`
	SlotEntityIDs    []string `json:"slot_entity_ids"`
	HumidityEntityID string   `json:"humidity_entity_id,omitempty"`
	TempEntityID     string   `json:"temperature_entity_id,omitempty"`
}

// DiscoveryResult holds one discovery run's output, each list sorted
// descending by richness so callers defaulting to "the first device" pick
// the most fully-populated one.
type DiscoveryResult struct {
	Printers []DiscoveredPrinter `json:"printers"`
	Feeders  []DiscoveredFeeder  `json:"feeders"`
}

// Discover infers printer and feeder topology from one bulk entity listing.
// Pure and idempotent: the same batch yields the same result regardless of
// input ordering. Malformed entity ids are skipped, never fail the batch.
func Discover(entities []homeassistant.Entity) DiscoveryResult {
	byID := make(map[string]*homeassistant.Entity, len(entities))
	for i := range entities {
		byID[entities[i].EntityID] = &entities[i]
	}

	printerPrefixes := map[string]struct{}{}
	feederPrefixes := map[string]struct{}{}

	for i := range entities {
		e := &entities[i]
		if e.Domain() != sensorDomain {
			continue
		}
		object := e.ObjectID()
		if object == "" {
			continue
		}

		for _, suffix := range printerSuffixes {
			if prefix, ok := trimExactSuffix(object, suffix); ok {
				printerPrefixes[prefix] = struct{}{}
				break
			}
		}

		if loc := trayPattern.FindStringIndex(object); loc != nil && loc[0] > 0 {
			feederPrefixes[object[:loc[0]]] = struct{}{}
		}
	}

	result := DiscoveryResult{}

	for prefix := range printerPrefixes {
		result.Printers = append(result.Printers, DiscoveredPrinter{
			Prefix:             prefix,
			DisplayName:        resolvePrinterName(prefix, byID),
			Model:              DetectModel(prefix),
			MatchedEntityCount: countPrefixEntities(prefix, entities),
		})
	}

	for prefix := range feederPrefixes {
		result.Feeders = append(result.Feeders, buildFeeder(prefix, byID))
	}

	sort.Slice(result.Printers, func(i, j int) bool {
		a, b := result.Printers[i], result.Printers[j]
		if a.MatchedEntityCount != b.MatchedEntityCount {
			return a.MatchedEntityCount > b.MatchedEntityCount
		}
		return a.Prefix < b.Prefix
	})
	sort.Slice(result.Feeders, func(i, j int) bool {
		a, b := result.Feeders[i], result.Feeders[j]
		if len(a.SlotEntityIDs) != len(b.SlotEntityIDs) {
			return len(a.SlotEntityIDs) > len(b.SlotEntityIDs)
		}
		return a.Prefix < b.Prefix
	})

	return result
}

// trimExactSuffix matches "<prefix>_<suffix>" exactly, requiring a non-empty
// prefix before the underscore separator.
func trimExactSuffix(object, suffix string) (string, bool) {
	tail := "_" + suffix
	if !strings.HasSuffix(object, tail) {
		return "", false
	}
	prefix := object[:len(object)-len(tail)]
	if prefix == "" {
		return "", false
	}
	return prefix, true
}

// countPrefixEntities counts entities across all categories whose object id
// begins with "<prefix>_". This is the richness score.
func countPrefixEntities(prefix string, entities []homeassistant.Entity) int {
	count := 0
	lead := prefix + "_"
	for i := range entities {
		object := entities[i].ObjectID()
		if object != "" && strings.HasPrefix(object, lead) {
			count++
		}
	}
	return count
}

func resolvePrinterName(prefix string, byID map[string]*homeassistant.Entity) string {
	if e, ok := byID[sensorDomain+"."+prefix+"_print_status"]; ok {
		if name := e.StringAttr("friendly_name"); name != "" {
			return stripSuffixFold(name, " print status")
		}
	}
	return titleCase(strings.ReplaceAll(prefix, "_", " "))
}

func buildFeeder(prefix string, byID map[string]*homeassistant.Entity) DiscoveredFeeder {
	feeder := DiscoveredFeeder{Prefix: prefix}

	for slot := 1; slot <= maxFeederSlots; slot++ {
		id := sensorDomain + "." + prefix + "_tray_" + strconv.Itoa(slot)
		if _, ok := byID[id]; ok {
			feeder.SlotEntityIDs = append(feeder.SlotEntityIDs, id)
		}
	}

	for _, suffix := range humiditySuffixes {
		id := sensorDomain + "." + prefix + "_" + suffix
		if _, ok := byID[id]; ok {
			feeder.HumidityEntityID = id
			break
		}
	}
	for _, suffix := range feederTempSuffixes {
		id := sensorDomain + "." + prefix + "_" + suffix
		if _, ok := byID[id]; ok {
			feeder.TempEntityID = id
			break
		}
	}

	feeder.DisplayName = strings.ToUpper(prefix)
	if len(feeder.SlotEntityIDs) > 0 {
		if e, ok := byID[feeder.SlotEntityIDs[0]]; ok {
			if name := e.StringAttr("friendly_name"); name != "" {
				feeder.DisplayName = stripSuffixFold(name, " tray 1")
			}
		}
	}

	return feeder
}

// MatchFeeders filters discovered feeders down to those attached to the
// printer identified by prefix, by naming convention: the feeder prefix is
// either the printer prefix itself or an underscore-extension of it
// ("h2s_ams" for printer "h2s").
func MatchFeeders(prefix string, feeders []DiscoveredFeeder) []DiscoveredFeeder {
	var matched []DiscoveredFeeder
	for _, feeder := range feeders {
		if feeder.Prefix == prefix || strings.HasPrefix(feeder.Prefix, prefix+"_") {
			matched = append(matched, feeder)
		}
	}
	return matched
}

// stripSuffixFold removes a trailing suffix case-insensitively.
func stripSuffixFold(s, suffix string) string {
	if len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return strings.TrimSpace(s[:len(s)-len(suffix)])
	}
	return s
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
