package printer

import "time"

// PlaceholderFileName is surfaced when a printer is actively printing but no
// filename has ever been observed for the current job.
const PlaceholderFileName = "No print"

// Snapshot is one fully-resolved, immutable printer state as of one poll
// tick. Treat by value; the sync engine never mutates a published snapshot.
type Snapshot struct {
	Prefix string `json:"prefix"`
	Model  Model  `json:"model,omitempty"`

	Status   Status  `json:"status"`
	Progress float64 `json:"progress"`
	FileName string  `json:"file_name"`

	CurrentLayer     int `json:"current_layer"`
	TotalLayers      int `json:"total_layers"`
	RemainingMinutes int `json:"remaining_minutes"`

	SpeedPercent      float64 `json:"speed_percent"`
	FilamentUsedGrams float64 `json:"filament_used_grams"`

	NozzleTemp       float64 `json:"nozzle_temp"`
	NozzleTargetTemp float64 `json:"nozzle_target_temp"`
	BedTemp          float64 `json:"bed_temp"`
	BedTargetTemp    float64 `json:"bed_target_temp"`
	ChamberTemp      float64 `json:"chamber_temp"`

	PartFanSpeed    float64 `json:"part_fan_speed"`
	AuxFanSpeed     float64 `json:"aux_fan_speed"`
	ChamberFanSpeed float64 `json:"chamber_fan_speed"`

	Connected  bool   `json:"connected"`
	WifiSignal string `json:"wifi_signal"`

	Stage     string `json:"stage"`
	ErrorText string `json:"error_text"`

	CoverImageURL string `json:"cover_image_url,omitempty"`

	CapturedAt time.Time `json:"captured_at"`
}

// SlotReading is one feeder slot's resolved state for one poll tick.
type SlotReading struct {
	SlotIndex           int     `json:"slot_index"`
	ColorHex            string  `json:"color_hex"`
	IsEmpty             bool    `json:"is_empty"`
	MaterialType        string  `json:"material_type"`
	MaterialName        string  `json:"material_name"`
	RemainingPercent    float64 `json:"remaining_percent"`
	NozzleTempMin       int     `json:"nozzle_temp_min"`
	NozzleTempMax       int     `json:"nozzle_temp_max"`
	IsActive            bool    `json:"is_active"`
	HasVerifiedIdentity bool    `json:"has_verified_identity"`
}

// FeederStatus is one feeder unit's environment readings plus its slots.
type FeederStatus struct {
	Prefix      string        `json:"prefix"`
	Humidity    string        `json:"humidity,omitempty"`
	Temperature string        `json:"temperature,omitempty"`
	Slots       []SlotReading `json:"slots"`
}
